// Package tmpl renders notification text: Go templates for custom list
// formats and {placeholder} interpolation for message bodies.
package tmpl

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"
)

var funcs = template.FuncMap{
	"join":  strings.Join,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trunc": truncate,
	"ago":   ago,
	"date":  func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
}

// truncate shortens s to n runes, adding an ellipsis when cut.
func truncate(n int, s string) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// now is swapped in tests.
var now = time.Now

// ago renders a coarse relative time such as "5m ago".
func ago(t time.Time) string {
	d := now().Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// Ago is the exported form of the "ago" template function.
func Ago(t time.Time) string {
	return ago(t)
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
//
// Available template functions:
//   - join: Join string slice with separator (e.g., join .Tags ", ")
//   - upper, lower: change case
//   - trunc: Truncate to n runes (e.g., trunc 20 .Title)
//   - ago: Relative time (e.g., ago .CreatedAt)
//   - date: Local timestamp
func Render(tmpl string, data any) (string, error) {
	t, err := Parse(tmpl)
	if err != nil {
		return "", err
	}
	return Execute(t, data)
}

// Parse compiles tmpl once for repeated Execute calls.
func Parse(tmpl string) (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return t, nil
}

// Execute runs a parsed template.
func Execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.]*)\}`)

// Interpolate replaces {name} placeholders in msg with values from vars.
// Unknown placeholders are left as written.
func Interpolate(msg string, vars map[string]string) string {
	if len(vars) == 0 {
		return msg
	}
	return placeholderRe.ReplaceAllStringFunc(msg, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// Placeholders lists the distinct placeholder names in msg, in order.
func Placeholders(msg string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(msg, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
