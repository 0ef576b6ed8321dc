package commands

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/colonyops/inbox/internal/inbox"
	"github.com/colonyops/inbox/pkg/tmpl"
	"golang.org/x/term"
)

// isTerminal reports whether w is an interactive terminal. Styled output is
// only used when it is.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// paint applies style only when styled is set.
func paint(styled bool, style lipgloss.Style, s string) string {
	if !styled {
		return s
	}
	return style.Render(s)
}

func metadataVars(m notification.Metadata) map[string]string {
	if len(m) == 0 {
		return nil
	}
	vars := make(map[string]string, len(m))
	for k, v := range m {
		vars[k] = v.String()
	}
	return vars
}

// renderMessage fills {name} placeholders from the record's metadata.
func renderMessage(r notification.Record) string {
	return tmpl.Interpolate(r.Message, metadataVars(r.Metadata))
}

func modeBadge(styled bool, mode inbox.Mode) string {
	if mode == inbox.ModeLocalOnly {
		return paint(styled, styles.ModeLocalStyle, styles.IconLocal+" "+mode.String())
	}
	return paint(styled, styles.ModeRemoteStyle, styles.IconRemote+" "+mode.String())
}

func sourceBadge(styled bool, src inbox.Source) string {
	if src == inbox.SourceLocal {
		return paint(styled, styles.ModeLocalStyle, styles.IconLocal+" local")
	}
	return paint(styled, styles.ModeRemoteStyle, styles.IconRemote+" remote")
}
