// Package styles provides shared lipgloss styles for CLI output.
package styles

import (
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Style exports.
var (
	HeaderStyle  lipgloss.Style
	TitleStyle   lipgloss.Style
	UnreadStyle  lipgloss.Style
	ReadStyle    lipgloss.Style
	MutedStyle   lipgloss.Style
	TimeStyle    lipgloss.Style
	IDStyle      lipgloss.Style
	DividerStyle lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style

	// Mode badges.
	ModeRemoteStyle lipgloss.Style
	ModeLocalStyle  lipgloss.Style

	// Boxed panels for show and status.
	PanelStyle      lipgloss.Style
	PanelTitleStyle lipgloss.Style
)

// ColorPool is used for deterministic color hashing of notification types.
var ColorPool []lipgloss.Color

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	HeaderStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)
	TitleStyle = lipgloss.NewStyle().
		Foreground(p.Foreground).
		Bold(true)
	UnreadStyle = lipgloss.NewStyle().
		Foreground(p.Primary)
	ReadStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	MutedStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	TimeStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		Italic(true)
	IDStyle = lipgloss.NewStyle().
		Foreground(p.Secondary)
	DividerStyle = lipgloss.NewStyle().
		Foreground(p.Surface)
	SuccessStyle = lipgloss.NewStyle().Foreground(p.Success)
	WarningStyle = lipgloss.NewStyle().Foreground(p.Warning)
	ErrorStyle = lipgloss.NewStyle().Foreground(p.Error)

	ModeRemoteStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Background(p.Success).
		Foreground(p.Background).
		Bold(true)
	ModeLocalStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Background(p.Warning).
		Foreground(p.Background).
		Bold(true)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Primary).
		Padding(0, 1)
	PanelTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Foreground)

	ColorPool = []lipgloss.Color{
		p.Primary,
		p.Secondary,
		p.Success,
		p.Warning,
		p.Error,
	}
}

// SetThemeByName activates a built-in theme and reports whether it exists.
func SetThemeByName(name string) bool {
	p, ok := GetPalette(name)
	if ok {
		SetTheme(p)
	}
	return ok
}

// ColorForString returns a deterministic color for a given string.
// The same string always produces the same color.
func ColorForString(s string) lipgloss.Color {
	var hash uint32
	for _, c := range s {
		hash = hash*31 + uint32(c)
	}
	return ColorPool[hash%uint32(len(ColorPool))]
}

// TypeStyle colors a notification type label.
func TypeStyle(t string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorForString(t))
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}

func hexPtr(c lipgloss.Color) *string {
	if c == "" {
		return nil
	}
	s := string(c)
	return &s
}

// GlamourStyle returns a Glamour style config derived from the active theme.
func GlamourStyle() ansi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig
	p := CurrentPalette

	fg := hexPtr(p.Foreground)
	primary := hexPtr(p.Primary)
	secondary := hexPtr(p.Secondary)
	muted := hexPtr(p.Muted)
	surface := hexPtr(p.Surface)

	cfg.Document.Color = fg

	cfg.Paragraph.Color = fg

	cfg.Heading.Color = primary
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = surface
	cfg.H2.Color = primary
	cfg.H3.Color = primary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	cfg.Link.Color = secondary
	cfg.LinkText.Color = secondary

	cfg.Code.Color = secondary
	cfg.CodeBlock.Color = muted

	return cfg
}
