package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/nutq/internal/domain"
)

// Gruvbox-inspired palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorAqua   = lipgloss.Color("#689d6a")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// schemeColors maps a scheme's color index (1..6) to a swatch.
var schemeColors = [...]lipgloss.Color{ColorRed, ColorHeader, ColorYellow, ColorGreen, ColorBlue, ColorPurple}

// SchemeStyle returns the foreground style for a scheme color index. Values
// outside the palette render dim.
func SchemeStyle(color int) lipgloss.Style {
	if color < domain.MinColor || color > domain.MaxColor {
		return StyleDim
	}
	return lipgloss.NewStyle().Foreground(schemeColors[color-domain.MinColor])
}

// SchemeBadge renders "● Name" in the scheme's color.
func SchemeBadge(name string, color int) string {
	return SchemeStyle(color).Render("● " + name)
}

// StateBadge renders one progress cell.
func StateBadge(progress int) string {
	switch {
	case progress == domain.ProgressComplete:
		return StyleGreen.Render("✔")
	case progress > 0:
		return StyleYellow.Render(fmt.Sprintf("%d", progress))
	default:
		return StyleDim.Render("○")
	}
}

// ConnectionBadge renders the sync state name.
func ConnectionBadge(state string) string {
	switch state {
	case "synced":
		return StyleGreen.Render("● " + state)
	case "acquiring":
		return StyleYellow.Render("◐ " + state)
	default:
		return StyleDim.Render("○ " + state)
	}
}

// Header renders an upper-case section title with an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
