package display

import "github.com/charmbracelet/lipgloss"

// ── Styles ───────────────────────────────────────────────────────

const (
	fallbackClockColor = "#bae6fd"
	fallbackTextColor  = "#d4d4d8"
)

var (
	// BannerStyle is muted slate for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	focusedSectionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fde68a")).
				Italic(true)

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a")).
			Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8")).
			Background(lipgloss.Color("#27272a")).
			Padding(0, 2)

	activeButtonStyle = buttonStyle.
				Foreground(lipgloss.Color("#18181b")).
				Background(lipgloss.Color("#fde68a"))

	sliderEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#3f3f46"))

	flashStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	urgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))
)

// fg is a foreground style in a user-chosen color.
func fg(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}

// swatch renders a small block of the given color.
func swatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("    ")
}
