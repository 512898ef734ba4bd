// Package tui provides the shared palette and styles for the storefront's
// terminal page.
package tui

import "github.com/charmbracelet/lipgloss"

// Colors.
var (
	ColorPrimary   = lipgloss.Color("#3399CC") // checkout theme blue
	ColorSecondary = lipgloss.Color("#2563EB") // blue-600
	ColorAccent    = lipgloss.Color("#F59E0B") // amber

	ColorSuccess = lipgloss.Color("#10B981")
	ColorWarning = lipgloss.Color("#F59E0B")
	ColorError   = lipgloss.Color("#EF4444")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorText    = lipgloss.Color("#E5E7EB")
	ColorSubtle  = lipgloss.Color("#9CA3AF")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	Subtitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	Description = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	Selected = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	Dimmed = lipgloss.NewStyle().
		Foreground(ColorMuted)

	Success = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	// ErrorStyle avoids colliding with the builtin error.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	Help = lipgloss.NewStyle().
		Foreground(ColorMuted)

	// ErrorBanner and SuccessBanner frame the page's outcome messages.
	ErrorBanner = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorError).
			Foreground(ColorError).
			Padding(0, 1)

	SuccessBanner = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorSuccess).
			Foreground(ColorSuccess).
			Padding(0, 1)

	// Card is a purchase option; FocusedCard is the one under the cursor.
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Padding(0, 2).
		Align(lipgloss.Center)

	FocusedCard = Card.
			BorderForeground(ColorPrimary)

	Button = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(ColorSecondary).
		Padding(0, 2)

	DisabledButton = Button.
			Background(ColorMuted)

	ActiveDot = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Render("●")

	InactiveDot = lipgloss.NewStyle().
			Foreground(ColorError).
			Render("●")

	WarnDot = lipgloss.NewStyle().
		Foreground(ColorWarning).
		Render("●")
)

// SDKDot returns a colored dot for the payment SDK state name.
func SDKDot(state string) string {
	switch state {
	case "ready":
		return ActiveDot
	case "failed":
		return InactiveDot
	default:
		return WarnDot
	}
}

// SDKText returns a colored label for the payment SDK state name.
func SDKText(state string) string {
	switch state {
	case "ready":
		return Success.Render("payments ready")
	case "failed":
		return ErrorStyle.Render("payments unavailable")
	case "loading":
		return WarningStyle.Render("loading payments")
	default:
		return Dimmed.Render("payments not loaded")
	}
}

// LogLevelStyle returns a style for the given log level.
func LogLevelStyle(level string) lipgloss.Style {
	switch level {
	case "DEBUG":
		return lipgloss.NewStyle().Foreground(ColorMuted)
	case "INFO":
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case "WARN":
		return lipgloss.NewStyle().Foreground(ColorWarning)
	case "ERROR":
		return lipgloss.NewStyle().Foreground(ColorError)
	default:
		return lipgloss.NewStyle().Foreground(ColorText)
	}
}
