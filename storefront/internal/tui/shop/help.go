package shop

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/affiliateplus/storefront/storefront/internal/tui"
)

type helpModel struct {
	visible bool
}

func newHelp() helpModel {
	return helpModel{}
}

func (h *helpModel) toggle() {
	h.visible = !h.visible
}

func (h helpModel) bar(modalOpen, awaitingPayment bool) string {
	switch {
	case awaitingPayment:
		return tui.Help.Render("  esc cancel checkout  q quit  ? help")
	case modalOpen:
		return tui.Help.Render("  ←/→ choose pack  enter buy  esc close  q quit")
	}
	return tui.Help.Render("  ←/→ choose  enter select  j/k scroll activity  q quit  ? help")
}

func (h helpModel) View() string {
	title := tui.Title.Render("Keyboard Shortcuts") + "\n\n"

	binds := []struct {
		key  string
		desc string
	}{
		{"← / → / Tab", "Move between purchase options"},
		{"Enter", "Open the credit packs, or subscribe to a plan"},
		{"Esc", "Close the pack picker, or cancel a checkout in progress"},
		{"j / k", "Scroll the activity log"},
		{"q / Ctrl+C", "Quit"},
		{"?", "Toggle this help"},
	}

	keyStyle := lipgloss.NewStyle().
		Foreground(tui.ColorAccent).
		Bold(true).
		Width(16)

	descStyle := lipgloss.NewStyle().
		Foreground(tui.ColorText)

	s := title
	for _, b := range binds {
		s += "  " + keyStyle.Render(b.key) + descStyle.Render(b.desc) + "\n"
	}
	s += "\n" + tui.Help.Render("  Press ? to close")

	return lipgloss.NewStyle().Padding(1, 2).Render(s)
}
