package shop

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/affiliateplus/storefront/storefront/internal/tui"
)

// modalModel is the credit pack picker.
type modalModel struct {
	packs  []int
	cursor int
}

func newModal(packs []int) modalModel {
	return modalModel{packs: packs}
}

func (m *modalModel) reset() { m.cursor = 0 }

func (m *modalModel) move(delta int) {
	if len(m.packs) == 0 {
		return
	}
	m.cursor = (m.cursor + delta + len(m.packs)) % len(m.packs)
}

func (m modalModel) selected() int {
	if len(m.packs) == 0 {
		return 0
	}
	return m.packs[m.cursor]
}

func (m modalModel) View(disabled bool) string {
	var b strings.Builder
	b.WriteString(tui.Subtitle.Render("Buy Credits") + "\n\n")
	for i, n := range m.packs {
		label := fmt.Sprintf("Buy %d Credits", n)
		switch {
		case disabled:
			b.WriteString("  " + tui.DisabledButton.Render(label))
		case i == m.cursor:
			b.WriteString("> " + tui.Button.Render(label))
		default:
			b.WriteString("  " + tui.Dimmed.Render(label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n" + tui.Help.Render("enter buy • esc close"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tui.ColorPrimary).
		Padding(1, 3).
		Render(b.String())
}
