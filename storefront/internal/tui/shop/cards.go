package shop

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/affiliateplus/storefront/pkg/rbac"
	"github.com/affiliateplus/storefront/storefront/internal/catalog"
	"github.com/affiliateplus/storefront/storefront/internal/tui"
)

type cardKind int

const (
	cardCredits cardKind = iota
	cardPlan
)

type card struct {
	kind       cardKind
	permission string
	title      string
	lines      []string
	button     string
	planKey    string
}

type cardsModel struct {
	all    []card
	cursor int
}

func newCards(cat *catalog.Catalog) cardsModel {
	packs := card{
		kind:       cardCredits,
		permission: rbac.PermBuyCredits,
		title:      "Credit Packs",
		button:     "Buy Credits",
	}
	for _, n := range cat.CreditPacks() {
		packs.lines = append(packs.lines, catalog.PackLabel(n))
	}

	cards := []card{packs}
	for _, k := range cat.Keys() {
		p, _ := cat.Lookup(k)
		cards = append(cards, card{
			kind:       cardPlan,
			permission: rbac.PermSubscribe,
			title:      p.Price + "/" + p.Period,
			lines:      p.Features,
			button:     subscribeLabel(p),
			planKey:    k,
		})
	}
	return cardsModel{all: cards}
}

func subscribeLabel(p catalog.Plan) string {
	switch p.Period {
	case "month":
		return "Subscribe Monthly"
	case "year":
		return "Subscribe Yearly"
	}
	return "Subscribe " + p.PlanName
}

// visible returns the cards the gate lets this role see.
func (c cardsModel) visible(gate *rbac.Gate) []card {
	var out []card
	for _, cd := range c.all {
		if gate.CanRender(cd.permission) {
			out = append(out, cd)
		}
	}
	return out
}

// focus clamps the cursor to n visible cards. The role can change under the
// cursor when the session user is replaced.
func (c cardsModel) focus(n int) int {
	if n == 0 {
		return 0
	}
	return min(max(c.cursor, 0), n-1)
}

func (c *cardsModel) move(delta, n int) {
	if n == 0 {
		return
	}
	c.cursor = (c.focus(n) + delta + n) % n
}

func (c cardsModel) View(gate *rbac.Gate, disabled bool) string {
	visible := c.visible(gate)
	if len(visible) == 0 {
		return tui.Dimmed.Render("  Purchasing is not available for your role.")
	}

	focused := c.focus(len(visible))
	views := make([]string, 0, len(visible))
	for i, cd := range visible {
		style := tui.Card
		if i == focused {
			style = tui.FocusedCard
		}
		button := tui.Button
		if disabled {
			button = tui.DisabledButton
		}

		var body strings.Builder
		body.WriteString(tui.Subtitle.Render(cd.title) + "\n\n")
		for _, l := range cd.lines {
			body.WriteString(tui.Description.Render(l) + "\n")
		}
		body.WriteString("\n" + button.Render(cd.button))
		views = append(views, style.Width(30).Render(body.String()))
	}

	heading := tui.Title.Render("  Choose Plan") + "\n" +
		tui.Description.Render("  Flexible options: one-time credits or recurring subscriptions.") + "\n"
	return heading + lipgloss.JoinHorizontal(lipgloss.Top, views...)
}
