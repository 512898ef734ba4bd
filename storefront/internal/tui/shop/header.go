package shop

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/pkg/rbac"
	"github.com/affiliateplus/storefront/storefront/internal/checkout"
	"github.com/affiliateplus/storefront/storefront/internal/tui"
)

func headerView(brand string, user protocol.User, st checkout.State, gate *rbac.Gate, width int) string {
	left := tui.Title.Render(brand)
	sdk := st.SDK.String()
	right := tui.SDKDot(sdk) + " " + tui.SDKText(sdk)

	info := "  Signed out"
	if user.ID != "" {
		info = fmt.Sprintf("  %s <%s>   Role: %s", user.Name, user.Email, user.Role)
	}
	info += gate.Render(rbac.PermViewBalance, func() string {
		return fmt.Sprintf("   Current Balance: %d Credits", user.Credits)
	})
	if user.Subscription != nil {
		info += fmt.Sprintf("   Plan: %s (%s)", user.Subscription.PlanName, user.Subscription.Status)
	}

	headerStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tui.ColorPrimary).
		Width(width-2).
		Padding(0, 1)

	firstRow := lipgloss.JoinHorizontal(lipgloss.Top,
		left,
		lipgloss.NewStyle().Width(max(width-lipgloss.Width(left)-lipgloss.Width(right)-6, 1)).Render(""),
		right,
	)
	return headerStyle.Render(firstRow + "\n" + tui.Description.Render(info))
}

func bannerView(st checkout.State) string {
	switch {
	case st.ErrorMessage != "":
		return tui.ErrorBanner.Render(st.ErrorMessage)
	case st.SuccessMessage != "":
		return tui.SuccessBanner.Render(st.SuccessMessage)
	}
	return ""
}
