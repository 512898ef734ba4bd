package shop

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/storefront/internal/checkout"
	"github.com/affiliateplus/storefront/storefront/internal/eventbus"
)

// Run shows the page until the user quits or ctx is cancelled. Bus events are
// forwarded into the page as messages.
func Run(ctx context.Context, deps Deps, bus *eventbus.Bus, opts ...tea.ProgramOption) error {
	m := NewModel(deps)
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)...)

	ch := bus.Subscribe(eventbus.CheckoutState, eventbus.UserUpdated, eventbus.LogEntry, eventbus.WidgetPage)
	defer bus.Unsubscribe(ch)
	go forward(ch, p.Send)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// forward turns bus events into page messages until ch closes.
func forward(ch <-chan eventbus.Event, send func(tea.Msg)) {
	for evt := range ch {
		if msg := toMsg(evt); msg != nil {
			send(msg)
		}
	}
}

func toMsg(evt eventbus.Event) tea.Msg {
	switch evt.Type {
	case eventbus.CheckoutState:
		var st checkout.State
		if evt.Decode(&st) == nil {
			return StateMsg{State: st}
		}
	case eventbus.UserUpdated:
		var u protocol.User
		if evt.Decode(&u) == nil {
			return UserMsg{User: u}
		}
	case eventbus.WidgetPage:
		var url string
		if evt.Decode(&url) == nil {
			return PageURLMsg{URL: url}
		}
	case eventbus.LogEntry:
		var rec eventbus.LogRecord
		if evt.Decode(&rec) == nil {
			return LogMsg{Record: rec}
		}
	}
	return nil
}
