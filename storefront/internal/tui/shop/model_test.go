package shop

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/pkg/rbac"
	"github.com/affiliateplus/storefront/storefront/internal/catalog"
	"github.com/affiliateplus/storefront/storefront/internal/checkout"
	"github.com/affiliateplus/storefront/storefront/internal/eventbus"
)

type fakeCheckout struct {
	mu         sync.Mutex
	state      checkout.State
	mounts     int
	bought     []int
	subscribed []string
	waitForCtx bool
}

func (f *fakeCheckout) State() checkout.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeCheckout) Mount(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mounts++
	f.state.SDK = checkout.SDKReady
	f.state.SDKReady = true
}

func (f *fakeCheckout) OpenModal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.ModalOpen = true
}

func (f *fakeCheckout) CloseModal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.ModalOpen = false
}

func (f *fakeCheckout) BuyCredits(ctx context.Context, credits int) checkout.State {
	f.mu.Lock()
	f.bought = append(f.bought, credits)
	f.state.ModalOpen = false
	wait := f.waitForCtx
	f.mu.Unlock()
	if wait {
		<-ctx.Done()
		return f.settle(checkout.PhaseIdle, "")
	}
	return f.settle(checkout.PhaseSettled, "credits added!")
}

func (f *fakeCheckout) Subscribe(ctx context.Context, planKey string) checkout.State {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, planKey)
	wait := f.waitForCtx
	f.mu.Unlock()
	if wait {
		<-ctx.Done()
		return f.settle(checkout.PhaseIdle, "")
	}
	return f.settle(checkout.PhaseSettled, checkout.MsgSubscribed)
}

func (f *fakeCheckout) settle(p checkout.Phase, success string) checkout.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Phase = p
	f.state.SuccessMessage = success
	return f.state
}

type staticUser struct{ user protocol.User }

func (s staticUser) Current() protocol.User { return s.user }

func newTestModel(t *testing.T, role string) (Model, *fakeCheckout) {
	t.Helper()
	co := &fakeCheckout{state: checkout.State{Phase: checkout.PhaseIdle}}
	user := protocol.User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: role, Credits: 500}
	m := NewModel(Deps{
		Checkout: co,
		Session:  staticUser{user},
		Gate:     rbac.NewGate(rbac.DefaultTable(), func() string { return role }),
		Catalog:  catalog.Default(),
	})
	return m, co
}

func press(t *testing.T, m Model, keys ...tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(tea.KeyMsg{Type: k})
		m = next.(Model)
	}
	return m, cmd
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestView_AdminSeesEverything(t *testing.T) {
	m, _ := newTestModel(t, rbac.RoleAdmin)
	view := m.View()
	for _, want := range []string{"Credit Packs", "₹199/month", "₹1990/year", "Subscribe Yearly", "Current Balance: 500 Credits", "10 CREDITS FOR ₹10"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_GateHidesFragments(t *testing.T) {
	m, co := newTestModel(t, rbac.RoleDeveloper)
	view := m.View()
	if strings.Contains(view, "Credit Packs") || strings.Contains(view, "Subscribe Monthly") {
		t.Error("developer must not see purchase cards")
	}
	if !strings.Contains(view, "Current Balance: 500 Credits") {
		t.Error("developer can view the balance")
	}

	m, _ = press(t, m, tea.KeyEnter)
	if co.State().ModalOpen || len(co.subscribed) != 0 {
		t.Error("enter with no visible cards must do nothing")
	}

	signedOut, _ := newTestModel(t, "")
	if strings.Contains(signedOut.View(), "Current Balance") {
		t.Error("an empty role must not see the balance")
	}
}

func TestBuyCredits_ThroughModal(t *testing.T) {
	m, co := newTestModel(t, rbac.RoleAdmin)

	m, _ = press(t, m, tea.KeyEnter)
	if !m.state.ModalOpen {
		t.Fatal("expected the pack modal to open")
	}
	if !strings.Contains(m.View(), "Buy 20 Credits") {
		t.Error("modal should list the packs")
	}

	m, cmd := press(t, m, tea.KeyRight, tea.KeyEnter)
	if cmd == nil {
		t.Fatal("expected a checkout command")
	}
	if !m.busy() {
		t.Error("page must be busy once a purchase starts")
	}

	// A second press while the first purchase runs is ignored.
	if _, again := press(t, m, tea.KeyEnter); again != nil {
		t.Error("expected no second checkout while busy")
	}

	m = send(m, cmd())
	if len(co.bought) != 1 || co.bought[0] != 20 {
		t.Errorf("bought = %v, want [20]", co.bought)
	}
	if m.busy() {
		t.Error("page still busy after the flow finished")
	}
	if !strings.Contains(m.View(), "credits added!") {
		t.Error("expected the success banner")
	}
}

func TestSubscribe_FromPlanCard(t *testing.T) {
	m, co := newTestModel(t, rbac.RoleAdmin)
	m, cmd := press(t, m, tea.KeyRight, tea.KeyEnter)
	if cmd == nil {
		t.Fatal("expected a subscribe command")
	}
	m = send(m, cmd())
	if len(co.subscribed) != 1 || co.subscribed[0] != catalog.UnlimitedMonthly {
		t.Errorf("subscribed = %v", co.subscribed)
	}
	if !strings.Contains(m.View(), checkout.MsgSubscribed) {
		t.Error("expected the subscription banner")
	}
}

func TestEscCancelsWidgetWait(t *testing.T) {
	m, co := newTestModel(t, rbac.RoleAdmin)
	co.waitForCtx = true

	m, cmd := press(t, m, tea.KeyLeft, tea.KeyEnter) // wraps to the yearly plan
	if cmd == nil {
		t.Fatal("expected a subscribe command")
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	m = send(m, StateMsg{State: checkout.State{Phase: checkout.PhaseAwaitingPayment, Flow: checkout.FlowSubscription}})
	m = send(m, PageURLMsg{URL: "http://127.0.0.1:4321/checkout/abc"})
	if !strings.Contains(m.View(), "http://127.0.0.1:4321/checkout/abc") {
		t.Error("expected the checkout page URL in the status line")
	}
	m, _ = press(t, m, tea.KeyEsc)

	select {
	case msg := <-done:
		m = send(m, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("esc did not end the widget wait")
	}
	if co.subscribed[0] != catalog.UnlimitedYearly {
		t.Errorf("subscribed = %v", co.subscribed)
	}
	if m.busy() {
		t.Error("page still busy after cancel")
	}
}

func TestEscClosesModal(t *testing.T) {
	m, co := newTestModel(t, rbac.RoleAdmin)
	m, _ = press(t, m, tea.KeyEnter, tea.KeyEsc)
	if m.state.ModalOpen || co.State().ModalOpen {
		t.Error("esc should close the modal")
	}
}

func TestStaleStateIgnoredAfterFlow(t *testing.T) {
	m, _ := newTestModel(t, rbac.RoleAdmin)
	m = send(m, StateMsg{State: checkout.State{Phase: checkout.PhaseAwaitingVerification}})
	if m.busy() {
		t.Error("a late in-flight snapshot must not mark the page busy")
	}
	m = send(m, StateMsg{State: checkout.State{Phase: checkout.PhaseSettled, ErrorMessage: "insufficient funds"}})
	if !strings.Contains(m.View(), "insufficient funds") {
		t.Error("expected the error banner")
	}
}

func TestToMsg(t *testing.T) {
	bus := eventbus.New()
	ch := bus.Subscribe()
	bus.PublishType(eventbus.CheckoutState, checkout.State{SDK: checkout.SDKReady, Phase: checkout.PhaseIdle})
	bus.PublishType(eventbus.UserUpdated, protocol.User{Credits: 600})
	bus.PublishType(eventbus.WidgetPage, "http://127.0.0.1:1/checkout/x")
	bus.PublishType(eventbus.LogEntry, eventbus.LogRecord{Message: "hello"})

	if msg, ok := toMsg(<-ch).(StateMsg); !ok || msg.State.SDK != checkout.SDKReady {
		t.Errorf("state msg = %#v", msg)
	}
	if msg, ok := toMsg(<-ch).(UserMsg); !ok || msg.User.Credits != 600 {
		t.Errorf("user msg = %#v", msg)
	}
	if msg, ok := toMsg(<-ch).(PageURLMsg); !ok || msg.URL == "" {
		t.Errorf("page msg = %#v", msg)
	}
	if msg, ok := toMsg(<-ch).(LogMsg); !ok || msg.Record.Message != "hello" {
		t.Errorf("log msg = %#v", msg)
	}
}

func TestInit_Mounts(t *testing.T) {
	m, co := newTestModel(t, rbac.RoleAdmin)
	m = send(m, m.mount())
	if co.mounts != 1 || !m.state.SDKReady {
		t.Errorf("mounts = %d, state = %+v", co.mounts, m.state)
	}
}
