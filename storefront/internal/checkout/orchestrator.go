// Package checkout drives credit-pack purchases and plan subscriptions from
// trigger to verified outcome: SDK readiness, order creation, the payment
// widget, and server-side verification.
//
// Every failure ends up in State.ErrorMessage; nothing is returned to the
// caller as an error. Backend calls run to completion once started. The
// context passed to a flow only bounds the wait for the user in the widget.
package checkout

import (
	"context"
	"log/slog"
	"sync"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/storefront/internal/catalog"
	"github.com/affiliateplus/storefront/storefront/internal/eventbus"
	"github.com/affiliateplus/storefront/storefront/internal/sdk"
)

// User-visible messages.
const (
	MsgSDKLoadFailed      = "Failed to load payment SDK"
	MsgSDKNotLoaded       = "SDK is not loaded. Please try again in a moment."
	MsgCreditsFailed      = "Unable to purchase credits, please try again"
	MsgSubscriptionFailed = "Failed to create subscription"
	MsgSubscribed         = "Subscription activated"
	MsgInvalidPack        = "Select a valid credit pack"
	MsgUnknownPlan        = "Unknown plan"
	msgCreditsAdded       = "%d credits added!"
)

// ScriptLoader makes the payment SDK present.
type ScriptLoader interface {
	Status() sdk.Status
	Load(ctx context.Context) error
}

// PaymentsAPI is the backend order and verification service.
type PaymentsAPI interface {
	CreateOrder(ctx context.Context, credits int) (protocol.Order, error)
	VerifyOrder(ctx context.Context, req protocol.VerifyOrderRequest) (protocol.User, error)
	CreateSubscription(ctx context.Context, planName string) (protocol.ProviderSubscription, error)
	VerifySubscription(ctx context.Context, subscriptionID string) (protocol.User, error)
}

// Widget hands a checkout to the payment provider's UI. The returned channel
// yields at most one response and is then closed; closed without a value
// means the user dismissed the widget.
type Widget interface {
	Open(ctx context.Context, opts protocol.CheckoutOptions) (<-chan protocol.PaymentResponse, error)
}

// SessionStore owns the signed-in user.
type SessionStore interface {
	Current() protocol.User
	Replace(user protocol.User)
}

// PlanRegistry resolves plan keys to display metadata.
type PlanRegistry interface {
	Lookup(key string) (catalog.Plan, bool)
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Loader  ScriptLoader
	API     PaymentsAPI
	Widget  Widget
	Session SessionStore
	Plans   PlanRegistry
	Bus     *eventbus.Bus // optional
}

// Options are the static widget settings.
type Options struct {
	KeyID      string
	BrandName  string
	ThemeColor string
}

// Orchestrator is the checkout state machine. One invocation runs at a time;
// a trigger that arrives while another is in flight is ignored.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	running bool // an invocation holds the single-flight slot
}

// New creates an orchestrator in the idle state with the SDK not loaded.
func New(deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logger.With("component", "checkout"),
		state:  State{SDK: SDKNotLoaded, Phase: PhaseIdle},
	}
}

// State returns a snapshot of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Busy reports whether an invocation is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Mount brings the SDK to Ready. An SDK that is already present is adopted
// without a load, otherwise it is loaded once. Calls made while a load runs,
// or after it settled, return immediately, so the state never regresses. If
// ctx ends before the load finishes the state goes back to not loaded and a
// later Mount picks up where the loader got to.
func (o *Orchestrator) Mount(ctx context.Context) {
	o.mu.Lock()
	if o.state.SDK != SDKNotLoaded {
		o.mu.Unlock()
		return
	}
	if o.deps.Loader.Status() == sdk.Ready {
		snap := o.apply(func(s *State) { s.SDK = SDKReady })
		o.mu.Unlock()
		o.publish(snap)
		return
	}
	snap := o.apply(func(s *State) { s.SDK = SDKLoading })
	o.mu.Unlock()
	o.publish(snap)

	if err := o.deps.Loader.Load(ctx); err != nil {
		if ctx.Err() != nil {
			o.logger.Debug("sdk load abandoned", "error", err)
			o.update(func(s *State) {
				if s.SDK == SDKLoading {
					s.SDK = SDKNotLoaded
				}
			})
			return
		}
		o.logger.Error("payment sdk failed to load", "error", err)
		o.update(func(s *State) {
			s.SDK = SDKFailed
			s.ErrorMessage = MsgSDKLoadFailed
			s.SuccessMessage = ""
		})
		return
	}
	o.update(func(s *State) { s.SDK = SDKReady })
}

// OpenModal shows the credit pack selection.
func (o *Orchestrator) OpenModal() {
	o.update(func(s *State) { s.ModalOpen = true })
}

// CloseModal hides the credit pack selection.
func (o *Orchestrator) CloseModal() {
	o.update(func(s *State) { s.ModalOpen = false })
}

// update applies fn under the lock, then publishes the result.
func (o *Orchestrator) update(fn func(s *State)) State {
	o.mu.Lock()
	snap := o.apply(fn)
	o.mu.Unlock()
	return o.publish(snap)
}

// apply must be called with mu held.
func (o *Orchestrator) apply(fn func(s *State)) State {
	fn(&o.state)
	o.state.SDKReady = o.state.SDK == SDKReady
	return o.state
}

func (o *Orchestrator) publish(snap State) State {
	o.logger.Debug("checkout state",
		"sdk", snap.SDK.String(),
		"phase", snap.Phase,
		"flow", snap.Flow,
		"modal_open", snap.ModalOpen,
		"error", snap.ErrorMessage,
		"success", snap.SuccessMessage,
	)
	if o.deps.Bus != nil {
		o.deps.Bus.PublishType(eventbus.CheckoutState, snap)
	}
	return snap
}

// begin starts an invocation of flow: the modal closes and both messages
// clear. It reports false, touching nothing, when another invocation is in
// flight.
func (o *Orchestrator) begin(flow Flow) (State, bool) {
	o.mu.Lock()
	if o.running {
		snap := o.state
		o.mu.Unlock()
		o.logger.Warn("checkout already in progress, ignoring trigger", "flow", flow, "running", snap.Flow, "phase", snap.Phase)
		return snap, false
	}
	o.running = true
	snap := o.apply(func(s *State) {
		s.ModalOpen = false
		s.ErrorMessage = ""
		s.SuccessMessage = ""
		s.Flow = flow
		s.Phase = PhaseIdle
	})
	o.mu.Unlock()
	return o.publish(snap), true
}

// settle ends the running invocation with fn applied.
func (o *Orchestrator) settle(fn func(s *State)) State {
	o.mu.Lock()
	snap := o.apply(fn)
	o.running = false
	o.mu.Unlock()
	return o.publish(snap)
}

// ready reports whether a flow may proceed past its precondition check.
func (o *Orchestrator) ready() bool {
	return o.State().SDK == SDKReady && o.deps.Loader.Status() == sdk.Ready
}

func (o *Orchestrator) advance(p Phase) {
	o.update(func(s *State) { s.Phase = p })
}

func (o *Orchestrator) fail(msg string) State {
	return o.settle(func(s *State) {
		s.Phase = PhaseSettled
		s.ErrorMessage = msg
		s.SuccessMessage = ""
	})
}

func (o *Orchestrator) succeed(msg string) State {
	return o.settle(func(s *State) {
		s.Phase = PhaseSettled
		s.ErrorMessage = ""
		s.SuccessMessage = msg
	})
}

// dismissed returns to idle without a message.
func (o *Orchestrator) dismissed() State {
	return o.settle(func(s *State) {
		s.Phase = PhaseIdle
		s.Flow = FlowNone
	})
}
