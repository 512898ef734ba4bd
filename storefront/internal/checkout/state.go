package checkout

import "fmt"

// SDKState is the orchestrator's view of the payment SDK.
type SDKState int

const (
	SDKNotLoaded SDKState = iota
	SDKLoading
	SDKReady
	SDKFailed
)

func (s SDKState) String() string {
	switch s {
	case SDKNotLoaded:
		return "not_loaded"
	case SDKLoading:
		return "loading"
	case SDKReady:
		return "ready"
	case SDKFailed:
		return "failed"
	default:
		return fmt.Sprintf("sdk(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s SDKState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *SDKState) UnmarshalText(b []byte) error {
	for _, v := range []SDKState{SDKNotLoaded, SDKLoading, SDKReady, SDKFailed} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown sdk state %q", b)
}

// Phase is where a purchase or subscription invocation stands.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseAwaitingOrder        Phase = "awaiting_order"
	PhaseAwaitingPayment      Phase = "awaiting_user_payment"
	PhaseAwaitingVerification Phase = "awaiting_verification"
	PhaseSettled              Phase = "settled"
)

// InFlight reports whether an invocation is between its start and its outcome.
func (p Phase) InFlight() bool {
	switch p {
	case PhaseAwaitingOrder, PhaseAwaitingPayment, PhaseAwaitingVerification:
		return true
	}
	return false
}

// Flow names which trigger the current or last invocation came from.
type Flow string

const (
	FlowNone         Flow = ""
	FlowCredits      Flow = "credits"
	FlowSubscription Flow = "subscription"
)

// State is everything the page renders from the orchestrator. After an
// invocation settles exactly one of ErrorMessage and SuccessMessage is set.
type State struct {
	SDK            SDKState `json:"sdk"`
	SDKReady       bool     `json:"sdk_ready"`
	ModalOpen      bool     `json:"modal_open"`
	Phase          Phase    `json:"phase"`
	Flow           Flow     `json:"flow,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
	SuccessMessage string   `json:"success_message,omitempty"`
}

// Busy reports whether an invocation is in flight.
func (s State) Busy() bool {
	return s.Phase.InFlight()
}
