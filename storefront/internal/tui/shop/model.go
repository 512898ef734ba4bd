// Package shop is the storefront page: balance header, outcome banners,
// purchase cards, the credit pack modal and a log panel.
package shop

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/pkg/rbac"
	"github.com/affiliateplus/storefront/storefront/internal/catalog"
	"github.com/affiliateplus/storefront/storefront/internal/checkout"
	"github.com/affiliateplus/storefront/storefront/internal/eventbus"
	"github.com/affiliateplus/storefront/storefront/internal/tui"
)

// Checkout is the orchestrator surface the page drives.
type Checkout interface {
	State() checkout.State
	Mount(ctx context.Context)
	OpenModal()
	CloseModal()
	BuyCredits(ctx context.Context, credits int) checkout.State
	Subscribe(ctx context.Context, planKey string) checkout.State
}

// UserSource provides the signed-in user.
type UserSource interface {
	Current() protocol.User
}

// Deps are what the page renders from and acts on.
type Deps struct {
	Checkout Checkout
	Session  UserSource
	Gate     *rbac.Gate
	Catalog  *catalog.Catalog
	Brand    string
}

// Messages fed to the page.
type (
	// StateMsg carries a published checkout state.
	StateMsg struct{ State checkout.State }
	// UserMsg carries a replaced session user.
	UserMsg struct{ User protocol.User }
	// LogMsg carries one log record.
	LogMsg struct{ Record eventbus.LogRecord }
	// PageURLMsg tells the page where the browser checkout is waiting.
	PageURLMsg struct{ URL string }

	mountedMsg  struct{}
	flowDoneMsg struct{ State checkout.State }
)

// flow tracks the invocation the page started. It is shared between copies of
// the model so the cancel func survives bubbletea's value semantics.
type flow struct {
	cancel context.CancelFunc
}

// Model is the root page model.
type Model struct {
	deps Deps

	state   checkout.State
	user    protocol.User
	pageURL string

	cards   cardsModel
	modal   modalModel
	logs    logsModel
	help    helpModel
	spinner spinner.Model

	// pending is set from the moment a trigger is accepted until its flow
	// returns, so a double press cannot start a second one.
	pending bool
	active  *flow

	width    int
	height   int
	quitting bool
}

// NewModel creates the page.
func NewModel(deps Deps) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = tui.Selected

	if deps.Brand == "" {
		deps.Brand = "Affiliate++"
	}
	return Model{
		deps:    deps,
		state:   deps.Checkout.State(),
		user:    deps.Session.Current(),
		cards:   newCards(deps.Catalog),
		modal:   newModal(deps.Catalog.CreditPacks()),
		logs:    newLogs(),
		help:    newHelp(),
		spinner: sp,
		active:  &flow{},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.mount)
}

func (m Model) mount() tea.Msg {
	m.deps.Checkout.Mount(context.Background())
	return mountedMsg{}
}

// busy reports whether purchase triggers are disabled.
func (m Model) busy() bool {
	return m.pending || m.state.Busy()
}

var (
	keyQuit   = key.NewBinding(key.WithKeys("ctrl+c", "q"))
	keyHelp   = key.NewBinding(key.WithKeys("?"))
	keyLeft   = key.NewBinding(key.WithKeys("left", "h", "shift+tab"))
	keyRight  = key.NewBinding(key.WithKeys("right", "l", "tab"))
	keyUp     = key.NewBinding(key.WithKeys("up", "k"))
	keyDown   = key.NewBinding(key.WithKeys("down", "j"))
	keyEnter  = key.NewBinding(key.WithKeys("enter", " "))
	keyCancel = key.NewBinding(key.WithKeys("esc"))
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logs.SetSize(msg.Width-4, m.logsHeight())
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StateMsg:
		// Bus delivery races the flow's own return; once the flow is done a
		// late in-flight snapshot is stale.
		if !m.pending && msg.State.Busy() {
			return m, nil
		}
		m.state = msg.State
		return m, nil

	case UserMsg:
		m.user = msg.User
		return m, nil

	case LogMsg:
		m.logs.add(msg.Record)
		return m, nil

	case PageURLMsg:
		m.pageURL = msg.URL
		return m, nil

	case mountedMsg:
		m.state = m.deps.Checkout.State()
		return m, nil

	case flowDoneMsg:
		m.pending = false
		m.active.cancel = nil
		m.pageURL = ""
		m.state = msg.State
		m.user = m.deps.Session.Current()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keyQuit) {
		m.quitting = true
		if m.active.cancel != nil {
			m.active.cancel()
		}
		return m, tea.Quit
	}
	if key.Matches(msg, keyHelp) {
		m.help.toggle()
		return m, nil
	}
	if m.help.visible {
		return m, nil
	}

	if key.Matches(msg, keyCancel) {
		switch {
		case m.state.Phase == checkout.PhaseAwaitingPayment && m.active.cancel != nil:
			// Leaving the widget unpaid, same as closing it in the browser.
			m.active.cancel()
		case m.state.ModalOpen:
			m.deps.Checkout.CloseModal()
			m.state = m.deps.Checkout.State()
		}
		return m, nil
	}

	if m.state.ModalOpen {
		return m.handleModalKey(msg)
	}

	visible := m.cards.visible(m.deps.Gate)
	switch {
	case key.Matches(msg, keyLeft):
		m.cards.move(-1, len(visible))
	case key.Matches(msg, keyRight):
		m.cards.move(1, len(visible))
	case key.Matches(msg, keyUp), key.Matches(msg, keyDown):
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd
	case key.Matches(msg, keyEnter):
		if m.busy() || len(visible) == 0 {
			return m, nil
		}
		c := visible[m.cards.focus(len(visible))]
		if c.kind == cardCredits {
			m.deps.Checkout.OpenModal()
			m.state = m.deps.Checkout.State()
			m.modal.reset()
			return m, nil
		}
		return m.start(func(ctx context.Context) checkout.State {
			return m.deps.Checkout.Subscribe(ctx, c.planKey)
		})
	}
	return m, nil
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keyLeft), key.Matches(msg, keyUp):
		m.modal.move(-1)
	case key.Matches(msg, keyRight), key.Matches(msg, keyDown):
		m.modal.move(1)
	case key.Matches(msg, keyEnter):
		if m.busy() || !m.deps.Gate.CanRender(rbac.PermBuyCredits) {
			return m, nil
		}
		credits := m.modal.selected()
		return m.start(func(ctx context.Context) checkout.State {
			return m.deps.Checkout.BuyCredits(ctx, credits)
		})
	}
	return m, nil
}

// start runs fn as the page's one in-flight invocation.
func (m Model) start(fn func(ctx context.Context) checkout.State) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.pending = true
	m.active.cancel = cancel
	return m, func() tea.Msg {
		defer cancel()
		return flowDoneMsg{State: fn(ctx)}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.help.visible {
		return m.help.View()
	}

	width := m.width
	if width == 0 {
		width = 100
	}

	sections := []string{headerView(m.deps.Brand, m.user, m.state, m.deps.Gate, width)}
	if b := bannerView(m.state); b != "" {
		sections = append(sections, b)
	}
	if s := m.statusLine(); s != "" {
		sections = append(sections, s)
	}

	if m.state.ModalOpen {
		sections = append(sections, m.modal.View(m.busy()))
	} else {
		sections = append(sections, m.cards.View(m.deps.Gate, m.busy()))
	}

	logsStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tui.ColorMuted).
		Width(width - 2)
	sections = append(sections,
		logsStyle.Render(tui.Subtitle.Render(" Activity")+"\n"+m.logs.View()),
		m.help.bar(m.state.ModalOpen, m.state.Phase == checkout.PhaseAwaitingPayment),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) statusLine() string {
	var text string
	switch m.state.Phase {
	case checkout.PhaseAwaitingOrder:
		text = "Creating order..."
	case checkout.PhaseAwaitingPayment:
		text = "Complete the payment in the checkout window (esc to cancel)"
		if m.pageURL != "" {
			text += "\n    " + tui.Description.Render(m.pageURL)
		}
	case checkout.PhaseAwaitingVerification:
		text = "Verifying payment..."
	default:
		if m.pending {
			text = "Starting checkout..."
		}
	}
	if text == "" {
		return ""
	}
	return "  " + m.spinner.View() + " " + text
}

// Quitting reports whether the user quit the page.
func (m Model) Quitting() bool { return m.quitting }

func (m Model) logsHeight() int {
	h := m.height - 24
	if h < 4 {
		h = 4
	}
	return h
}
