package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/teralaunch/teralaunch/internal/orchestrator"
	"github.com/teralaunch/teralaunch/internal/router"
	"github.com/teralaunch/teralaunch/internal/workflow"
)

// Model is the root Bubble Tea model for the launcher.
type Model struct {
	ctx  context.Context
	orch *orchestrator.Orchestrator
	rtr  *router.Router
	vs   *viewState

	// coalesced rendering
	sched    *RenderScheduler
	snapshot workflow.State

	// inbound bridge from orchestrator hooks
	eventCh chan tea.Msg

	// widgets
	spin          spinner.Model
	bar           progress.Model
	username      textinput.Model
	password      textinput.Model
	settingsInput textinput.Model

	// transient ui state
	loginFocusPassword bool
	loginError         string
	settingsEditing    settingsField
	statusLine         string
	gameRunning        bool
	controlsEnabled    bool
	logLines           []string

	width    int
	height   int
	quitting bool

	keys keyMap
}

// NewModel constructs a Model with initial state.
func NewModel(ctx context.Context, orch *orchestrator.Orchestrator, rtr *router.Router, vs *viewState, sched *RenderScheduler, eventCh chan tea.Msg) Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = progressBarWidth

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	user := textinput.New()
	user.Placeholder = "username"
	user.Focus()
	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	settings := textinput.New()

	return Model{
		ctx:             ctx,
		orch:            orch,
		rtr:             rtr,
		vs:              vs,
		sched:           sched,
		eventCh:         eventCh,
		spin:            sp,
		bar:             bar,
		username:        user,
		password:        pass,
		settingsInput:   settings,
		controlsEnabled: true,
		keys:            newKeyMap(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	initial := router.RouteLogin
	isLogin := false
	if m.orch.Session().IsAuthenticated() {
		initial = router.RouteHome
	}
	return tea.Batch(
		m.listenForEvents(),
		m.frameTick(),
		textinput.Blink,
		m.spin.Tick,
		m.navigateCmd(initial, isLogin),
	)
}

// listenForEvents returns a command that waits for the next bridged
// message from the orchestrator hooks.
func (m Model) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		return <-m.eventCh
	}
}

// frameTick schedules the next render frame.
func (m Model) frameTick() tea.Cmd {
	return tea.Tick(renderFrameInterval, func(time.Time) tea.Msg {
		return frameTickMsg{}
	})
}

// navigateCmd runs a route transition off the update loop. isLogin marks
// transitions that should trigger a login-cycle update check on arrival.
func (m Model) navigateCmd(key string, isLogin bool) tea.Cmd {
	orch := m.orch
	rtr := m.rtr
	ctx := m.ctx
	return func() tea.Msg {
		outcome, err := rtr.Navigate(ctx, key)
		if outcome == router.Committed && err == nil && rtr.Current() == router.RouteHome {
			go func() {
				_ = orch.InitializeAndCheckUpdates(ctx, isLogin)
			}()
		}
		return navDoneMsg{Target: key, Outcome: outcome, Err: err}
	}
}
