package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/teralaunch/teralaunch/internal/backend"
	"github.com/teralaunch/teralaunch/internal/orchestrator"
	"github.com/teralaunch/teralaunch/internal/router"
	"github.com/teralaunch/teralaunch/internal/session"
	"github.com/teralaunch/teralaunch/internal/workflow"
)

const sessionFileName = "session.json"

// Run wires the backend, workflow machine, orchestrator, and router into a
// Bubble Tea program and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, client *backend.Client) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := session.NewStore(sessionPath())
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	sched := &RenderScheduler{}
	machine := workflow.New(sched.Notify)

	orch := orchestrator.New(client, machine, sess)
	orch.MirrorSessionAuth()

	vs := newViewState(sess)
	rtr := router.New(buildRoutes(), vs, sess.IsAuthenticated)

	eventCh := make(chan tea.Msg, channelBufferSize)
	orch.WithUIHooks(orchestrator.Hooks{
		ControlsEnabled: func(enabled bool) {
			eventCh <- controlsChangedMsg{Enabled: enabled}
		},
		Error: func(msg string) {
			eventCh <- surfacedErrorMsg{Text: msg}
		},
		Event: func(ev backend.Event) {
			eventCh <- backendEventMsg{Event: ev}
		},
	})
	go orch.Run(ctx)

	model := NewModel(ctx, orch, rtr, vs, sched, eventCh)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// buildRoutes is the static route table. Content strings are markers; the
// View method renders each route from live state.
func buildRoutes() map[string]router.Route {
	load := func(route string) func(ctx context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			return route, nil
		}
	}
	return map[string]router.Route{
		router.RouteLogin: {
			Title:  "Sign In",
			Access: router.Public,
			Load:   load(router.RouteLogin),
		},
		router.RouteHome: {
			Title:  "TeraLaunch",
			Access: router.Protected,
			Load:   load(router.RouteHome),
		},
		router.RouteSettings: {
			Title:  "Settings",
			Access: router.Protected,
			Load:   load(router.RouteSettings),
		},
	}
}

// sessionPath keeps the session file next to the per-user config dir,
// falling back to the working directory when none is resolvable.
func sessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		logrus.WithError(err).Debug("no user config dir, using cwd for session")
		return sessionFileName
	}
	return filepath.Join(dir, "teralaunch", sessionFileName)
}
