package tui

import (
	"github.com/teralaunch/teralaunch/internal/backend"
	"github.com/teralaunch/teralaunch/internal/router"
)

// Message types for the Bubble Tea update loop.

// frameTickMsg paces coalesced re-renders.
type frameTickMsg struct{}

// backendEventMsg carries one backend event into the update loop; the
// workflow machine has already applied it by the time it arrives here.
type backendEventMsg struct {
	Event backend.Event
}

// navDoneMsg reports the outcome of an asynchronous route transition.
type navDoneMsg struct {
	Target  string
	Outcome router.Outcome
	Err     error
}

// loginDoneMsg reports the result of a login attempt.
type loginDoneMsg struct {
	Err error
}

// checkDoneMsg reports the end of an update-check sequence.
type checkDoneMsg struct {
	Err error
}

// launchDoneMsg reports the result of a launch attempt.
type launchDoneMsg struct {
	Err error
}

// hashDoneMsg reports the result of a manifest generation run.
type hashDoneMsg struct {
	Summary string
	Err     error
}

// surfacedErrorMsg carries a user-facing error raised by orchestrator
// hooks.
type surfacedErrorMsg struct {
	Text string
}

// controlsChangedMsg toggles the launch controls while an update sequence
// owns them.
type controlsChangedMsg struct {
	Enabled bool
}

// settingsField selects which settings value an edit targets.
type settingsField int

const (
	editNone settingsField = iota
	editGamePath
	editLanguage
)

// settingsSavedMsg reports the result of persisting a settings edit.
type settingsSavedMsg struct {
	Field settingsField
	Err   error
}
