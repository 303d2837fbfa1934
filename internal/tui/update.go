package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/teralaunch/teralaunch/internal/backend"
	"github.com/teralaunch/teralaunch/internal/estimator"
	"github.com/teralaunch/teralaunch/internal/router"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:ireturn
	switch x := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = x.Width, x.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(x)

	case frameTickMsg:
		if m.sched.Consume() {
			m.snapshot = m.orch.Machine().Snapshot()
		}
		return m, m.frameTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(x)
		return m, cmd

	case backendEventMsg:
		m.applyBackendEvent(x.Event)
		return m, m.listenForEvents()

	case controlsChangedMsg:
		m.controlsEnabled = x.Enabled
		return m, m.listenForEvents()

	case surfacedErrorMsg:
		m.statusLine = x.Text
		if m.vs.snapshot().Route == router.RouteLogin {
			m.loginError = x.Text
		}
		return m, m.listenForEvents()

	case navDoneMsg:
		if x.Err != nil {
			m.statusLine = fmt.Sprintf("navigation failed: %v", x.Err)
		}
		return m, nil

	case loginDoneMsg:
		if x.Err != nil {
			// The orchestrator hook already carried the server message;
			// keep whatever is most specific.
			if m.loginError == "" {
				m.loginError = x.Err.Error()
			}
			return m, nil
		}
		m.loginError = ""
		m.password.SetValue("")
		return m, m.navigateCmd(router.RouteHome, true)

	case checkDoneMsg:
		if x.Err != nil {
			m.statusLine = fmt.Sprintf("update check failed: %v", x.Err)
		}
		return m, nil

	case launchDoneMsg:
		if x.Err != nil {
			m.statusLine = fmt.Sprintf("launch failed: %v", x.Err)
		}
		return m, nil

	case settingsSavedMsg:
		if x.Err != nil {
			m.statusLine = fmt.Sprintf("failed to save setting: %v", x.Err)
			return m, nil
		}
		switch x.Field {
		case editGamePath:
			m.statusLine = "game path saved"
		case editLanguage:
			m.statusLine = "language saved"
		}
		return m, nil

	case hashDoneMsg:
		if x.Err != nil {
			m.statusLine = fmt.Sprintf("hash file generation failed: %v", x.Err)
		} else if x.Summary != "" {
			m.statusLine = x.Summary
		}
		return m, nil
	}
	return m, nil
}

// applyBackendEvent handles the event kinds the workflow machine does not
// own: game status and log forwarding.
func (m *Model) applyBackendEvent(ev backend.Event) {
	switch x := ev.(type) {
	case backend.HashFileProgress:
		m.statusLine = fmt.Sprintf("hashing %s (%d/%d, %s)",
			x.CurrentFile, x.ProcessedFiles, x.TotalFiles,
			estimator.FormatSize(float64(x.TotalSize)))
	case backend.GameStatusChanged:
		m.gameRunning = x.Running
	case backend.GameEnded:
		m.gameRunning = false
	case backend.GameStatus:
		m.appendLog(x.Message)
	case backend.LogMessage:
		if x.Level != "" {
			m.appendLog(x.Level + ": " + x.Text)
		} else {
			m.appendLog(x.Text)
		}
	case backend.ErrorMessage:
		m.appendLog("error: " + x.Text)
		m.statusLine = x.Text
	}
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > logTailLines {
		m.logLines = m.logLines[len(m.logLines)-logTailLines:]
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { //nolint:ireturn
	typing := m.vs.snapshot().Route == router.RouteLogin || m.settingsEditing != editNone
	if key.Matches(msg, m.keys.Quit) && !typing {
		m.quitting = true
		return m, tea.Quit
	}
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.vs.snapshot().Route {
	case router.RouteLogin:
		return m.handleLoginKey(msg)
	case router.RouteHome:
		return m.handleHomeKey(msg)
	case router.RouteSettings:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { //nolint:ireturn
	switch {
	case key.Matches(msg, m.keys.Tab):
		m.loginFocusPassword = !m.loginFocusPassword
		if m.loginFocusPassword {
			m.username.Blur()
			return m, m.password.Focus()
		}
		m.password.Blur()
		return m, m.username.Focus()

	case key.Matches(msg, m.keys.Submit):
		username := m.username.Value()
		password := m.password.Value()
		if username == "" || password == "" {
			m.loginError = "username and password are required"
			return m, nil
		}
		m.loginError = ""
		return m, m.loginCmd(username, password)
	}

	var cmd tea.Cmd
	if m.loginFocusPassword {
		m.password, cmd = m.password.Update(msg)
	} else {
		m.username, cmd = m.username.Update(msg)
	}
	return m, cmd
}

func (m Model) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { //nolint:ireturn
	switch {
	case key.Matches(msg, m.keys.Play):
		if !m.controlsEnabled || m.gameRunning {
			return m, nil
		}
		return m, m.launchCmd()
	case key.Matches(msg, m.keys.Check):
		return m, m.checkCmd()
	case key.Matches(msg, m.keys.Settings):
		return m, m.navigateCmd(router.RouteSettings, false)
	case key.Matches(msg, m.keys.Logout):
		return m, m.logoutCmd()
	}
	return m, nil
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { //nolint:ireturn
	if m.settingsEditing != editNone {
		return m.handleSettingsEditKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Home):
		return m, m.navigateCmd(router.RouteHome, false)
	case key.Matches(msg, m.keys.EditPath):
		return m.startSettingsEdit(editGamePath)
	case key.Matches(msg, m.keys.EditLang):
		return m.startSettingsEdit(editLanguage)
	case key.Matches(msg, m.keys.HashFile):
		if !m.orch.CanGenerateHashFile() {
			m.statusLine = "hash file generation requires an operator account"
			return m, nil
		}
		return m, m.hashCmd()
	}
	return m, nil
}

func (m Model) startSettingsEdit(field settingsField) (tea.Model, tea.Cmd) { //nolint:ireturn
	m.settingsEditing = field
	switch field {
	case editGamePath:
		m.settingsInput.Placeholder = "/path/to/game"
		current, err := m.orch.GamePathValue()
		if err != nil {
			current = ""
		}
		m.settingsInput.SetValue(current)
	case editLanguage:
		m.settingsInput.Placeholder = "en"
		m.settingsInput.SetValue(m.orch.LanguageValue())
	}
	return m, m.settingsInput.Focus()
}

func (m Model) handleSettingsEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { //nolint:ireturn
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.settingsEditing = editNone
		m.settingsInput.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		value := m.settingsInput.Value()
		if value == "" {
			m.statusLine = "value cannot be empty"
			return m, nil
		}
		field := m.settingsEditing
		m.settingsEditing = editNone
		m.settingsInput.Blur()
		return m, m.saveSettingCmd(field, value)
	}

	var cmd tea.Cmd
	m.settingsInput, cmd = m.settingsInput.Update(msg)
	return m, cmd
}

func (m Model) saveSettingCmd(field settingsField, value string) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		var err error
		switch field {
		case editGamePath:
			err = orch.SetGamePath(value)
		case editLanguage:
			err = orch.SaveLanguage(value)
		}
		return settingsSavedMsg{Field: field, Err: err}
	}
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	orch := m.orch
	ctx := m.ctx
	return func() tea.Msg {
		return loginDoneMsg{Err: orch.Login(ctx, username, password)}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	orch := m.orch
	rtr := m.rtr
	ctx := m.ctx
	return func() tea.Msg {
		if err := orch.Logout(ctx); err != nil {
			return surfacedErrorMsg{Text: err.Error()}
		}
		outcome, err := rtr.Navigate(ctx, router.RouteLogin)
		return navDoneMsg{Target: router.RouteLogin, Outcome: outcome, Err: err}
	}
}

func (m Model) checkCmd() tea.Cmd {
	orch := m.orch
	ctx := m.ctx
	return func() tea.Msg {
		return checkDoneMsg{Err: orch.CheckForUpdates(ctx)}
	}
}

func (m Model) launchCmd() tea.Cmd {
	orch := m.orch
	ctx := m.ctx
	return func() tea.Msg {
		return launchDoneMsg{Err: orch.LaunchGame(ctx)}
	}
}

func (m Model) hashCmd() tea.Cmd {
	orch := m.orch
	ctx := m.ctx
	return func() tea.Msg {
		summary, err := orch.GenerateHashFile(ctx)
		return hashDoneMsg{Summary: summary, Err: err}
	}
}
