package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/teralaunch/teralaunch/internal/estimator"
	"github.com/teralaunch/teralaunch/internal/router"
	"github.com/teralaunch/teralaunch/internal/workflow"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	vs := m.vs.snapshot()

	var body string
	switch {
	case vs.NotFoundKey != "":
		body = m.viewNotFound(vs)
	case vs.LastError != "":
		body = m.viewError(vs)
	case vs.Loading:
		body = m.viewLoading(vs)
	default:
		switch vs.Route {
		case router.RouteLogin:
			body = m.viewLogin(vs)
		case router.RouteSettings:
			body = m.viewSettings(vs)
		case router.RouteHome:
			body = m.viewHome(vs)
		default:
			body = m.viewLoading(vs)
		}
	}

	return panelStyle.Render(body) + "\n"
}

func (m Model) viewLoading(vs viewSnapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(vs.Title))
	b.WriteString("\n")
	b.WriteString(m.spin.View())
	b.WriteString(" loading...")
	return b.String()
}

func (m Model) viewNotFound(vs viewSnapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Not Found"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("no view registered for %q", vs.NotFoundKey))
	return b.String()
}

func (m Model) viewError(vs viewSnapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(vs.Title))
	b.WriteString("\n")
	b.WriteString(errorStyle.Render("failed to load view: " + vs.LastError))
	return b.String()
}

func (m Model) viewLogin(vs viewSnapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(vs.Title))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Username") + "\n")
	b.WriteString(m.username.View() + "\n\n")
	b.WriteString(labelStyle.Render("Password") + "\n")
	b.WriteString(m.password.View() + "\n")
	if m.loginError != "" {
		b.WriteString("\n" + errorStyle.Render(m.loginError) + "\n")
	}
	b.WriteString(helpStyle.Render("tab: next field • enter: sign in • ctrl+c: quit"))
	return b.String()
}

func (m Model) viewHome(vs viewSnapshot) string {
	var b strings.Builder

	header := vs.Title
	if vs.DisplayName != "" {
		header += dimStyle.Render("  —  " + vs.DisplayName)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")

	st := m.snapshot
	b.WriteString(statusStyle.Render(st.Status()))
	b.WriteString("\n\n")

	if st.Mode == workflow.ModeFileCheck || st.Mode == workflow.ModeDownload {
		b.WriteString(m.viewProgress(st))
		b.WriteString("\n")
	}

	if m.gameRunning {
		b.WriteString(m.spin.View() + " game running\n")
	}
	if m.statusLine != "" {
		b.WriteString(dimStyle.Render(m.statusLine) + "\n")
	}

	if len(m.logLines) > 0 {
		b.WriteString("\n")
		for _, line := range m.logLines {
			b.WriteString(dimStyle.Render(line) + "\n")
		}
	}

	b.WriteString(m.homeHelp())
	return b.String()
}

func (m Model) viewProgress(st workflow.State) string {
	var b strings.Builder

	b.WriteString(m.bar.ViewAs(st.DisplayProgress() / 100))
	b.WriteString("\n")

	if st.CurrentFileName != "" {
		b.WriteString(dimStyle.Render(st.CurrentFileName) + "\n")
	}

	switch st.Mode {
	case workflow.ModeFileCheck:
		b.WriteString(labelStyle.Render(
			fmt.Sprintf("checking file %d of %d", st.CurrentFileIndex, st.TotalFiles)))
		b.WriteString("\n")
	case workflow.ModeDownload:
		b.WriteString(labelStyle.Render(fmt.Sprintf(
			"%s / %s at %s",
			estimator.FormatSize(float64(st.DownloadedSize)),
			estimator.FormatSize(float64(st.TotalSize)),
			estimator.FormatSpeed(st.CurrentSpeed),
		)))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(
			"time remaining: " + estimator.FormatDuration(st.TimeRemaining)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) homeHelp() string {
	entries := []string{}
	if m.controlsEnabled && !m.gameRunning {
		entries = append(entries, "p: play")
	}
	entries = append(entries,
		"u: check for updates",
		"s: settings",
		"ctrl+l: logout",
		"q: quit",
	)
	return helpStyle.Render(strings.Join(entries, " • "))
}

func (m Model) viewSettings(vs viewSnapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(vs.Title))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Game path") + "\n")
	if m.settingsEditing == editGamePath {
		b.WriteString(m.settingsInput.View() + "\n")
	} else if path, err := m.orch.GamePathValue(); err != nil {
		b.WriteString(errorStyle.Render("not set") + "\n")
	} else {
		b.WriteString(path + "\n")
	}

	b.WriteString("\n" + labelStyle.Render("Language") + "\n")
	if m.settingsEditing == editLanguage {
		b.WriteString(m.settingsInput.View() + "\n")
	} else if lang := m.orch.LanguageValue(); lang != "" {
		b.WriteString(lang + "\n")
	} else {
		b.WriteString(dimStyle.Render("not set") + "\n")
	}

	if m.orch.CanGenerateHashFile() {
		b.WriteString("\n" + labelStyle.Render("g: generate hash file") + "\n")
	}
	if m.statusLine != "" {
		b.WriteString("\n" + dimStyle.Render(m.statusLine) + "\n")
	}

	if m.settingsEditing != editNone {
		b.WriteString(helpStyle.Render("enter: save • esc: cancel"))
	} else {
		b.WriteString(helpStyle.Render("e: edit game path • l: edit language • esc: home • q: quit"))
	}
	return b.String()
}
