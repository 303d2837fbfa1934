package tui

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teralaunch/teralaunch/internal/backend"
)

func TestApplyBackendEvent_GameStatus(t *testing.T) {
	var m Model

	m.applyBackendEvent(backend.GameStatusChanged{Running: true})
	assert.True(t, m.gameRunning)

	m.applyBackendEvent(backend.GameEnded{})
	assert.False(t, m.gameRunning)
}

func TestApplyBackendEvent_LogForwarding(t *testing.T) {
	var m Model

	m.applyBackendEvent(backend.LogMessage{Level: "info", Text: "manifest fetched"})
	m.applyBackendEvent(backend.LogMessage{Text: "bare line"})
	m.applyBackendEvent(backend.ErrorMessage{Text: "server unreachable"})

	assert.Equal(t, []string{
		"info: manifest fetched",
		"bare line",
		"error: server unreachable",
	}, m.logLines)
	assert.Equal(t, "server unreachable", m.statusLine)
}

func TestApplyBackendEvent_HashFileProgressUpdatesStatusLine(t *testing.T) {
	var m Model

	m.applyBackendEvent(backend.HashFileProgress{
		CurrentFile:    "S1Game/CookedPC/core.upk",
		ProcessedFiles: 40,
		TotalFiles:     400,
		TotalSize:      1536,
	})

	assert.Equal(t, "hashing S1Game/CookedPC/core.upk (40/400, 1.50 KB)", m.statusLine)
}

func TestAppendLog_BoundedTail(t *testing.T) {
	var m Model

	for i := 0; i < logTailLines*3; i++ {
		m.appendLog(fmt.Sprintf("line %d", i))
	}

	assert.Len(t, m.logLines, logTailLines)
	assert.Equal(t, fmt.Sprintf("line %d", logTailLines*3-1),
		m.logLines[len(m.logLines)-1])
}
