package workflow

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/teralaunch/teralaunch/internal/backend"
	"github.com/teralaunch/teralaunch/internal/estimator"
)

// Machine owns the workflow State and is the single mutation point for it.
// Backend events of every kind funnel through Apply; each event kind only
// writes the fields it owns, so interleaved events from different phases
// cannot corrupt each other. All mutation happens under one mutex and ends
// with a change notification.
type Machine struct {
	mu     sync.Mutex
	state  State
	est    estimator.Estimator
	notify func()
}

// New constructs a Machine. notify is invoked after every committed
// mutation; pass nil when no renderer is listening.
func New(notify func()) *Machine {
	if notify == nil {
		notify = func() {}
	}
	return &Machine{notify: notify}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset returns the state to all-defaults and clears the speed window.
// Called at logout and before every new update check.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.state = State{}
	m.est.Reset()
	m.mu.Unlock()
	m.notify()
}

// Apply dispatches one backend event to its applier. Malformed events are
// logged and dropped without touching state.
func (m *Machine) Apply(ev backend.Event) {
	if ev == nil {
		logrus.Debug("dropping nil workflow event")
		return
	}

	m.mu.Lock()
	applied := true
	switch x := ev.(type) {
	case backend.FileCheckProgress:
		applied = m.applyFileCheckProgress(x)
	case backend.FileCheckCompleted:
		m.applyFileCheckCompleted(x)
	case backend.DownloadProgress:
		applied = m.applyDownloadProgress(x)
	case backend.DownloadComplete:
		m.applyDownloadComplete()
	default:
		// Not a workflow event (game status, log lines); owned elsewhere.
		applied = false
	}
	m.mu.Unlock()

	if applied {
		m.notify()
	}
}

// applyFileCheckProgress moves the machine into the verification phase and
// advances position fields. Progress is clamped to 100 and kept monotonic
// within the pass.
func (m *Machine) applyFileCheckProgress(ev backend.FileCheckProgress) bool {
	if ev.CurrentFile == "" && ev.TotalFiles == 0 {
		logrus.Debug("dropping malformed file_check_progress event")
		return false
	}

	progress := clampPercent(ev.Progress)
	if m.state.Mode == ModeFileCheck && progress < m.state.Progress {
		progress = m.state.Progress
	}

	m.state.Mode = ModeFileCheck
	m.state.IsUpdateAvailable = true
	m.state.Progress = progress
	m.state.CurrentFileName = ev.CurrentFile
	m.state.CurrentFileIndex = ev.CurrentCount
	m.state.TotalFiles = ev.TotalFiles
	return true
}

func (m *Machine) applyFileCheckCompleted(ev backend.FileCheckCompleted) {
	m.state.Mode = ModeComplete
	m.state.IsFileCheckComplete = true
	m.state.TotalFiles = ev.TotalFiles
	m.state.Progress = 100
}

// applyDownloadProgress feeds the estimator and recomputes speed/ETA. The
// batch total is first-writer-wins: it is established at file-check time
// and must not be perturbed by a single file's report.
func (m *Machine) applyDownloadProgress(ev backend.DownloadProgress) bool {
	if ev.FileName == "" && ev.TotalBytes == 0 {
		logrus.Debug("dropping malformed download_progress event")
		return false
	}

	if m.state.TotalSize == 0 && ev.TotalBytes > 0 {
		m.state.TotalSize = ev.TotalBytes
	}

	progress := clampPercent(ev.Progress)
	if m.state.Mode == ModeDownload && progress < m.state.Progress {
		progress = m.state.Progress
	}

	m.state.Mode = ModeDownload
	m.state.Progress = progress
	m.state.CurrentFileName = ev.FileName
	m.state.CurrentFileIndex = ev.CurrentFileIndex
	m.state.TotalFiles = ev.TotalFiles
	m.state.DownloadedSize = ev.DownloadedBytes
	m.state.CurrentSpeed = m.est.RecordSample(ev.Speed)
	m.state.TimeRemaining = m.est.TimeRemaining(
		float64(ev.DownloadedBytes), float64(m.state.TotalSize), ev.Speed)
	return true
}

func (m *Machine) applyDownloadComplete() {
	m.state.Mode = ModeComplete
	m.state.IsDownloadComplete = true
	m.state.Progress = 100
	m.state.CurrentSpeed = 0
	m.state.TimeRemaining = 0
	if m.state.TotalSize > 0 {
		m.state.DownloadedSize = m.state.TotalSize
	}
}

// MarkUpdateAvailable records the aggregated batch size after a file check
// found outdated files.
func (m *Machine) MarkUpdateAvailable(totalSize int64, files int) {
	m.mu.Lock()
	m.state.IsUpdateAvailable = true
	m.state.TotalSize = totalSize
	m.state.TotalFiles = files
	m.mu.Unlock()
	m.notify()
}

// MarkNoUpdateRequired records a clean file check.
func (m *Machine) MarkNoUpdateRequired() {
	m.mu.Lock()
	m.state.Mode = ModeComplete
	m.state.IsUpdateAvailable = false
	m.state.IsFileCheckComplete = true
	m.state.Progress = 100
	m.mu.Unlock()
	m.notify()
}

// MarkReady finishes the completion sequence: the workflow is terminal
// until the next explicit reset.
func (m *Machine) MarkReady() {
	m.mu.Lock()
	m.state.Mode = ModeReady
	m.state.IsUpdateComplete = true
	m.mu.Unlock()
	m.notify()
}

func clampPercent(p float64) float64 {
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
