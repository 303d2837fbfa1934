package backend

import (
	"github.com/sirupsen/logrus"
)

// Event is the tagged union delivered on the backend's single outbound
// channel. Each kind owns a disjoint set of launcher-state fields, so a
// stray event from one phase can never corrupt another phase's counters.
type Event interface {
	isEvent()
}

// FileCheckProgress reports position within a local verification pass.
type FileCheckProgress struct {
	CurrentFile   string
	Progress      float64
	CurrentCount  int
	TotalFiles    int
	ElapsedTime   float64
	FilesToUpdate int
}

// FileCheckCompleted carries the final statistics of a verification pass.
type FileCheckCompleted struct {
	TotalFiles           int
	FilesToUpdate        int
	TotalSize            int64
	TotalTimeSeconds     float64
	AverageTimePerFileMS float64
}

// DownloadProgress reports cumulative download position. DownloadedBytes and
// TotalBytes are cumulative across the whole batch, not per file.
type DownloadProgress struct {
	FileName         string
	Progress         float64
	Speed            float64
	DownloadedBytes  int64
	TotalBytes       int64
	TotalFiles       int
	ElapsedTime      float64
	CurrentFileIndex int
}

// DownloadComplete signals that every file in the batch has been written
// and verified.
type DownloadComplete struct{}

// HashFileProgress reports manifest-generation position.
type HashFileProgress struct {
	CurrentFile    string
	Progress       float64
	ProcessedFiles int
	TotalFiles     int
	TotalSize      int64
}

// GameStatusChanged flips when the game process starts or stops.
type GameStatusChanged struct {
	Running bool
}

// GameEnded fires once after the game process exits.
type GameEnded struct{}

// GameStatus carries a freetext launch/exit report.
type GameStatus struct {
	Message string
}

// LogMessage forwards a backend log line to the UI, optionally prefixed
// with a level token.
type LogMessage struct {
	Level string
	Text  string
}

// ErrorMessage forwards a backend error to the UI.
type ErrorMessage struct {
	Text string
}

func (FileCheckProgress) isEvent()  {}
func (FileCheckCompleted) isEvent() {}
func (DownloadProgress) isEvent()   {}
func (DownloadComplete) isEvent()   {}
func (HashFileProgress) isEvent()   {}
func (GameStatusChanged) isEvent()  {}
func (GameEnded) isEvent()          {}
func (GameStatus) isEvent()         {}
func (LogMessage) isEvent()         {}
func (ErrorMessage) isEvent()       {}

// emitter fans events out to the single subscriber channel without ever
// blocking a backend operation; if the consumer stalls, events are dropped
// with a log line rather than queued unboundedly.
type emitter struct {
	ch chan Event
}

func newEmitter(buffer int) *emitter {
	return &emitter{ch: make(chan Event, buffer)}
}

func (e *emitter) emit(ev Event) {
	select {
	case e.ch <- ev:
	default:
		logrus.Debugf("event channel full, dropping %T", ev)
	}
}

func (e *emitter) events() <-chan Event {
	return e.ch
}
