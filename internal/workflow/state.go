package workflow

// Mode is the active phase of the update workflow.
type Mode int

const (
	// ModeNone is the initial/unknown phase before any check has run.
	ModeNone Mode = iota
	ModeFileCheck
	ModeDownload
	ModeComplete
	ModeReady
)

//nolint:gochecknoglobals // static name table.
var modeNames = []string{"none", "file_check", "download", "complete", "ready"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// State is the single shared record driving the updater UI. It is mutated
// only by Machine appliers and handed out by value, so a renderer never
// observes a half-applied transition.
type State struct {
	Mode     Mode
	Progress float64

	CurrentFileName  string
	CurrentFileIndex int
	TotalFiles       int

	DownloadedSize int64
	TotalSize      int64

	// Derived by the estimator, never authoritative.
	CurrentSpeed  float64
	TimeRemaining float64

	// Completion booleans track which phases have finished; Mode tracks the
	// phase that is active. Both are kept in sync by every applier.
	IsUpdateAvailable   bool
	IsFileCheckComplete bool
	IsDownloadComplete  bool
	IsUpdateComplete    bool
}

// Status strings derived from the completion booleans plus the mode.
const (
	StatusVerifying        = "verifying"
	StatusDownloading      = "downloading"
	StatusNoUpdateRequired = "no update required"
	StatusFileCheckDone    = "file check complete"
	StatusDownloadDone     = "download complete"
	StatusUpdateDone       = "update completed"
	StatusReadyToLaunch    = "ready to launch"
)

// Status derives the human-readable workflow status. The precedence order
// here is the only place that disambiguates overlapping boolean
// combinations; keep it stable.
func (s State) Status() string {
	switch s.Mode {
	case ModeFileCheck:
		return StatusVerifying
	case ModeDownload:
		return StatusDownloading
	case ModeComplete:
		switch {
		case s.IsFileCheckComplete && !s.IsUpdateAvailable:
			return StatusNoUpdateRequired
		case s.IsFileCheckComplete && s.IsUpdateAvailable && !s.IsDownloadComplete:
			return StatusFileCheckDone
		case s.IsDownloadComplete && !s.IsUpdateComplete:
			return StatusDownloadDone
		case s.IsUpdateComplete:
			return StatusUpdateDone
		}
	}
	return StatusReadyToLaunch
}

// DisplayProgress is the percentage actually shown to the user. Once an
// update is known and a total size is established it is recomputed from
// cumulative bytes, overriding the raw event percentage; this corrects
// rounding drift across many small files.
func (s State) DisplayProgress() float64 {
	if s.IsUpdateAvailable && s.TotalSize > 0 {
		p := float64(s.DownloadedSize) / float64(s.TotalSize) * 100
		if p > 100 {
			p = 100
		}
		return p
	}
	return s.Progress
}
