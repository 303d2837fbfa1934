package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/teralaunch/teralaunch/internal/backend"
	"github.com/teralaunch/teralaunch/internal/session"
	"github.com/teralaunch/teralaunch/internal/workflow"
)

// requiredPrivilege gates hash-file generation to operator accounts.
const requiredPrivilege = 2

// Pacing delays. The settle delays exist purely so the renderer gets a
// visible moment on the completion status before the workflow advances.
const (
	defaultUpdateSettle   = 2 * time.Second
	defaultNoUpdateSettle = 1 * time.Second
	defaultDownloadPacing = 2 * time.Second
)

// Service is the slice of the backend command boundary the orchestrator
// drives. *backend.Client satisfies it; tests substitute a mock.
type Service interface {
	Events() <-chan backend.Event
	CheckServerConnection(ctx context.Context) (bool, error)
	GetFilesToUpdate(ctx context.Context) ([]backend.FileInfo, error)
	DownloadAllFiles(ctx context.Context, files []backend.FileInfo) ([]int64, error)
	Login(ctx context.Context, username, password string) (*backend.LoginResponse, error)
	Logout(ctx context.Context) error
	LaunchGame(ctx context.Context) error
	GameStatusValue(ctx context.Context) (bool, error)
	ResetLaunchState(ctx context.Context) error
	GenerateHashFile(ctx context.Context) (string, error)
	SetAuthInfo(info backend.AuthInfo)
	GamePath() (string, error)
	SaveGamePath(path string) error
	Language() string
	SaveLanguage(lang string) error
}

// Hooks are optional UI callbacks. Nil hooks are no-ops.
type Hooks struct {
	// ControlsEnabled toggles launch/selector controls while an update
	// sequence owns them.
	ControlsEnabled func(enabled bool)
	// Error surfaces a user-facing error message.
	Error func(msg string)
	// Event observes every backend event after it has been applied to the
	// workflow machine; the UI uses it for log lines and game status.
	Event func(ev backend.Event)
}

// Orchestrator sequences the launcher's high-level operations and owns the
// single-flight guards that keep logically concurrent re-entries out.
type Orchestrator struct {
	svc     Service
	machine *workflow.Machine
	sess    *session.Store
	hooks   Hooks

	updateSettle   time.Duration
	noUpdateSettle time.Duration
	downloadPacing time.Duration

	// Single-flight guards. Re-entrant calls log and no-op.
	checking       latch
	loggingIn      latch
	loggingOut     latch
	launching      latch
	generatingHash latch

	// Once-per-cycle init flags, cleared at logout.
	initFlags struct {
		login   latch
		refresh latch
	}
}

// Option mutates Orchestrator configuration.
type Option func(*Orchestrator)

// WithHooks installs UI callbacks.
func WithHooks(h Hooks) Option {
	return func(o *Orchestrator) { o.hooks = h }
}

// WithDelays overrides the pacing delays; tests shrink them to keep runs
// fast.
func WithDelays(updateSettle, noUpdateSettle, downloadPacing time.Duration) Option {
	return func(o *Orchestrator) {
		o.updateSettle = updateSettle
		o.noUpdateSettle = noUpdateSettle
		o.downloadPacing = downloadPacing
	}
}

// New constructs an Orchestrator around a backend service, the workflow
// machine, and the durable session store.
func New(svc Service, machine *workflow.Machine, sess *session.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		svc:            svc,
		machine:        machine,
		sess:           sess,
		updateSettle:   defaultUpdateSettle,
		noUpdateSettle: defaultNoUpdateSettle,
		downloadPacing: defaultDownloadPacing,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Machine exposes the workflow machine for renderers.
func (o *Orchestrator) Machine() *workflow.Machine { return o.machine }

// Session exposes the durable session store.
func (o *Orchestrator) Session() *session.Store { return o.sess }

// Run consumes the backend's event channel and applies every event through
// the workflow machine until ctx is cancelled. It is the single dispatcher
// the event fan-in converges on; start it once.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-o.svc.Events():
			if !ok {
				return
			}
			o.machine.Apply(ev)
			if o.hooks.Event != nil {
				o.hooks.Event(ev)
			}
		}
	}
}

// WithUIHooks installs UI callbacks after construction; the TUI wires its
// bridge here before starting the dispatcher.
func (o *Orchestrator) WithUIHooks(h Hooks) *Orchestrator {
	o.hooks = h
	return o
}

func (o *Orchestrator) setControls(enabled bool) {
	if o.hooks.ControlsEnabled != nil {
		o.hooks.ControlsEnabled(enabled)
	}
}

func (o *Orchestrator) surfaceError(msg string) {
	if o.hooks.Error != nil {
		o.hooks.Error(msg)
	}
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// CheckForUpdates runs the full check → download → ready sequence. A call
// while a check is already in flight logs and no-ops.
func (o *Orchestrator) CheckForUpdates(ctx context.Context) error {
	if !o.checking.tryAcquire() {
		logrus.Info("update check already in progress, ignoring")
		return nil
	}
	defer o.checking.release()

	o.machine.Reset()
	o.setControls(false)
	defer o.setControls(true)

	if ok, err := o.svc.CheckServerConnection(ctx); err != nil || !ok {
		o.surfaceError("update server is unreachable")
		return fmt.Errorf("connectivity check failed: %w", errOrOffline(err))
	}

	// On a fresh install there is nothing to verify yet; the user first has
	// to pick a game folder.
	if o.sess.Data.IsFirstLaunch {
		logrus.Info("first launch, skipping file check")
		o.machine.MarkNoUpdateRequired()
		sleep(ctx, o.noUpdateSettle)
		o.machine.MarkReady()
		return nil
	}

	files, err := o.svc.GetFilesToUpdate(ctx)
	if err != nil {
		o.surfaceError("file verification failed")
		return err
	}

	if len(files) == 0 {
		o.machine.MarkNoUpdateRequired()
		sleep(ctx, o.noUpdateSettle)
		o.machine.MarkReady()
		return nil
	}

	o.machine.MarkUpdateAvailable(backend.TotalSize(files), len(files))
	// UX pacing only: let the "update available" summary register.
	sleep(ctx, o.downloadPacing)
	return o.RunPatchSystem(ctx, files)
}

// RunPatchSystem downloads the batch and reconstructs progress telemetry
// from the per-file byte counts the backend returns. The synthesized events
// travel the same apply path as live ones, so the renderer cannot tell the
// difference. CheckForUpdates holds the single-flight guard for the whole
// sequence; callers invoking this directly are expected to do the same.
func (o *Orchestrator) RunPatchSystem(ctx context.Context, files []backend.FileInfo) error {
	sizes, err := o.svc.DownloadAllFiles(ctx, files)
	if err != nil {
		o.surfaceError("download failed")
		return err
	}

	total := backend.TotalSize(files)
	var cumulative int64
	last := time.Now()
	for i, n := range sizes {
		cumulative += n
		now := time.Now()
		dt := now.Sub(last).Seconds()
		// The batch already finished downloading, so deltas between
		// synthesized events are near zero; when dt rounds to 0 the raw
		// byte count stands in as the sample. The estimator window smooths
		// it and DownloadComplete zeroes the displayed speed.
		speed := float64(n)
		if dt > 0 {
			speed = float64(n) / dt
		}
		last = now

		name := ""
		if i < len(files) {
			name = files[i].Path
		}
		progress := 100.0
		if total > 0 {
			progress = float64(cumulative) / float64(total) * 100
		}
		o.machine.Apply(backend.DownloadProgress{
			FileName:         name,
			Progress:         progress,
			Speed:            speed,
			DownloadedBytes:  cumulative,
			TotalBytes:       total,
			TotalFiles:       len(files),
			CurrentFileIndex: i + 1,
		})
	}

	o.machine.Apply(backend.DownloadComplete{})
	sleep(ctx, o.updateSettle)
	o.machine.MarkReady()
	return nil
}

// InitializeAndCheckUpdates runs one update check per login or refresh
// cycle. Each trigger is idempotent until the flags are cleared at logout.
func (o *Orchestrator) InitializeAndCheckUpdates(ctx context.Context, isLogin bool) error {
	flag := &o.initFlags.refresh
	if isLogin {
		flag = &o.initFlags.login
	}
	if !flag.tryAcquire() {
		logrus.Debugf("updates already checked for this cycle (login=%v)", isLogin)
		return nil
	}
	// The flag stays held until logout clears it; this is the idempotency
	// mechanism, not a mutex.
	return o.CheckForUpdates(ctx)
}

// Login authenticates, persists the session, and mirrors auth material to
// the backend. A rejected login surfaces the server's message and returns
// ErrLoginRejected.
func (o *Orchestrator) Login(ctx context.Context, username, password string) error {
	if !o.loggingIn.tryAcquire() {
		logrus.Info("login already in progress, ignoring")
		return nil
	}
	defer o.loggingIn.release()

	lr, err := o.svc.Login(ctx, username, password)
	if err != nil {
		o.surfaceError("login failed: server error")
		return err
	}
	if !lr.Return {
		o.surfaceError(lr.Msg)
		return fmt.Errorf("%w: %s", backend.ErrLoginRejected, lr.Msg)
	}

	if err := o.sess.SetLogin(lr.AuthKey, lr.UserName, lr.UserNo, lr.CharacterCount, lr.Permission, lr.Privilege); err != nil {
		return err
	}
	o.svc.SetAuthInfo(backend.AuthInfo{
		AuthKey:        lr.AuthKey,
		UserName:       lr.UserName,
		UserNo:         lr.UserNo,
		CharacterCount: lr.CharacterCount,
	})
	logrus.Infof("logged in as %s", lr.UserName)
	return nil
}

// Logout clears backend and session auth state, resets the workflow, and
// re-arms the per-cycle init flags.
func (o *Orchestrator) Logout(ctx context.Context) error {
	if !o.loggingOut.tryAcquire() {
		logrus.Info("logout already in progress, ignoring")
		return nil
	}
	defer o.loggingOut.release()

	if err := o.svc.Logout(ctx); err != nil {
		return err
	}
	if err := o.sess.ClearLogin(); err != nil {
		return err
	}
	o.machine.Reset()
	o.initFlags.login.release()
	o.initFlags.refresh.release()
	return nil
}

// LaunchGame starts the game if it is not already running or launching.
// Launch failures ask the backend to reset its launch state so the next
// attempt is not wedged.
func (o *Orchestrator) LaunchGame(ctx context.Context) error {
	if !o.launching.tryAcquire() {
		logrus.Info("launch already in progress, ignoring")
		return nil
	}
	defer o.launching.release()

	if running, err := o.svc.GameStatusValue(ctx); err == nil && running {
		return backend.ErrAlreadyRunning
	}

	if err := o.svc.LaunchGame(ctx); err != nil {
		o.surfaceError("failed to launch game")
		if resetErr := o.svc.ResetLaunchState(ctx); resetErr != nil {
			logrus.Warnf("failed to reset launch state: %v", resetErr)
		}
		return err
	}
	return nil
}

// CanGenerateHashFile reports whether the cached privilege level permits
// manifest generation. Missing or invalid privilege means "not permitted",
// never an error.
func (o *Orchestrator) CanGenerateHashFile() bool {
	return o.sess.Data.Privilege >= requiredPrivilege
}

// GenerateHashFile regenerates the distribution manifest. Gated on
// privilege and single-flighted.
func (o *Orchestrator) GenerateHashFile(ctx context.Context) (string, error) {
	if !o.CanGenerateHashFile() {
		logrus.Debug("hash file generation not permitted for this account")
		return "", nil
	}
	if !o.generatingHash.tryAcquire() {
		logrus.Info("hash file generation already in progress, ignoring")
		return "", nil
	}
	defer o.generatingHash.release()

	summary, err := o.svc.GenerateHashFile(ctx)
	if err != nil {
		o.surfaceError("hash file generation failed")
		return "", err
	}
	return summary, nil
}

// GamePathValue reads the configured game directory.
func (o *Orchestrator) GamePathValue() (string, error) {
	return o.svc.GamePath()
}

// LanguageValue reads the configured game language.
func (o *Orchestrator) LanguageValue() string {
	return o.svc.Language()
}

// SaveLanguage persists the game language.
func (o *Orchestrator) SaveLanguage(lang string) error {
	return o.svc.SaveLanguage(lang)
}

// SetGamePath persists a newly chosen game directory and completes the
// first-launch cycle.
func (o *Orchestrator) SetGamePath(path string) error {
	if err := o.svc.SaveGamePath(path); err != nil {
		return err
	}
	if o.sess.Data.IsFirstLaunch {
		return o.sess.CompleteFirstLaunch()
	}
	return nil
}

// MirrorSessionAuth pushes persisted auth material to the backend at
// process start when a prior login is still on disk.
func (o *Orchestrator) MirrorSessionAuth() {
	if !o.sess.IsAuthenticated() {
		return
	}
	o.svc.SetAuthInfo(backend.AuthInfo{
		AuthKey:        o.sess.Data.AuthKey,
		UserName:       o.sess.Data.UserName,
		UserNo:         o.sess.Data.UserNo,
		CharacterCount: o.sess.Data.CharacterCount,
	})
}

func errOrOffline(err error) error {
	if err != nil {
		return err
	}
	return errors.New("server reported unreachable")
}
