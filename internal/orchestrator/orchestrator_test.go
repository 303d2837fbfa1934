package orchestrator

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teralaunch/teralaunch/internal/backend"
	"github.com/teralaunch/teralaunch/internal/session"
	"github.com/teralaunch/teralaunch/internal/workflow"
)

// mockService is a scriptable backend double with call counters.
type mockService struct {
	events chan backend.Event

	filesToUpdate []backend.FileInfo
	downloadSizes []int64
	loginResponse *backend.LoginResponse
	loginErr      error

	checkCalls    atomic.Int64
	getFilesCalls atomic.Int64
	downloadCalls atomic.Int64
	launchCalls   atomic.Int64
	resetCalls    atomic.Int64
	hashCalls     atomic.Int64

	mu       sync.Mutex
	authInfo backend.AuthInfo
	gamePath string
	language string

	getFilesDelay time.Duration
	launchErr     error
	running       bool
}

func newMockService() *mockService {
	return &mockService{events: make(chan backend.Event, 64), gamePath: "/game"}
}

func (m *mockService) Events() <-chan backend.Event { return m.events }

func (m *mockService) CheckServerConnection(ctx context.Context) (bool, error) {
	m.checkCalls.Add(1)
	return true, nil
}

func (m *mockService) GetFilesToUpdate(ctx context.Context) ([]backend.FileInfo, error) {
	m.getFilesCalls.Add(1)
	if m.getFilesDelay > 0 {
		time.Sleep(m.getFilesDelay)
	}
	return m.filesToUpdate, nil
}

func (m *mockService) DownloadAllFiles(ctx context.Context, files []backend.FileInfo) ([]int64, error) {
	m.downloadCalls.Add(1)
	return m.downloadSizes, nil
}

func (m *mockService) Login(ctx context.Context, username, password string) (*backend.LoginResponse, error) {
	return m.loginResponse, m.loginErr
}

func (m *mockService) Logout(ctx context.Context) error { return nil }

func (m *mockService) LaunchGame(ctx context.Context) error {
	m.launchCalls.Add(1)
	return m.launchErr
}

func (m *mockService) GameStatusValue(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running, nil
}

func (m *mockService) ResetLaunchState(ctx context.Context) error {
	m.resetCalls.Add(1)
	return nil
}

func (m *mockService) GenerateHashFile(ctx context.Context) (string, error) {
	m.hashCalls.Add(1)
	return "ok", nil
}

func (m *mockService) SetAuthInfo(info backend.AuthInfo) {
	m.mu.Lock()
	m.authInfo = info
	m.mu.Unlock()
}

func (m *mockService) GamePath() (string, error) { return m.gamePath, nil }

func (m *mockService) SaveGamePath(path string) error {
	m.mu.Lock()
	m.gamePath = path
	m.mu.Unlock()
	return nil
}

func (m *mockService) Language() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.language
}

func (m *mockService) SaveLanguage(lang string) error {
	m.mu.Lock()
	m.language = lang
	m.mu.Unlock()
	return nil
}

func newTestOrchestrator(t *testing.T, svc Service, opts ...Option) *Orchestrator {
	t.Helper()

	sess, err := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, sess.CompleteFirstLaunch())

	opts = append([]Option{WithDelays(time.Millisecond, time.Millisecond, time.Millisecond)}, opts...)
	return New(svc, workflow.New(nil), sess, opts...)
}

func TestCheckForUpdates_NoUpdateNeeded(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	o := newTestOrchestrator(t, svc)

	start := time.Now()
	require.NoError(t, o.CheckForUpdates(context.Background()))

	st := o.Machine().Snapshot()
	assert.Equal(t, workflow.ModeReady, st.Mode)
	assert.True(t, st.IsUpdateComplete)
	assert.False(t, st.IsUpdateAvailable)
	assert.True(t, st.IsFileCheckComplete)
	assert.Less(t, time.Since(start), time.Second)
	assert.EqualValues(t, 1, svc.getFilesCalls.Load())
}

func TestCheckForUpdates_DownloadsAndSynthesizesProgress(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	svc.filesToUpdate = []backend.FileInfo{
		{Path: "a.upk", Size: 100},
		{Path: "b.upk", Size: 300},
	}
	svc.downloadSizes = []int64{100, 300}

	// Capture each committed downloadedSize by sampling on notify.
	var mu sync.Mutex
	var downloaded []int64
	var machine *workflow.Machine
	machine = workflow.New(func() {
		mu.Lock()
		downloaded = append(downloaded, machine.Snapshot().DownloadedSize)
		mu.Unlock()
	})

	sess, err := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, sess.CompleteFirstLaunch())
	o := New(svc, machine, sess,
		WithDelays(time.Millisecond, time.Millisecond, time.Millisecond))

	require.NoError(t, o.CheckForUpdates(context.Background()))

	st := machine.Snapshot()
	assert.Equal(t, int64(400), st.TotalSize)
	assert.Equal(t, int64(400), st.DownloadedSize)
	assert.Equal(t, workflow.ModeReady, st.Mode)
	assert.True(t, st.IsDownloadComplete)
	assert.InDelta(t, 100, st.DisplayProgress(), 0.001)

	// The two synthesized events must have reported cumulative sizes 100
	// then 400.
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, downloaded, int64(100))
	assert.Contains(t, downloaded, int64(400))
	assert.EqualValues(t, 1, svc.downloadCalls.Load())
}

func TestCheckForUpdates_SingleFlight(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	svc.getFilesDelay = 50 * time.Millisecond
	o := newTestOrchestrator(t, svc)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = o.CheckForUpdates(context.Background())
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, svc.getFilesCalls.Load(),
		"concurrent checks must result in exactly one backend call")
}

func TestCheckForUpdates_FirstLaunchSkipsFileCheck(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	sess, err := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	o := New(svc, workflow.New(nil), sess,
		WithDelays(time.Millisecond, time.Millisecond, time.Millisecond))

	require.NoError(t, o.CheckForUpdates(context.Background()))
	assert.Zero(t, svc.getFilesCalls.Load())
	assert.Equal(t, workflow.ModeReady, o.Machine().Snapshot().Mode)
}

func TestInitializeAndCheckUpdates_IdempotentPerCycle(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	o := newTestOrchestrator(t, svc)

	ctx := context.Background()
	require.NoError(t, o.InitializeAndCheckUpdates(ctx, true))
	require.NoError(t, o.InitializeAndCheckUpdates(ctx, true))
	assert.EqualValues(t, 1, svc.getFilesCalls.Load())

	// The refresh trigger is an independent flag.
	require.NoError(t, o.InitializeAndCheckUpdates(ctx, false))
	assert.EqualValues(t, 2, svc.getFilesCalls.Load())

	// Logout re-arms both flags.
	require.NoError(t, o.Logout(ctx))
	require.NoError(t, o.InitializeAndCheckUpdates(ctx, true))
	assert.EqualValues(t, 3, svc.getFilesCalls.Load())
}

func TestLogin_SuccessPersistsSessionAndMirrorsAuth(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	svc.loginResponse = &backend.LoginResponse{
		Return: true, AuthKey: "key", UserName: "alice", UserNo: 42,
		CharacterCount: "3", Permission: 1, Privilege: 2,
	}
	o := newTestOrchestrator(t, svc)

	require.NoError(t, o.Login(context.Background(), "alice", "pw"))
	assert.True(t, o.Session().IsAuthenticated())
	assert.Equal(t, 2, o.Session().Data.Privilege)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, "key", svc.authInfo.AuthKey)
	assert.Equal(t, 42, svc.authInfo.UserNo)
}

func TestLogin_RejectedSurfacesMessageAndReleasesLatch(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	svc.loginResponse = &backend.LoginResponse{Return: false, Msg: "bad credentials"}

	var surfaced []string
	var mu sync.Mutex
	o := newTestOrchestrator(t, svc, WithHooks(Hooks{Error: func(msg string) {
		mu.Lock()
		surfaced = append(surfaced, msg)
		mu.Unlock()
	}}))

	err := o.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, backend.ErrLoginRejected)
	assert.False(t, o.Session().IsAuthenticated())
	mu.Lock()
	assert.Contains(t, surfaced, "bad credentials")
	mu.Unlock()

	// The latch must have been released: a second attempt reaches the
	// backend again.
	svc.loginResponse = &backend.LoginResponse{Return: true, AuthKey: "k", UserName: "alice"}
	require.NoError(t, o.Login(context.Background(), "alice", "right"))
}

func TestLaunchGame_FailureResetsLaunchState(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	svc.launchErr = backend.ErrGamePathNotSet
	o := newTestOrchestrator(t, svc)

	err := o.LaunchGame(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 1, svc.resetCalls.Load())
}

func TestLaunchGame_NoOpWhenAlreadyRunning(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	svc.mu.Lock()
	svc.running = true
	svc.mu.Unlock()
	o := newTestOrchestrator(t, svc)

	err := o.LaunchGame(context.Background())
	assert.ErrorIs(t, err, backend.ErrAlreadyRunning)
	assert.Zero(t, svc.launchCalls.Load())
}

func TestGenerateHashFile_PrivilegeGating(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	o := newTestOrchestrator(t, svc)

	// Default privilege 0: not permitted, not an error, backend untouched.
	out, err := o.GenerateHashFile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, svc.hashCalls.Load())

	require.NoError(t, o.Session().SetLogin("k", "op", 1, "0", 1, requiredPrivilege))
	out, err = o.GenerateHashFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 1, svc.hashCalls.Load())
}

func TestRun_DispatchesBackendEventsToMachine(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	o := newTestOrchestrator(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	svc.events <- backend.FileCheckProgress{CurrentFile: "a.upk", Progress: 10, TotalFiles: 5}

	require.Eventually(t, func() bool {
		return o.Machine().Snapshot().Mode == workflow.ModeFileCheck
	}, time.Second, 5*time.Millisecond)
}

func TestSetGamePath_CompletesFirstLaunch(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	sess, err := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	o := New(svc, workflow.New(nil), sess)

	require.True(t, sess.Data.IsFirstLaunch)
	require.NoError(t, o.SetGamePath("/opt/game"))
	assert.False(t, sess.Data.IsFirstLaunch)
	assert.Equal(t, "/opt/game", svc.gamePath)
}
