package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer records the calls a transition makes.
type fakeRenderer struct {
	mu        sync.Mutex
	titles    []string
	swaps     []string
	notFound  []string
	errs      []error
	loading   int
	unloading int
	rehydrate int
}

func (f *fakeRenderer) SetTitle(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
}

func (f *fakeRenderer) ShowLoading() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading++
}

func (f *fakeRenderer) HideLoading() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloading++
}

func (f *fakeRenderer) Swap(route, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swaps = append(f.swaps, route)
}

func (f *fakeRenderer) ShowNotFound(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notFound = append(f.notFound, key)
}

func (f *fakeRenderer) ShowError(route string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *fakeRenderer) Rehydrate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rehydrate++
}

func (f *fakeRenderer) swapCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.swaps)
}

func staticRoutes() map[string]Route {
	load := func(ctx context.Context) (string, error) { return "content", nil }
	return map[string]Route{
		RouteLogin:    {Title: "Login", Access: Public, Load: load},
		RouteHome:     {Title: "Home", Access: Protected, Load: load},
		RouteSettings: {Title: "Settings", Access: Protected, Load: load},
	}
}

func newTestRouter(rend *fakeRenderer, authed *bool) *Router {
	return New(staticRoutes(), rend, func() bool { return *authed },
		WithMinLoadingTime(time.Millisecond))
}

func TestNavigate_UnauthenticatedProtectedRedirectsToLogin(t *testing.T) {
	t.Parallel()

	rend := &fakeRenderer{}
	authed := false
	r := newTestRouter(rend, &authed)

	out, err := r.Navigate(context.Background(), RouteHome)
	require.NoError(t, err)
	assert.Equal(t, Committed, out)
	assert.Equal(t, RouteLogin, r.Current())
	assert.Equal(t, []string{RouteLogin}, rend.swaps)
	assert.Equal(t, []string{"Login"}, rend.titles)
}

func TestNavigate_AuthenticatedLoginRedirectsToHome(t *testing.T) {
	t.Parallel()

	rend := &fakeRenderer{}
	authed := true
	r := newTestRouter(rend, &authed)

	out, err := r.Navigate(context.Background(), RouteLogin)
	require.NoError(t, err)
	assert.Equal(t, Committed, out)
	assert.Equal(t, RouteHome, r.Current())
}

func TestNavigate_CurrentRouteIsNoOp(t *testing.T) {
	t.Parallel()

	rend := &fakeRenderer{}
	authed := true
	r := newTestRouter(rend, &authed)

	_, err := r.Navigate(context.Background(), RouteHome)
	require.NoError(t, err)
	require.Equal(t, 1, rend.swapCount())

	out, err := r.Navigate(context.Background(), RouteHome)
	require.NoError(t, err)
	assert.Equal(t, NoNavigationNeeded, out)
	assert.Equal(t, RouteHome, r.Current())
	assert.Equal(t, 1, rend.swapCount(), "a no-op must not swap the view again")
}

func TestNavigate_UnknownRouteShowsNotFoundWithoutCommit(t *testing.T) {
	t.Parallel()

	rend := &fakeRenderer{}
	authed := true
	r := newTestRouter(rend, &authed)

	out, err := r.Navigate(context.Background(), "bogus")
	require.NoError(t, err)
	assert.Equal(t, NotFound, out)
	assert.Empty(t, r.Current())
	assert.Equal(t, []string{"bogus"}, rend.notFound)
}

func TestNavigate_SerializesTransitions(t *testing.T) {
	t.Parallel()

	rend := &fakeRenderer{}
	authed := true
	slow := staticRoutes()
	release := make(chan struct{})
	slow[RouteHome] = Route{Title: "Home", Access: Protected, Load: func(ctx context.Context) (string, error) {
		<-release
		return "content", nil
	}}
	r := New(slow, rend, func() bool { return authed }, WithMinLoadingTime(time.Millisecond))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Navigate(context.Background(), RouteHome)
	}()

	// Wait until the first transition is holding the mutex.
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.transitioning
	}, time.Second, time.Millisecond)

	out, err := r.Navigate(context.Background(), RouteSettings)
	require.NoError(t, err)
	assert.Equal(t, Busy, out)

	close(release)
	<-done
	assert.Equal(t, RouteHome, r.Current())
}

func TestNavigate_LoadErrorShowsErrorViewAndClearsMutex(t *testing.T) {
	t.Parallel()

	rend := &fakeRenderer{}
	authed := true
	failing := staticRoutes()
	failing[RouteHome] = Route{Title: "Home", Access: Protected, Load: func(ctx context.Context) (string, error) {
		return "", errors.New("fetch failed")
	}}
	r := New(failing, rend, func() bool { return authed }, WithMinLoadingTime(time.Millisecond))

	_, err := r.Navigate(context.Background(), RouteHome)
	require.ErrorIs(t, err, ErrTransitionFailed)
	assert.Len(t, rend.errs, 1)
	assert.Empty(t, r.Current(), "failed transition must not commit the route")

	// The mutex must be free: a later navigation succeeds.
	out, err := r.Navigate(context.Background(), RouteSettings)
	require.NoError(t, err)
	assert.Equal(t, Committed, out)
	assert.Equal(t, RouteSettings, r.Current())
}

func TestNavigate_EnforcesMinimumLoadingTime(t *testing.T) {
	t.Parallel()

	rend := &fakeRenderer{}
	authed := true
	r := New(staticRoutes(), rend, func() bool { return authed },
		WithMinLoadingTime(50*time.Millisecond))

	start := time.Now()
	_, err := r.Navigate(context.Background(), RouteHome)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 1, rend.rehydrate)
}

func TestNavigate_RunsRouteInitializer(t *testing.T) {
	t.Parallel()

	rend := &fakeRenderer{}
	authed := true
	inits := 0
	routes := staticRoutes()
	home := routes[RouteHome]
	home.Init = func(ctx context.Context) error { inits++; return nil }
	routes[RouteHome] = home
	r := New(routes, rend, func() bool { return authed }, WithMinLoadingTime(time.Millisecond))

	_, err := r.Navigate(context.Background(), RouteHome)
	require.NoError(t, err)
	assert.Equal(t, 1, inits)
}
