package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Access controls who may enter a route.
type Access int

const (
	Public Access = iota
	Protected
)

// Well-known route keys.
const (
	RouteLogin    = "login"
	RouteHome     = "home"
	RouteSettings = "settings"
)

// minLoadingTime keeps the loading indicator visible long enough to avoid a
// flicker on fast loads.
const minLoadingTime = 500 * time.Millisecond

// Route is one entry in the static route table.
type Route struct {
	Title  string
	Access Access
	// Load produces the route's view content; it may block.
	Load func(ctx context.Context) (string, error)
	// Init runs after the transition commits. Optional.
	Init func(ctx context.Context) error
}

// Renderer is the output surface a committed transition drives. The TUI
// implements it; tests use a recording fake.
type Renderer interface {
	SetTitle(title string)
	ShowLoading()
	HideLoading()
	// Swap replaces the visible view with the loaded content.
	Swap(route string, content string)
	// ShowNotFound renders the missing-route view without a commit.
	ShowNotFound(key string)
	// ShowError renders a best-effort inline error view.
	ShowError(route string, err error)
	// Rehydrate refreshes user-display fields from durable session state.
	Rehydrate()
}

// Outcome classifies the result of a navigation request.
type Outcome int

const (
	// Committed means the route changed and the view was swapped.
	Committed Outcome = iota
	// NoNavigationNeeded means the requested route was already current.
	// It is distinct from an error.
	NoNavigationNeeded
	// Busy means another transition was in flight and this one was dropped.
	Busy
	// NotFound means the key was not in the route table.
	NotFound
)

// ErrTransitionFailed wraps any error raised mid-transition.
var ErrTransitionFailed = errors.New("route transition failed")

// Router serializes page navigation: it resolves requested routes against
// authentication state, runs at most one transition at a time, and
// guarantees the transition mutex is released on every exit path.
type Router struct {
	routes   map[string]Route
	renderer Renderer
	// isAuthenticated is consulted at resolution time on every request.
	isAuthenticated func() bool

	minLoading time.Duration

	mu            sync.Mutex
	current       string
	transitioning bool
}

// Option mutates Router configuration.
type Option func(*Router)

// WithMinLoadingTime overrides the minimum visible-loading duration; tests
// shrink it.
func WithMinLoadingTime(d time.Duration) Option {
	return func(r *Router) { r.minLoading = d }
}

// New constructs a Router over a static route table.
func New(routes map[string]Route, renderer Renderer, isAuthenticated func() bool, opts ...Option) *Router {
	r := &Router{
		routes:          routes,
		renderer:        renderer,
		isAuthenticated: isAuthenticated,
		minLoading:      minLoadingTime,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Current returns the committed route key, or "" before the first commit.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// resolve applies the access decision table to a requested key.
func (r *Router) resolve(key string) string {
	route, ok := r.routes[key]
	if !ok {
		return key // handled as not-found by Navigate
	}
	authed := r.isAuthenticated()
	if !authed && route.Access == Protected {
		return RouteLogin
	}
	if authed && key == RouteLogin {
		return RouteHome
	}
	return key
}

// Navigate requests a transition to key. Exactly one transition runs at a
// time; requests made mid-transition are dropped with Busy. The transition
// mutex is cleared on every exit path, including errors, since a stuck
// mutex would deadlock all future navigation.
func (r *Router) Navigate(ctx context.Context, key string) (Outcome, error) {
	target := r.resolve(key)

	route, ok := r.routes[target]
	if !ok {
		logrus.Warnf("unknown route %q", key)
		r.renderer.ShowNotFound(key)
		return NotFound, nil
	}

	r.mu.Lock()
	if r.transitioning {
		r.mu.Unlock()
		logrus.Debugf("navigation to %q dropped: transition in progress", target)
		return Busy, nil
	}
	if r.current == target {
		r.mu.Unlock()
		return NoNavigationNeeded, nil
	}
	r.transitioning = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.transitioning = false
		r.mu.Unlock()
	}()

	if err := r.commit(ctx, target, route); err != nil {
		r.renderer.ShowError(target, err)
		r.renderer.HideLoading()
		return Committed, fmt.Errorf("%w: %v", ErrTransitionFailed, err)
	}
	return Committed, nil
}

// commit performs one full transition: title, loading indicator, content
// load with a minimum visible duration, swap, rehydrate, route update,
// then the route's initializer.
func (r *Router) commit(ctx context.Context, target string, route Route) error {
	r.renderer.SetTitle(route.Title)
	r.renderer.ShowLoading()

	started := time.Now()
	content := ""
	if route.Load != nil {
		loaded, err := route.Load(ctx)
		if err != nil {
			return err
		}
		content = loaded
	}

	// Enforce the minimum visible-loading duration on fast loads.
	if remaining := r.minLoading - time.Since(started); remaining > 0 {
		t := time.NewTimer(remaining)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	r.renderer.Swap(target, content)
	r.renderer.Rehydrate()
	r.renderer.HideLoading()

	r.mu.Lock()
	r.current = target
	r.mu.Unlock()

	if route.Init != nil {
		if err := route.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}
