package tui

import (
	"sync"

	"github.com/teralaunch/teralaunch/internal/session"
)

// viewState is the router's output surface. The router mutates it from
// transition goroutines; the frame tick reads a copy for rendering.
type viewState struct {
	mu sync.Mutex

	sess *session.Store

	title       string
	route       string
	content     string
	loading     bool
	notFoundKey string
	lastError   string
	displayName string
}

// viewSnapshot is the render-safe copy handed to View.
type viewSnapshot struct {
	Title       string
	Route       string
	Content     string
	Loading     bool
	NotFoundKey string
	LastError   string
	DisplayName string
}

func newViewState(sess *session.Store) *viewState {
	return &viewState{sess: sess}
}

func (v *viewState) snapshot() viewSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return viewSnapshot{
		Title:       v.title,
		Route:       v.route,
		Content:     v.content,
		Loading:     v.loading,
		NotFoundKey: v.notFoundKey,
		LastError:   v.lastError,
		DisplayName: v.displayName,
	}
}

// Renderer implementation; each call is one step of a committed transition.

func (v *viewState) SetTitle(title string) {
	v.mu.Lock()
	v.title = title
	v.mu.Unlock()
}

func (v *viewState) ShowLoading() {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()
}

func (v *viewState) HideLoading() {
	v.mu.Lock()
	v.loading = false
	v.mu.Unlock()
}

func (v *viewState) Swap(route, content string) {
	v.mu.Lock()
	v.route = route
	v.content = content
	v.notFoundKey = ""
	v.lastError = ""
	v.mu.Unlock()
}

func (v *viewState) ShowNotFound(key string) {
	v.mu.Lock()
	v.notFoundKey = key
	v.mu.Unlock()
}

func (v *viewState) ShowError(route string, err error) {
	v.mu.Lock()
	v.lastError = err.Error()
	v.mu.Unlock()
}

// Rehydrate refreshes user-display fields from the durable session store.
func (v *viewState) Rehydrate() {
	v.mu.Lock()
	v.displayName = v.sess.Data.UserName
	v.mu.Unlock()
}
