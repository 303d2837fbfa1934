package tui

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teralaunch/teralaunch/internal/session"
)

func newTestViewState(t *testing.T) *viewState {
	t.Helper()
	sess, err := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	return newViewState(sess)
}

func TestViewState_SwapClearsErrorState(t *testing.T) {
	vs := newTestViewState(t)

	vs.ShowNotFound("nowhere")
	vs.ShowError("home", errors.New("boom"))
	vs.Swap("home", "home")

	snap := vs.snapshot()
	assert.Equal(t, "home", snap.Route)
	assert.Empty(t, snap.NotFoundKey)
	assert.Empty(t, snap.LastError)
}

func TestViewState_LoadingToggles(t *testing.T) {
	vs := newTestViewState(t)

	vs.ShowLoading()
	assert.True(t, vs.snapshot().Loading)

	vs.HideLoading()
	assert.False(t, vs.snapshot().Loading)
}

func TestViewState_RehydrateReadsSession(t *testing.T) {
	vs := newTestViewState(t)

	require.NoError(t, vs.sess.SetLogin("ticket", "operator", 7, "1", 0, 0))
	vs.Rehydrate()

	assert.Equal(t, "operator", vs.snapshot().DisplayName)
}
