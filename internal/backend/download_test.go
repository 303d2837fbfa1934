package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drainEvents collects everything currently buffered on the event channel.
func drainEvents(c *Client) []Event {
	var out []Event
	for {
		select {
		case ev := <-c.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestDownloadAllFiles_WritesVerifiesAndReportsSizes(t *testing.T) {
	t.Parallel()

	gameDir := t.TempDir()
	bodies := map[string][]byte{
		"Binaries/small.dll": []byte("0123456789"),
		"S1Game/big.upk":     make([]byte, 300),
	}
	ts := manifestServer(t, bodies)
	defer ts.Close()

	c := newTestClient(t, ts, gameDir)
	files := []FileInfo{
		{Path: "Binaries/small.dll", Hash: sha256Hex(bodies["Binaries/small.dll"]), Size: 10, URL: ts.URL + "/files/Binaries/small.dll"},
		{Path: "S1Game/big.upk", Hash: sha256Hex(bodies["S1Game/big.upk"]), Size: 300, URL: ts.URL + "/files/S1Game/big.upk"},
	}

	sizes, err := c.DownloadAllFiles(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 300}, sizes)

	written, err := os.ReadFile(filepath.Join(gameDir, "Binaries", "small.dll"))
	require.NoError(t, err)
	assert.Equal(t, bodies["Binaries/small.dll"], written)

	events := drainEvents(c)
	var sawComplete bool
	var lastProgress *DownloadProgress
	for _, ev := range events {
		switch x := ev.(type) {
		case DownloadProgress:
			cp := x
			lastProgress = &cp
		case DownloadComplete:
			sawComplete = true
		}
	}
	assert.True(t, sawComplete, "expected a DownloadComplete event")
	require.NotNil(t, lastProgress)
	// Final per-file event reports cumulative bytes against batch total.
	assert.Equal(t, int64(310), lastProgress.DownloadedBytes)
	assert.Equal(t, int64(310), lastProgress.TotalBytes)
	assert.Equal(t, 2, lastProgress.CurrentFileIndex)
	assert.InDelta(t, 100, lastProgress.Progress, 0.001)
}

func TestDownloadAllFiles_EmptyBatchCompletesImmediately(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil, t.TempDir())
	sizes, err := c.DownloadAllFiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, sizes)

	events := drainEvents(c)
	require.Len(t, events, 1)
	assert.IsType(t, DownloadComplete{}, events[0])
}

func TestDownloadAllFiles_HashMismatchAborts(t *testing.T) {
	t.Parallel()

	gameDir := t.TempDir()
	bodies := map[string][]byte{"Binaries/bad.dll": []byte("tampered")}
	ts := manifestServer(t, bodies)
	defer ts.Close()

	c := newTestClient(t, ts, gameDir)
	files := []FileInfo{{
		Path: "Binaries/bad.dll",
		Hash: "deadbeef", // wrong on purpose
		Size: 8,
		URL:  ts.URL + "/files/Binaries/bad.dll",
	}}

	_, err := c.DownloadAllFiles(context.Background(), files)
	require.Error(t, err)
	var hm HashMismatchError
	require.ErrorAs(t, err, &hm)
	assert.Equal(t, "Binaries/bad.dll", hm.Path)
}
