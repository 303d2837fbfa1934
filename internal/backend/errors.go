package backend

import (
	"errors"
	"fmt"
)

// Sentinel errors for transport and launch-level reporting.
var (
	ErrOffline          = errors.New("server unreachable")
	ErrConfigNotFound   = errors.New("launcher config not found")
	ErrGamePathNotSet   = errors.New("game path not configured")
	ErrAlreadyLaunching = errors.New("game is already launching")
	ErrAlreadyRunning   = errors.New("game is already running")
	ErrLoginRejected    = errors.New("login rejected")
)

// HashMismatchError reports a downloaded file whose digest does not match
// the manifest entry.
type HashMismatchError struct {
	Path string
	Want string
	Got  string
}

func (e HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %s: want %s, got %s", e.Path, e.Want, e.Got)
}

// RemoteError wraps an unexpected HTTP response from the update or login
// server.
type RemoteError struct {
	StatusCode int
	URL        string
}

func (e RemoteError) Error() string {
	return fmt.Sprintf("remote error %d from %s", e.StatusCode, e.URL)
}
