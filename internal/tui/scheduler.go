package tui

import "sync/atomic"

// RenderScheduler coalesces state-change notifications into at most one UI
// refresh per frame. Producers call Notify from any goroutine; the frame
// tick consumes the pending flag and re-renders once, however many
// notifications arrived in between.
type RenderScheduler struct {
	pending atomic.Bool
}

// Notify marks the state dirty. Safe for concurrent use.
func (s *RenderScheduler) Notify() {
	s.pending.Store(true)
}

// Consume reports whether a refresh is due and clears the pending flag.
func (s *RenderScheduler) Consume() bool {
	return s.pending.Swap(false)
}
