package tui

import "time"

// Package-level constants to avoid magic numbers and improve readability.
const (
	channelBufferSize = 256

	// renderFrameInterval paces coalesced re-renders: the scheduler batches
	// state-change notifications into at most one refresh per frame.
	renderFrameIntervalMS = 50

	// logTailLines bounds the backend log pane.
	logTailLines = 8

	progressBarWidth = 46

	renderFrameInterval = time.Duration(renderFrameIntervalMS) * time.Millisecond
)
