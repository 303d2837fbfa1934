package estimator

import "math"

// Package-level tuning constants.
const (
	// historySize bounds the speed window; a short moving average smooths
	// per-file spikes without lagging multiple seconds behind.
	historySize = 10

	// maxETASeconds caps the displayed ETA at 30 days so a near-zero but
	// positive speed sample never produces an absurd countdown.
	maxETASeconds = 30 * 24 * 3600
)

// Estimator keeps a bounded window of instantaneous speed samples and derives
// a smoothed throughput and a clamped time-remaining estimate from it.
// The zero value is ready to use.
type Estimator struct {
	samples []float64
}

// RecordSample appends a bytes-per-second sample, evicting the oldest sample
// once the window is full, and returns the arithmetic mean of the retained
// window.
func (e *Estimator) RecordSample(bps float64) float64 {
	e.samples = append(e.samples, bps)
	if len(e.samples) > historySize {
		e.samples = e.samples[len(e.samples)-historySize:]
	}
	return e.Average()
}

// Average returns the mean of the retained samples, or 0 with no history.
func (e *Estimator) Average() float64 {
	if len(e.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range e.samples {
		sum += s
	}
	return sum / float64(len(e.samples))
}

// History returns a copy of the retained samples, oldest first.
func (e *Estimator) History() []float64 {
	out := make([]float64, len(e.samples))
	copy(out, e.samples)
	return out
}

// Reset drops all retained samples.
func (e *Estimator) Reset() {
	e.samples = e.samples[:0]
}

// TimeRemaining returns the estimated seconds until downloaded reaches
// total, based on the smoothed speed accumulated through RecordSample.
// It returns 0 — meaning "unknown or already complete", not "zero seconds" —
// when instant is non-positive or non-finite, when either size is non-finite,
// or when downloaded has reached total. The result is clamped to 30 days.
func (e *Estimator) TimeRemaining(downloaded, total, instant float64) float64 {
	if !isFinite(instant) || instant <= 0 {
		return 0
	}
	if !isFinite(downloaded) || !isFinite(total) {
		return 0
	}
	if downloaded >= total {
		return 0
	}
	avg := e.Average()
	if avg <= 0 {
		// No window yet: fall back to the instant sample.
		avg = instant
	}
	eta := (total - downloaded) / avg
	if eta > maxETASeconds {
		return maxETASeconds
	}
	return eta
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
