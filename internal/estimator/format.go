package estimator

import (
	"fmt"
	"strings"
)

// calculatingSentinel is shown instead of a number while an estimate is
// still meaningless (negative or non-finite durations).
const calculatingSentinel = "calculating..."

//nolint:gochecknoglobals // static unit ladders.
var (
	sizeUnits  = []string{"B", "KB", "MB", "GB", "TB"}
	speedUnits = []string{"B/s", "KB/s", "MB/s", "GB/s"}
)

// FormatSize renders a byte count through the base-1024 unit ladder with two
// fractional digits. Invalid inputs render as "0 B".
func FormatSize(bytes float64) string {
	return formatLadder(bytes, sizeUnits)
}

// FormatSpeed renders a throughput the same way, capped at GB/s.
func FormatSpeed(bps float64) string {
	return formatLadder(bps, speedUnits)
}

func formatLadder(v float64, units []string) string {
	if !isFinite(v) || v <= 0 {
		return "0 " + units[0]
	}
	idx := 0
	for v >= 1024 && idx < len(units)-1 {
		v /= 1024
		idx++
	}
	return fmt.Sprintf("%.2f %s", v, units[idx])
}

// FormatDuration renders seconds as "Hh Mm Ss", dropping leading zero-valued
// units ("45s", "3m 2s", "1h 0m 5s"). Negative or non-finite durations render
// as a "still computing" sentinel.
func FormatDuration(seconds float64) string {
	if !isFinite(seconds) || seconds < 0 {
		return calculatingSentinel
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	var b strings.Builder
	if h > 0 {
		fmt.Fprintf(&b, "%dh %dm %ds", h, m, s)
	} else if m > 0 {
		fmt.Fprintf(&b, "%dm %ds", m, s)
	} else {
		fmt.Fprintf(&b, "%ds", s)
	}
	return b.String()
}
