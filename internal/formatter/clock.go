package formatter

import (
	"fmt"
	"math"
)

// maxClockSeconds bounds durations before integer conversion.
const maxClockSeconds = float64(1 << 62)

// FormatClockFromSeconds renders seconds as MM:SS, or HH:MM:SS from one hour up.
//
// Negative and non-finite input renders as 00:00; fractions are floored and values beyond
// maxClockSeconds are clamped.
func FormatClockFromSeconds(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	seconds = min(seconds, maxClockSeconds)

	total := int64(math.Floor(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// AdjustByStep clamps current+deltaSteps into [min, max].
func AdjustByStep(current, deltaSteps, min, max int) int {
	return clamp(current+deltaSteps, min, max)
}

// AdjustPomodoroMinutes moves current by deltaSteps*stepMinutes and clamps into [min, max].
func AdjustPomodoroMinutes(current, deltaSteps, stepMinutes, min, max int) int {
	if stepMinutes <= 0 {
		stepMinutes = 1
	}
	return clamp(current+deltaSteps*stepMinutes, min, max)
}

// FormatHours renders fractional hours as "1h 25m", "45m" or "2h".
func FormatHours(hours float64) string {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		hours = 0
	}
	hours = min(hours, maxClockSeconds/3600)

	minutes := int64(math.Round(hours * 60))
	h, m := minutes/60, minutes%60

	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

func clamp(v, min, max int) int {
	if max < min {
		min, max = max, min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
