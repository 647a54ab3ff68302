package relay

import "time"

// MovedRecently reports whether instant lies in the closed window
// [now−window, now]. Future-dated instants fail regardless of how close
// they are.
func MovedRecently(instant, now time.Time, window time.Duration) bool {
	if instant.IsZero() {
		return false
	}
	diff := now.Sub(instant)
	return diff >= 0 && diff <= window
}
