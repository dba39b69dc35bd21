package dispatch

import "time"

// Backoff is the retry delay ladder: index 0 applies after the first failed
// attempt, and attempts beyond the ladder clamp to the last entry.
type Backoff []time.Duration

// Delay returns the retry delay for a task that has made the given number
// of attempts (attempts is already incremented by the claim, so the first
// failure arrives here with attempts == 1).
func (b Backoff) Delay(attempts int) time.Duration {
	if len(b) == 0 {
		return time.Minute
	}
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(b) {
		idx = len(b) - 1
	}
	return b[idx]
}
