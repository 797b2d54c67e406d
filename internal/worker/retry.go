package worker

import "time"

// RetryPolicy controls re-attempts of failed schedule sync tasks: the
// wait grows by BackoffFactor per attempt up to MaxDelay, and a task
// that fails MaxRetries times goes to the dead-letter list.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay computes the wait before the given attempt (1-based).
// Unset policy fields fall back to a one-second base doubling per
// attempt; out-of-range attempts get the base delay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	delay := float64(base)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if r.MaxDelay > 0 && delay >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}

	d := time.Duration(delay)
	if d <= 0 {
		d = time.Second
	}
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}
