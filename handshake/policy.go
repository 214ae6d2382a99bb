package handshake

import "time"

// VerifyPolicy controls how long the controller waits, after the worker
// reports ready, for the first write to become visible.
//
// The first check happens after Delay. While the head still reads zero the
// controller checks again, up to Attempts checks in total, multiplying the wait
// by Backoff each time and capping it at MaxDelay. Attempts of 1 gives a
// single check after Delay.
type VerifyPolicy struct {
	Delay    time.Duration
	Attempts int
	Backoff  float64
	MaxDelay time.Duration
}

// DefaultVerifyPolicy checks at 100ms, then 200ms, 400ms and 800ms later.
func DefaultVerifyPolicy() VerifyPolicy {
	return VerifyPolicy{
		Delay:    100 * time.Millisecond,
		Attempts: 4,
		Backoff:  2,
		MaxDelay: time.Second,
	}
}

// Delays lists the wait before each check.
func (p VerifyPolicy) Delays() []time.Duration {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := p.Backoff
	if backoff < 1 {
		backoff = 1
	}

	delays := make([]time.Duration, attempts)
	d := p.Delay

	for i := range delays {
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
		}

		delays[i] = d
		d = time.Duration(float64(d) * backoff)
	}

	return delays
}

// Budget is the longest time verification can take.
func (p VerifyPolicy) Budget() time.Duration {
	var total time.Duration
	for _, d := range p.Delays() {
		total += d
	}

	return total
}
