package monitor

import "time"

// DefaultFrameRate is the number of frames per second a TickerClock
// delivers when no rate is given.
const DefaultFrameRate = 60

// A FrameClock paces the monitor. Each value received from Frames is one
// frame, stamped with the frame time.
type FrameClock interface {
	Frames() <-chan time.Time
	Stop()
}

// TickerClock is a FrameClock backed by a time.Ticker.
type TickerClock struct {
	ticker *time.Ticker
}

// NewTickerClock creates a clock that delivers fps frames per second. A
// non-positive fps selects DefaultFrameRate.
func NewTickerClock(fps int) *TickerClock {
	if fps <= 0 {
		fps = DefaultFrameRate
	}

	return &TickerClock{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

// Frames returns the frame channel.
func (c *TickerClock) Frames() <-chan time.Time {
	return c.ticker.C
}

// Stop stops delivering frames.
func (c *TickerClock) Stop() {
	c.ticker.Stop()
}
