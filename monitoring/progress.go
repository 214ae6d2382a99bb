package monitoring

import (
	"sync"
	"time"

	"github.com/rs/xid"
)

// A ProgressBar tracks a bounded piece of work, such as the verification
// checks of a handshake or the seconds of a timed run.
type ProgressBar struct {
	lock      sync.Mutex
	id        string
	name      string
	startTime time.Time
	total     uint64
	finished  uint64
}

func newProgressBar(name string, total uint64) *ProgressBar {
	return &ProgressBar{
		id:        xid.New().String(),
		name:      name,
		startTime: time.Now(),
		total:     total,
	}
}

// ID returns the xid of the bar.
func (b *ProgressBar) ID() string {
	return b.id
}

// IncrementFinished adds amount to the finished work, up to the total.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.finished = min(b.finished+amount, b.total)
}

// SetFinished sets the finished work, clamped to the total.
func (b *ProgressBar) SetFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.finished = min(amount, b.total)
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Elapsed   float64   `json:"elapsed_seconds"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (b *ProgressBar) snapshot() progressRsp {
	b.lock.Lock()
	defer b.lock.Unlock()

	return progressRsp{
		ID:        b.id,
		Name:      b.name,
		StartTime: b.startTime,
		Elapsed:   time.Since(b.startTime).Seconds(),
		Total:     b.total,
		Finished:  b.finished,
	}
}
