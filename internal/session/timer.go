package session

import (
	"sync"
	"time"
)

// Timer drives mode clocks. Every Restart starts a new generation and
// cancels the previous ticker first, so at most one ticker is alive.
type Timer struct {
	interval time.Duration

	mu   sync.Mutex
	gen  uint64
	stop chan struct{}
}

// NewTimer returns a timer ticking every interval. A zero interval never
// ticks on its own; ticks are then delivered by calling Session.Tick.
func NewTimer(interval time.Duration) *Timer {
	return &Timer{interval: interval}
}

// Restart cancels the running ticker and starts a new one calling fn with
// the new generation and the elapsed time of each tick.
func (t *Timer) Restart(fn func(gen uint64, d time.Duration)) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.gen++
	gen := t.gen
	if t.interval <= 0 || fn == nil {
		return gen
	}
	stop := make(chan struct{})
	t.stop = stop
	go func() {
		tk := time.NewTicker(t.interval)
		defer tk.Stop()
		last := time.Now()
		for {
			select {
			case <-stop:
				return
			case now := <-tk.C:
				fn(gen, now.Sub(last))
				last = now
			}
		}
	}()
	return gen
}

// Stop cancels the ticker. Ticks already in flight carry a stale generation.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.cancelLocked()
	t.gen++
	t.mu.Unlock()
}

// Generation returns the current generation.
func (t *Timer) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

func (t *Timer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}
