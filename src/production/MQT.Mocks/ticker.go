package mocks

import "time"

// ManualTicker is a ticker driven by the test via Tick
type ManualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}
}

func (t *ManualTicker) C() <-chan time.Time { return t.ch }

func (t *ManualTicker) Stop() {
	select {
	case <-t.stopped:
	default:
		close(t.stopped)
	}
}

// Tick delivers one tick, blocking until the consumer receives it. It reports
// false once the ticker has been stopped.
func (t *ManualTicker) Tick() bool {
	select {
	case t.ch <- time.Now():
		return true
	case <-t.stopped:
		return false
	}
}

// Stopped is closed when Stop is called
func (t *ManualTicker) Stopped() <-chan struct{} { return t.stopped }
