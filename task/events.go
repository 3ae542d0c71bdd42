package task

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/javajack/xlmap"
)

// ErrClosed is returned by Report after Close.
var ErrClosed = errors.New("event stream closed")

// Events is a bounded event stream implementing xlmap.Reporter. Report never
// blocks: when the buffer is full the oldest event is dropped.
type Events struct {
	mu      sync.Mutex
	ch      chan xlmap.Event
	closed  bool
	dropped atomic.Int64
}

var _ xlmap.Reporter = (*Events)(nil)

// NewEvents creates a stream buffering up to size events (at least 1).
func NewEvents(size int) *Events {
	if size < 1 {
		size = 1
	}
	return &Events{ch: make(chan xlmap.Event, size)}
}

// Report queues an event.
func (e *Events) Report(ev xlmap.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	for {
		select {
		case e.ch <- ev:
			return nil
		default:
		}
		select {
		case <-e.ch:
			e.dropped.Add(1)
		default:
		}
	}
}

// C returns the channel events are delivered on. It is closed by Close.
func (e *Events) C() <-chan xlmap.Event {
	return e.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (e *Events) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops the stream. Buffered events can still be received.
func (e *Events) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
