// internal/sink/list.go
package sink

import (
	"sync"

	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/status"
)

// List keeps every sample in memory.
type List struct {
	mu     sync.Mutex
	opened bool
	closed bool
	data   []frame.Sample
	last   *status.Snapshot
}

func NewList() *List { return &List{} }

func (l *List) Name() string { return "list" }

func (l *List) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = true
	return nil
}

func (l *List) Write(s frame.Sample) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.closed:
		return ErrClosed
	case !l.opened:
		return ErrNotOpen
	}
	l.data = append(l.data, s)
	return nil
}

func (l *List) WriteStatus(s status.Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = &s
	return nil
}

func (l *List) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Samples returns a copy of everything written so far.
func (l *List) Samples() []frame.Sample {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]frame.Sample(nil), l.data...)
}

// Status returns the last delivered status snapshot.
func (l *List) Status() (status.Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return status.Snapshot{}, false
	}
	return *l.last, true
}

func (l *List) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
