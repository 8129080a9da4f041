package engine

import (
	"sync"
	"sync/atomic"
)

// Signal is the cooperative control signal polled by workers.
type Signal uint32

const (
	SignalRun Signal = iota
	SignalPause
	SignalStop
	SignalCancel
)

func (s Signal) String() string {
	switch s {
	case SignalRun:
		return "run"
	case SignalPause:
		return "pause"
	case SignalStop:
		return "stop"
	case SignalCancel:
		return "cancel"
	}
	return "unknown"
}

// Control carries the shared mutable state of one running download: the
// atomic signal and generation, the progress counters, and the completed
// chunk set. Workers receive it at spawn time; nothing here is global.
type Control struct {
	signal     atomic.Uint32
	generation atomic.Uint64

	downloadedBytes atomic.Int64
	completedCount  atomic.Int64

	mu        sync.Mutex
	completed map[int64]struct{}
}

func NewControl() *Control {
	return &Control{completed: make(map[int64]struct{})}
}

func (c *Control) Signal() Signal {
	return Signal(c.signal.Load())
}

func (c *Control) SetSignal(s Signal) {
	c.signal.Store(uint32(s))
}

func (c *Control) Generation() uint64 {
	return c.generation.Load()
}

// BumpGeneration invalidates all workers spawned under earlier generations
// and returns the new generation.
func (c *Control) BumpGeneration() uint64 {
	return c.generation.Add(1)
}

func (c *Control) DownloadedBytes() int64 {
	return c.downloadedBytes.Load()
}

func (c *Control) CompletedCount() int64 {
	return c.completedCount.Load()
}

// MarkCompleted records chunk idx as verified complete, crediting its bytes
// exactly once. Returns the new completed count and whether the chunk was
// newly recorded.
func (c *Control) MarkCompleted(idx, expectedSize int64) (int64, bool) {
	c.mu.Lock()
	if _, dup := c.completed[idx]; dup {
		c.mu.Unlock()
		return c.completedCount.Load(), false
	}
	c.completed[idx] = struct{}{}
	c.mu.Unlock()
	c.downloadedBytes.Add(expectedSize)
	return c.completedCount.Add(1), true
}

// SnapshotCompleted returns a copy of the completed chunk set, sorted order
// not guaranteed.
func (c *Control) SnapshotCompleted() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, 0, len(c.completed))
	for idx := range c.completed {
		out = append(out, idx)
	}
	return out
}

// SeedFrom initializes the counters and completed set from persisted
// metadata before a resume spawns a fresh worker batch.
func (c *Control) SeedFrom(m *Metadata) {
	c.mu.Lock()
	c.completed = make(map[int64]struct{}, len(m.CompletedChunks))
	for _, idx := range m.CompletedChunks {
		c.completed[idx] = struct{}{}
	}
	c.mu.Unlock()
	c.downloadedBytes.Store(m.DownloadedBytes)
	c.completedCount.Store(int64(len(m.CompletedChunks)))
	c.signal.Store(uint32(SignalRun))
}
