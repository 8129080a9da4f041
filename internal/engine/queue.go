package engine

import "sync"

// chunkQueue is the shared queue of pending chunk indices. An empty queue is
// a transient condition while other workers hold chunks mid-attempt; it never
// signals completion.
type chunkQueue struct {
	mu    sync.Mutex
	items []int64
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{}
}

func (q *chunkQueue) Seed(indices []int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items[:0], indices...)
}

func (q *chunkQueue) Pop() (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return 0, false
	}
	idx := q.items[0]
	q.items = q.items[1:]
	return idx, true
}

func (q *chunkQueue) Requeue(idx int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, idx)
}

func (q *chunkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// retryTracker counts attempts per chunk. There is no retry ceiling; a chunk
// retries until it succeeds or the download is signalled away from Run.
type retryTracker struct {
	mu     sync.Mutex
	counts map[int64]int
}

func newRetryTracker() *retryTracker {
	return &retryTracker{counts: make(map[int64]int)}
}

func (t *retryTracker) IncrementAndGet(idx int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[idx]++
	return t.counts[idx]
}

func (t *retryTracker) Attempts(idx int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[idx]
}
