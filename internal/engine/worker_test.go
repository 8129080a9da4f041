package engine

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestStaleWorkerExitsWithoutMutation(t *testing.T) {
	ctl := NewControl()
	ctl.BumpGeneration()
	queue := newChunkQueue()
	queue.Seed([]int64{0, 1})

	// Spawned under generation 0, invalidated by the bump above.
	w := &worker{
		chunking:   Partition(512 * 1024 * 2),
		queue:      queue,
		retries:    newRetryTracker(),
		control:    ctl,
		generation: 0,
		log:        zerolog.Nop(),
	}
	w.run()

	if queue.Len() != 2 {
		t.Errorf("stale worker consumed from the queue: len = %d", queue.Len())
	}
	if ctl.CompletedCount() != 0 || ctl.DownloadedBytes() != 0 {
		t.Error("stale worker mutated shared counters")
	}
}

func TestWorkerExitsOnSignal(t *testing.T) {
	for _, sig := range []Signal{SignalPause, SignalStop, SignalCancel} {
		ctl := NewControl()
		ctl.SetSignal(sig)
		queue := newChunkQueue()
		queue.Seed([]int64{0})

		w := &worker{
			chunking:   Partition(512 * 1024),
			queue:      queue,
			retries:    newRetryTracker(),
			control:    ctl,
			generation: 0,
			log:        zerolog.Nop(),
		}
		w.run()

		if queue.Len() != 1 {
			t.Errorf("worker under %s signal consumed from the queue", sig)
		}
	}
}
