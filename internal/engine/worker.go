package engine

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ostanik/parget/internal/utils"
)

const (
	// Attempts below this count abort when throughput stays under the floor
	// after the warm-up window; from the third attempt on the floor is
	// dropped and the chunk is allowed to crawl to completion.
	speedRelaxAttempts = 3
	speedFloorKBps     = 300.0
	speedWarmup        = 3 * time.Second

	idleSleep        = 100 * time.Millisecond
	retryBackoffStep = 200 * time.Millisecond
	maxBackoffSteps  = 5
)

type worker struct {
	id         int
	url        string
	file       *os.File
	chunking   Chunking
	queue      *chunkQueue
	retries    *retryTracker
	control    *Control
	generation uint64
	client     utils.HTTPDoer
	log        zerolog.Logger
}

// live reports whether this worker batch is still the one in charge: the
// signal is Run and the control generation matches the generation the batch
// was spawned under. A stale worker must never touch the counters.
func (w *worker) live() bool {
	return w.control.Signal() == SignalRun && w.control.Generation() == w.generation
}

func (w *worker) run() {
	for {
		if !w.live() {
			w.log.Debug().Str("signal", w.control.Signal().String()).Msg("Worker exiting on signal")
			return
		}
		// Completion is decided by the completed count, not queue emptiness:
		// the queue is transiently empty whenever peers hold chunks mid-retry.
		if w.control.CompletedCount() >= w.chunking.TotalChunks {
			return
		}
		idx, ok := w.queue.Pop()
		if !ok {
			time.Sleep(idleSleep)
			continue
		}

		attempts := w.retries.IncrementAndGet(idx)
		enforceSpeed := attempts < speedRelaxAttempts
		if attempts > 1 {
			w.log.Debug().Int64("chunkId", idx).Int("attempt", attempts).Msg("Retrying chunk")
		}

		err := w.fetchChunk(idx, enforceSpeed)
		if err == nil {
			continue
		}
		if !w.live() {
			return
		}
		w.log.Debug().Err(err).Int64("chunkId", idx).Int("attempt", attempts).Msg("Chunk attempt failed, requeueing")
		time.Sleep(retryBackoffStep * time.Duration(min(attempts, maxBackoffSteps)))
		w.queue.Requeue(idx)
	}
}

// fetchChunk performs one ranged GET attempt for chunk idx and, on an
// exact-size result, commits it: bytes written at the chunk's own offset,
// counters credited exactly once.
func (w *worker) fetchChunk(idx int64, enforceSpeed bool) error {
	start, end, expected := w.chunking.Range(idx)
	req, err := http.NewRequest("GET", w.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	req.Header.Set("Connection", "keep-alive")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	buffer := make([]byte, utils.DefaultBufferSize)
	received := int64(0)
	attemptStart := time.Now()
	for {
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			// Signal and generation are re-checked per read so that
			// pause/stop/cancel latency is bounded by the buffer size, not
			// by a full chunk transfer.
			if !w.live() {
				return fmt.Errorf("transfer aborted by signal")
			}
			if enforceSpeed {
				elapsed := time.Since(attemptStart)
				if elapsed > speedWarmup {
					kbps := float64(received) / 1024.0 / elapsed.Seconds()
					if kbps < speedFloorKBps {
						return fmt.Errorf("throughput %.1f KB/s below %.0f KB/s floor", kbps, speedFloorKBps)
					}
				}
			}
			if _, werr := w.file.WriteAt(buffer[:n], start+received); werr != nil {
				return &FileSystemError{Path: w.file.Name(), Err: werr}
			}
			received += int64(n)
			if received > expected {
				return fmt.Errorf("server sent %d bytes, expected %d", received, expected)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return readErr
		}
	}
	if received != expected {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expected, received)
	}

	// Final gate before mutating shared counters.
	if !w.live() {
		return fmt.Errorf("transfer aborted by signal")
	}
	count, fresh := w.control.MarkCompleted(idx, expected)
	if fresh {
		w.log.Debug().Int64("chunkId", idx).Int64("completed", count).
			Int64("total", w.chunking.TotalChunks).Msg("Chunk complete")
	}
	return nil
}
