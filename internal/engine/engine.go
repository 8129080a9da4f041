package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ostanik/parget/internal/utils"
)

const (
	minThreads = 1
	maxThreads = 64

	// Sidecar save cadence during active transfer: every N newly completed
	// chunks (checked at the monitor tick). A crash loses at most this much
	// progress to redundant re-download, never file integrity.
	saveChunkInterval = 16

	monitorTick = 1 * time.Second
)

// Config describes a new download.
type Config struct {
	URL          string
	TargetPath   string // final destination; the engine works on TargetPath + ".part"
	TotalSize    int64
	Threads      int
	Client       utils.HTTPDoer
	ProgressFunc func(downloaded, total int64)
}

// Result is the terminal outcome of a Run call.
type Result struct {
	ID     string
	Status State
}

// Download is one orchestrated download: it owns the queue seeding, worker
// spawning, drain wait, integrity check, and finalization for a single file.
type Download struct {
	ID         string
	registry   *Registry
	control    *Control
	client     utils.HTTPDoer
	chunking   Chunking
	partPath   string
	progressFn func(downloaded, total int64)
}

// New validates the config, pre-allocates the sparse partial file, registers
// the download, and persists the initial sidecar so that even a crash before
// the first completed chunk leaves a resumable state on disk.
func New(registry *Registry, cfg Config) (*Download, error) {
	log := utils.GetLogger("engine")
	if cfg.URL == "" {
		return nil, &ConfigError{Reason: "no URL provided"}
	}
	if cfg.Threads < minThreads || cfg.Threads > maxThreads {
		return nil, &ConfigError{Reason: fmt.Sprintf("thread count %d outside [%d, %d]", cfg.Threads, minThreads, maxThreads)}
	}
	if cfg.TotalSize < 1 {
		return nil, &ConfigError{Reason: "file has no size, server did not report a usable Content-Length"}
	}
	if dir := filepath.Dir(cfg.TargetPath); dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, &ConfigError{Reason: fmt.Sprintf("destination directory %s does not exist", dir)}
		}
	}

	partPath := PartPath(cfg.TargetPath)
	if err := AllocateSparseFile(partPath, cfg.TotalSize); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	meta := NewMetadata(id, cfg.URL, partPath, cfg.TotalSize, cfg.Threads)
	meta.MarkActive()
	ctl := NewControl()
	registry.Register(id, meta, ctl)
	if err := SaveState(meta); err != nil {
		return nil, err
	}
	log.Info().Str("downloadId", id).Str("file", partPath).
		Int64("sizeMB", cfg.TotalSize/(1024*1024)).Int("threads", cfg.Threads).
		Msg("Download registered")
	return &Download{
		ID:         id,
		registry:   registry,
		control:    ctl,
		client:     cfg.Client,
		chunking:   Partition(cfg.TotalSize),
		partPath:   partPath,
		progressFn: cfg.ProgressFunc,
	}, nil
}

// Load rebuilds a Download from its sidecar after a process restart. The
// partial file is re-allocated if it vanished; LoadState already discards
// chunk progress when the on-disk size is wrong.
func Load(registry *Registry, partPath string, client utils.HTTPDoer, progressFn func(downloaded, total int64)) (*Download, error) {
	meta, err := LoadState(partPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(partPath); err != nil {
		if err := AllocateSparseFile(partPath, meta.TotalSize); err != nil {
			return nil, err
		}
	}
	if meta.State == StateActive || meta.State == StatePending {
		// Process died mid-download, treat as stopped so Resume accepts it.
		meta.MarkStopped()
	}
	ctl := NewControl()
	ctl.SeedFrom(meta)
	registry.Register(meta.ID, meta, ctl)
	return &Download{
		ID:         meta.ID,
		registry:   registry,
		control:    ctl,
		client:     client,
		chunking:   Partition(meta.TotalSize),
		partPath:   partPath,
		progressFn: progressFn,
	}, nil
}

// Control exposes the shared control handle, mainly for callers that drive
// the registry operations directly.
func (d *Download) Control() *Control {
	return d.control
}

// Run drains the download under the given worker generation and returns the
// terminal result. It is called once per worker batch: generation 0 for a
// fresh download, then whatever Registry.Resume returns for each resume.
func (d *Download) Run(generation uint64) (Result, error) {
	log := utils.GetLogger("engine").With().Str("downloadId", d.ID).Logger()
	meta, ok := d.registry.Get(d.ID)
	if !ok {
		return Result{}, &ConfigError{Reason: fmt.Sprintf("download %s not registered", d.ID)}
	}

	queue := newChunkQueue()
	queue.Seed(meta.IncompleteChunks)
	retries := newRetryTracker()

	file, err := os.OpenFile(d.partPath, os.O_WRONLY, 0644)
	if err != nil {
		return Result{}, &FileSystemError{Path: d.partPath, Err: err}
	}

	log.Info().Int("threads", meta.ThreadCount).Uint64("generation", generation).
		Int64("chunkSizeKB", d.chunking.ChunkSize/1024).
		Int("remainingChunks", len(meta.IncompleteChunks)).Msg("Starting download workers")

	var wg sync.WaitGroup
	for i := 0; i < meta.ThreadCount; i++ {
		w := &worker{
			id:         i,
			url:        meta.URL,
			file:       file,
			chunking:   d.chunking,
			queue:      queue,
			retries:    retries,
			control:    d.control,
			generation: generation,
			client:     d.client,
			log:        log.With().Int("workerId", i).Logger(),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run()
		}()
	}

	monitorDone := make(chan struct{})
	go d.monitor(monitorDone)

	wg.Wait()
	close(monitorDone)
	file.Close()

	// A non-Run signal means pause/stop/cancel won the race: completion
	// logic must not run, the control operation already persisted or
	// cleaned up whatever the signal requires.
	if sig := d.control.Signal(); sig != SignalRun {
		log.Info().Str("signal", sig.String()).Msg("Download loop finished on signal")
		switch sig {
		case SignalPause:
			return Result{ID: d.ID, Status: StatePaused}, nil
		case SignalStop:
			return Result{ID: d.ID, Status: StateStopped}, nil
		default:
			return Result{ID: d.ID, Status: StateCancelled}, nil
		}
	}

	finalBytes := d.control.DownloadedBytes()
	finalChunks := d.control.CompletedCount()
	if err := VerifyDownload(finalBytes, d.chunking.TotalSize, finalChunks, d.chunking.TotalChunks); err != nil {
		log.Error().Err(err).Msg("Integrity check failed")
		if meta, ok := d.registry.Get(d.ID); ok {
			meta.MarkFailed(err.Error())
			meta.SyncChunks(d.control.SnapshotCompleted(), finalBytes)
			if serr := SaveState(meta); serr != nil {
				log.Error().Err(serr).Msg("Failed to save failed state")
			}
			d.registry.Update(d.ID, meta)
		}
		return Result{ID: d.ID, Status: StateFailed}, err
	}

	if d.progressFn != nil {
		d.progressFn(d.chunking.TotalSize, d.chunking.TotalSize)
	}
	if err := d.finalize(); err != nil {
		return Result{ID: d.ID, Status: StateFailed}, err
	}
	log.Info().Int64("bytes", finalBytes).Int64("chunks", finalChunks).Msg("Download completed")
	return Result{ID: d.ID, Status: StateCompleted}, nil
}

// monitor syncs worker progress into the registry metadata at a coarse
// cadence, feeds the progress callback, and saves the sidecar every
// saveChunkInterval freshly completed chunks.
func (d *Download) monitor(done <-chan struct{}) {
	log := utils.GetLogger("engine")
	ticker := time.NewTicker(monitorTick)
	defer ticker.Stop()
	var lastSavedCount int64
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if d.control.Signal() != SignalRun {
				return
			}
			bytes := d.control.DownloadedBytes()
			completed := d.control.CompletedCount()
			meta, ok := d.registry.Get(d.ID)
			if !ok {
				return
			}
			meta.DownloadedBytes = bytes
			if completed-lastSavedCount >= saveChunkInterval {
				meta.SyncChunks(d.control.SnapshotCompleted(), bytes)
				if err := SaveState(meta); err != nil {
					log.Debug().Err(err).Str("downloadId", d.ID).Msg("Periodic state save failed")
				} else {
					lastSavedCount = completed
				}
			}
			d.registry.Update(d.ID, meta)
			if d.progressFn != nil {
				d.progressFn(bytes, d.chunking.TotalSize)
			}
		}
	}
}

// finalize promotes the partial file, removes the sidecar, and retires the
// download from the active registry.
func (d *Download) finalize() error {
	if err := FinalizeFile(d.partPath); err != nil {
		return err
	}
	if err := DeleteState(d.partPath); err != nil {
		return err
	}
	if meta, ok := d.registry.Get(d.ID); ok {
		meta.MarkCompleted()
		meta.DownloadedBytes = d.chunking.TotalSize
		meta.SyncChunks(d.control.SnapshotCompleted(), d.chunking.TotalSize)
		d.registry.Update(d.ID, meta)
	}
	d.registry.Remove(d.ID)
	return nil
}
