package engine

import (
	"fmt"
	"os"
	"sync"

	"github.com/ostanik/parget/internal/utils"
)

// Registry tracks active downloads and their control handles. External
// callers (CLI, scheduler, IPC layers) drive pause/resume/stop/cancel
// through it.
type Registry struct {
	mu        sync.RWMutex
	downloads map[string]*Metadata
	controls  map[string]*Control
}

func NewRegistry() *Registry {
	return &Registry{
		downloads: make(map[string]*Metadata),
		controls:  make(map[string]*Control),
	}
}

func (r *Registry) Register(id string, m *Metadata, ctl *Control) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads[id] = m.clone()
	r.controls[id] = ctl
}

// Get returns a copy of the metadata; callers mutate their copy and write it
// back with Update.
func (r *Registry) Get(id string) (*Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.downloads[id]
	if !ok {
		return nil, false
	}
	return m.clone(), true
}

func (r *Registry) GetControl(id string) (*Control, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctl, ok := r.controls[id]
	return ctl, ok
}

func (r *Registry) Update(id string, m *Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.downloads[id]; ok {
		r.downloads[id] = m.clone()
	}
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.downloads, id)
	delete(r.controls, id)
}

func (r *Registry) List() []*Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Metadata, 0, len(r.downloads))
	for _, m := range r.downloads {
		out = append(out, m.clone())
	}
	return out
}

// Pause signals an active download to pause and persists its state. The
// partial file and sidecar are retained for resume.
func (r *Registry) Pause(id string) error {
	log := utils.GetLogger("control")
	meta, ok := r.Get(id)
	if !ok {
		return &ConfigError{Reason: fmt.Sprintf("download %s not found", id)}
	}
	if !meta.State.IsActive() {
		return &ConfigError{Reason: fmt.Sprintf("cannot pause download in state %s", meta.State)}
	}
	meta.MarkPaused()
	if ctl, ok := r.GetControl(id); ok {
		meta.SyncChunks(ctl.SnapshotCompleted(), ctl.DownloadedBytes())
		ctl.SetSignal(SignalPause)
	}
	if err := SaveState(meta); err != nil {
		return err
	}
	r.Update(id, meta)
	log.Info().Str("downloadId", id).Int64("downloadedBytes", meta.DownloadedBytes).
		Str("progress", fmt.Sprintf("%.2f%%", meta.Progress())).Msg("Download paused")
	return nil
}

// Stop signals a graceful stop: same filesystem effects as pause, but the
// recorded intent is "not currently wanted" rather than "interrupted".
func (r *Registry) Stop(id string) error {
	log := utils.GetLogger("control")
	meta, ok := r.Get(id)
	if !ok {
		return &ConfigError{Reason: fmt.Sprintf("download %s not found", id)}
	}
	if !meta.State.IsActive() {
		return &ConfigError{Reason: fmt.Sprintf("cannot stop download in state %s", meta.State)}
	}
	meta.MarkStopped()
	if ctl, ok := r.GetControl(id); ok {
		meta.SyncChunks(ctl.SnapshotCompleted(), ctl.DownloadedBytes())
		ctl.SetSignal(SignalStop)
	}
	if err := SaveState(meta); err != nil {
		return err
	}
	r.Update(id, meta)
	log.Info().Str("downloadId", id).Int64("downloadedBytes", meta.DownloadedBytes).Msg("Download stopped")
	return nil
}

// Resume transitions a paused, stopped, or failed download back to active:
// it reseeds the control counters from persisted chunk state and bumps the
// generation so any straggling workers from the previous batch are
// invalidated before the new batch spawns. Returns the new generation to
// tag the fresh worker batch with.
func (r *Registry) Resume(id string) (uint64, error) {
	log := utils.GetLogger("control")
	meta, ok := r.Get(id)
	if !ok {
		return 0, &ConfigError{Reason: fmt.Sprintf("download %s not found", id)}
	}
	if !meta.State.CanResume() {
		return 0, &ConfigError{Reason: fmt.Sprintf("cannot resume download in state %s", meta.State)}
	}
	ctl, ok := r.GetControl(id)
	if !ok {
		return 0, &ConfigError{Reason: fmt.Sprintf("no control handle for download %s", id)}
	}
	meta.MarkResumed()
	meta.ErrorMessage = ""
	ctl.SeedFrom(meta)
	generation := ctl.BumpGeneration()
	if err := SaveState(meta); err != nil {
		return 0, err
	}
	r.Update(id, meta)
	log.Info().Str("downloadId", id).Uint64("generation", generation).
		Int("remainingChunks", len(meta.IncompleteChunks)).Msg("Download resumed")
	return generation, nil
}

// Cancel tears a download down from any non-terminal state: signals workers,
// deletes the partial file and the sidecar, and drops the download from the
// registry.
func (r *Registry) Cancel(id string) error {
	log := utils.GetLogger("control")
	meta, ok := r.Get(id)
	if !ok {
		return &ConfigError{Reason: fmt.Sprintf("download %s not found", id)}
	}
	if meta.State.IsTerminal() {
		return &ConfigError{Reason: fmt.Sprintf("cannot cancel download in state %s", meta.State)}
	}
	meta.MarkCancelled()
	if ctl, ok := r.GetControl(id); ok {
		ctl.SetSignal(SignalCancel)
	}
	if err := DeleteState(meta.Filepath); err != nil {
		return err
	}
	if err := os.Remove(meta.Filepath); err != nil && !os.IsNotExist(err) {
		return &FileSystemError{Path: meta.Filepath, Err: err}
	}
	r.Remove(id)
	log.Info().Str("downloadId", id).Msg("Download cancelled and cleaned up")
	return nil
}

func (m *Metadata) clone() *Metadata {
	c := *m
	c.CompletedChunks = append([]int64(nil), m.CompletedChunks...)
	c.IncompleteChunks = append([]int64(nil), m.IncompleteChunks...)
	return &c
}
