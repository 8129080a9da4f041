package engine

import "time"

// State is the lifecycle state of a single download.
type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// CanResume reports whether a resume command is valid from this state.
// Failed downloads are resumable: the chunk sets in the sidecar are still
// accurate, so a retry only fetches what is missing.
func (s State) CanResume() bool {
	return s == StatePaused || s == StateStopped || s == StateFailed
}

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

func (s State) IsActive() bool {
	return s == StateActive
}

// Metadata is everything needed to resume a download, persisted as the
// sidecar state file next to the partial download.
type Metadata struct {
	ID              string  `json:"id"`
	URL             string  `json:"url"`
	Filepath        string  `json:"filepath"` // the .part path
	TotalSize       int64   `json:"total_size"`
	DownloadedBytes int64   `json:"downloaded_bytes"`
	State           State   `json:"state"`
	ThreadCount     int     `json:"thread_count"`
	CompletedChunks []int64 `json:"completed_chunks"`
	IncompleteChunks []int64 `json:"incomplete_chunks"`

	CreatedAt    time.Time  `json:"created_at"`
	PausedAt     *time.Time `json:"paused_at,omitempty"`
	ResumedAt    *time.Time `json:"resumed_at,omitempty"`
	StoppedAt    *time.Time `json:"stopped_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

func NewMetadata(id, url, partPath string, totalSize int64, threads int) *Metadata {
	p := Partition(totalSize)
	incomplete := make([]int64, p.TotalChunks)
	for i := range incomplete {
		incomplete[i] = int64(i)
	}
	return &Metadata{
		ID:               id,
		URL:              url,
		Filepath:         partPath,
		TotalSize:        totalSize,
		State:            StatePending,
		ThreadCount:      threads,
		CompletedChunks:  []int64{},
		IncompleteChunks: incomplete,
		CreatedAt:        time.Now().UTC(),
	}
}

func (m *Metadata) Progress() float64 {
	if m.TotalSize == 0 {
		return 0
	}
	return float64(m.DownloadedBytes) / float64(m.TotalSize) * 100
}

func (m *Metadata) MarkActive() {
	m.State = StateActive
}

func (m *Metadata) MarkPaused() {
	now := time.Now().UTC()
	m.State = StatePaused
	m.PausedAt = &now
}

func (m *Metadata) MarkResumed() {
	now := time.Now().UTC()
	m.State = StateActive
	m.ResumedAt = &now
}

func (m *Metadata) MarkStopped() {
	now := time.Now().UTC()
	m.State = StateStopped
	m.StoppedAt = &now
}

func (m *Metadata) MarkCompleted() {
	now := time.Now().UTC()
	m.State = StateCompleted
	m.CompletedAt = &now
}

func (m *Metadata) MarkFailed(reason string) {
	m.State = StateFailed
	m.ErrorMessage = reason
}

func (m *Metadata) MarkCancelled() {
	m.State = StateCancelled
}

// SyncChunks replaces the chunk bookkeeping with the given completed set,
// recomputing the incomplete set so the two stay a disjoint cover of the
// full index range.
func (m *Metadata) SyncChunks(completed []int64, downloadedBytes int64) {
	p := Partition(m.TotalSize)
	done := make(map[int64]struct{}, len(completed))
	for _, idx := range completed {
		done[idx] = struct{}{}
	}
	incomplete := make([]int64, 0, p.TotalChunks-int64(len(completed)))
	for i := int64(0); i < p.TotalChunks; i++ {
		if _, ok := done[i]; !ok {
			incomplete = append(incomplete, i)
		}
	}
	m.CompletedChunks = completed
	m.IncompleteChunks = incomplete
	m.DownloadedBytes = downloadedBytes
}
