package engine

import "testing"

func TestCanResume(t *testing.T) {
	resumable := []State{StatePaused, StateStopped, StateFailed}
	for _, s := range resumable {
		if !s.CanResume() {
			t.Errorf("%s.CanResume() = false, want true", s)
		}
	}
	notResumable := []State{StatePending, StateActive, StateCompleted, StateCancelled}
	for _, s := range notResumable {
		if s.CanResume() {
			t.Errorf("%s.CanResume() = true, want false", s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !StateCompleted.IsTerminal() || !StateCancelled.IsTerminal() {
		t.Error("completed and cancelled are terminal")
	}
	if StateFailed.IsTerminal() {
		t.Error("failed must not be terminal, it is resumable")
	}
	if StatePaused.IsTerminal() || StateStopped.IsTerminal() {
		t.Error("paused and stopped must not be terminal")
	}
}

func TestNewMetadataSeedsAllChunksIncomplete(t *testing.T) {
	size := int64(512*1024*4 + 10)
	m := NewMetadata("id-1", "http://example.com/f", "f.part", size, 4)
	if m.State != StatePending {
		t.Fatalf("state = %s, want pending", m.State)
	}
	if len(m.CompletedChunks) != 0 {
		t.Fatalf("completed chunks = %d, want 0", len(m.CompletedChunks))
	}
	p := Partition(size)
	if int64(len(m.IncompleteChunks)) != p.TotalChunks {
		t.Fatalf("incomplete chunks = %d, want %d", len(m.IncompleteChunks), p.TotalChunks)
	}
}

func TestMarkTransitions(t *testing.T) {
	m := NewMetadata("id-1", "http://example.com/f", "f.part", 1024, 2)

	m.MarkActive()
	if m.State != StateActive {
		t.Fatalf("state = %s, want active", m.State)
	}
	m.MarkPaused()
	if m.State != StatePaused || m.PausedAt == nil {
		t.Fatalf("paused transition did not record state and timestamp")
	}
	m.MarkResumed()
	if m.State != StateActive || m.ResumedAt == nil {
		t.Fatalf("resumed transition did not record state and timestamp")
	}
	m.MarkStopped()
	if m.State != StateStopped || m.StoppedAt == nil {
		t.Fatalf("stopped transition did not record state and timestamp")
	}
	m.MarkFailed("boom")
	if m.State != StateFailed || m.ErrorMessage != "boom" {
		t.Fatalf("failed transition did not record reason")
	}
	m.MarkCompleted()
	if m.State != StateCompleted || m.CompletedAt == nil {
		t.Fatalf("completed transition did not record state and timestamp")
	}
}

func TestSyncChunksDisjointCover(t *testing.T) {
	size := int64(512 * 1024 * 10)
	m := NewMetadata("id-1", "http://example.com/f", "f.part", size, 4)

	m.SyncChunks([]int64{0, 3, 7}, 3*512*1024)
	if len(m.CompletedChunks) != 3 {
		t.Fatalf("completed = %d, want 3", len(m.CompletedChunks))
	}
	if len(m.IncompleteChunks) != 7 {
		t.Fatalf("incomplete = %d, want 7", len(m.IncompleteChunks))
	}
	seen := make(map[int64]bool)
	for _, idx := range m.CompletedChunks {
		seen[idx] = true
	}
	for _, idx := range m.IncompleteChunks {
		if seen[idx] {
			t.Fatalf("chunk %d appears in both sets", idx)
		}
		seen[idx] = true
	}
	if len(seen) != 10 {
		t.Fatalf("sets cover %d chunks, want 10", len(seen))
	}
	if m.DownloadedBytes != 3*512*1024 {
		t.Fatalf("downloaded bytes = %d, want %d", m.DownloadedBytes, 3*512*1024)
	}
}

func TestProgress(t *testing.T) {
	m := NewMetadata("id-1", "http://example.com/f", "f.part", 1000, 1)
	m.DownloadedBytes = 250
	if got := m.Progress(); got != 25.0 {
		t.Fatalf("Progress() = %f, want 25.0", got)
	}
}
