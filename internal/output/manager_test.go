package output

import (
	"errors"
	"testing"
)

func TestManagerTaskLifecycle(t *testing.T) {
	m := NewManager()

	id1 := m.Register("file-a.bin")
	id2 := m.Register("file-b.bin")
	if id1 == id2 {
		t.Fatal("Register returned duplicate IDs")
	}

	m.SetStatus(id1, "active")
	m.SetProgress(id1, 512, 1024)
	m.Complete(id1, "")
	m.ReportError(id2, errors.New("connection refused"))

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	t1 := m.tasks[id1]
	if !t1.Done || t1.Status != "success" {
		t.Errorf("task 1 = %+v, want done success", t1)
	}
	if t1.Message != "Completed file-a.bin" {
		t.Errorf("task 1 message = %q", t1.Message)
	}
	if t1.Progress != "" {
		t.Error("completion did not clear the progress line")
	}
	t2 := m.tasks[id2]
	if !t2.Done || t2.Status != "error" || t2.Err == nil {
		t.Errorf("task 2 = %+v, want done error", t2)
	}
}

func TestManagerIgnoresUnknownIDs(t *testing.T) {
	m := NewManager()
	// None of these may panic or create phantom tasks.
	m.SetStatus(99, "active")
	m.SetMessage(99, "hello")
	m.SetProgress(99, 1, 2)
	m.Complete(99, "")
	m.ReportError(99, errors.New("x"))

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if len(m.tasks) != 0 {
		t.Fatalf("phantom tasks created: %d", len(m.tasks))
	}
}
