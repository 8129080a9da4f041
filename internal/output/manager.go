package output

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Task is one tracked download in the live display.
type Task struct {
	ID          int
	Label       string
	Status      string
	Message     string
	Progress    string
	Done        bool
	StartTime   time.Time
	LastUpdated time.Time
	Err         error
}

// Manager renders a periodically redrawn status block for concurrent
// downloads, one line per task plus an optional progress line.
type Manager struct {
	mutex     sync.RWMutex
	tasks     map[int]*Task
	nextID    int
	numLines  int
	doneCh    chan struct{}
	displayWg sync.WaitGroup
	tick      time.Duration
}

func NewManager() *Manager {
	return &Manager{
		tasks:  make(map[int]*Task),
		doneCh: make(chan struct{}),
		tick:   300 * time.Millisecond,
	}
}

func (m *Manager) Register(label string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.nextID++
	m.tasks[m.nextID] = &Task{
		ID:          m.nextID,
		Label:       label,
		Status:      "pending",
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
	}
	return m.nextID
}

func (m *Manager) SetMessage(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if t, ok := m.tasks[id]; ok {
		t.Message = message
		t.LastUpdated = time.Now()
	}
}

func (m *Manager) SetStatus(id int, status string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if t, ok := m.tasks[id]; ok {
		t.Status = status
		t.LastUpdated = time.Now()
	}
}

// SetProgress replaces the task's progress line with a bar, byte counts,
// and the speed since the task started.
func (m *Manager) SetProgress(id int, downloaded, total int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if t, ok := m.tasks[id]; ok {
		elapsed := time.Since(t.StartTime).Seconds()
		counts := fmt.Sprintf("%s / %s", FormatBytes(uint64(max(downloaded, 0))), FormatBytes(uint64(max(total, 0))))
		t.Progress = fmt.Sprintf("%s %s %s %s", RenderProgressBar(downloaded, total, 30), dimStyle.Render(counts), Symbols["bullet"], dimStyle.Render(FormatSpeed(downloaded, elapsed)))
		t.LastUpdated = time.Now()
	}
}

func (m *Manager) Complete(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if t, ok := m.tasks[id]; ok {
		if message == "" {
			message = fmt.Sprintf("Completed %s", t.Label)
		}
		t.Message = message
		t.Progress = ""
		t.Done = true
		t.Status = "success"
		t.LastUpdated = time.Now()
	}
}

func (m *Manager) ReportError(id int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if t, ok := m.tasks[id]; ok {
		t.Done = true
		t.Status = "error"
		t.Err = err
		t.Progress = ""
		t.Message = fmt.Sprintf("Failed %s", t.Label)
		t.LastUpdated = time.Now()
	}
}

func statusIndicator(status string) string {
	switch status {
	case "success":
		return successStyle.Render(Symbols["pass"])
	case "error":
		return errorStyle.Render(Symbols["fail"])
	case "warning", "paused", "stopped":
		return warningStyle.Render(Symbols["paused"])
	case "pending":
		return pendingStyle.Render(Symbols["pending"])
	default:
		return infoStyle.Render(Symbols["bullet"])
	}
}

func styleForStatus(status string) func(string) string {
	switch status {
	case "success":
		return FSuccess
	case "error":
		return FError
	case "warning", "paused", "stopped":
		return FWarning
	default:
		return FInfo
	}
}

func (m *Manager) sortedTasks() []*Task {
	tasks := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

func (m *Manager) redraw() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	availableLines := terminalHeight() - 3
	if m.numLines > 0 {
		fmt.Printf("\033[%dA\033[J", m.numLines)
	}

	lineCount := 0
	for _, t := range m.sortedTasks() {
		if lineCount >= availableLines {
			break
		}
		elapsed := time.Since(t.StartTime).Round(time.Second)
		if t.Done {
			elapsed = t.LastUpdated.Sub(t.StartTime).Round(time.Second)
		}
		message := t.Message
		if message == "" {
			message = t.Label
		}
		fmt.Printf("  %s %s %s\n", statusIndicator(t.Status), dimStyle.Render(elapsed.String()), styleForStatus(t.Status)(message))
		lineCount++
		if t.Progress != "" && lineCount < availableLines {
			fmt.Printf("      %s\n", t.Progress)
			lineCount++
		}
	}
	m.numLines = lineCount
}

func (m *Manager) StartDisplay() {
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.redraw()
			case <-m.doneCh:
				m.redraw()
				m.ShowSummary()
				return
			}
		}
	}()
}

func (m *Manager) StopDisplay() {
	close(m.doneCh)
	m.displayWg.Wait()
}

func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	fmt.Println()
	var success, failures int
	for _, t := range m.tasks {
		switch t.Status {
		case "success":
			success++
		case "error":
			failures++
		}
	}
	fmt.Println("  " + successStyle.Render(fmt.Sprintf("Completed %d of %d", success, len(m.tasks))))
	if failures > 0 {
		fmt.Println("  " + errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, len(m.tasks))))
		fmt.Println()
		fmt.Println("  " + errorStyle.Bold(true).Render("Errors:"))
		for _, t := range m.sortedTasks() {
			if t.Err == nil {
				continue
			}
			fmt.Printf("    %s %s\n", errorStyle.Render(t.Label+":"), errorStyle.Render(t.Err.Error()))
		}
	}
	fmt.Println()
}
