package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type TaskOutput struct {
	ID          int
	Name        string
	Status      string
	Message     string
	StreamLines []string
	Complete    bool
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
}

type ErrorReport struct {
	TaskName string
	Error    error
	Time     time.Time
}

// Manager keeps the status of every registered task and periodically redraws
// it. When the output is not a terminal only the final summary is printed.
type Manager struct {
	out         io.Writer
	live        bool
	tasks       map[int]*TaskOutput
	mutex       sync.RWMutex
	numLines    int
	errors      []ErrorReport
	taskCount   int
	displayTick time.Duration
	doneCh      chan struct{}
	displayWg   sync.WaitGroup
}

func NewManager() *Manager {
	m := NewManagerWithWriter(os.Stdout)
	m.live = isTerminal(os.Stdout)
	return m
}

// NewManagerWithWriter returns a manager that only writes the summary to w.
func NewManagerWithWriter(w io.Writer) *Manager {
	return &Manager{
		out:         w,
		tasks:       make(map[int]*TaskOutput),
		displayTick: 200 * time.Millisecond,
		doneCh:      make(chan struct{}),
	}
}

func (m *Manager) RegisterTask(name string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.taskCount++
	now := time.Now()
	m.tasks[m.taskCount] = &TaskOutput{
		ID:          m.taskCount,
		Name:        name,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
	}
	return m.taskCount
}

func (m *Manager) update(id int, fn func(t *TaskOutput)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if t, exists := m.tasks[id]; exists {
		fn(t)
		t.LastUpdated = time.Now()
	}
}

func (m *Manager) SetName(id int, name string) {
	m.update(id, func(t *TaskOutput) { t.Name = name })
}

func (m *Manager) SetMessage(id int, message string) {
	m.update(id, func(t *TaskOutput) { t.Message = message })
}

func (m *Manager) SetStatus(id int, status string) {
	m.update(id, func(t *TaskOutput) { t.Status = status })
}

func (m *Manager) GetStatus(id int) string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if t, exists := m.tasks[id]; exists {
		return t.Status
	}
	return "unknown"
}

// SetProgress replaces the task's stream with a progress bar.
func (m *Manager) SetProgress(id int, downloaded, total int64) {
	m.update(id, func(t *TaskOutput) {
		bar := PrintProgressBar(downloaded, total, 30)
		t.StreamLines = []string{bar + debugStyle.Render(FormatTransfer(downloaded, total, time.Since(t.StartTime)))}
	})
}

func (m *Manager) Complete(id int, message string) {
	m.update(id, func(t *TaskOutput) {
		t.StreamLines = nil
		if message == "" {
			message = fmt.Sprintf("Completed %s", t.Name)
		}
		t.Message = message
		t.Complete = true
		t.Status = StatusSuccess
	})
}

func (m *Manager) ReportError(id int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if t, exists := m.tasks[id]; exists {
		t.Complete = true
		t.Status = StatusError
		t.Error = err
		t.LastUpdated = time.Now()
		m.errors = append(m.errors, ErrorReport{TaskName: t.Name, Error: err, Time: t.LastUpdated})
	}
}

func (m *Manager) Errors() []ErrorReport {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return append([]ErrorReport(nil), m.errors...)
}

func (m *Manager) statusIndicator(status string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(StyleSymbols["pass"])
	case StatusError:
		return errorStyle.Render(StyleSymbols["fail"])
	case StatusWarning:
		return warningStyle.Render(StyleSymbols["warning"])
	case StatusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func styleMessage(status, message string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(message)
	case StatusError:
		return errorStyle.Render(message)
	case StatusWarning:
		return warningStyle.Render(message)
	default:
		return pendingStyle.Render(message)
	}
}

func (m *Manager) sortedTasks() []*TaskOutput {
	tasks := make([]*TaskOutput, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

func (m *Manager) render() []string {
	var lines []string
	for _, t := range m.sortedTasks() {
		elapsed := time.Since(t.StartTime)
		if t.Complete {
			elapsed = t.LastUpdated.Sub(t.StartTime)
		}
		message := t.Message
		if message == "" {
			message = t.Name
		}
		lines = append(lines, fmt.Sprintf("  %s %s %s", m.statusIndicator(t.Status), debugStyle.Render(elapsed.Round(time.Second).String()), styleMessage(t.Status, message)))
		for _, line := range t.StreamLines {
			lines = append(lines, "      "+streamStyle.Render(line))
		}
	}
	return lines
}

func (m *Manager) updateDisplay() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	lines := m.render()
	if available := getTerminalHeight() - 3; len(lines) > available && available > 0 {
		lines = lines[len(lines)-available:]
	}
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	for _, line := range lines {
		fmt.Fprintln(m.out, line)
	}
	m.numLines = len(lines)
}

func (m *Manager) StartDisplay() {
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if m.live {
					m.updateDisplay()
				}
			case <-m.doneCh:
				if m.live {
					m.updateDisplay()
				}
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
	if !m.live {
		for _, line := range m.render() {
			fmt.Fprintln(m.out, line)
		}
	}
	var success, failures int
	for _, t := range m.tasks {
		switch t.Status {
		case StatusSuccess:
			success++
		case StatusError:
			failures++
		}
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+summaryStyle.Render(fmt.Sprintf("Completed %d of %d", success, len(m.tasks))))
	if failures > 0 {
		fmt.Fprintln(m.out, "  "+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, len(m.tasks))))
	}
	m.displayErrors()
	fmt.Fprintln(m.out)
}

func (m *Manager) displayErrors() {
	if len(m.errors) == 0 {
		return
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+errorStyle.Bold(true).Render("Errors:"))
	for i, report := range m.errors {
		fmt.Fprintf(m.out, "    %s %s %s\n",
			errorStyle.Render(fmt.Sprintf("%d.", i+1)),
			debugStyle.Render(fmt.Sprintf("[%s]", report.Time.Format("15:04:05"))),
			errorStyle.Render(report.TaskName))
		fmt.Fprintf(m.out, "%s%s\n", strings.Repeat(" ", 6), errorStyle.Render(fmt.Sprintf("Error: %v", report.Error)))
	}
}
