package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus defines the possible states of a task.
type TaskStatus string

const (
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// finishedTaskTTL is how long completed or failed tasks stay queryable.
const finishedTaskTTL = time.Hour

// Task represents a long-running operation.
type Task struct {
	mu              sync.RWMutex
	id              string
	status          TaskStatus
	progressMessage string
	err             string
	result          any
	finishedAt      time.Time
}

// TaskInfo is the JSON view of a task.
type TaskInfo struct {
	ID              string     `json:"id"`
	Status          TaskStatus `json:"status"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	Error           string     `json:"error,omitempty"`
	Result          any        `json:"result,omitempty"`
}

// TaskManager tracks asynchronous tasks.
type TaskManager struct {
	tasks map[string]*Task
	mu    sync.RWMutex
}

// NewTaskManager creates a new task manager.
func NewTaskManager() *TaskManager {
	return &TaskManager{
		tasks: make(map[string]*Task),
	}
}

// NewTask creates a new task, registers it, and returns it. Tasks finished
// more than an hour ago are forgotten.
func (tm *TaskManager) NewTask() *Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	for id, t := range tm.tasks {
		if done := t.finished(); !done.IsZero() && now.Sub(done) > finishedTaskTTL {
			delete(tm.tasks, id)
		}
	}

	task := &Task{
		id:     uuid.New().String(),
		status: TaskStatusStarted,
	}
	tm.tasks[task.id] = task
	return task
}

// GetTask safely retrieves a task by its ID.
func (tm *TaskManager) GetTask(id string) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	task, found := tm.tasks[id]
	return task, found
}

// ID returns the task ID.
func (t *Task) ID() string { return t.id }

// Info returns a consistent copy of the task state.
func (t *Task) Info() TaskInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TaskInfo{
		ID:              t.id,
		Status:          t.status,
		ProgressMessage: t.progressMessage,
		Error:           t.err,
		Result:          t.result,
	}
}

func (t *Task) finished() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.finishedAt
}

// SetStatus updates the status of the task.
func (t *Task) SetStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

// SetError marks the task as failed and records the error message.
func (t *Task) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusFailed
	t.err = err.Error()
	t.finishedAt = time.Now()
}

// SetResult marks the task as completed with result.
func (t *Task) SetResult(result any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusCompleted
	t.result = result
	t.finishedAt = time.Now()
}

// SetProgress updates the progress message for the task.
func (t *Task) SetProgress(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progressMessage = message
}
