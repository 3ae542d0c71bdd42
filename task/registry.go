// Package task tracks processing tasks from creation to download and runs
// them on a bounded worker pool.
package task

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajack/xlmap"
)

var (
	// ErrNotFound indicates an unknown or already consumed task.
	ErrNotFound = errors.New("task not found")

	// ErrForbidden indicates a task owned by someone else.
	ErrForbidden = errors.New("task belongs to another owner")

	// ErrNotReady indicates a task without a result yet.
	ErrNotReady = errors.New("task result not ready")
)

// Task is a snapshot of one task record.
type Task struct {
	ID       string
	Owner    string
	Status   string
	Progress int
	Done     bool
	Result   []byte
	Filename string
	Warnings []string
	Created  time.Time
}

// Registry holds task records in memory. It implements xlmap.TaskStore.
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	now   func() time.Time
}

var _ xlmap.TaskStore = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task), now: time.Now}
}

// Create registers a new task for owner and returns its id.
func (r *Registry) Create(owner string) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.tasks[id] = &Task{ID: id, Owner: owner, Status: "В очереди...", Created: r.now()}
	r.mu.Unlock()
	return id
}

// Get returns a copy of the task record.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Owner returns the task's owner, "" for unknown tasks.
func (r *Registry) Owner(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.tasks[id]; ok {
		return t.Owner
	}
	return ""
}

// SetStatus updates the status line of a running task.
func (r *Registry) SetStatus(id, status string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok && !t.Done {
		t.Status = status
		t.Progress = progress
	}
}

// Finish stores the terminal outcome of a task.
func (r *Registry) Finish(id string, out xlmap.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return
	}
	t.Status = out.Status
	t.Progress = 100
	t.Done = true
	t.Result = out.Result
	t.Filename = out.Filename
	t.Warnings = out.Warnings
}

// Prune reduces a finished task to what the download needs: result,
// filename, owner, warnings and the final status.
func (r *Registry) Prune(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return
	}
	r.tasks[id] = &Task{
		ID:       t.ID,
		Owner:    t.Owner,
		Status:   t.Status,
		Progress: 100,
		Done:     true,
		Result:   t.Result,
		Filename: t.Filename,
		Warnings: t.Warnings,
		Created:  t.Created,
	}
}

// Consume hands the result of a finished task to its owner and forgets the
// task.
func (r *Registry) Consume(id, owner string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	if t.Owner != owner {
		return Task{}, ErrForbidden
	}
	if !t.Done || t.Result == nil {
		return Task{}, ErrNotReady
	}
	delete(r.tasks, id)
	return *t, nil
}

// Expire forgets finished tasks created before the cutoff and returns how
// many were removed.
func (r *Registry) Expire(olderThan time.Duration) int {
	cutoff := r.now().Add(-olderThan)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, t := range r.tasks {
		if t.Done && t.Created.Before(cutoff) {
			delete(r.tasks, id)
			n++
		}
	}
	return n
}
