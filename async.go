package slash

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TaskStatus enumerates async task states.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Finished reports whether the status is terminal.
func (s TaskStatus) Finished() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskCancelled
}

// Task is a submitted unit of work whose result is observed later.
type Task[T any] struct {
	id     string
	name   string
	cancel *CancelToken
	done   chan struct{}

	mu       sync.RWMutex
	status   TaskStatus
	result   T
	err      error
	started  time.Time
	finished time.Time
}

func newTask[T any](name string, token *CancelToken) *Task[T] {
	if token == nil {
		token = NewCancelToken()
	}
	return &Task[T]{
		id:     ulid.Make().String(),
		name:   name,
		cancel: token,
		done:   make(chan struct{}),
		status: TaskPending,
	}
}

// Ready returns a task that has already succeeded with v.
func Ready[T any](name string, v T) *Task[T] {
	t := newTask[T](name, nil)
	t.resolve(v, nil)
	return t
}

// Failed returns a task that has already finished with err.
func Failed[T any](name string, err error) *Task[T] {
	t := newTask[T](name, nil)
	var zero T
	t.resolve(zero, err)
	return t
}

// start runs fn on its own goroutine. Panics become generation failures.
func (t *Task[T]) start(fn func() (T, error)) {
	go func() {
		var (
			result T
			err    error
		)
		t.mu.Lock()
		t.status = TaskRunning
		t.started = time.Now()
		t.mu.Unlock()
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = GenerationFailure(t.name, fmt.Errorf("panic: %v", r))
				}
			}()
			result, err = fn()
		}()
		t.resolve(result, err)
	}()
}

func (t *Task[T]) resolve(result T, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Finished() {
		return
	}
	switch {
	case err == nil:
		t.status = TaskSucceeded
		t.result = result
	case KindOf(err) == KindCancelled:
		t.status = TaskCancelled
	default:
		t.status = TaskFailed
	}
	t.err = err
	if t.started.IsZero() {
		t.started = time.Now()
	}
	t.finished = time.Now()
	close(t.done)
}

// ID returns the task identifier.
func (t *Task[T]) ID() string { return t.id }

// Name returns the task name.
func (t *Task[T]) Name() string { return t.name }

// Token returns the cancellation token shared with the running work.
func (t *Task[T]) Token() *CancelToken { return t.cancel }

// Status returns the current state.
func (t *Task[T]) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Err returns the terminal error, if any.
func (t *Task[T]) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Duration returns how long the task ran, or has been running so far.
func (t *Task[T]) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	switch {
	case t.started.IsZero():
		return 0
	case t.finished.IsZero():
		return time.Since(t.started)
	default:
		return t.finished.Sub(t.started)
	}
}

// Done returns a channel closed when the task finishes.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Cancel requests cooperative cancellation.
func (t *Task[T]) Cancel() { t.cancel.Cancel() }

// Await blocks until the task finishes or ctx is done. A ctx expiry does not
// cancel the task.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		t.mu.RLock()
		defer t.mu.RUnlock()
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TaskHandle is the type-erased view of a task kept by the TaskManager.
type TaskHandle interface {
	ID() string
	Name() string
	Status() TaskStatus
	Err() error
	Duration() time.Duration
	Cancel()
}

// TaskInfo is a point-in-time description of a task.
type TaskInfo struct {
	ID       string
	Name     string
	Status   TaskStatus
	Error    error
	Duration time.Duration
}

// TaskManager supervises tasks spawned by the engine.
type TaskManager struct {
	mu    sync.RWMutex
	tasks map[string]TaskHandle
	limit int
}

// NewTaskManager constructs a TaskManager keeping at most limit finished
// tasks; limit <= 0 keeps everything.
func NewTaskManager(limit int) *TaskManager {
	return &TaskManager{tasks: map[string]TaskHandle{}, limit: limit}
}

// Track records a task.
func (m *TaskManager) Track(h TaskHandle) {
	m.mu.Lock()
	m.tasks[h.ID()] = h
	m.mu.Unlock()
	if m.limit > 0 {
		m.prune(m.limit)
	}
}

// Cancel cancels a task by ID.
func (m *TaskManager) Cancel(id string) bool {
	m.mu.RLock()
	h, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	h.Cancel()
	return true
}

// Tasks lists tasks ordered by creation.
func (m *TaskManager) Tasks() []TaskInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]TaskInfo, 0, len(m.tasks))
	for _, h := range m.tasks {
		list = append(list, describe(h))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// DescribeTask returns a task by ID.
func (m *TaskManager) DescribeTask(id string) (TaskInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.tasks[id]
	if !ok {
		return TaskInfo{}, false
	}
	return describe(h), true
}

// Prune drops finished tasks, keeping the newest keep of them.
func (m *TaskManager) Prune(keep int) int {
	return m.prune(keep)
}

func (m *TaskManager) prune(keep int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var finished []string
	for id, h := range m.tasks {
		if h.Status().Finished() {
			finished = append(finished, id)
		}
	}
	if len(finished) <= keep {
		return 0
	}
	sort.Strings(finished)
	drop := finished[:len(finished)-keep]
	for _, id := range drop {
		delete(m.tasks, id)
	}
	return len(drop)
}

func describe(h TaskHandle) TaskInfo {
	return TaskInfo{
		ID:       h.ID(),
		Name:     h.Name(),
		Status:   h.Status(),
		Error:    h.Err(),
		Duration: h.Duration(),
	}
}
