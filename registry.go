// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"context"
	"sync"
)

// Task is a handle to cancellable background work.
// Cancellation is cooperative: Cancel cancels the task's context and the
// body is expected to observe ctx.Done() and return promptly.
// A Task's identity for registry purposes is the key it is stored under.
type Task struct {
	serial Serial
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newTask(parent context.Context) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		serial: nextSerial(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// run executes fn on a new goroutine and calls after once fn returns.
func (t *Task) run(fn func(ctx context.Context), after func()) {
	go func() {
		defer close(t.done)
		defer t.cancel()
		if after != nil {
			defer after()
		}
		fn(t.ctx)
	}()
}

// Start runs fn on a new goroutine as an untracked Task.
func Start(ctx context.Context, fn func(ctx context.Context)) *Task {
	t := newTask(ctx)
	t.run(fn, nil)
	return t
}

// Serial returns the serial number assigned to this task.
func (t *Task) Serial() Serial {
	return t.serial
}

// Cancel signals the task to stop at its next cancellation check.
// Calling Cancel more than once is a no-op.
func (t *Task) Cancel() {
	t.cancel()
}

// Err returns context.Canceled once the task has been cancelled, the parent
// context's error if that ended first, and nil otherwise. A task that ran
// to completion reports context.Canceled, since its context is released.
func (t *Task) Err() error {
	return t.ctx.Err()
}

// Cancelled reports whether the task has been signalled to stop.
func (t *Task) Cancelled() bool {
	return t.ctx.Err() != nil
}

// Done returns a channel that is closed when the task body has returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task body has returned.
func (t *Task) Wait() {
	<-t.done
}

// Registry maps caller-chosen keys to at most one live Task each.
//
// Register overwrites an existing entry without cancelling it; callers that
// want cancel-then-replace call Cancel first. Cancel and CancelAll are
// idempotent: cancelling an absent or already-cancelled key is a no-op.
//
// Registry is safe for concurrent use.
type Registry[K comparable] struct {
	mu    sync.Mutex
	tasks map[K]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry[K comparable]() *Registry[K] {
	return &Registry[K]{tasks: make(map[K]*Task)}
}

// Register stores t under key, replacing any previous entry.
// The previous task, if any, keeps running.
func (r *Registry[K]) Register(key K, t *Task) {
	r.mu.Lock()
	r.tasks[key] = t
	r.mu.Unlock()
}

// Lookup returns the task stored under key.
func (r *Registry[K]) Lookup(key K) (*Task, bool) {
	r.mu.Lock()
	t, ok := r.tasks[key]
	r.mu.Unlock()
	return t, ok
}

// Cancel signals the task stored under key and removes the entry.
func (r *Registry[K]) Cancel(key K) {
	r.mu.Lock()
	t, ok := r.tasks[key]
	delete(r.tasks, key)
	r.mu.Unlock()
	if ok {
		t.Cancel()
	}
}

// CancelAll signals every stored task and empties the registry.
func (r *Registry[K]) CancelAll() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = make(map[K]*Task)
	r.mu.Unlock()
	for _, t := range tasks {
		t.Cancel()
	}
}

// Len returns the number of live entries.
func (r *Registry[K]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// release removes key only while it still refers to t, so a finished task
// never evicts the handle that replaced it.
func (r *Registry[K]) release(key K, t *Task) {
	r.mu.Lock()
	if cur, ok := r.tasks[key]; ok && cur == t {
		delete(r.tasks, key)
	}
	r.mu.Unlock()
}

// Spawn starts fn as a Task registered in r under key.
// The entry is removed when fn returns, unless it has been replaced.
func Spawn[K comparable](ctx context.Context, r *Registry[K], key K, fn func(ctx context.Context)) *Task {
	t := newTask(ctx)
	r.Register(key, t)
	t.run(fn, func() { r.release(key, t) })
	return t
}

type registryKey struct{}

// WithRegistry returns a copy of ctx carrying r.
// Store.Dispatch installs its own registry this way before running an
// effect, which is how Go finds it.
func WithRegistry(ctx context.Context, r *Registry[any]) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// RegistryFrom returns the registry carried by ctx.
func RegistryFrom(ctx context.Context) (*Registry[any], bool) {
	r, ok := ctx.Value(registryKey{}).(*Registry[any])
	return r, ok && r != nil
}

// Go starts fn as a Task registered under key in the registry carried by
// ctx. Inside an effect, that is the dispatching store's registry, so the
// task can later be stopped with Store.CancelTask(key).
//
// If ctx carries no registry the task still runs, untracked, and Go
// returns ErrNoRegistry alongside the handle.
func Go(ctx context.Context, key any, fn func(ctx context.Context)) (*Task, error) {
	r, ok := RegistryFrom(ctx)
	if !ok {
		return Start(ctx, fn), ErrNoRegistry
	}
	return Spawn(ctx, r, key, fn), nil
}
