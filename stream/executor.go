// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stream

import "sync"

// Executor runs subscriber callbacks.
type Executor interface {
	Execute(f func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(f func())

// Execute calls e(f).
func (e ExecutorFunc) Execute(f func()) { e(f) }

// Immediate runs callbacks on the delivering goroutine.
var Immediate Executor = ExecutorFunc(func(f func()) { f() })

// SerialExecutor runs callbacks one at a time, in submission order, on a
// goroutine of its own. Execute never blocks; a callback may submit more
// work to the executor running it.
type SerialExecutor struct {
	mu      sync.Mutex
	queue   []func()
	running bool
	idle    *sync.Cond
}

// NewSerialExecutor creates an idle SerialExecutor.
func NewSerialExecutor() *SerialExecutor {
	e := &SerialExecutor{}
	e.idle = sync.NewCond(&e.mu)
	return e
}

// Execute queues f.
func (e *SerialExecutor) Execute(f func()) {
	e.mu.Lock()
	e.queue = append(e.queue, f)
	if !e.running {
		e.running = true
		go e.drain()
	}
	e.mu.Unlock()
}

func (e *SerialExecutor) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.running = false
			e.idle.Broadcast()
			e.mu.Unlock()
			return
		}
		f := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()
		f()
	}
}

// Wait blocks until every queued callback has run.
func (e *SerialExecutor) Wait() {
	e.mu.Lock()
	for e.running {
		e.idle.Wait()
	}
	e.mu.Unlock()
}
