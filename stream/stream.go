// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stream bridges a store's snapshot sequence to demand-driven
// subscribers.
//
// A Subscriber receives nothing until it requests demand through its
// Subscription. Each delivered value consumes one unit of demand; OnNext may
// return more. Cancelling the subscription stops consumption of the source.
package stream

import (
	"context"
	"iter"
	"math"
	"sync"

	"code.hybscloud.com/compose"
)

// Unlimited is the demand that is never exhausted.
const Unlimited = math.MaxInt64

// Subscription controls delivery to one Subscriber.
type Subscription interface {
	// Request adds n to the outstanding demand. n <= 0 is ignored.
	Request(n int64)
	// Cancel stops delivery. It is idempotent.
	Cancel()
}

// Subscriber receives values from a Publisher.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	// OnNext receives one value and returns additional demand.
	OnNext(v T) int64
	// OnComplete is called once when the source ends without cancellation.
	OnComplete()
}

// Sink adapts functions to Subscriber. Nil fields are no-ops.
type Sink[T any] struct {
	Subscribe func(s Subscription)
	Next      func(v T) int64
	Complete  func()
}

func (k Sink[T]) OnSubscribe(s Subscription) {
	if k.Subscribe != nil {
		k.Subscribe(s)
	}
}

func (k Sink[T]) OnNext(v T) int64 {
	if k.Next != nil {
		return k.Next(v)
	}
	return 0
}

func (k Sink[T]) OnComplete() {
	if k.Complete != nil {
		k.Complete()
	}
}

// Publisher delivers the values of a restartable source.
type Publisher[T any] struct {
	source func(ctx context.Context) iter.Seq[T]
	exec   Executor
}

// NewPublisher creates a Publisher whose subscribers each iterate
// source(ctx) afresh. Callbacks run on exec; nil selects Immediate.
func NewPublisher[T any](source func(ctx context.Context) iter.Seq[T], exec Executor) *Publisher[T] {
	if source == nil {
		panic("stream: nil source")
	}
	if exec == nil {
		exec = Immediate
	}
	return &Publisher[T]{source: source, exec: exec}
}

// FromStore publishes the snapshots of s.
func FromStore[S, I, D any](s *compose.Store[S, I, D], exec Executor) *Publisher[S] {
	return NewPublisher(s.Snapshots, exec)
}

// Map publishes f applied to every value of p.
func Map[T, U any](p *Publisher[T], f func(T) U) *Publisher[U] {
	return NewPublisher(func(ctx context.Context) iter.Seq[U] {
		return func(yield func(U) bool) {
			for v := range p.source(ctx) {
				if !yield(f(v)) {
					return
				}
			}
		}
	}, p.exec)
}

// Subscribe attaches sub. The subscription ends when ctx is done, when it
// is cancelled, or when the source ends.
func (p *Publisher[T]) Subscribe(ctx context.Context, sub Subscriber[T]) Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &subscription[T]{
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
	}
	p.exec.Execute(func() { sub.OnSubscribe(s) })
	go s.pump(p.source(ctx), sub, p.exec)
	return s
}

type subscription[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}

	mu     sync.Mutex
	demand int64
}

func (s *subscription[T]) Request(n int64) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.demand = addDemand(s.demand, n)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription[T]) Cancel() {
	s.cancel()
}

// take waits for one unit of demand. It returns false once the
// subscription is cancelled.
func (s *subscription[T]) take() bool {
	for {
		s.mu.Lock()
		if s.demand > 0 {
			if s.demand != Unlimited {
				s.demand--
			}
			s.mu.Unlock()
			return true
		}
		s.mu.Unlock()
		select {
		case <-s.wake:
		case <-s.ctx.Done():
			return false
		}
	}
}

func (s *subscription[T]) pump(seq iter.Seq[T], sub Subscriber[T], exec Executor) {
	defer s.cancel()
	next, stop := iter.Pull(seq)
	defer stop()

	for s.take() {
		v, ok := next()
		if s.ctx.Err() != nil {
			return
		}
		if !ok {
			exec.Execute(sub.OnComplete)
			return
		}
		exec.Execute(func() {
			s.Request(sub.OnNext(v))
		})
	}
}

func addDemand(a, b int64) int64 {
	if a > Unlimited-b {
		return Unlimited
	}
	return a + b
}
