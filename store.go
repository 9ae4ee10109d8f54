// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "code.hybscloud.com/compose"

// Store owns one snapshot of state and applies deltas derived from
// dispatched intents to it.
//
// The snapshot is written only by the apply-loops of Dispatch, and only
// while holding the store lock for one uninterrupted read-transition-write
// step per delta; the publish that follows happens under the same lock, so
// every subscriber sees snapshots in apply order.
//
// Store is safe for concurrent use.
type Store[S, I, D any] struct {
	id       uuid.UUID
	name     string
	reducer  Reducer[S, I, D]
	policy   Policy
	capacity int
	equal    func(a, b S) bool
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics
	tasks    *Registry[any]

	// serial is held for a whole Dispatch under PolicySerial.
	serial sync.Mutex

	mu     sync.RWMutex
	state  S
	subs   map[*subscriber[S]]struct{}
	closed bool
}

// New creates a Store holding initial and driven by reducer.
// New panics if reducer is nil, if a WithEqual function does not match S,
// or if a WithConfig value is invalid.
func New[S, I, D any](initial S, reducer Reducer[S, I, D], opts ...Option) *Store[S, I, D] {
	if reducer == nil {
		panic("compose: nil reducer")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var equal func(a, b S) bool
	if o.equal != nil {
		eq, ok := o.equal.(func(a, b S) bool)
		if !ok {
			panic("compose: WithEqual function does not match the snapshot type")
		}
		equal = eq
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	id := uuid.New()
	s := &Store[S, I, D]{
		id:       id,
		name:     o.name,
		reducer:  reducer,
		policy:   o.policy,
		capacity: o.capacity,
		equal:    equal,
		logger: o.logger.With(
			slog.String("component", "store"),
			slog.String("store", o.name),
			slog.String("store_id", id.String()),
		),
		tracer: o.tracer,
		tasks:  NewRegistry[any](),
		state:  initial,
		subs:   make(map[*subscriber[S]]struct{}),
	}
	s.metrics = newMetrics(o.name, id.String(), func() float64 {
		return float64(s.tasks.Len())
	})
	if o.registerer != nil {
		if err := s.metrics.register(o.registerer); err != nil {
			s.logger.Warn("metrics not registered", slog.Any("error", err))
		}
	}
	return s
}

// ID returns the store's unique identity.
func (s *Store[S, I, D]) ID() uuid.UUID {
	return s.id
}

// Policy returns the dispatch concurrency policy.
func (s *Store[S, I, D]) Policy() Policy {
	return s.policy
}

// Snapshot returns the latest applied snapshot.
// It never observes a transition in progress.
func (s *Store[S, I, D]) Snapshot() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch processes one intent end to end.
//
// It opens a fresh Channel, starts an apply-loop consuming it, runs the
// reducer's effect with the channel as emitter, closes the channel when
// the effect returns, and returns once the apply-loop has drained every
// queued delta. Dispatch may be called again before a prior call returns;
// see Policy for how the calls interact.
//
// The effect's ctx carries the store's task registry, so Go registers
// background work that CancelTask can stop.
func (s *Store[S, I, D]) Dispatch(ctx context.Context, intent I) error {
	if s.isClosed() {
		s.logger.Warn("dispatch on closed store")
		return ErrStoreClosed
	}
	if s.policy == PolicySerial {
		s.serial.Lock()
		defer s.serial.Unlock()
	}

	ctx, span := s.tracer.Start(ctx, "compose.Dispatch",
		trace.WithAttributes(
			attribute.String("compose.store", s.name),
			attribute.String("compose.store_id", s.id.String()),
			attribute.String("compose.policy", s.policy.String()),
		),
	)
	defer span.End()

	start := time.Now()
	s.logger.Debug("dispatch started")
	s.metrics.inFlight.Inc()
	defer s.metrics.inFlight.Dec()

	ch := NewChannel[D](s.capacity)
	applied := make(chan int, 1)
	go func() {
		applied <- s.applyLoop(ch)
	}()

	effectCtx := withEnv(WithRegistry(ctx, s.tasks), env{capacity: s.capacity, logger: s.logger})
	func() {
		// A panicking effect still releases the apply-loop.
		defer ch.Close()
		s.reducer.Effect(effectCtx, intent, ch)
	}()
	n := <-applied

	elapsed := time.Since(start)
	s.metrics.dispatches.Inc()
	s.metrics.duration.Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Int("compose.deltas", n))
	span.SetStatus(codes.Ok, "")
	s.logger.Debug("dispatch finished",
		slog.Int("deltas", n),
		slog.Duration("elapsed", elapsed),
	)
	return nil
}

// DispatchAll dispatches intents one after another, stopping at the first
// error.
func (s *Store[S, I, D]) DispatchAll(ctx context.Context, intents ...I) error {
	for _, intent := range intents {
		if err := s.Dispatch(ctx, intent); err != nil {
			return err
		}
	}
	return nil
}

// DispatchSeq dispatches every intent yielded by seq, in order, stopping at
// the first error or when ctx is done.
func (s *Store[S, I, D]) DispatchSeq(ctx context.Context, seq iter.Seq[I]) error {
	for intent := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Dispatch(ctx, intent); err != nil {
			return err
		}
	}
	return nil
}

// applyLoop applies every delta from ch until ch is closed and drained.
// It returns the number of deltas applied.
func (s *Store[S, I, D]) applyLoop(ch *Channel[D]) int {
	n := 0
	for {
		d, ok := ch.Next()
		if !ok {
			return n
		}
		s.apply(d)
		n++
	}
}

func (s *Store[S, I, D]) apply(d D) {
	s.mu.Lock()
	prev := s.state
	next := s.reducer.Transition(prev, d)
	s.state = next
	publish := s.equal == nil || !s.equal(prev, next)
	if publish {
		for sub := range s.subs {
			sub.push(next)
		}
	}
	s.mu.Unlock()

	s.metrics.deltas.Inc()
	if publish {
		s.metrics.published.Inc()
	}
}

// Tasks returns the store's task registry.
func (s *Store[S, I, D]) Tasks() *Registry[any] {
	return s.tasks
}

// CancelTask cancels the background task registered under key.
// Cancelling an absent key is a no-op.
func (s *Store[S, I, D]) CancelTask(key any) {
	s.tasks.Cancel(key)
}

// CancelAllTasks cancels every registered background task.
func (s *Store[S, I, D]) CancelAllTasks() {
	s.tasks.CancelAll()
}

// Close tears the store down: it cancels every registered task, ends every
// snapshot subscription, and makes later Dispatch calls return
// ErrStoreClosed. Dispatch calls already in progress run to completion.
// Close is idempotent and always returns nil.
func (s *Store[S, I, D]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for sub := range subs {
		sub.finish()
	}
	s.tasks.CancelAll()
	s.logger.Debug("store closed")
	return nil
}

func (s *Store[S, I, D]) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
