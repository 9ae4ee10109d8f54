// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"context"
	"iter"
	"sync"
)

// subscriber buffers published snapshots for one iteration of Snapshots.
// The buffer is unbounded so that a slow consumer never holds up the
// apply-loop that publishes under the store lock.
type subscriber[S any] struct {
	mu    sync.Mutex
	queue []S
	done  bool
	wake  chan struct{}
}

func newSubscriber[S any](first S) *subscriber[S] {
	return &subscriber[S]{
		queue: []S{first},
		wake:  make(chan struct{}, 1),
	}
}

func (sub *subscriber[S]) push(v S) {
	sub.mu.Lock()
	if !sub.done {
		sub.queue = append(sub.queue, v)
	}
	sub.mu.Unlock()
	sub.signal()
}

// finish ends the subscription after the buffered snapshots are consumed.
func (sub *subscriber[S]) finish() {
	sub.mu.Lock()
	sub.done = true
	sub.mu.Unlock()
	sub.signal()
}

func (sub *subscriber[S]) pop(ctx context.Context) (S, bool) {
	for {
		sub.mu.Lock()
		if len(sub.queue) > 0 {
			v := sub.queue[0]
			var zero S
			sub.queue[0] = zero
			sub.queue = sub.queue[1:]
			sub.mu.Unlock()
			return v, true
		}
		done := sub.done
		sub.mu.Unlock()
		if done {
			var zero S
			return zero, false
		}
		select {
		case <-sub.wake:
		case <-ctx.Done():
			var zero S
			return zero, false
		}
	}
}

func (sub *subscriber[S]) signal() {
	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

// Snapshots returns the sequence of snapshots as seen from now on.
//
// Each iteration subscribes afresh: it first yields the snapshot current at
// that moment, then every snapshot published afterwards, in apply order.
// Iteration ends when the loop body breaks, when ctx is done, or when the
// store is closed (after the snapshots already buffered are yielded).
func (s *Store[S, I, D]) Snapshots(ctx context.Context) iter.Seq[S] {
	return func(yield func(S) bool) {
		s.mu.Lock()
		sub := newSubscriber(s.state)
		if s.closed {
			sub.done = true
		} else {
			s.subs[sub] = struct{}{}
		}
		s.mu.Unlock()
		defer s.unsubscribe(sub)

		for {
			v, ok := sub.pop(ctx)
			if !ok || !yield(v) {
				return
			}
		}
	}
}

func (s *Store[S, I, D]) unsubscribe(sub *subscriber[S]) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}
