// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// DefaultChannelCapacity is the ring capacity used when none is configured.
// 64 keeps a burst of deltas from a single effect queued without producer
// backoff while the ring stays small enough to allocate per dispatch.
const DefaultChannelCapacity = 64

// Emitter is the producer handle an effect uses to hand deltas to the
// apply-loop. Emit returns once the delta is queued, not once it is applied.
type Emitter[D any] interface {
	Emit(delta D) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc[D any] func(delta D) error

// Emit calls f(delta).
func (f EmitterFunc[D]) Emit(delta D) error { return f(delta) }

// MapEmitter returns an emitter that embeds each delta with f before
// forwarding it to parent. Ordering of the underlying emitter is preserved.
func MapEmitter[D, G any](parent Emitter[G], f func(D) G) Emitter[D] {
	return EmitterFunc[D](func(d D) error {
		return parent.Emit(f(d))
	})
}

// Channel is an ordered delivery path from any number of producers to a
// single consumer. It is scoped to one dispatch call.
//
// Transport is a bounded lock-free SPSC ring from lfq. Producers are
// serialized by a mutex so that, from the ring's point of view, there is a
// single producer; emissions from one goroutine are therefore totally
// ordered and emissions from different goroutines are ordered by arrival.
type Channel[D any] struct {
	mu      sync.Mutex
	ring    lfq.SPSC[D]
	slot    D
	closing atomix.Uint32 // producers stop; set without mu
	closed  atomix.Uint32 // consumer ends after drain; set under mu
	wake    chan struct{}
}

// NewChannel creates a channel whose ring holds capacity deltas.
// Capacity is rounded up to a power of two; values below 2 select
// DefaultChannelCapacity.
func NewChannel[D any](capacity int) *Channel[D] {
	c := &Channel[D]{wake: make(chan struct{}, 1)}
	c.ring.Init(ringCapacity(capacity))
	return c
}

func ringCapacity(n int) int {
	if n < 2 {
		return DefaultChannelCapacity
	}
	c := 2
	for c < n {
		c <<= 1
	}
	return c
}

// Emit queues delta for the consumer.
// When the ring is full the producer waits with iox.Backoff until the
// consumer frees a slot. Returns ErrChannelClosed once Close has been called.
func (c *Channel[D]) Emit(delta D) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var bo iox.Backoff
	for {
		if c.closing.Load() != 0 {
			return ErrChannelClosed
		}
		c.slot = delta
		err := c.ring.Enqueue(&c.slot)
		if err == nil {
			break
		}
		if !iox.IsWouldBlock(err) {
			return err
		}
		bo.Wait()
	}
	c.signal()
	return nil
}

// TryEmit is the non-blocking form of Emit.
// It returns iox.ErrWouldBlock when the ring is full or another producer
// holds the channel.
func (c *Channel[D]) TryEmit(delta D) error {
	if !c.mu.TryLock() {
		return iox.ErrWouldBlock
	}
	defer c.mu.Unlock()

	if c.closing.Load() != 0 {
		return ErrChannelClosed
	}
	c.slot = delta
	if err := c.ring.Enqueue(&c.slot); err != nil {
		return err
	}
	c.signal()
	return nil
}

// Close signals that no further deltas will be emitted.
// The consumer drains what is already queued and then observes the end of
// the channel. A second Close is a no-op.
//
// Close may be called from the consumer goroutine: a producer waiting on a
// full ring observes the closing flag and gives up the producer lock.
func (c *Channel[D]) Close() {
	if c.closing.Load() == 0 {
		c.closing.Add(1)
	}
	c.mu.Lock()
	if c.closed.Load() == 0 {
		c.closed.Add(1)
	}
	c.mu.Unlock()
	c.signal()
}

// Closed reports whether Close has been called.
func (c *Channel[D]) Closed() bool {
	return c.closing.Load() != 0
}

// Next returns the next queued delta in emission order.
// It blocks while the channel is open and empty, and returns (zero, false)
// once the channel is closed and fully drained.
// Next must only be called from one goroutine.
func (c *Channel[D]) Next() (D, bool) {
	for {
		d, err := c.ring.Dequeue()
		if err == nil {
			return d, true
		}
		if c.closed.Load() != 0 {
			// Every enqueue happened before the close under c.mu, so one more
			// attempt observes anything that raced with the first Dequeue.
			if d, err = c.ring.Dequeue(); err == nil {
				return d, true
			}
			var zero D
			return zero, false
		}
		<-c.wake
	}
}

func (c *Channel[D]) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
