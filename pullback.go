// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Lens focuses on a local part L of a global value G.
// Set returns a copy of g with the local part replaced.
type Lens[G, L any] struct {
	Get func(g G) L
	Set func(g G, l L) G
}

// Match is a partial extractor for interface-typed intents and deltas:
// it succeeds when g holds a value of type L.
func Match[L, G any](g G) (L, bool) {
	l, ok := any(g).(L)
	return l, ok
}

// pullback lifts a reducer over local coordinates into global ones.
type pullback[GS, GI, GD, LS, LI, LD any] struct {
	child           Reducer[LS, LI, LD]
	state           Lens[GS, LS]
	fromIntent      func(GI) (LI, bool)
	toGlobalDelta   func(LD) GD
	fromGlobalDelta func(GD) (LD, bool)
}

// Pullback maps child into the parent's snapshot, intent and delta types.
//
// Effect is a no-op unless fromIntent matches. On a match, the child runs
// against a local Channel while a forwarding goroutine embeds each local
// delta with toGlobalDelta and emits it to the parent. The local channel is
// closed once the child's effect returns, and Effect returns only after the
// forwarder has drained it, so the parent sees every child delta before its
// own effect phase ends.
//
// Transition returns the snapshot unchanged unless fromGlobalDelta matches;
// otherwise it runs the child's transition on the lens focus and writes the
// result back.
func Pullback[GS, GI, GD, LS, LI, LD any](
	child Reducer[LS, LI, LD],
	state Lens[GS, LS],
	fromIntent func(GI) (LI, bool),
	toGlobalDelta func(LD) GD,
	fromGlobalDelta func(GD) (LD, bool),
) Reducer[GS, GI, GD] {
	if child == nil {
		panic("compose: nil reducer")
	}
	if state.Get == nil || state.Set == nil || fromIntent == nil || toGlobalDelta == nil || fromGlobalDelta == nil {
		panic("compose: incomplete pullback mapping")
	}
	return pullback[GS, GI, GD, LS, LI, LD]{
		child:           child,
		state:           state,
		fromIntent:      fromIntent,
		toGlobalDelta:   toGlobalDelta,
		fromGlobalDelta: fromGlobalDelta,
	}
}

func (r pullback[GS, GI, GD, LS, LI, LD]) Effect(ctx context.Context, intent GI, emit Emitter[GD]) {
	local, ok := r.fromIntent(intent)
	if !ok {
		return
	}

	ch := NewChannel[LD](channelCapacityFrom(ctx))
	var g errgroup.Group
	g.Go(func() error {
		for {
			d, ok := ch.Next()
			if !ok {
				return nil
			}
			if err := emit.Emit(r.toGlobalDelta(d)); err != nil {
				// The parent no longer accepts deltas; refuse further local
				// emissions so the child's producers see the failure.
				ch.Close()
				return err
			}
		}
	})

	r.child.Effect(ctx, local, ch)
	ch.Close()
	if err := g.Wait(); err != nil {
		loggerFrom(ctx).Warn("pullback forwarding stopped", slog.Any("error", err))
	}
}

func (r pullback[GS, GI, GD, LS, LI, LD]) Transition(state GS, delta GD) GS {
	d, ok := r.fromGlobalDelta(delta)
	if !ok {
		return state
	}
	return r.state.Set(state, r.child.Transition(r.state.Get(state), d))
}
