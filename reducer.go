// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import "context"

// Reducer is the composable unit of state processing.
//
// Effect derives deltas from one intent and hands them to emit, possibly
// suspending many times and possibly starting registered background tasks
// that emit into the same emitter before Effect returns. Transition applies
// one delta to a snapshot and must be pure.
//
// Both methods are total: a Reducer owns no state and has no failure path.
// Domain failures travel as deltas that carry an outcome.
type Reducer[S, I, D any] interface {
	Effect(ctx context.Context, intent I, emit Emitter[D])
	Transition(state S, delta D) S
}

// funcReducer is a leaf built from two functions.
type funcReducer[S, I, D any] struct {
	effect     func(ctx context.Context, intent I, emit Emitter[D])
	transition func(state S, delta D) S
}

func (r funcReducer[S, I, D]) Effect(ctx context.Context, intent I, emit Emitter[D]) {
	if r.effect != nil {
		r.effect(ctx, intent, emit)
	}
}

func (r funcReducer[S, I, D]) Transition(state S, delta D) S {
	if r.transition == nil {
		return state
	}
	return r.transition(state, delta)
}

// Reduce builds a leaf Reducer from an effect and a transition function.
// A nil effect emits nothing; a nil transition is the identity.
func Reduce[S, I, D any](
	effect func(ctx context.Context, intent I, emit Emitter[D]),
	transition func(state S, delta D) S,
) Reducer[S, I, D] {
	return funcReducer[S, I, D]{effect: effect, transition: transition}
}

// Pure builds a Reducer whose intents are applied directly as deltas:
// every intent yields exactly one delta, itself.
func Pure[S, A any](transition func(state S, action A) S) Reducer[S, A, A] {
	return funcReducer[S, A, A]{
		effect: func(_ context.Context, intent A, emit Emitter[A]) {
			_ = emit.Emit(intent)
		},
		transition: transition,
	}
}

// Expand builds a Reducer whose effect maps an intent to an ordered list
// of deltas, emitted and applied in list order.
func Expand[S, I, D any](expand func(intent I) []D, transition func(state S, delta D) S) Reducer[S, I, D] {
	return funcReducer[S, I, D]{
		effect: func(_ context.Context, intent I, emit Emitter[D]) {
			for _, d := range expand(intent) {
				if emit.Emit(d) != nil {
					return
				}
			}
		},
		transition: transition,
	}
}
