// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"context"

	"code.hybscloud.com/kont"
)

// empty emits nothing and leaves the snapshot unchanged.
type empty[S, I, D any] struct{}

// Empty returns the Reducer that does nothing.
// It is the identity element of Sequence.
func Empty[S, I, D any]() Reducer[S, I, D] {
	return empty[S, I, D]{}
}

func (empty[S, I, D]) Effect(context.Context, I, Emitter[D]) {}

func (empty[S, I, D]) Transition(state S, _ D) S { return state }

// direct delegates to a single child.
type direct[S, I, D any] struct {
	base Reducer[S, I, D]
}

// Direct wraps r so that it can be stored alongside other composed values.
// The result behaves exactly like r.
func Direct[S, I, D any](r Reducer[S, I, D]) Reducer[S, I, D] {
	if r == nil {
		panic("compose: nil reducer")
	}
	return direct[S, I, D]{base: r}
}

func (r direct[S, I, D]) Effect(ctx context.Context, intent I, emit Emitter[D]) {
	r.base.Effect(ctx, intent, emit)
}

func (r direct[S, I, D]) Transition(state S, delta D) S {
	return r.base.Transition(state, delta)
}

// sequence runs children in list order.
type sequence[S, I, D any] struct {
	children []Reducer[S, I, D]
}

// Sequence combines reducers that share snapshot, intent and delta types.
//
// Effect runs every child's effect for the same intent, one after another;
// each completes before the next starts, so all deltas of an earlier child
// are queued ahead of those of a later one. Transition threads the snapshot
// through every child, left to right, for the one delta.
func Sequence[S, I, D any](rs ...Reducer[S, I, D]) Reducer[S, I, D] {
	children := make([]Reducer[S, I, D], 0, len(rs))
	for _, r := range rs {
		if r == nil {
			panic("compose: nil reducer")
		}
		if _, ok := r.(empty[S, I, D]); ok {
			continue
		}
		children = append(children, r)
	}
	switch len(children) {
	case 0:
		return empty[S, I, D]{}
	case 1:
		return children[0]
	}
	return sequence[S, I, D]{children: children}
}

func (r sequence[S, I, D]) Effect(ctx context.Context, intent I, emit Emitter[D]) {
	for _, c := range r.children {
		c.Effect(ctx, intent, emit)
	}
}

func (r sequence[S, I, D]) Transition(state S, delta D) S {
	for _, c := range r.children {
		state = c.Transition(state, delta)
	}
	return state
}

// conditional holds exactly one live branch: Left is first, Right is second.
type conditional[S, I, D any] struct {
	branch kont.Either[Reducer[S, I, D], Reducer[S, I, D]]
}

// Conditional selects first when cond is true and second otherwise.
// The choice is made once, here; the composed value delegates every call to
// the chosen branch.
func Conditional[S, I, D any](cond bool, first, second Reducer[S, I, D]) Reducer[S, I, D] {
	if cond {
		if first == nil {
			panic("compose: nil reducer")
		}
		return conditional[S, I, D]{branch: kont.Left[Reducer[S, I, D], Reducer[S, I, D]](first)}
	}
	if second == nil {
		panic("compose: nil reducer")
	}
	return conditional[S, I, D]{branch: kont.Right[Reducer[S, I, D], Reducer[S, I, D]](second)}
}

func (r conditional[S, I, D]) live() Reducer[S, I, D] {
	if first, ok := r.branch.GetLeft(); ok {
		return first
	}
	second, _ := r.branch.GetRight()
	return second
}

func (r conditional[S, I, D]) Effect(ctx context.Context, intent I, emit Emitter[D]) {
	r.live().Effect(ctx, intent, emit)
}

func (r conditional[S, I, D]) Transition(state S, delta D) S {
	return r.live().Transition(state, delta)
}
