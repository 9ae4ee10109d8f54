// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"context"

	"code.hybscloud.com/kont"
	"golang.org/x/sync/errgroup"
)

// merge runs two reducers over a shared snapshot and intent, each with its
// own delta type. The parent delta is the tagged union kont.Either[D1, D2].
type merge[S, I, D1, D2 any] struct {
	left  Reducer[S, I, D1]
	right Reducer[S, I, D2]
}

// Merge unions two reducers with distinct delta types.
//
// Effect runs both children concurrently for the same intent. Deltas of
// left are forwarded as kont.Left, deltas of right as kont.Right. Each
// child's own emission order is preserved; the interleaving across children
// is unspecified. Transition routes a Left delta to left and a Right delta
// to right, so one child's deltas never touch state the other transitions.
//
// Three or more children nest: Merge(a, Merge(b, c)).
func Merge[S, I, D1, D2 any](left Reducer[S, I, D1], right Reducer[S, I, D2]) Reducer[S, I, kont.Either[D1, D2]] {
	if left == nil || right == nil {
		panic("compose: nil reducer")
	}
	return merge[S, I, D1, D2]{left: left, right: right}
}

func (r merge[S, I, D1, D2]) Effect(ctx context.Context, intent I, emit Emitter[kont.Either[D1, D2]]) {
	leftEmit := MapEmitter(emit, func(d D1) kont.Either[D1, D2] {
		return kont.Left[D1, D2](d)
	})
	rightEmit := MapEmitter(emit, func(d D2) kont.Either[D1, D2] {
		return kont.Right[D1, D2](d)
	})

	var g errgroup.Group
	g.Go(func() error {
		r.left.Effect(ctx, intent, leftEmit)
		return nil
	})
	g.Go(func() error {
		r.right.Effect(ctx, intent, rightEmit)
		return nil
	})
	_ = g.Wait()
}

func (r merge[S, I, D1, D2]) Transition(state S, delta kont.Either[D1, D2]) S {
	if d, ok := delta.GetLeft(); ok {
		return r.left.Transition(state, d)
	}
	d, _ := delta.GetRight()
	return r.right.Transition(state, d)
}
