// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package binding exposes one projected value of a store as a two-way
// binding: reads come from the latest snapshot, writes become intents.
package binding

import (
	"context"
	"iter"
	"log/slog"

	"code.hybscloud.com/compose"
)

// Binding is a read/write view of a value of type V.
// Set only sends when the new value differs from the current one.
type Binding[V comparable] struct {
	get     func() V
	send    func(V) error
	updates func(ctx context.Context) iter.Seq[V]
}

// New creates a Binding from a getter and a sender.
// Updates of a Binding made by New yields the current value once.
func New[V comparable](get func() V, send func(V) error) *Binding[V] {
	if get == nil || send == nil {
		panic("binding: nil get or send")
	}
	return &Binding[V]{get: get, send: send}
}

// FromStore binds project(snapshot) of s. Set dispatches toIntent(v) on s
// with ctx and returns once the dispatch has drained.
func FromStore[S, I, D any, V comparable](
	ctx context.Context,
	s *compose.Store[S, I, D],
	project func(S) V,
	toIntent func(V) I,
) *Binding[V] {
	return fromStore(s, project, func(v V) error {
		return s.Dispatch(ctx, toIntent(v))
	})
}

// FromStoreAsync is FromStore with fire-and-forget writes: Set dispatches on
// a new goroutine and returns nil at once. Dispatch failures are logged with
// logger, or slog.Default() when logger is nil.
func FromStoreAsync[S, I, D any, V comparable](
	ctx context.Context,
	s *compose.Store[S, I, D],
	project func(S) V,
	toIntent func(V) I,
	logger *slog.Logger,
) *Binding[V] {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "binding"), slog.String("store_id", s.ID().String()))
	return fromStore(s, project, func(v V) error {
		intent := toIntent(v)
		go func() {
			if err := s.Dispatch(ctx, intent); err != nil {
				logger.Warn("async dispatch failed", slog.Any("error", err))
			}
		}()
		return nil
	})
}

func fromStore[S, I, D any, V comparable](s *compose.Store[S, I, D], project func(S) V, send func(V) error) *Binding[V] {
	if project == nil {
		panic("binding: nil projection")
	}
	return &Binding[V]{
		get:  func() V { return project(s.Snapshot()) },
		send: send,
		updates: func(ctx context.Context) iter.Seq[V] {
			return distinct(s.Snapshots(ctx), project)
		},
	}
}

// Get returns the current value.
func (b *Binding[V]) Get() V {
	return b.get()
}

// Set sends v unless it equals the current value.
func (b *Binding[V]) Set(v V) error {
	if b.get() == v {
		return nil
	}
	return b.send(v)
}

// Updates yields the current value and then every change of it, skipping
// snapshots that leave the projection unchanged.
func (b *Binding[V]) Updates(ctx context.Context) iter.Seq[V] {
	if b.updates != nil {
		return b.updates(ctx)
	}
	return func(yield func(V) bool) {
		yield(b.get())
	}
}

func distinct[S any, V comparable](seq iter.Seq[S], project func(S) V) iter.Seq[V] {
	return func(yield func(V) bool) {
		first := true
		var last V
		for s := range seq {
			v := project(s)
			if !first && v == last {
				continue
			}
			first = false
			last = v
			if !yield(v) {
				return
			}
		}
	}
}
