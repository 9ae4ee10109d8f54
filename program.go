// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"context"
	"fmt"
	"log/slog"

	"code.hybscloud.com/kont"
)

// Emit is the effect operation for emitting a delta of type D.
// Perform(Emit[D]{Delta: d}) queues d on the emitter the program runs with.
type Emit[D any] struct {
	kont.Phantom[struct{}]
	Delta D
}

// ProgramError reports an emission failure that stopped a program.
type ProgramError struct {
	// Emitted counts the deltas queued before the failure.
	Emitted int
	Err     error
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("compose: program stopped after %d deltas: %v", e.Emitted, e.Err)
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}

// programContext is the handler state shared by every dispatch of one run.
type programContext[D any] struct {
	emit    Emitter[D]
	emitted int
}

func (ctx *programContext[D]) perform(op kont.Operation) error {
	e, ok := op.(Emit[D])
	if !ok {
		panic("compose: unhandled effect in program")
	}
	if err := ctx.emit.Emit(e.Delta); err != nil {
		return &ProgramError{Emitted: ctx.emitted, Err: err}
	}
	ctx.emitted++
	return nil
}

// programHandler implements kont.Handler for Emit.
// A failed emission short-circuits the program with Left(err).
type programHandler[D, R any] struct {
	ctx *programContext[D]
}

// Dispatch implements kont.Handler.
func (h programHandler[D, R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	if err := h.ctx.perform(op); err != nil {
		return kont.Left[error, R](err), false
	}
	return struct{}{}, true
}

// RunProgram runs a Cont-world program, handing every Emit to emit.
// The first failed emission stops the program and is returned as a
// *ProgramError.
func RunProgram[D, R any](emit Emitter[D], program kont.Eff[R]) (R, error) {
	wrapped := kont.Map[kont.Resumed, R, kont.Either[error, R]](program, func(r R) kont.Either[error, R] {
		return kont.Right[error, R](r)
	})
	ctx := programContext[D]{emit: emit}
	return fromEither(kont.Handle(wrapped, programHandler[D, R]{ctx: &ctx}))
}

func fromEither[R any](e kont.Either[error, R]) (R, error) {
	if err, ok := e.GetLeft(); ok {
		var zero R
		return zero, err
	}
	r, _ := e.GetRight()
	return r, nil
}

// EmitThen emits d and then continues with next.
// Fuses Perform(Emit[D]{Delta: d}) + Then.
func EmitThen[D, B any](d D, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Emit[D]{Delta: d}), next)
}

// EmitDone emits d and returns a.
func EmitDone[D, A any](d D, a A) kont.Eff[A] {
	return kont.Then(kont.Perform(Emit[D]{Delta: d}), kont.Pure(a))
}

// EmitAll emits ds in order.
func EmitAll[D any](ds []D) kont.Eff[struct{}] {
	return Loop(0, func(i int) kont.Eff[kont.Either[int, struct{}]] {
		if i == len(ds) {
			return kont.Pure(kont.Right[int, struct{}](struct{}{}))
		}
		return EmitDone(ds[i], kont.Left[int, struct{}](i+1))
	})
}

// Loop runs a recursive program.
// step returns Left(next) to continue or Right(result) to finish.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if next, ok := e.GetLeft(); ok {
			return Loop(next, step)
		}
		result, _ := e.GetRight()
		return kont.Pure(result)
	})
}

type program[S, I, D any] struct {
	effect     func(ctx context.Context, intent I) kont.Eff[struct{}]
	transition func(state S, delta D) S
}

// Program builds a Reducer whose effect is an algebraic-effect program.
// The program emits deltas with Perform(Emit[D]{...}) or the fused
// helpers; it is built afresh for each intent.
func Program[S, I, D any](
	effect func(ctx context.Context, intent I) kont.Eff[struct{}],
	transition func(state S, delta D) S,
) Reducer[S, I, D] {
	if effect == nil || transition == nil {
		panic("compose: incomplete program")
	}
	return program[S, I, D]{effect: effect, transition: transition}
}

func (r program[S, I, D]) Effect(ctx context.Context, intent I, emit Emitter[D]) {
	if _, err := RunProgram[D](emit, r.effect(ctx, intent)); err != nil {
		loggerFrom(ctx).Debug("program stopped", slog.Any("error", err))
	}
}

func (r program[S, I, D]) Transition(state S, delta D) S {
	return r.transition(state, delta)
}
