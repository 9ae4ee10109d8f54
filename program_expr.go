// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"context"
	"log/slog"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

var exprReturnFrame kont.Frame = kont.ReturnFrame{}

func identityResume(v kont.Erased) kont.Erased { return v }

// ExprEmitThen emits d and then continues with next.
// Fuses ExprPerform(Emit[D]{Delta: d}) + ExprThen.
func ExprEmitThen[D, B any](d D, next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = Emit[D]{Delta: d}
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

// ExprEmitAll emits ds in order.
func ExprEmitAll[D any](ds []D) kont.Expr[struct{}] {
	next := kont.ExprReturn(struct{}{})
	for i := len(ds) - 1; i >= 0; i-- {
		next = ExprEmitThen(ds[i], next)
	}
	return next
}

// RunProgramExpr runs an Expr-world program, handing every Emit to emit.
func RunProgramExpr[D, R any](emit Emitter[D], program kont.Expr[R]) (R, error) {
	wrapped := kont.ExprMap(program, func(r R) kont.Either[error, R] {
		return kont.Right[error, R](r)
	})
	ctx := programContext[D]{emit: emit}
	return fromEither(kont.HandleExpr(wrapped, programHandler[D, R]{ctx: &ctx}))
}

// StepProgram evaluates program until its first Emit.
// Returns (result, nil) on completion, or (zero, suspension) if pending.
func StepProgram[R any](program kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(program)
}

// AdvanceProgram performs the suspended Emit on emit.
//
// When emit has a TryEmit method (as *Channel does) the emission is
// non-blocking: on iox.ErrWouldBlock the suspension is returned unconsumed
// and may be retried. Any other error is returned with the suspension
// still pending; the caller discards it.
func AdvanceProgram[D, R any](emit Emitter[D], susp *kont.Suspension[R]) (R, *kont.Suspension[R], error) {
	op, ok := susp.Op().(Emit[D])
	if !ok {
		panic("compose: unhandled effect in AdvanceProgram")
	}
	var err error
	if te, ok := emit.(interface{ TryEmit(D) error }); ok {
		err = te.TryEmit(op.Delta)
	} else {
		err = emit.Emit(op.Delta)
	}
	if err != nil {
		var zero R
		return zero, susp, err
	}
	result, next := susp.Resume(struct{}{})
	return result, next, nil
}

// runProgramContext steps program to completion, backing off while the
// emitter is full and abandoning the program once ctx is done.
func runProgramContext[D, R any](ctx context.Context, emit Emitter[D], program kont.Expr[R]) (R, error) {
	result, susp := StepProgram(program)
	emitted := 0
	var bo iox.Backoff
	for susp != nil {
		var err error
		result, susp, err = AdvanceProgram(emit, susp)
		switch {
		case err == nil:
			emitted++
			bo.Reset()
		case iox.IsWouldBlock(err):
			if cerr := ctx.Err(); cerr != nil {
				susp.Discard()
				var zero R
				return zero, &ProgramError{Emitted: emitted, Err: cerr}
			}
			bo.Wait()
		default:
			susp.Discard()
			var zero R
			return zero, &ProgramError{Emitted: emitted, Err: err}
		}
	}
	return result, nil
}

type programExpr[S, I, D any] struct {
	effect     func(ctx context.Context, intent I) kont.Expr[struct{}]
	transition func(state S, delta D) S
}

// ProgramExpr is Program for Expr-world programs.
// Cont-world programs convert with kont.Reify.
//
// Unlike Program, a ProgramExpr effect observes ctx between emissions: once
// ctx is done, an emission waiting on a full channel is abandoned and the
// rest of the program is discarded.
func ProgramExpr[S, I, D any](
	effect func(ctx context.Context, intent I) kont.Expr[struct{}],
	transition func(state S, delta D) S,
) Reducer[S, I, D] {
	if effect == nil || transition == nil {
		panic("compose: incomplete program")
	}
	return programExpr[S, I, D]{effect: effect, transition: transition}
}

func (r programExpr[S, I, D]) Effect(ctx context.Context, intent I, emit Emitter[D]) {
	if _, err := runProgramContext[D](ctx, emit, r.effect(ctx, intent)); err != nil {
		loggerFrom(ctx).Debug("program stopped", slog.Any("error", err))
	}
}

func (r programExpr[S, I, D]) Transition(state S, delta D) S {
	return r.transition(state, delta)
}
