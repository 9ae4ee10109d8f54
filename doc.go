// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package compose provides a unidirectional state container driven by
// composable reducers.
//
// A [Store] owns one snapshot of application state. Callers [Store.Dispatch]
// intents; a [Reducer] turns each intent into zero or more deltas in its
// effect phase and folds each delta into the snapshot in its transition
// phase. Observers read the latest snapshot or iterate [Store.Snapshots].
//
// # Architecture
//
//   - Transport: each dispatch opens a [Channel], a bounded lock-free SPSC ring via [code.hybscloud.com/lfq] fronted by a producer lock, so any number of goroutines emit as one ordered producer.
//   - Backpressure: a full ring makes [Channel.Emit] wait with [code.hybscloud.com/iox.Backoff]; [Channel.TryEmit] returns [code.hybscloud.com/iox.ErrWouldBlock] instead.
//   - Exclusivity: every delta is applied by one read-transition-write step under the store lock, and published under the same lock. See [Policy] for how concurrent dispatches interact.
//   - Tasks: effects start cancellable background work with [Go]; the store's [Registry] cancels it by key.
//
// # Composition
//
//   - Leaves: [Reduce], [Pure], [Expand], [Program], [ProgramExpr].
//   - Operators: [Empty], [Direct], [Sequence], [Merge], [Pullback], [Conditional].
//   - Effects as programs: [Emit] is a [code.hybscloud.com/kont] operation; [EmitThen], [EmitAll], [Loop] build Cont-world programs and [ExprEmitThen], [ExprEmitAll] build Expr-world ones. [StepProgram] and [AdvanceProgram] evaluate one emission at a time.
//
// # Integration
//
//   - Configuration: functional options, or a YAML [Config] applied with [WithConfig].
//   - Observability: log/slog records, Prometheus collectors registered with [WithRegisterer], one OpenTelemetry span per dispatch.
//   - Adapters: subpackages binding, stream and storetest.
//
// # Example
//
//	type counter struct{ n int }
//
//	r := compose.Reduce(
//		func(ctx context.Context, by int, emit compose.Emitter[int]) {
//			_ = emit.Emit(by)
//		},
//		func(s counter, d int) counter { return counter{s.n + d} },
//	)
//	s := compose.New(counter{}, r)
//	_ = s.Dispatch(ctx, 5)
//	fmt.Println(s.Snapshot().n) // 5
package compose
