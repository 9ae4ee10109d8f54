// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose_test

import (
	"context"
	"testing"
	"time"

	"code.hybscloud.com/compose"
)

// counterIntent is the intent set of the counter fixture.
type counterIntent interface{ counterIntent() }

type increment int
type decrement int

func (increment) counterIntent() {}
func (decrement) counterIntent() {}

// increase is the counter delta.
type increase int

func counterReducer() compose.Reducer[int, counterIntent, increase] {
	return compose.Reduce(
		func(_ context.Context, intent counterIntent, emit compose.Emitter[increase]) {
			switch v := intent.(type) {
			case increment:
				_ = emit.Emit(increase(v))
			case decrement:
				_ = emit.Emit(increase(-v))
			}
		},
		func(s int, d increase) int { return s + int(d) },
	)
}

// toggle flips the toggle fixture.
type toggle struct{}

type flipped struct{}

func toggleReducer() compose.Reducer[bool, toggle, flipped] {
	return compose.Reduce(
		func(_ context.Context, _ toggle, emit compose.Emitter[flipped]) {
			_ = emit.Emit(flipped{})
		},
		func(s bool, _ flipped) bool { return !s },
	)
}

// appState is the parent snapshot of the pullback fixture.
type appState struct {
	Counter int
	Toggle  bool
}

func appReducer() compose.Reducer[appState, any, any] {
	counter := compose.Pullback(
		counterReducer(),
		compose.Lens[appState, int]{
			Get: func(s appState) int { return s.Counter },
			Set: func(s appState, n int) appState { s.Counter = n; return s },
		},
		compose.Match[counterIntent, any],
		func(d increase) any { return d },
		compose.Match[increase, any],
	)
	tog := compose.Pullback(
		toggleReducer(),
		compose.Lens[appState, bool]{
			Get: func(s appState) bool { return s.Toggle },
			Set: func(s appState, b bool) appState { s.Toggle = b; return s },
		},
		compose.Match[toggle, any],
		func(d flipped) any { return d },
		compose.Match[flipped, any],
	)
	return compose.Sequence(counter, tog)
}

// collect drains ch on a new goroutine and returns the deltas once ch is
// closed.
func collect[D any](ch *compose.Channel[D]) <-chan []D {
	out := make(chan []D, 1)
	go func() {
		var got []D
		for {
			d, ok := ch.Next()
			if !ok {
				out <- got
				return
			}
			got = append(got, d)
		}
	}()
	return out
}

// recv waits for one value from c or fails the test.
func recv[T any](t *testing.T, c <-chan T) T {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
		panic("unreachable")
	}
}
