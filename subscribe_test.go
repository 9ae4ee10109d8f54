// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose_test

import (
	"context"
	"iter"
	"testing"

	"code.hybscloud.com/compose"
)

func TestSnapshotsCurrentThenUpdates(t *testing.T) {
	skipRace(t)

	s := compose.New(10, counterReducer())
	next, stop := iter.Pull(s.Snapshots(t.Context()))
	defer stop()

	if v, ok := next(); !ok || v != 10 {
		t.Fatalf("first snapshot: got (%d, %v), want (10, true)", v, ok)
	}
	for _, intent := range []counterIntent{increment(1), increment(2), decrement(5)} {
		if err := s.Dispatch(t.Context(), intent); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range []int{11, 13, 8} {
		if v, ok := next(); !ok || v != want {
			t.Fatalf("got (%d, %v), want (%d, true)", v, ok, want)
		}
	}
}

func TestSnapshotsNoDeltasPublishesNothing(t *testing.T) {
	skipRace(t)

	r := compose.Reduce(
		func(context.Context, int, compose.Emitter[int]) {},
		func(s, d int) int { return s + d },
	)
	s := compose.New(7, r)
	next, stop := iter.Pull(s.Snapshots(t.Context()))
	defer stop()

	if v, _ := next(); v != 7 {
		t.Fatalf("first snapshot: got %d, want 7", v)
	}
	for range 3 {
		if err := s.Dispatch(t.Context(), 1); err != nil {
			t.Fatal(err)
		}
	}
	_ = s.Close()

	if v, ok := next(); ok {
		t.Fatalf("got snapshot %d after no-op dispatches, want end of sequence", v)
	}
	if got := s.Snapshot(); got != 7 {
		t.Fatalf("Snapshot: got %d, want 7", got)
	}
}

func TestSnapshotsEqualSuppressesPublish(t *testing.T) {
	skipRace(t)

	s := compose.New(0, compose.Pure(func(s, d int) int { return s + d }),
		compose.WithEqual(func(a, b int) bool { return a == b }),
	)
	next, stop := iter.Pull(s.Snapshots(t.Context()))
	defer stop()
	next()

	_ = s.Dispatch(t.Context(), 0)
	_ = s.Dispatch(t.Context(), 4)
	if v, _ := next(); v != 4 {
		t.Fatalf("got %d, want 4", v)
	}
}

func TestSnapshotsCloseDeliversBuffered(t *testing.T) {
	skipRace(t)

	s := compose.New(0, counterReducer())
	next, stop := iter.Pull(s.Snapshots(t.Context()))
	defer stop()
	next()

	_ = s.Dispatch(t.Context(), increment(1))
	_ = s.Dispatch(t.Context(), increment(1))
	_ = s.Close()

	for _, want := range []int{1, 2} {
		if v, ok := next(); !ok || v != want {
			t.Fatalf("got (%d, %v), want (%d, true)", v, ok, want)
		}
	}
	if _, ok := next(); ok {
		t.Fatal("sequence continued after Close")
	}
}

func TestSnapshotsAfterClose(t *testing.T) {
	s := compose.New(3, counterReducer())
	_ = s.Close()

	var got []int
	for v := range s.Snapshots(t.Context()) {
		got = append(got, v)
	}
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("got %v, want [3]", got)
	}
}

func TestSnapshotsContextDone(t *testing.T) {
	skipRace(t)

	s := compose.New(0, counterReducer())
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan int, 1)
	go func() {
		n := 0
		for range s.Snapshots(ctx) {
			n++
		}
		done <- n
	}()
	cancel()

	if n := recv(t, done); n > 1 {
		t.Fatalf("got %d snapshots, want at most 1", n)
	}
}

func TestSnapshotsBreakUnsubscribes(t *testing.T) {
	skipRace(t)

	s := compose.New(0, counterReducer())
	for v := range s.Snapshots(t.Context()) {
		if v != 0 {
			t.Fatalf("got %d, want 0", v)
		}
		break
	}
	// A dispatch with no live subscriber must not block.
	if err := s.Dispatch(t.Context(), increment(1)); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshotsSlowSubscriberDoesNotBlock(t *testing.T) {
	skipRace(t)

	s := compose.New(0, counterReducer())
	next, stop := iter.Pull(s.Snapshots(t.Context()))
	defer stop()
	next()

	for range 1000 {
		if err := s.Dispatch(t.Context(), increment(1)); err != nil {
			t.Fatal(err)
		}
	}
	for want := 1; want <= 1000; want++ {
		if v, _ := next(); v != want {
			t.Fatalf("got %d, want %d", v, want)
		}
	}
}
