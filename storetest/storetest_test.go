// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storetest_test

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"testing"

	"code.hybscloud.com/compose"
	"code.hybscloud.com/compose/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ Count int }

type step int

func counterStore() *compose.Store[counter, step, step] {
	return compose.New(counter{}, compose.Pure(func(s counter, d step) counter {
		s.Count += int(d)
		return s
	}))
}

// fakeT records failures instead of failing the enclosing test.
type fakeT struct{ errors []string }

func (f *fakeT) Errorf(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func TestSendMatching(t *testing.T) {
	skipRace(t)

	ts := storetest.New(counterStore())
	ts.Send(t.Context(), 1, func(s *counter) { s.Count = 1 })
	ts.Send(t.Context(), -1, func(s *counter) { s.Count = 0 })
	ts.Send(t.Context(), 5, nil)

	assert.False(t, ts.IsFailure())
	assert.Empty(t, ts.FailureMessage())
	assert.Equal(t, counter{Count: 5}, ts.Store().Snapshot())
	storetest.AssertStore(t, ts)
}

func TestSendMismatch(t *testing.T) {
	skipRace(t)

	ts := storetest.New(counterStore())
	ts.Send(t.Context(), 1, func(s *counter) { s.Count = 0 })
	ts.Send(t.Context(), 1, func(s *counter) { s.Count = 7 })

	require.True(t, ts.IsFailure())
	reports := ts.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, step(1), reports[0].Intent)
	assert.Equal(t, counter{Count: 0}, reports[0].Expected)
	assert.Equal(t, counter{Count: 1}, reports[0].Actual)
	assert.Contains(t, reports[0].Message, "--- Expected")
	assert.Contains(t, reports[0].Message, "Count: (int) 1")

	msg := ts.FailureMessage()
	assert.Equal(t, reports[0].Message+", "+reports[1].Message, msg)

	var ft fakeT
	assert.False(t, storetest.AssertStore(&ft, ts))
	assert.Len(t, ft.errors, 2)
}

func TestSendDispatchFailure(t *testing.T) {
	skipRace(t)

	s := counterStore()
	_ = s.Close()
	ts := storetest.New(s)
	ts.Send(context.Background(), 1, nil)

	require.True(t, ts.IsFailure())
	assert.True(t, strings.Contains(ts.FailureMessage(), compose.ErrStoreClosed.Error()))
}

type tally struct{ Seen map[string]int }

func TestWithClone(t *testing.T) {
	skipRace(t)

	s := compose.New(tally{Seen: map[string]int{}}, compose.Pure(func(s tally, d string) tally {
		next := maps.Clone(s.Seen)
		next[d]++
		return tally{Seen: next}
	}))
	ts := storetest.New(s, storetest.WithClone(func(v tally) tally {
		return tally{Seen: maps.Clone(v.Seen)}
	}))

	ts.Send(t.Context(), "a", func(s *tally) { s.Seen["a"] = 1 })
	ts.Send(t.Context(), "a", func(s *tally) { s.Seen["a"] = 2 })
	assert.False(t, ts.IsFailure(), ts.FailureMessage())

	// Without a clone the expectation would write into the live snapshot.
	assert.Equal(t, 2, s.Snapshot().Seen["a"])
}

func TestWithEqual(t *testing.T) {
	skipRace(t)

	ts := storetest.New(counterStore(), storetest.WithEqual(func(a, b counter) bool {
		return a.Count%2 == b.Count%2
	}))
	ts.Send(t.Context(), 2, func(s *counter) { s.Count = 4 })
	assert.False(t, ts.IsFailure())
}
