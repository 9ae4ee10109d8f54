// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package storetest checks a store's snapshots against expectations.
//
// A TestStore records a Report for every expectation that does not hold
// and never aborts the test by itself; AssertStore hands the reports to the
// test runner:
//
//	ts := storetest.New(compose.New(counter{}, r))
//	ts.Send(ctx, increment(1), func(s *counter) { s.n = 1 })
//	ts.Send(ctx, decrement(1), func(s *counter) { s.n = 0 })
//	storetest.AssertStore(t, ts)
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"code.hybscloud.com/compose"
	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
)

// Report is one failed expectation.
type Report struct {
	Intent   any
	Expected any
	Actual   any
	Message  string
}

type settings[S any] struct {
	equal func(a, b S) bool
	clone func(S) S
}

// Option configures a TestStore.
type Option[S any] func(*settings[S])

// WithEqual replaces the default deep equality.
func WithEqual[S any](equal func(a, b S) bool) Option[S] {
	return func(s *settings[S]) { s.equal = equal }
}

// WithClone sets the copy made of the snapshot before an expectation
// mutates it. It is needed when S shares memory through maps, slices or
// pointers.
func WithClone[S any](clone func(S) S) Option[S] {
	return func(s *settings[S]) { s.clone = clone }
}

// TestStore drives a Store and records failed expectations.
type TestStore[S, I, D any] struct {
	store *compose.Store[S, I, D]
	cfg   settings[S]

	mu      sync.Mutex
	reports []Report
}

// New wraps s.
func New[S, I, D any](s *compose.Store[S, I, D], opts ...Option[S]) *TestStore[S, I, D] {
	ts := &TestStore[S, I, D]{store: s}
	for _, opt := range opts {
		opt(&ts.cfg)
	}
	if ts.cfg.equal == nil {
		ts.cfg.equal = func(a, b S) bool { return assert.ObjectsAreEqual(a, b) }
	}
	if ts.cfg.clone == nil {
		ts.cfg.clone = func(v S) S { return v }
	}
	return ts
}

// Store returns the wrapped store.
func (ts *TestStore[S, I, D]) Store() *compose.Store[S, I, D] {
	return ts.store
}

// Send dispatches intent and, when expect is non-nil, checks the resulting
// snapshot against a copy of the previous one mutated by expect.
// A failed dispatch is reported whether or not expect is nil.
func (ts *TestStore[S, I, D]) Send(ctx context.Context, intent I, expect func(*S)) {
	expected := ts.cfg.clone(ts.store.Snapshot())
	if err := ts.store.Dispatch(ctx, intent); err != nil {
		ts.report(Report{
			Intent:  intent,
			Message: fmt.Sprintf("dispatch of %v failed: %v", intent, err),
		})
		return
	}
	if expect == nil {
		return
	}
	expect(&expected)
	actual := ts.store.Snapshot()
	if !ts.cfg.equal(expected, actual) {
		ts.report(Report{
			Intent:   intent,
			Expected: expected,
			Actual:   actual,
			Message:  mismatch(intent, expected, actual),
		})
	}
}

func (ts *TestStore[S, I, D]) report(r Report) {
	ts.mu.Lock()
	ts.reports = append(ts.reports, r)
	ts.mu.Unlock()
}

// IsFailure reports whether any expectation failed.
func (ts *TestStore[S, I, D]) IsFailure() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.reports) > 0
}

// Reports returns the failed expectations in the order they were recorded.
func (ts *TestStore[S, I, D]) Reports() []Report {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]Report(nil), ts.reports...)
}

// FailureMessage joins the report messages with ", ".
func (ts *TestStore[S, I, D]) FailureMessage() string {
	reports := ts.Reports()
	msgs := make([]string, len(reports))
	for i, r := range reports {
		msgs[i] = r.Message
	}
	return strings.Join(msgs, ", ")
}

// AssertStore fails t once per report and returns whether there were none.
func AssertStore[S, I, D any](t assert.TestingT, ts *TestStore[S, I, D]) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	reports := ts.Reports()
	for _, r := range reports {
		assert.Fail(t, "store expectation failed", r.Message)
	}
	return len(reports) == 0
}

var dumper = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func mismatch(intent, expected, actual any) string {
	e := dumper.Sdump(expected)
	a := dumper.Sdump(actual)
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(e),
		B:        difflib.SplitLines(a),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	return fmt.Sprintf("snapshot after %v differs from expectation\n\nexpected: %s\nactual:   %s\ndiff:\n%s", intent, e, a, diff)
}
