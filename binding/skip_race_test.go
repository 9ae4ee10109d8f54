// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package binding_test

import "testing"

// skipRace skips tests that drive a store. Its delta channels are lfq SPSC
// rings, whose cross-variable memory ordering the race detector cannot see.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: SPSC uses cross-variable memory ordering")
}
