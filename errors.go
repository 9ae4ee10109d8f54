// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import "errors"

var (
	// ErrChannelClosed is returned by Channel.Emit after Close.
	// Emitting after the owning dispatch has closed its channel is a usage
	// error: work that outlives the effect phase must dispatch a new intent.
	ErrChannelClosed = errors.New("compose: emit on closed channel")

	// ErrStoreClosed is returned by Store.Dispatch after Store.Close.
	ErrStoreClosed = errors.New("compose: dispatch on closed store")

	// ErrNoRegistry is returned by Go when ctx carries no task registry.
	// The task still runs, untracked.
	ErrNoRegistry = errors.New("compose: no task registry in context")
)
