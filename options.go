// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Policy selects how concurrent Dispatch calls on one Store interact.
type Policy uint8

const (
	// PolicyConcurrent lets effect phases of different dispatches run
	// concurrently. Every delta application, from any dispatch, passes
	// through one store-wide lock, so each dispatch's deltas are applied in
	// emission order and no update is lost; the interleaving across
	// dispatches is unspecified.
	PolicyConcurrent Policy = iota
	// PolicySerial runs whole dispatches one at a time: the next effect
	// phase starts only after the previous dispatch has drained.
	PolicySerial
)

func (p Policy) String() string {
	switch p {
	case PolicyConcurrent:
		return "concurrent"
	case PolicySerial:
		return "serial"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// ParsePolicy parses the names returned by Policy.String.
// The empty string selects PolicyConcurrent.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "concurrent":
		return PolicyConcurrent, nil
	case "serial":
		return PolicySerial, nil
	}
	return 0, fmt.Errorf("compose: unknown policy %q", s)
}

// Option configures a Store.
type Option func(*options)

type options struct {
	name       string
	logger     *slog.Logger
	policy     Policy
	capacity   int
	equal      any
	registerer prometheus.Registerer
	tracer     trace.Tracer
}

func defaultOptions() options {
	return options{
		name:     "store",
		policy:   PolicyConcurrent,
		capacity: DefaultChannelCapacity,
	}
}

// WithName sets the name used in log records and metric labels.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the store logger. Nil selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPolicy sets the dispatch concurrency policy.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithChannelCapacity sets the ring capacity of each per-dispatch channel.
func WithChannelCapacity(n int) Option {
	return func(o *options) {
		o.capacity = ringCapacity(n)
	}
}

// WithEqual sets the snapshot equality used to suppress publishing a
// transition whose result equals the previous snapshot. The snapshot is
// still stored. The function's type must match the store's snapshot type.
func WithEqual[S any](equal func(a, b S) bool) Option {
	return func(o *options) {
		o.equal = equal
	}
}

// WithRegisterer registers the store's Prometheus collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracer sets the tracer used for dispatch spans.
// The default is the global OpenTelemetry tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithConfig applies a loaded Config. An invalid Config makes New panic.
func WithConfig(c Config) Option {
	return func(o *options) {
		if err := c.Validate(); err != nil {
			panic(err.Error())
		}
		p, _ := ParsePolicy(c.Policy)
		o.policy = p
		if c.ChannelCapacity != 0 {
			o.capacity = ringCapacity(c.ChannelCapacity)
		}
		if c.Name != "" {
			o.name = c.Name
		}
	}
}

// envKey carries per-dispatch settings to nested channels (Pullback).
type envKey struct{}

type env struct {
	capacity int
	logger   *slog.Logger
}

func withEnv(ctx context.Context, e env) context.Context {
	return context.WithValue(ctx, envKey{}, e)
}

func channelCapacityFrom(ctx context.Context) int {
	if e, ok := ctx.Value(envKey{}).(env); ok {
		return e.capacity
	}
	return DefaultChannelCapacity
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if e, ok := ctx.Value(envKey{}).(env); ok && e.logger != nil {
		return e.logger
	}
	return slog.Default()
}
