// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package compose

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds per-store collectors. They are always updated and only
// exported when a Registerer is supplied, so several stores in one process
// never collide on the default registry.
type metrics struct {
	dispatches prometheus.Counter
	inFlight   prometheus.Gauge
	deltas     prometheus.Counter
	published  prometheus.Counter
	duration   prometheus.Histogram
	tasks      prometheus.GaugeFunc
}

func newMetrics(name, id string, tasks func() float64) *metrics {
	labels := prometheus.Labels{"store": name, "store_id": id}
	return &metrics{
		dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "compose",
			Subsystem:   "store",
			Name:        "dispatches_total",
			Help:        "Dispatch calls that ran to completion.",
			ConstLabels: labels,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "compose",
			Subsystem:   "store",
			Name:        "dispatches_in_flight",
			Help:        "Dispatch calls whose apply-loop has not yet drained.",
			ConstLabels: labels,
		}),
		deltas: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "compose",
			Subsystem:   "store",
			Name:        "deltas_applied_total",
			Help:        "Deltas applied to the snapshot.",
			ConstLabels: labels,
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "compose",
			Subsystem:   "store",
			Name:        "snapshots_published_total",
			Help:        "Snapshots published to subscribers.",
			ConstLabels: labels,
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "compose",
			Subsystem:   "store",
			Name:        "dispatch_duration_seconds",
			Help:        "Dispatch latency from effect start to apply-loop drain.",
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
			ConstLabels: labels,
		}),
		tasks: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "compose",
			Subsystem:   "store",
			Name:        "tasks_registered",
			Help:        "Background tasks currently registered with the store.",
			ConstLabels: labels,
		}, tasks),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.dispatches, m.inFlight, m.deltas, m.published, m.duration, m.tasks}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
