// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "github.com/prometheus/client_golang/prometheus"

// Reasons a relay drops a frame, used as the "reason" label.
const (
	dropOutboxFull  = "outbox_full"
	dropRateLimited = "rate_limited"
	dropMalformed   = "malformed"
)

// Metrics are the relay's Prometheus collectors.
type Metrics struct {
	Participants prometheus.Gauge
	Rooms        prometheus.Gauge

	// FramesReceived counts inbound frames by type.
	FramesReceived *prometheus.CounterVec

	// FramesDropped counts frames discarded by reason.
	FramesDropped *prometheus.CounterVec
}

// NewMetrics creates the relay collectors and registers them on
// registerer. Tests pass a fresh prometheus.NewRegistry so that
// several servers can coexist in one process.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		Participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livecanvas",
			Subsystem: "relay",
			Name:      "participants",
			Help:      "Connected participants across all rooms.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livecanvas",
			Subsystem: "relay",
			Name:      "rooms",
			Help:      "Rooms with at least one participant.",
		}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livecanvas",
			Subsystem: "relay",
			Name:      "frames_received_total",
			Help:      "Frames read from participants, by frame type.",
		}, []string{"type"}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livecanvas",
			Subsystem: "relay",
			Name:      "frames_dropped_total",
			Help:      "Frames discarded instead of delivered, by reason.",
		}, []string{"reason"}),
	}
	registerer.MustRegister(
		metrics.Participants,
		metrics.Rooms,
		metrics.FramesReceived,
		metrics.FramesDropped,
	)
	return metrics
}
