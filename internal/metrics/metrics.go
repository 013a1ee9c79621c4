// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package metrics exposes Prometheus gauges and counters for the sACN
// transmit loop, the engine pool, the layered scheduler, and module health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EnginePoolSize is the number of live show engines.
	EnginePoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dmxgw_engine_pool_size",
			Help: "Number of active show engine instances",
		},
	)

	// PulseTimerCount is the number of currently-armed sensor pulse timers.
	PulseTimerCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dmxgw_pulse_timers",
			Help: "Number of currently-armed sensor pulse timers",
		},
	)

	// SchedulerDegraded is 1 when the most recent scheduler tick had to
	// fall back a layer to all-zeros.
	SchedulerDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dmxgw_scheduler_degraded",
			Help: "1 if the scheduler's last tick degraded any layer, else 0",
		},
	)

	// SACNFramesTotal counts sACN packets transmitted, per universe.
	SACNFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmxgw_sacn_frames_total",
			Help: "Total sACN E1.31 packets transmitted",
		},
		[]string{"universe"},
	)

	// SACNSendErrorsTotal counts UDP send errors, per universe.
	SACNSendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmxgw_sacn_send_errors_total",
			Help: "Total sACN UDP send errors",
		},
		[]string{"universe"},
	)

	// SensorPacketsTotal counts validated UDP sensor packets ingested.
	SensorPacketsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dmxgw_sensor_packets_total",
			Help: "Total validated sensor UDP packets ingested",
		},
	)

	// SensorPacketsRejectedTotal counts malformed UDP sensor packets.
	SensorPacketsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dmxgw_sensor_packets_rejected_total",
			Help: "Total malformed sensor UDP packets rejected",
		},
	)

	// ModuleStatus reports each module's current health as a gauge: 1 for
	// operational, 0 otherwise.
	ModuleStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dmxgw_module_operational",
			Help: "1 if the named module last reported operational, else 0",
		},
		[]string{"module"},
	)

	// WhiteBackupArmed is 1 when the supervisor has armed the sACN
	// white-backup failsafe.
	WhiteBackupArmed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dmxgw_white_backup_armed",
			Help: "1 if the white-backup failsafe is currently armed",
		},
	)
)
