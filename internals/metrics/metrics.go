// Package metrics exposes the gateway's Prometheus collectors. Served via
// promhttp from the application wiring.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"
)

// Cycles counts completed synchronization cycles.
var Cycles = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "iotmon_sync_cycles_total",
		Help: "The total number of completed sensor synchronization cycles",
	},
)

// CycleDuration tracks how long one full cycle takes. Buckets sized
// around the 2 s default interval so overruns stand out.
var CycleDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "iotmon_sync_cycle_duration_seconds",
		Help:    "Duration of one sample-classify-publish cycle",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	},
)

// Samples counts sampling attempts by channel and outcome.
var Samples = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "iotmon_samples_total",
		Help: "The total number of sampling attempts",
	},
	[]string{"channel", "outcome"},
)

// SkippedSamples counts cycles where a channel was skipped to honor its
// minimum inter-read spacing.
var SkippedSamples = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "iotmon_samples_skipped_total",
		Help: "Sampling attempts skipped to honor per-channel minimum spacing",
	},
	[]string{"channel"},
)

// ChannelStatus mirrors each channel's published status code (0=OK,
// 1=read error, 2=sensor error, 3=out of range).
var ChannelStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "iotmon_channel_status",
		Help: "Current status code per sensor channel",
	},
	[]string{"channel"},
)

// TempHistogram is the distribution of temperature readings (°C).
var TempHistogram = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "iotmon_temperature_celsius",
		Help:    "Distribution of DHT11 temperature readings",
		Buckets: []float64{0, 10, 20, 25, 30, 40, 50},
	},
)

// HumidityHistogram is the distribution of humidity readings (%RH).
var HumidityHistogram = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "iotmon_humidity_percent",
		Help:    "Distribution of DHT11 humidity readings",
		Buckets: []float64{20, 30, 40, 50, 60, 70, 80, 90},
	},
)

// VoltageHistogram is the distribution of bus voltage readings (V).
var VoltageHistogram = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "iotmon_bus_voltage_volts",
		Help:    "Distribution of INA219 bus voltage readings",
		Buckets: []float64{0, 3.3, 5, 9, 12, 15, 20, 26},
	},
)

// CurrentHistogram is the distribution of shunt current readings (A).
var CurrentHistogram = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "iotmon_shunt_current_amps",
		Help:    "Distribution of INA219 shunt current readings",
		Buckets: []float64{-3.2, -1, -0.1, 0, 0.1, 0.5, 1, 2, 3.2},
	},
)

// DistanceHistogram is the distribution of distance readings (cm).
var DistanceHistogram = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "iotmon_distance_centimeters",
		Help:    "Distribution of HC-SR04 distance readings",
		Buckets: []float64{2, 10, 50, 100, 200, 300, 400},
	},
)

// ObserveCycle records one completed cycle.
func ObserveCycle(d time.Duration) {
	Cycles.Inc()
	CycleDuration.Observe(d.Seconds())
}

// ObserveSample records one sampling attempt's outcome and the status
// code it published.
func ObserveSample(channel string, outcome reading.Outcome, status reading.StatusCode) {
	Samples.WithLabelValues(channel, outcome.String()).Inc()
	ChannelStatus.WithLabelValues(channel).Set(float64(status))
}

// SampleSkipped records a cycle where the channel's minimum spacing was
// not yet elapsed.
func SampleSkipped(channel string) {
	SkippedSamples.WithLabelValues(channel).Inc()
}

// ObserveReading feeds a successful sample's values into the per-channel
// distributions.
func ObserveReading(r reading.Reading) {
	switch r.Channel {
	case reading.ChannelThermal:
		TempHistogram.Observe(r.Primary)
		HumidityHistogram.Observe(r.Secondary)
	case reading.ChannelPower:
		VoltageHistogram.Observe(r.Primary)
		CurrentHistogram.Observe(r.Secondary)
	case reading.ChannelRanging:
		DistanceHistogram.Observe(r.Primary)
	}
}
