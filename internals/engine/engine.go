// Package engine implements the periodic sample→classify→publish cycle
// that keeps the address space in sync with the physical sensors.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/addrspace"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/metrics"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/sensor"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/telemetry"
)

// timestampLayout is the LastUpdate node format, kept identical to what
// the original SCADA dashboards parse.
const timestampLayout = "2006-01-02 15:04:05"

// ChannelState is the advisory per-channel health state. It gates nothing:
// a Degraded channel still publishes its status code every cycle, so stale
// data is never silently presented as fresh. The state exists for logging
// and telemetry only.
type ChannelState int

const (
	// StateUninitialized means no successful sample has happened yet.
	StateUninitialized ChannelState = iota

	// StateActive means the last cycle's status was OK.
	StateActive

	// StateDegraded means the last cycle's status was a failure code.
	StateDegraded
)

// String returns the state name used in logs.
func (s ChannelState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDegraded:
		return "degraded"
	default:
		return "uninitialized"
	}
}

// TelemetrySink receives one snapshot per completed cycle. Submit must not
// block; the engine's cadence is not allowed to depend on downstream
// consumers.
type TelemetrySink interface {
	Submit(snap telemetry.CycleSnapshot)
}

// Options configures a sync engine.
type Options struct {
	// Space is the address space the engine publishes into.
	Space *addrspace.Space

	// Adapters are the enabled sensor channels, sampled in order.
	Adapters []sensor.Adapter

	// Interval is the cycle cadence.
	Interval time.Duration

	// ThermalFloor is the minimum spacing between thermal-channel
	// samples, enforced independently of Interval. When a cycle comes
	// around too early, the thermal channel is skipped for that cycle
	// and its nodes keep their previous values and status.
	ThermalFloor time.Duration

	// SampleTimeout bounds one adapter's Sample call so a hung bus on
	// one channel cannot delay the others indefinitely.
	SampleTimeout time.Duration

	// InstanceID identifies this gateway process in telemetry and logs.
	InstanceID string

	// Telemetry is optional; nil disables snapshot publication.
	Telemetry TelemetrySink

	// Logger is optional; nil falls back to slog.Default.
	Logger *slog.Logger
}

type channelRun struct {
	adapter    sensor.Adapter
	subtree    string
	floor      time.Duration
	state      ChannelState
	lastSample time.Time
}

// Engine drives the periodic synchronization cycle. It is single-threaded:
// all sampling and publishing happens on the Run goroutine, and all
// concurrency with protocol clients is mediated by the address space's
// per-subtree batches.
type Engine struct {
	space         *addrspace.Space
	channels      []*channelRun
	interval      time.Duration
	sampleTimeout time.Duration
	instanceID    string
	telemetry     TelemetrySink
	logger        *slog.Logger
	start         time.Time
}

// New validates the options and builds an engine.
func New(opts Options) (*Engine, error) {
	if opts.Space == nil {
		return nil, errors.New("engine: address space is required")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("engine: update interval must be positive, got %v", opts.Interval)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sampleTimeout := opts.SampleTimeout
	if sampleTimeout <= 0 {
		sampleTimeout = opts.Interval
	}

	e := &Engine{
		space:         opts.Space,
		interval:      opts.Interval,
		sampleTimeout: sampleTimeout,
		instanceID:    opts.InstanceID,
		telemetry:     opts.Telemetry,
		logger:        logger.With("component", "engine"),
	}
	for _, a := range opts.Adapters {
		ch := &channelRun{
			adapter: a,
			subtree: addrspace.SubtreeFor(a.Channel()),
			state:   StateUninitialized,
		}
		if a.Channel() == reading.ChannelThermal {
			ch.floor = opts.ThermalFloor
		}
		e.channels = append(e.channels, ch)
	}
	return e, nil
}

// Run executes cycles until ctx is canceled. Scheduling is relative to
// each cycle's start time so a slow cycle does not compound delay; a cycle
// that overruns the interval starts the next one immediately instead of
// queueing catch-up cycles. Run returns nil on a clean shutdown.
func (e *Engine) Run(ctx context.Context) error {
	e.start = time.Now()
	e.logger.Info("sync engine started",
		"interval", e.interval,
		"channels", len(e.channels),
		"instance_id", e.instanceID,
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("sync engine stopped")
			return nil
		case <-timer.C:
		}

		cycleStart := time.Now()
		e.runCycle(ctx, cycleStart)
		metrics.ObserveCycle(time.Since(cycleStart))

		wait := time.Until(cycleStart.Add(e.interval))
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

// runCycle samples every due channel, publishes per-subtree batches, and
// updates the system-info subtree unconditionally. Per-channel failures
// are contained: they surface as status codes, never terminate the loop.
// A shutdown request is honored between subtree batches, so an in-flight
// batch always completes and no subtree is left half-written.
func (e *Engine) runCycle(ctx context.Context, cycleStart time.Time) {
	snap := telemetry.CycleSnapshot{
		InstanceID: e.instanceID,
		Timestamp:  cycleStart.UTC().UnixMilli(),
	}

	for _, ch := range e.channels {
		if ctx.Err() != nil {
			return
		}
		name := ch.adapter.Channel().String()

		if ch.floor > 0 && !ch.lastSample.IsZero() && cycleStart.Sub(ch.lastSample) < ch.floor {
			// The part needs more spacing than the configured interval
			// allows; leave values and status untouched this cycle.
			metrics.SampleSkipped(name)
			continue
		}

		r := e.sample(ctx, ch, cycleStart)
		status := reading.Classify(r.Outcome)
		values := publishValues(r, status)

		if err := e.space.ApplyBatch(ch.subtree, values); err != nil {
			// Only possible if the publish map and the hierarchy drift
			// apart, which is a bug, not a sensor condition.
			e.logger.Error("publish failed", "channel", name, "error", err)
			continue
		}

		e.transition(ch, status)
		metrics.ObserveSample(name, r.Outcome, status)
		if r.Outcome == reading.OutcomeOk {
			metrics.ObserveReading(r)
		}

		snap.Channels = append(snap.Channels, channelSnapshot(name, status, values))
	}

	now := time.Now()
	uptime := now.Sub(e.start).Seconds()
	err := e.space.ApplyBatch(addrspace.SubtreeSystem, map[string]any{
		addrspace.NodeLastUpdate:    now.Format(timestampLayout),
		addrspace.NodeUptimeSeconds: uptime,
	})
	if err != nil {
		e.logger.Error("system info publish failed", "error", err)
	}

	snap.UptimeSeconds = uptime
	if e.telemetry != nil {
		e.telemetry.Submit(snap)
	}
	e.logCycle(snap)
}

// sample runs one bounded sampling attempt. A transport-level error is
// folded into a NotInitialized reading so the failure is published like
// any other, instead of propagating upward.
func (e *Engine) sample(ctx context.Context, ch *channelRun, cycleStart time.Time) reading.Reading {
	sctx, cancel := context.WithTimeout(ctx, e.sampleTimeout)
	r, err := ch.adapter.Sample(sctx)
	cancel()
	// Floor spacing is measured between cycle starts, not sample completion
	// times, so a floor equal to the interval never skips a cycle.
	ch.lastSample = cycleStart

	if err != nil {
		e.logger.Warn("sample failed",
			"channel", ch.adapter.Channel().String(),
			"error", err,
		)
		return reading.Reading{
			Channel:   ch.adapter.Channel(),
			Timestamp: time.Now(),
			Outcome:   reading.OutcomeNotInitialized,
		}
	}
	return r
}

// transition advances the advisory channel state machine and logs edges.
// Uninitialized holds until the first successful sample.
func (e *Engine) transition(ch *channelRun, status reading.StatusCode) {
	next := ch.state
	switch {
	case status == reading.StatusOK:
		next = StateActive
	case ch.state != StateUninitialized:
		next = StateDegraded
	}

	if next != ch.state {
		e.logger.Info("channel state changed",
			"channel", ch.adapter.Channel().String(),
			"from", ch.state.String(),
			"to", next.String(),
			"status", int32(status),
		)
		ch.state = next
	}
}

// publishValues builds one subtree's atomic write batch from a sample.
// On any failure outcome only the status node is touched: primary,
// secondary, and derived nodes retain their last-good values, and
// consumers branch on Status to detect staleness.
func publishValues(r reading.Reading, status reading.StatusCode) map[string]any {
	values := map[string]any{
		addrspace.NodeStatus: int32(status),
	}
	if r.Outcome != reading.OutcomeOk {
		return values
	}

	switch r.Channel {
	case reading.ChannelThermal:
		values[addrspace.NodeTemperatureC] = r.Primary
		values[addrspace.NodeTemperatureF] = r.Primary*9.0/5.0 + 32.0
		values[addrspace.NodeHumidity] = r.Secondary
	case reading.ChannelPower:
		values[addrspace.NodeVoltage] = r.Primary
		values[addrspace.NodeCurrent] = r.Secondary
		values[addrspace.NodePower] = r.Primary * r.Secondary
	case reading.ChannelRanging:
		values[addrspace.NodeDistanceCM] = r.Primary
		values[addrspace.NodeDistanceInches] = r.Primary / 2.54
	}
	return values
}

func channelSnapshot(name string, status reading.StatusCode, values map[string]any) telemetry.ChannelSnapshot {
	cs := telemetry.ChannelSnapshot{
		Channel: name,
		Status:  int32(status),
		Values:  make(map[string]float64),
	}
	for node, v := range values {
		if f, ok := v.(float64); ok {
			cs.Values[node] = f
		}
	}
	return cs
}

func (e *Engine) logCycle(snap telemetry.CycleSnapshot) {
	attrs := []any{"uptime_s", snap.UptimeSeconds}
	for _, ch := range snap.Channels {
		attrs = append(attrs, ch.Channel+"_status", ch.Status)
	}
	e.logger.Debug("cycle complete", attrs...)
}
