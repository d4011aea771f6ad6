// Package telemetry publishes per-cycle snapshots of the address space to
// NATS JetStream for downstream dashboards and historians. It is a best
// effort side channel: the sync engine's cadence never waits on it, and a
// full buffer drops snapshots instead of blocking.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// ChannelSnapshot is one sensor channel's published state for one cycle.
// Values holds the node values written that cycle; on a failure cycle it
// is empty and only Status is meaningful.
type ChannelSnapshot struct {
	Channel string             `json:"channel"`
	Status  int32              `json:"status"`
	Values  map[string]float64 `json:"values"`
}

// CycleSnapshot is the engine's view of one completed cycle.
type CycleSnapshot struct {
	InstanceID    string            `json:"instance_id"`
	Timestamp     int64             `json:"timestamp"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Channels      []ChannelSnapshot `json:"channels"`
}

// message is the per-channel payload published to NATS.
type message struct {
	InstanceID    string             `json:"instance_id"`
	Timestamp     int64              `json:"timestamp"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Channel       string             `json:"channel"`
	Status        int32              `json:"status"`
	Values        map[string]float64 `json:"values"`
}

// Publisher is the transport the pipeline publishes through.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
}

const inputBuffer = 256

// Pipeline fans cycle snapshots from the engine to NATS on its own
// goroutine.
type Pipeline struct {
	input  chan CycleSnapshot
	pub    Publisher
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewPipeline creates a pipeline publishing through pub.
func NewPipeline(pub Publisher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		input:  make(chan CycleSnapshot, inputBuffer),
		pub:    pub,
		logger: logger.With("component", "telemetry"),
	}
}

// Start launches the worker. It drains until ctx is canceled.
func (p *Pipeline) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.workerLoop(ctx)
	}()
}

// Submit queues a snapshot without blocking. Snapshots are dropped when
// the downstream cannot keep up.
func (p *Pipeline) Submit(snap CycleSnapshot) {
	select {
	case p.input <- snap:
	default:
		p.logger.Warn("telemetry buffer full, dropping snapshot",
			"timestamp", snap.Timestamp)
	}
}

// Wait blocks until the worker has exited after ctx cancellation.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-p.input:
			p.publish(ctx, snap)
		}
	}
}

// publish sends one message per channel, subject sensors.<channel>.
func (p *Pipeline) publish(ctx context.Context, snap CycleSnapshot) {
	for _, ch := range snap.Channels {
		msg := message{
			InstanceID:    snap.InstanceID,
			Timestamp:     snap.Timestamp,
			UptimeSeconds: snap.UptimeSeconds,
			Channel:       ch.Channel,
			Status:        ch.Status,
			Values:        ch.Values,
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			p.logger.Error("marshal snapshot failed", "error", err)
			continue
		}

		subject := fmt.Sprintf("sensors.%s", ch.Channel)
		if err := p.pub.Publish(ctx, subject, payload); err != nil {
			p.logger.Warn("publish failed", "subject", subject, "error", err)
		}
	}
}
