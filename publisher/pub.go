// Package publisher owns the NATS JetStream connection the telemetry
// pipeline publishes through.
package publisher

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	globalConfig "github.com/Shah-2024/industrial-iot-opcua-monitor/config"
)

type NatsPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	Stream jetstream.Stream
}

type NATSConnectionOptions struct {
	TLSEnabled bool
	ClientCert string
	ClientKey  string
	RootCA     string
	URL        string
}

// NATSConnect dials the broker and ensures the snapshot stream exists.
// Snapshots are fan-out telemetry, so the stream keeps a rolling window
// instead of work-queue semantics: a slow dashboard must never hold
// readings hostage.
func NATSConnect(ctx context.Context, cfg NATSConnectionOptions) (*NatsPublisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	var opts []nats.Option
	if cfg.TLSEnabled {
		tlsConfig, err := globalConfig.SetupTLSConfig(globalConfig.TLSConfig{
			CertFile:      cfg.ClientCert,
			KeyFile:       cfg.ClientKey,
			CAFile:        cfg.RootCA,
			ServerAddress: "127.0.0.1",
		})
		if err != nil {
			return nil, err
		}

		opts = append(opts, nats.Secure(tlsConfig))
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}

	jsConf := jetstream.StreamConfig{
		Name:      "SENSOR_SNAPSHOTS",
		Retention: jetstream.LimitsPolicy,
		Subjects:  []string{"sensors.>"},
		MaxAge:    24 * time.Hour,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stream, err := js.CreateOrUpdateStream(ctx, jsConf)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &NatsPublisher{
		nc:     nc,
		js:     js,
		Stream: stream,
	}, nil
}

func (p *NatsPublisher) Close() {
	p.nc.Drain()
	p.nc.Close()
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	_, err := p.js.Publish(ctx, subject, payload)
	return err
}
