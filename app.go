package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/config"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/addrspace"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/engine"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/sensor"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/telemetry"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/publisher"
)

// App holds the running gateway: the address space, the sync engine and
// its goroutine, the metrics endpoint, and the optional NATS telemetry
// path.
type App struct {
	Space     *addrspace.Space
	Engine    *engine.Engine
	Publisher *publisher.NatsPublisher

	pipeline   *telemetry.Pipeline
	metricsSrv *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// Run wires the gateway together and starts the sync engine. Any error
// here is a fatal initialization failure: a gateway that cannot bring up
// its channels must exit nonzero rather than serve an address space full
// of stale sentinels.
func Run(ctx context.Context, conf *config.Config, logger *slog.Logger) (*App, error) {
	instanceID := fmt.Sprintf("gateway-%s", uuid.NewString()[:8])
	logger = logger.With("instance_id", instanceID)

	space := addrspace.BuildSensorHierarchy()

	adapters, err := buildAdapters(conf, logger)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, errors.New("no sensor channels enabled")
	}

	app := &App{
		Space:  space,
		logger: logger,
	}

	runCtx, cancel := context.WithCancel(ctx)
	app.cancel = cancel

	var sink engine.TelemetrySink
	if conf.TelemetryEnabled {
		nc, err := publisher.NATSConnect(ctx, publisher.NATSConnectionOptions{
			TLSEnabled: conf.TLSEnabled,
			ClientCert: conf.ClientCert,
			ClientKey:  conf.ClientKey,
			RootCA:     conf.RootCA,
			URL:        conf.NATSURL,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("connect NATS: %w", err)
		}
		app.Publisher = nc

		app.pipeline = telemetry.NewPipeline(nc, logger)
		app.pipeline.Start(runCtx)
		sink = app.pipeline
	}

	eng, err := engine.New(engine.Options{
		Space:        space,
		Adapters:     adapters,
		Interval:     conf.UpdateInterval,
		ThermalFloor: conf.DHT11.MinInterval,
		InstanceID:   instanceID,
		Telemetry:    sink,
		Logger:       logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Engine = eng

	app.metricsSrv = &http.Server{Addr: conf.MetricsAddr, Handler: promhttp.Handler()}
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		logger.Info("metrics endpoint listening", "addr", conf.MetricsAddr)
		if err := app.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := eng.Run(runCtx); err != nil {
			logger.Error("sync engine exited", "error", err)
		}
	}()

	return app, nil
}

// buildAdapters constructs one adapter per enabled channel. In simulation
// the buses run on hot-reloadable parameters; without simulation there is
// no hardware backend on this build, which is a fatal config error rather
// than something to limp past.
func buildAdapters(conf *config.Config, logger *slog.Logger) ([]sensor.Adapter, error) {
	if !conf.Simulate {
		return nil, errors.New("hardware buses are not available on this build, set simulate: true")
	}

	simConf, err := config.LoadSimulation(logger)
	if err != nil {
		return nil, fmt.Errorf("load simulation config: %w", err)
	}
	params := func() sensor.SimParams {
		c := simConf.Current()
		return sensor.SimParams{
			BaseTemp:        c.BaseTemp,
			BaseHumidity:    c.BaseHumidity,
			TempFluctuation: c.TempFluctuation,
			BaseVoltage:     c.BaseVoltage,
			BaseCurrent:     c.BaseCurrent,
			BaseDistance:    c.BaseDistance,
			DistanceSwing:   c.DistanceSwing,
			BusFailureRate:  c.BusFailureRate,
			DropoutRate:     c.DropoutRate,
		}
	}

	seed := time.Now().UnixNano()
	var adapters []sensor.Adapter

	if conf.DHT11.Enabled {
		bus := sensor.NewSimThermalBus(seed, params)
		adapters = append(adapters, sensor.NewDHT11(bus,
			sensor.Range{Min: conf.DHT11.TempMin, Max: conf.DHT11.TempMax},
			sensor.Range{Min: conf.DHT11.HumidityMin, Max: conf.DHT11.HumidityMax},
			conf.DHT11.MinInterval,
		))
	}
	if conf.INA219.Enabled {
		bus := sensor.NewSimPowerBus(seed+1, params)
		adapters = append(adapters, sensor.NewINA219(bus,
			sensor.Range{Min: conf.INA219.VoltageMin, Max: conf.INA219.VoltageMax},
			sensor.Range{Min: conf.INA219.CurrentMin, Max: conf.INA219.CurrentMax},
		))
	}
	if conf.HCSR04.Enabled {
		bus := sensor.NewSimRangingBus(seed+2, params)
		adapters = append(adapters, sensor.NewHCSR04(bus,
			sensor.Range{Min: conf.HCSR04.DistanceMin, Max: conf.HCSR04.DistanceMax},
		))
	}

	selfTest(adapters, logger)
	return adapters, nil
}

// selfTest takes one reading per channel at startup and logs the result,
// mirroring what a technician would do with a handheld meter before
// trusting the install. Failures are logged, not fatal: the engine's
// status codes carry them from the first cycle on.
func selfTest(adapters []sensor.Adapter, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, a := range adapters {
		if a.Channel() == reading.ChannelThermal {
			// A DHT11 read here would eat the inter-read spacing and turn
			// the first real cycle into a timeout. Leave it to the engine.
			continue
		}
		r, err := a.Sample(ctx)
		switch {
		case err != nil:
			logger.Warn("self-test sample failed", "channel", a.Channel().String(), "error", err)
		case r.Outcome != reading.OutcomeOk:
			logger.Warn("self-test degraded", "channel", a.Channel().String(), "outcome", r.Outcome.String())
		default:
			logger.Info("self-test ok", "channel", a.Channel().String(),
				"primary", r.Primary, "secondary", r.Secondary)
		}
	}
}

// Close stops the engine, flushes telemetry, and shuts the metrics server
// down.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.pipeline != nil {
		a.pipeline.Wait()
	}
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.metricsSrv.Shutdown(ctx)
		cancel()
	}
	a.wg.Wait()
	if a.Publisher != nil {
		a.Publisher.Close()
	}
}
