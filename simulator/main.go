// Command simulator exercises the simulated sensor buses without the
// gateway around them: it samples every channel a fixed number of times
// and prints the readings, the same spot check a technician would do
// against real hardware before commissioning.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/config"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"
	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/sensor"
)

func main() {
	cycles := flag.Int("cycles", 5, "number of sampling rounds")
	interval := flag.Duration("interval", 2*time.Second, "spacing between rounds")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	simConf, err := config.LoadSimulation(logger)
	if err != nil {
		logger.Error("cannot load simulation config", "error", err)
		os.Exit(1)
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
	adapters := []sensor.Adapter{
		sensor.NewDHT11(sensor.NewSimThermalBus(seed, params),
			sensor.DefaultDHT11TemperatureRange,
			sensor.DefaultDHT11HumidityRange,
			sensor.DefaultDHT11MinSpacing,
		),
		sensor.NewINA219(sensor.NewSimPowerBus(seed+1, params),
			sensor.DefaultINA219VoltageRange,
			sensor.DefaultINA219CurrentRange,
		),
		sensor.NewHCSR04(sensor.NewSimRangingBus(seed+2, params),
			sensor.DefaultHCSR04DistanceRange,
		),
	}

	ctx := context.Background()
	for i := 0; i < *cycles; i++ {
		fmt.Printf("--- round %d ---\n", i+1)
		for _, a := range adapters {
			printSample(ctx, a)
		}
		if i < *cycles-1 {
			time.Sleep(*interval)
		}
	}
}

func printSample(ctx context.Context, a sensor.Adapter) {
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	r, err := a.Sample(sctx)
	if err != nil {
		fmt.Printf("%-8s bus error: %v\n", a.Channel(), err)
		return
	}
	if r.Outcome != reading.OutcomeOk {
		fmt.Printf("%-8s %s\n", r.Channel, r.Outcome)
		return
	}

	switch r.Channel {
	case reading.ChannelThermal:
		fmt.Printf("%-8s %.2f °C (%.2f °F)  %.2f %%RH\n",
			r.Channel, r.Primary, r.Primary*9.0/5.0+32.0, r.Secondary)
	case reading.ChannelPower:
		fmt.Printf("%-8s %.2f V  %.3f A  %.3f W\n",
			r.Channel, r.Primary, r.Secondary, r.Primary*r.Secondary)
	case reading.ChannelRanging:
		fmt.Printf("%-8s %.2f cm (%.2f in)\n",
			r.Channel, r.Primary, r.Primary/2.54)
	}
}
