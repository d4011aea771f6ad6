package sensor

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"
)

// SimParams are the tunable physics and fault-injection knobs for the
// simulated buses. They are read once per transaction through a provider
// func so the config layer can hot-reload them while the gateway runs.
type SimParams struct {
	// BaseTemp is the temperature the simulated room reverts to (°C).
	BaseTemp float64
	// BaseHumidity is the humidity the simulated room reverts to (%RH).
	BaseHumidity float64
	// TempFluctuation is the noise amplitude on thermal readings.
	TempFluctuation float64

	// BaseVoltage is the supply voltage the power rail hovers around (V).
	BaseVoltage float64
	// BaseCurrent is the load current the rail hovers around (A).
	BaseCurrent float64

	// BaseDistance is the center of the simulated target's wander (cm).
	BaseDistance float64
	// DistanceSwing is the wander amplitude around BaseDistance (cm).
	DistanceSwing float64

	// BusFailureRate is the chance (0.0-1.0) that a transaction fails at
	// the transport level.
	BusFailureRate float64
	// DropoutRate is the chance (0.0-1.0) of a sensor-level dropout:
	// checksum corruption on the DHT11, a missed echo on the HC-SR04.
	DropoutRate float64
}

// DefaultSimParams returns simulation defaults resembling a bench setup:
// a warm room, a 12 V rail under light load, and a target about a meter
// away.
func DefaultSimParams() SimParams {
	return SimParams{
		BaseTemp:        22.0,
		BaseHumidity:    45.0,
		TempFluctuation: 0.4,
		BaseVoltage:     12.3,
		BaseCurrent:     0.85,
		BaseDistance:    100.0,
		DistanceSwing:   30.0,
	}
}

// errSimBus is the transport-level failure injected by BusFailureRate.
var errSimBus = errors.New("sensor: simulated bus failure")

// SimThermalBus is a ThermalBus with DHT11-like behavior: readings revert
// toward the configured baseline with noise on top.
type SimThermalBus struct {
	mu     sync.Mutex
	rng    *rand.Rand
	params func() SimParams
	temp   float64
	hum    float64
}

// NewSimThermalBus creates a simulated DHT11 seeded deterministically.
func NewSimThermalBus(seed int64, params func() SimParams) *SimThermalBus {
	p := params()
	return &SimThermalBus{
		rng:    rand.New(rand.NewSource(seed)),
		params: params,
		temp:   p.BaseTemp,
		hum:    p.BaseHumidity,
	}
}

// ReadTemperatureHumidity advances the simulated room by one step and
// returns the new reading.
func (b *SimThermalBus) ReadTemperatureHumidity(_ context.Context) (float64, float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.params()
	if roll(b.rng, p.BusFailureRate) {
		return 0, 0, errSimBus
	}
	if roll(b.rng, p.DropoutRate) {
		return 0, 0, ErrChecksum
	}

	// Mean reversion toward the baseline plus bounded noise, same model
	// the telemetry simulator uses for room physics.
	b.temp += (p.BaseTemp-b.temp)*0.1 + (b.rng.Float64()-0.5)*p.TempFluctuation
	b.hum += (p.BaseHumidity-b.hum)*0.05 + (b.rng.Float64()-0.5)*2.0

	return round2(b.temp), round2(b.hum), nil
}

// SimPowerBus is a PowerBus with INA219-like behavior: a stable rail with
// small load wobble.
type SimPowerBus struct {
	mu     sync.Mutex
	rng    *rand.Rand
	params func() SimParams
}

// NewSimPowerBus creates a simulated INA219 seeded deterministically.
func NewSimPowerBus(seed int64, params func() SimParams) *SimPowerBus {
	return &SimPowerBus{rng: rand.New(rand.NewSource(seed)), params: params}
}

// ReadBusShunt returns the rail voltage and load current with wobble.
func (b *SimPowerBus) ReadBusShunt(_ context.Context) (float64, float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.params()
	if roll(b.rng, p.BusFailureRate) {
		return 0, 0, errSimBus
	}

	v := p.BaseVoltage + (b.rng.Float64()-0.5)*0.1
	a := p.BaseCurrent + (b.rng.Float64()-0.5)*0.05
	return round2(v), round2(a), nil
}

// SimRangingBus is a RangingBus with HC-SR04-like behavior: the target
// wanders around a baseline distance and the echo time is derived from it.
type SimRangingBus struct {
	mu     sync.Mutex
	rng    *rand.Rand
	params func() SimParams
	dist   float64
}

// NewSimRangingBus creates a simulated HC-SR04 seeded deterministically.
func NewSimRangingBus(seed int64, params func() SimParams) *SimRangingBus {
	p := params()
	return &SimRangingBus{
		rng:    rand.New(rand.NewSource(seed)),
		params: params,
		dist:   p.BaseDistance,
	}
}

// MeasureEcho moves the simulated target one step and returns the echo
// round-trip time for its new distance.
func (b *SimRangingBus) MeasureEcho(_ context.Context) (time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.params()
	if roll(b.rng, p.BusFailureRate) {
		return 0, errSimBus
	}
	if roll(b.rng, p.DropoutRate) {
		return 0, ErrNoEcho
	}

	b.dist += (p.BaseDistance-b.dist)*0.05 + (b.rng.Float64()-0.5)*p.DistanceSwing*0.2
	if b.dist < 0 {
		b.dist = 0
	}

	return time.Duration(b.dist / echoToDistanceCm * float64(time.Second)), nil
}

func roll(rng *rand.Rand, rate float64) bool {
	return rate > 0 && rng.Float64() < rate
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
