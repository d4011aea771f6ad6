package sensor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"
)

var errBusDown = errors.New("bus down")

type stubThermalBus struct {
	temp float64
	hum  float64
	err  error
}

func (s *stubThermalBus) ReadTemperatureHumidity(context.Context) (float64, float64, error) {
	return s.temp, s.hum, s.err
}

type stubPowerBus struct {
	volts float64
	amps  float64
	err   error
}

func (s *stubPowerBus) ReadBusShunt(context.Context) (float64, float64, error) {
	return s.volts, s.amps, s.err
}

type stubRangingBus struct {
	echo time.Duration
	err  error
}

func (s *stubRangingBus) MeasureEcho(context.Context) (time.Duration, error) {
	return s.echo, s.err
}

// echoFor returns the round-trip time an object at the given distance
// would produce.
func echoFor(cm float64) time.Duration {
	return time.Duration(cm / echoToDistanceCm * float64(time.Second))
}

func newTestDHT11(bus ThermalBus) *DHT11 {
	return NewDHT11(bus, DefaultDHT11TemperatureRange, DefaultDHT11HumidityRange, DefaultDHT11MinSpacing)
}

func TestDHT11Sample(t *testing.T) {
	tests := []struct {
		name    string
		bus     stubThermalBus
		outcome reading.Outcome
	}{
		{"nominal", stubThermalBus{temp: 22.0, hum: 45.0}, reading.OutcomeOk},
		{"temp at lower bound", stubThermalBus{temp: 0.0, hum: 45.0}, reading.OutcomeOk},
		{"temp at upper bound", stubThermalBus{temp: 50.0, hum: 45.0}, reading.OutcomeOk},
		{"temp too high", stubThermalBus{temp: 50.1, hum: 45.0}, reading.OutcomeOutOfRange},
		{"temp below zero", stubThermalBus{temp: -1.0, hum: 45.0}, reading.OutcomeOutOfRange},
		{"humidity too low", stubThermalBus{temp: 22.0, hum: 19.9}, reading.OutcomeOutOfRange},
		{"humidity too high", stubThermalBus{temp: 22.0, hum: 90.1}, reading.OutcomeOutOfRange},
		{"checksum failure", stubThermalBus{err: ErrChecksum}, reading.OutcomeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDHT11(&tt.bus)
			r, err := d.Sample(context.Background())
			require.NoError(t, err)
			assert.Equal(t, reading.ChannelThermal, r.Channel)
			assert.Equal(t, tt.outcome, r.Outcome)
			if tt.outcome == reading.OutcomeOk {
				assert.Equal(t, tt.bus.temp, r.Primary)
				assert.Equal(t, tt.bus.hum, r.Secondary)
				assert.True(t, r.HasSecondary)
			}
		})
	}
}

func TestDHT11TransportErrorSurfaces(t *testing.T) {
	d := newTestDHT11(&stubThermalBus{err: errBusDown})
	_, err := d.Sample(context.Background())
	assert.ErrorIs(t, err, errBusDown)
}

func TestDHT11MinSpacingViolationIsTimeout(t *testing.T) {
	d := newTestDHT11(&stubThermalBus{temp: 22.0, hum: 45.0})

	r, err := d.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reading.OutcomeOk, r.Outcome)

	// Immediately reading again violates the part's 2 s spacing and must
	// not be trusted.
	r, err = d.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reading.OutcomeTimeout, r.Outcome)
}

func TestDHT11SpacingElapsedIsOk(t *testing.T) {
	bus := &stubThermalBus{temp: 22.0, hum: 45.0}
	d := NewDHT11(bus, DefaultDHT11TemperatureRange, DefaultDHT11HumidityRange, 200*time.Millisecond)

	_, err := d.Sample(context.Background())
	require.NoError(t, err)

	time.Sleep(250 * time.Millisecond)

	r, err := d.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reading.OutcomeOk, r.Outcome)
}

func TestDHT11SpacingToleratesJitter(t *testing.T) {
	// Landing a hair before the configured spacing is scheduler jitter,
	// not a misuse of the part.
	bus := &stubThermalBus{temp: 22.0, hum: 45.0}
	d := NewDHT11(bus, DefaultDHT11TemperatureRange, DefaultDHT11HumidityRange, 200*time.Millisecond)

	_, err := d.Sample(context.Background())
	require.NoError(t, err)

	time.Sleep(180 * time.Millisecond)

	r, err := d.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reading.OutcomeOk, r.Outcome)
}

func TestINA219Sample(t *testing.T) {
	tests := []struct {
		name    string
		bus     stubPowerBus
		outcome reading.Outcome
	}{
		{"nominal", stubPowerBus{volts: 12.34, amps: 0.850}, reading.OutcomeOk},
		{"voltage at upper bound", stubPowerBus{volts: 26.0, amps: 1.0}, reading.OutcomeOk},
		{"current at negative bound", stubPowerBus{volts: 12.0, amps: -3.2}, reading.OutcomeOk},
		{"voltage implausible", stubPowerBus{volts: 28.5, amps: 1.0}, reading.OutcomeOutOfRange},
		{"current implausible", stubPowerBus{volts: 12.0, amps: 3.5}, reading.OutcomeOutOfRange},
		{"bus transaction failed", stubPowerBus{err: errBusDown}, reading.OutcomeNotInitialized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewINA219(&tt.bus, DefaultINA219VoltageRange, DefaultINA219CurrentRange)
			r, err := p.Sample(context.Background())
			require.NoError(t, err)
			assert.Equal(t, reading.ChannelPower, r.Channel)
			assert.Equal(t, tt.outcome, r.Outcome)
			if tt.outcome == reading.OutcomeOk {
				assert.Equal(t, tt.bus.volts, r.Primary)
				assert.Equal(t, tt.bus.amps, r.Secondary)
			}
		})
	}
}

func TestHCSR04Sample(t *testing.T) {
	tests := []struct {
		name    string
		bus     stubRangingBus
		outcome reading.Outcome
		wantCm  float64
	}{
		{"one meter", stubRangingBus{echo: echoFor(100)}, reading.OutcomeOk, 100.0},
		{"lower bound inclusive", stubRangingBus{echo: echoFor(2)}, reading.OutcomeOk, 2.0},
		{"upper bound inclusive", stubRangingBus{echo: echoFor(400)}, reading.OutcomeOk, 400.0},
		{"too close", stubRangingBus{echo: echoFor(1.9)}, reading.OutcomeOutOfRange, 1.9},
		{"too far", stubRangingBus{echo: echoFor(401)}, reading.OutcomeOutOfRange, 401.0},
		{"no echo", stubRangingBus{err: ErrNoEcho}, reading.OutcomeTimeout, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewHCSR04(&tt.bus, DefaultHCSR04DistanceRange)
			r, err := u.Sample(context.Background())
			require.NoError(t, err)
			assert.Equal(t, reading.ChannelRanging, r.Channel)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.False(t, r.HasSecondary)
			if tt.outcome != reading.OutcomeTimeout {
				assert.InDelta(t, tt.wantCm, r.Primary, 0.011)
			}
		})
	}
}

func TestHCSR04TransportErrorSurfaces(t *testing.T) {
	u := NewHCSR04(&stubRangingBus{err: errBusDown}, DefaultHCSR04DistanceRange)
	_, err := u.Sample(context.Background())
	assert.ErrorIs(t, err, errBusDown)
}

func TestSimBusesProducePlausibleReadings(t *testing.T) {
	params := func() SimParams { return DefaultSimParams() }

	thermal := NewSimThermalBus(1, params)
	power := NewSimPowerBus(2, params)
	ranging := NewSimRangingBus(3, params)

	for i := 0; i < 200; i++ {
		tc, h, err := thermal.ReadTemperatureHumidity(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 22.0, tc, 5.0)
		assert.InDelta(t, 45.0, h, 15.0)

		v, a, err := power.ReadBusShunt(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 12.3, v, 0.5)
		assert.InDelta(t, 0.85, a, 0.2)

		echo, err := ranging.MeasureEcho(context.Background())
		require.NoError(t, err)
		cm := echo.Seconds() * echoToDistanceCm
		assert.Greater(t, cm, 2.0)
		assert.Less(t, cm, 400.0)
	}
}

func TestSimBusFailureInjection(t *testing.T) {
	params := func() SimParams {
		p := DefaultSimParams()
		p.BusFailureRate = 1.0
		return p
	}

	thermal := NewSimThermalBus(1, params)
	_, _, err := thermal.ReadTemperatureHumidity(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrChecksum)

	power := NewSimPowerBus(2, params)
	_, _, err = power.ReadBusShunt(context.Background())
	assert.Error(t, err)

	ranging := NewSimRangingBus(3, params)
	_, err = ranging.MeasureEcho(context.Background())
	assert.Error(t, err)
}

func TestSimDropoutInjection(t *testing.T) {
	params := func() SimParams {
		p := DefaultSimParams()
		p.DropoutRate = 1.0
		return p
	}

	thermal := NewSimThermalBus(1, params)
	_, _, err := thermal.ReadTemperatureHumidity(context.Background())
	assert.ErrorIs(t, err, ErrChecksum)

	ranging := NewSimRangingBus(3, params)
	_, err = ranging.MeasureEcho(context.Background())
	assert.ErrorIs(t, err, ErrNoEcho)
}
