package sensor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"
)

// Default DHT11 limits: the part's datasheet measurement range and the
// minimum spacing between reads before its 1-Wire frames start failing
// checksum.
const (
	DefaultDHT11MinSpacing = 2 * time.Second

	// spacingSlack absorbs scheduler jitter: a cycle that lands a few
	// milliseconds early is not a real spacing violation, the part only
	// needs roughly its datasheet interval between reads.
	spacingSlack = 50 * time.Millisecond
)

// DefaultDHT11TemperatureRange is the datasheet temperature range in °C.
var DefaultDHT11TemperatureRange = Range{Min: 0, Max: 50}

// DefaultDHT11HumidityRange is the datasheet humidity range in %RH.
var DefaultDHT11HumidityRange = Range{Min: 20, Max: 90}

// ThermalBus performs one DHT11 read transaction.
type ThermalBus interface {
	// ReadTemperatureHumidity returns temperature in °C and relative
	// humidity in percent. Returns ErrChecksum when the frame is corrupt.
	ReadTemperatureHumidity(ctx context.Context) (tempC, humidity float64, err error)
}

// DHT11 samples the thermal/humidity channel. Primary is temperature in
// °C, Secondary is relative humidity in percent.
type DHT11 struct {
	bus         ThermalBus
	temperature Range
	humidity    Range
	minSpacing  time.Duration

	mu       sync.Mutex
	lastRead time.Time
}

// NewDHT11 creates the thermal adapter with the given valid-range bounds
// and minimum inter-read spacing.
func NewDHT11(bus ThermalBus, temperature, humidity Range, minSpacing time.Duration) *DHT11 {
	return &DHT11{
		bus:         bus,
		temperature: temperature,
		humidity:    humidity,
		minSpacing:  minSpacing,
	}
}

// Channel returns the thermal channel.
func (d *DHT11) Channel() reading.Channel { return reading.ChannelThermal }

// Sample performs one single-shot read. Calling again before the minimum
// spacing has elapsed corrupts the frame on real hardware, so such a call
// is reported as a Timeout outcome rather than trusting whatever bits came
// back.
func (d *DHT11) Sample(ctx context.Context) (reading.Reading, error) {
	now := time.Now()

	window := d.minSpacing - spacingSlack

	d.mu.Lock()
	tooSoon := window > 0 && !d.lastRead.IsZero() && now.Sub(d.lastRead) < window
	d.lastRead = now
	d.mu.Unlock()

	r := reading.Reading{
		Channel:      reading.ChannelThermal,
		Timestamp:    now,
		HasSecondary: true,
	}

	t, h, err := d.bus.ReadTemperatureHumidity(ctx)
	switch {
	case errors.Is(err, ErrChecksum):
		r.Outcome = reading.OutcomeTimeout
		return r, nil
	case err != nil:
		return reading.Reading{}, err
	}

	if tooSoon {
		r.Outcome = reading.OutcomeTimeout
		return r, nil
	}

	r.Primary = t
	r.Secondary = h
	if !d.temperature.Contains(t) || !d.humidity.Contains(h) {
		r.Outcome = reading.OutcomeOutOfRange
		return r, nil
	}
	r.Outcome = reading.OutcomeOk
	return r, nil
}
