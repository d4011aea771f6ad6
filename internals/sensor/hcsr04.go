package sensor

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"
)

// echoToDistanceCm converts an echo round-trip time to centimeters:
// speed of sound 343 m/s = 34300 cm/s, halved for the round trip.
const echoToDistanceCm = 17150.0

// DefaultHCSR04DistanceRange is the part's usable measurement range in cm,
// bounds inclusive.
var DefaultHCSR04DistanceRange = Range{Min: 2, Max: 400}

// RangingBus triggers one ultrasonic pulse and measures the echo return
// time.
type RangingBus interface {
	// MeasureEcho returns the round-trip time of the echo. Returns
	// ErrNoEcho when nothing came back within the bus's wait window.
	MeasureEcho(ctx context.Context) (time.Duration, error)
}

// HCSR04 samples the ranging channel. Primary is distance in cm; there is
// no secondary value.
type HCSR04 struct {
	bus      RangingBus
	distance Range
}

// NewHCSR04 creates the ranging adapter with the given valid-range bounds.
func NewHCSR04(bus RangingBus, distance Range) *HCSR04 {
	return &HCSR04{bus: bus, distance: distance}
}

// Channel returns the ranging channel.
func (u *HCSR04) Channel() reading.Channel { return reading.ChannelRanging }

// Sample triggers one pulse. No echo within the wait window is a Timeout;
// a computed distance outside the valid range (object too close or too
// far) is OutOfRange, bounds inclusive. Distances are rounded to two
// decimals, matching the resolution the part can actually deliver.
func (u *HCSR04) Sample(ctx context.Context) (reading.Reading, error) {
	r := reading.Reading{Channel: reading.ChannelRanging}

	elapsed, err := u.bus.MeasureEcho(ctx)
	r.Timestamp = time.Now()
	switch {
	case errors.Is(err, ErrNoEcho):
		r.Outcome = reading.OutcomeTimeout
		return r, nil
	case err != nil:
		return reading.Reading{}, err
	}

	dist := math.Round(elapsed.Seconds()*echoToDistanceCm*100) / 100

	r.Primary = dist
	if !u.distance.Contains(dist) {
		r.Outcome = reading.OutcomeOutOfRange
		return r, nil
	}
	r.Outcome = reading.OutcomeOk
	return r, nil
}
