// Package sensor contains the three sampling adapters (DHT11 thermal,
// INA219 power monitor, HC-SR04 ultrasonic ranging) behind one capability
// interface, plus simulated buses for running the gateway without
// hardware.
//
// Each Sample call performs exactly one bus transaction and never retries;
// retry cadence belongs to the sync engine. Failures a sensor can recover
// from next cycle are encoded in the reading's Outcome. Only transport
// failures the adapter cannot classify are returned as errors, and the
// engine folds those into a NotInitialized reading.
package sensor

import (
	"context"
	"errors"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"
)

// Adapter is the capability the sync engine requires per channel. How an
// implementation talks to its bus (I2C, GPIO timing, 1-Wire) is its own
// concern.
type Adapter interface {
	// Channel identifies the sensor channel this adapter samples.
	Channel() reading.Channel

	// Sample performs one sampling attempt. Recoverable failures are
	// reported in the reading's Outcome with a nil error.
	Sample(ctx context.Context) (reading.Reading, error)
}

// Bus-level sentinel errors the adapters classify into outcomes.
var (
	// ErrChecksum marks a corrupted 1-Wire frame from the DHT11.
	ErrChecksum = errors.New("sensor: checksum mismatch")

	// ErrNoEcho marks an HC-SR04 measurement where no echo returned
	// within the bus's wait window.
	ErrNoEcho = errors.New("sensor: no echo received")
)

// Range is an inclusive valid-range bound for a measured value.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}
