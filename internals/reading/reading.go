// Package reading defines the value objects produced by a single sampling
// attempt and the stateless policy that classifies them into the numeric
// status codes exposed to SCADA/HMI clients.
package reading

import "time"

// Channel identifies one physical sensor's logical data source.
type Channel int

const (
	// ChannelThermal is the DHT11 temperature/humidity sensor.
	ChannelThermal Channel = iota

	// ChannelPower is the INA219 voltage/current monitor.
	ChannelPower

	// ChannelRanging is the HC-SR04 ultrasonic distance sensor.
	ChannelRanging
)

// String returns the channel name used in logs, metrics labels, and
// telemetry subjects.
func (c Channel) String() string {
	switch c {
	case ChannelThermal:
		return "dht11"
	case ChannelPower:
		return "ina219"
	case ChannelRanging:
		return "hcsr04"
	default:
		return "unknown"
	}
}

// Outcome is the result classification of one sampling attempt.
type Outcome int

const (
	// OutcomeOk means the sample succeeded and all values are within the
	// channel's valid range.
	OutcomeOk Outcome = iota

	// OutcomeTimeout means the sensor did not answer in time (no echo,
	// checksum failure from reading too fast).
	OutcomeTimeout

	// OutcomeNotInitialized means the bus transaction itself failed, so no
	// value is present at all.
	OutcomeNotInitialized

	// OutcomeOutOfRange means a value was produced but lies outside the
	// channel's declared valid range. Never clamped, always reported.
	OutcomeOutOfRange
)

// String returns the outcome name used in logs and metrics labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeOk:
		return "ok"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeNotInitialized:
		return "not_initialized"
	case OutcomeOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Reading is the immutable result of one sampling attempt on one channel.
// Primary and Secondary carry channel-specific values: temperature/humidity
// for thermal, voltage/current for power, distance/- for ranging. Secondary
// is only meaningful when HasSecondary is set.
type Reading struct {
	Channel      Channel
	Primary      float64
	Secondary    float64
	HasSecondary bool
	Timestamp    time.Time
	Outcome      Outcome
}

// StatusCode is the four-valued per-cycle classification published on each
// sensor subtree's Status node. The codes are mutually exclusive
// classifications, not a severity ladder.
type StatusCode int32

const (
	StatusOK          StatusCode = 0
	StatusReadError   StatusCode = 1
	StatusSensorError StatusCode = 2
	StatusOutOfRange  StatusCode = 3
)

// Classify maps a sampling outcome to its status code. Stateless on
// purpose: each cycle's status is computed from that cycle's sample alone,
// with no hysteresis or debouncing. Smoothing belongs upstream.
func Classify(o Outcome) StatusCode {
	switch o {
	case OutcomeOk:
		return StatusOK
	case OutcomeTimeout:
		return StatusReadError
	case OutcomeNotInitialized:
		return StatusSensorError
	case OutcomeOutOfRange:
		return StatusOutOfRange
	default:
		return StatusSensorError
	}
}
