package sensor

import (
	"context"
	"time"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"
)

// DefaultINA219VoltageRange is the part's bus voltage measurement range
// in volts.
var DefaultINA219VoltageRange = Range{Min: 0, Max: 26}

// DefaultINA219CurrentRange is the shunt current range in amps for the
// standard 0.1 Ω shunt.
var DefaultINA219CurrentRange = Range{Min: -3.2, Max: 3.2}

// PowerBus reads the INA219's bus voltage and shunt current registers in
// one transaction.
type PowerBus interface {
	ReadBusShunt(ctx context.Context) (busVolts, shuntAmps float64, err error)
}

// INA219 samples the power monitor channel. Primary is bus voltage in
// volts, Secondary is shunt current in amps.
type INA219 struct {
	bus     PowerBus
	voltage Range
	current Range
}

// NewINA219 creates the power monitor adapter with the given plausibility
// bounds.
func NewINA219(bus PowerBus, voltage, current Range) *INA219 {
	return &INA219{bus: bus, voltage: voltage, current: current}
}

// Channel returns the power channel.
func (p *INA219) Channel() reading.Channel { return reading.ChannelPower }

// Sample reads both registers in one call. A failed bus transaction means
// no value exists at all and is reported as NotInitialized; a value that
// is present but physically implausible is reported as OutOfRange. The
// two are kept distinct because they point at different faults (wiring vs
// load).
func (p *INA219) Sample(ctx context.Context) (reading.Reading, error) {
	r := reading.Reading{
		Channel:      reading.ChannelPower,
		HasSecondary: true,
	}

	v, a, err := p.bus.ReadBusShunt(ctx)
	r.Timestamp = time.Now()
	if err != nil {
		r.Outcome = reading.OutcomeNotInitialized
		return r, nil
	}

	r.Primary = v
	r.Secondary = a
	if !p.voltage.Contains(v) || !p.current.Contains(a) {
		r.Outcome = reading.OutcomeOutOfRange
		return r, nil
	}
	r.Outcome = reading.OutcomeOk
	return r, nil
}
