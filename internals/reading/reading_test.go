package reading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    StatusCode
	}{
		{"ok", OutcomeOk, StatusOK},
		{"timeout", OutcomeTimeout, StatusReadError},
		{"not initialized", OutcomeNotInitialized, StatusSensorError},
		{"out of range", OutcomeOutOfRange, StatusOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.outcome))
		})
	}
}

func TestClassifyUnknownOutcomeIsSensorError(t *testing.T) {
	// An outcome value outside the enum must not silently classify as OK.
	assert.Equal(t, StatusSensorError, Classify(Outcome(99)))
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "dht11", ChannelThermal.String())
	assert.Equal(t, "ina219", ChannelPower.String())
	assert.Equal(t, "hcsr04", ChannelRanging.String())
}

func TestOutcomeNames(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOk.String())
	assert.Equal(t, "timeout", OutcomeTimeout.String())
	assert.Equal(t, "not_initialized", OutcomeNotInitialized.String())
	assert.Equal(t, "out_of_range", OutcomeOutOfRange.String())
}
