package config

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SimulationConfig is the tunable parameter set of the simulated buses.
// Editing simulation-config.yaml while the gateway runs takes effect on
// the next sampling cycle.
type SimulationConfig struct {
	BaseTemp        float64 `mapstructure:"base_temp"`
	BaseHumidity    float64 `mapstructure:"base_humidity"`
	TempFluctuation float64 `mapstructure:"temp_fluctuation"`

	BaseVoltage float64 `mapstructure:"base_voltage"`
	BaseCurrent float64 `mapstructure:"base_current"`

	BaseDistance  float64 `mapstructure:"base_distance"`
	DistanceSwing float64 `mapstructure:"distance_swing"`

	// Chaos parameters (0.0 to 1.0).
	BusFailureRate float64 `mapstructure:"bus_failure_rate"`
	DropoutRate    float64 `mapstructure:"dropout_rate"`
}

// DefaultSimulation mirrors a bench setup: room temperature, a 12 V
// supply under modest load, an obstacle about a meter away.
func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		BaseTemp:        22.0,
		BaseHumidity:    45.0,
		TempFluctuation: 0.4,
		BaseVoltage:     12.3,
		BaseCurrent:     0.85,
		BaseDistance:    100.0,
		DistanceSwing:   30.0,
	}
}

// EditableSimConfig is a simulation config that follows its file on disk.
type EditableSimConfig struct {
	mu     sync.Mutex
	config SimulationConfig
}

// Current returns the latest parameter set.
func (e *EditableSimConfig) Current() SimulationConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

func setSimDefaults(v *viper.Viper) {
	d := DefaultSimulation()
	v.SetDefault("base_temp", d.BaseTemp)
	v.SetDefault("base_humidity", d.BaseHumidity)
	v.SetDefault("temp_fluctuation", d.TempFluctuation)
	v.SetDefault("base_voltage", d.BaseVoltage)
	v.SetDefault("base_current", d.BaseCurrent)
	v.SetDefault("base_distance", d.BaseDistance)
	v.SetDefault("distance_swing", d.DistanceSwing)
	v.SetDefault("bus_failure_rate", d.BusFailureRate)
	v.SetDefault("dropout_rate", d.DropoutRate)
}

// LoadSimulation reads simulation-config.yaml and keeps watching it for
// changes. A missing file means the defaults, unwatched.
func LoadSimulation(logger *slog.Logger) (*EditableSimConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	v.SetConfigName("simulation-config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/config")
	v.AddConfigPath(".")
	setSimDefaults(v)

	cfg := &EditableSimConfig{config: DefaultSimulation()}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return nil, err
	}

	cfg.mu.Lock()
	err := v.Unmarshal(&cfg.config)
	cfg.mu.Unlock()
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("simulation config changed", "file", e.Name)

		cfg.mu.Lock()
		defer cfg.mu.Unlock()

		if err := v.Unmarshal(&cfg.config); err != nil {
			logger.Warn("reload simulation config failed", "error", err)
		}
	})
	v.WatchConfig()

	return cfg, nil
}
