// Package config loads the gateway configuration from config.yaml via
// viper. Every key has a default, so a missing config file yields a
// fully working simulated gateway.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DHT11Config bounds the thermal channel.
type DHT11Config struct {
	Enabled     bool          `mapstructure:"enabled"`
	TempMin     float64       `mapstructure:"temp_min"`
	TempMax     float64       `mapstructure:"temp_max"`
	HumidityMin float64       `mapstructure:"humidity_min"`
	HumidityMax float64       `mapstructure:"humidity_max"`
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// INA219Config bounds the power channel.
type INA219Config struct {
	Enabled    bool    `mapstructure:"enabled"`
	VoltageMin float64 `mapstructure:"voltage_min"`
	VoltageMax float64 `mapstructure:"voltage_max"`
	CurrentMin float64 `mapstructure:"current_min"`
	CurrentMax float64 `mapstructure:"current_max"`
}

// HCSR04Config bounds the ranging channel.
type HCSR04Config struct {
	Enabled     bool    `mapstructure:"enabled"`
	DistanceMin float64 `mapstructure:"distance_min"`
	DistanceMax float64 `mapstructure:"distance_max"`
}

type Config struct {
	// UpdateInterval is the synchronization cycle cadence.
	UpdateInterval time.Duration `mapstructure:"update_interval"`

	// Simulate swaps the hardware buses for the built-in simulation.
	Simulate bool `mapstructure:"simulate"`

	// MetricsAddr is the listen address of the Prometheus endpoint.
	MetricsAddr string `mapstructure:"metrics_addr"`

	DHT11  DHT11Config  `mapstructure:"dht11"`
	INA219 INA219Config `mapstructure:"ina219"`
	HCSR04 HCSR04Config `mapstructure:"hcsr04"`

	// TelemetryEnabled turns on snapshot publication to NATS.
	TelemetryEnabled bool `mapstructure:"telemetry_enabled"`

	TLSEnabled bool   `mapstructure:"tls_enabled"`
	ClientCert string `mapstructure:"client_cert"`
	ClientKey  string `mapstructure:"client_key"`
	RootCA     string `mapstructure:"root_ca"`

	NATSURL string `mapstructure:"nats_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("update_interval", 2*time.Second)
	v.SetDefault("simulate", true)
	v.SetDefault("metrics_addr", ":9102")

	v.SetDefault("dht11.enabled", true)
	v.SetDefault("dht11.temp_min", 0.0)
	v.SetDefault("dht11.temp_max", 50.0)
	v.SetDefault("dht11.humidity_min", 20.0)
	v.SetDefault("dht11.humidity_max", 90.0)
	v.SetDefault("dht11.min_interval", 2*time.Second)

	v.SetDefault("ina219.enabled", true)
	v.SetDefault("ina219.voltage_min", 0.0)
	v.SetDefault("ina219.voltage_max", 26.0)
	v.SetDefault("ina219.current_min", -3.2)
	v.SetDefault("ina219.current_max", 3.2)

	v.SetDefault("hcsr04.enabled", true)
	v.SetDefault("hcsr04.distance_min", 2.0)
	v.SetDefault("hcsr04.distance_max", 400.0)

	v.SetDefault("telemetry_enabled", false)
}

// LoadConfigurations reads config.yaml from /etc/config or the working
// directory. A missing file is fine, the defaults apply; a malformed
// file is not.
func LoadConfigurations() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/config")
	v.AddConfigPath(".")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read configuration: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("update_interval must be positive, got %v", c.UpdateInterval)
	}
	if c.DHT11.Enabled && c.DHT11.TempMin >= c.DHT11.TempMax {
		return fmt.Errorf("dht11 temperature range [%v, %v] is empty", c.DHT11.TempMin, c.DHT11.TempMax)
	}
	if c.DHT11.Enabled && c.DHT11.HumidityMin >= c.DHT11.HumidityMax {
		return fmt.Errorf("dht11 humidity range [%v, %v] is empty", c.DHT11.HumidityMin, c.DHT11.HumidityMax)
	}
	if c.INA219.Enabled && c.INA219.VoltageMin >= c.INA219.VoltageMax {
		return fmt.Errorf("ina219 voltage range [%v, %v] is empty", c.INA219.VoltageMin, c.INA219.VoltageMax)
	}
	if c.INA219.Enabled && c.INA219.CurrentMin >= c.INA219.CurrentMax {
		return fmt.Errorf("ina219 current range [%v, %v] is empty", c.INA219.CurrentMin, c.INA219.CurrentMax)
	}
	if c.HCSR04.Enabled && c.HCSR04.DistanceMin >= c.HCSR04.DistanceMax {
		return fmt.Errorf("hcsr04 distance range [%v, %v] is empty", c.HCSR04.DistanceMin, c.HCSR04.DistanceMax)
	}
	return nil
}
