// Package config loads this device's configuration from built-in
// defaults, a YAML file, and environment variables, in that increasing
// order of precedence. Environment variables are applied only to keys the
// YAML file also sets, and only when a file is found (see Load).
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// envPrefix namespaces every environment override, e.g.
// SHVDEVICE_BROKER_ADDRESS or SHVDEVICE_LOGIN_PASSWORD.
const envPrefix = "SHVDEVICE"

// Config is this device's full static configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Broker  BrokerConfig  `mapstructure:"broker"  yaml:"broker"`
	Login   LoginConfig   `mapstructure:"login"   yaml:"login"`
	Device  DeviceConfig  `mapstructure:"device"  yaml:"device"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls internal/logger's output, mirroring its own
// Config field-for-field so cmd/shvdevice can pass it straight through.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
	Output string `mapstructure:"output" yaml:"output"` // "stdout", "stderr", or a file path
}

// BrokerConfig addresses the broker and tunes the connection lifecycle.
type BrokerConfig struct {
	Address          string        `mapstructure:"address"           yaml:"address"`
	PingPeriod       time.Duration `mapstructure:"ping_period"       yaml:"ping_period"`
	ReconnectPeriod  time.Duration `mapstructure:"reconnect_period"  yaml:"reconnect_period"`
	ReconnectRetries int           `mapstructure:"reconnect_retries" yaml:"reconnect_retries"`
}

// LoginConfig carries the PLAIN login credentials and options.
type LoginConfig struct {
	User                string `mapstructure:"user"                    yaml:"user"`
	Password            string `mapstructure:"password"                yaml:"password"`
	DeviceID            string `mapstructure:"device_id"               yaml:"device_id"`
	MountPoint          string `mapstructure:"mount_point"             yaml:"mount_point"`
	IdleWatchDogTimeOut int    `mapstructure:"idle_watch_dog_time_out" yaml:"idle_watch_dog_time_out"`
}

// DeviceConfig feeds the .app/.device node's fixed identity fields.
type DeviceConfig struct {
	Name         string `mapstructure:"name"          yaml:"name"`
	Version      string `mapstructure:"version"       yaml:"version"`
	SerialNumber string `mapstructure:"serial_number" yaml:"serial_number"`
}

// MetricsConfig controls the optional Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// Default returns the built-in configuration every field falls back to
// when a config file and the environment are both silent on it.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Broker: BrokerConfig{
			Address:          "localhost:3755",
			PingPeriod:       60 * time.Second,
			ReconnectPeriod:  5 * time.Second,
			ReconnectRetries: 0,
		},
		Login: LoginConfig{
			DeviceID:            "pysim",
			MountPoint:          "test/pysim",
			IdleWatchDogTimeOut: 360,
		},
		Device: DeviceConfig{Name: "shvdevice", Version: "0.1.0"},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9000",
		},
	}
}

// Load reads configPath (if non-empty) or the default search locations
// and decodes the file on top of Default, so keys the file leaves unset
// keep their defaults. SHVDEVICE_* environment variables override only
// keys that also appear in the file; a variable for a key the file does
// not set is not read. A missing config file is not an error: Load then
// returns Default unchanged and does not read the environment at all.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if !found {
		return cfg, nil
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, respecting the struct's yaml tags.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/shvdevice")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

// durationDecodeHook lets YAML/env values like "5s" or "1m30s" decode
// straight into time.Duration fields.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch from.Kind() {
		case reflect.String:
			return time.ParseDuration(data.(string))
		case reflect.Int, reflect.Int32, reflect.Int64:
			return data, nil
		default:
			return data, nil
		}
	}
}
