package config

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/caarlos0/env/v11"
)

// DefaultDevice is the backing object used when none is configured
const DefaultDevice = "/dev/mem"

// Config represents the application configuration
type Config struct {
	// Device is the backing object that is mapped, normally /dev/mem
	Device string `json:"device" env:"DEVICE"`
	// Debug enables tracing of parsed parameters and the mapping window
	Debug bool `json:"debug" env:"DEBUG"`
	// Raw switches dumps to stdout bytes and edits to stdin bytes
	Raw bool `json:"raw" env:"RAW"`
	// DumpSize is the byte count dumped when no size operand is given
	DumpSize uint64 `json:"dump_size" env:"DUMP_SIZE"`
	// LogOutput is the zap output path for debug tracing
	LogOutput string `json:"log_output" env:"LOG_OUTPUT"`
}

// LoadConfig loads the configuration from a file on top of the defaults.
// An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}

// FromEnv overrides fields of config with MA_ prefixed environment variables
func FromEnv(config *Config) error {
	return env.ParseWithOptions(config, env.Options{Prefix: "MA_"})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Device:    DefaultDevice,
		DumpSize:  256,
		LogOutput: "stdout",
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("device must not be empty")
	}
	if c.DumpSize == 0 {
		return errors.New("dump size must not be zero")
	}
	if c.LogOutput == "" {
		return errors.New("log output must not be empty")
	}
	return nil
}
