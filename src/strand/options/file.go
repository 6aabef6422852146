package options

import (
	"fmt"
	"os"
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape accepted by FromFile. Durations use Go's
// duration syntax ("500ms", "30s").
type fileConfig struct {
	DefaultTimeout   string `yaml:"default_timeout"`
	LogDebug         *bool  `yaml:"log_debug"`
	FailureThreshold *uint  `yaml:"failure_threshold"`
	CircuitCooldown  string `yaml:"circuit_cooldown"`
	NotifyBuffer     *uint  `yaml:"notify_buffer"`
	StrictValidation *bool  `yaml:"strict_validation"`
	Product          string `yaml:"product"`
}

// FromFile returns client options with values read from a YAML file.
// Omitted fields leave the corresponding defaults untouched.
func FromFile(path string) ([]Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s is not a valid options file: %w", path, err)
	}

	var o []Option

	if cfg.DefaultTimeout != "" {
		t, err := parseDuration(path, "default_timeout", cfg.DefaultTimeout)
		if err != nil {
			return nil, err
		}
		o = append(o, DefaultTimeout(t))
	}

	if cfg.LogDebug != nil {
		o = append(o, Logger(&twelf.StandardLogger{CaptureDebug: *cfg.LogDebug}))
	}

	if cfg.FailureThreshold != nil {
		o = append(o, FailureThreshold(*cfg.FailureThreshold))
	}

	if cfg.CircuitCooldown != "" {
		t, err := parseDuration(path, "circuit_cooldown", cfg.CircuitCooldown)
		if err != nil {
			return nil, err
		}
		o = append(o, CircuitCooldown(t))
	}

	if cfg.NotifyBuffer != nil {
		o = append(o, NotifyBuffer(*cfg.NotifyBuffer))
	}

	if cfg.StrictValidation != nil {
		o = append(o, StrictValidation(*cfg.StrictValidation))
	}

	if cfg.Product != "" {
		o = append(o, Product(cfg.Product))
	}

	return o, nil
}

func parseDuration(path, field, value string) (time.Duration, error) {
	t, err := time.ParseDuration(value)
	if err != nil || t <= 0 {
		return 0, fmt.Errorf("%s: %s must be a positive duration", path, field)
	}

	return t, nil
}
