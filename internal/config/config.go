package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/internal/logging"
	"github.com/me/schedkit/pkg/model"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the schedkit server.
type ServerConfig struct {
	Addr      string // Listen address (default ":8080")
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: text, json, pretty
	DBPath    string // SQLite database path (default ~/.schedkit/results.db, ":memory:" for testing)
	Cache     bool   // Memoise results in the store

	// HealthLogLevel is the level of health check request logs.
	HealthLogLevel string

	// MaxConcurrent bounds analyses running at once; 0 means unlimited.
	MaxConcurrent int
	// APIKeysFile lists keys accepted on the compute endpoints. With no
	// keys configured the endpoints are open.
	APIKeysFile string
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           ":8080",
		LogLevel:       "info",
		LogFormat:      "text",
		Cache:          true,
		MaxConcurrent:  runtime.NumCPU(),
		HealthLogLevel: "debug",
	}
}

// Logging returns the logger settings of c.
func (c ServerConfig) Logging() logging.Options {
	return logging.Options{Level: c.LogLevel, Format: c.LogFormat, HealthLevel: c.HealthLogLevel}
}

// AnalysisConfig selects an algorithm and bounds its search. It is read from
// the --config file of the CLI; flags override individual fields.
type AnalysisConfig struct {
	Algorithm  string           `yaml:"algorithm" json:"algorithm"`
	Test       string           `yaml:"test,omitempty" json:"test,omitempty"`
	Processors int              `yaml:"processors" json:"processors"`
	Activation model.Activation `yaml:"activation,omitempty" json:"activation,omitempty"`
	MaxPoints  int              `yaml:"max_points,omitempty" json:"max_points,omitempty"`
	MaxPeriods int              `yaml:"max_periods,omitempty" json:"max_periods,omitempty"`
	PeriodMin  model.Time       `yaml:"period_min,omitempty" json:"period_min,omitempty"`
	PeriodMax  model.Time       `yaml:"period_max,omitempty" json:"period_max,omitempty"`
}

// DefaultAnalysisConfig returns the configuration used without a file:
// the fixed-priority family on one processor.
func DefaultAnalysisConfig() AnalysisConfig {
	opts := catalog.DefaultOptions()
	return AnalysisConfig{
		Algorithm:  "fp",
		Processors: 1,
		MaxPoints:  opts.MaxPoints,
		MaxPeriods: opts.MaxPeriods,
	}
}

// LoadAnalysisConfig reads a YAML or JSON selection file over the defaults.
func LoadAnalysisConfig(path string) (AnalysisConfig, error) {
	cfg := DefaultAnalysisConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no algorithm could run with.
func (c AnalysisConfig) Validate() error {
	switch {
	case c.Algorithm == "":
		return fmt.Errorf("algorithm is required")
	case c.Processors < 1:
		return fmt.Errorf("processors must be at least 1, got %d", c.Processors)
	case c.MaxPoints < 0 || c.MaxPeriods < 0:
		return fmt.Errorf("limits must not be negative")
	case c.PeriodMin < 0 || c.PeriodMax < 0:
		return fmt.Errorf("period range must not be negative")
	case c.PeriodMax > 0 && c.PeriodMin > c.PeriodMax:
		return fmt.Errorf("period_min %d exceeds period_max %d", c.PeriodMin, c.PeriodMax)
	}
	switch c.Activation {
	case "", model.Periodic, model.Sporadic:
	default:
		return fmt.Errorf("unknown activation %q", c.Activation)
	}
	return nil
}

// Selection returns the catalog selection described by c.
func (c AnalysisConfig) Selection() catalog.Selection {
	return catalog.Selection{
		Algorithm:  c.Algorithm,
		Test:       c.Test,
		Processors: c.Processors,
		Activation: c.Activation,
	}
}

// CatalogOptions returns the search limits described by c.
func (c AnalysisConfig) CatalogOptions() catalog.Options {
	return catalog.Options{
		MaxPoints:  c.MaxPoints,
		MaxPeriods: c.MaxPeriods,
		PeriodMin:  c.PeriodMin,
		PeriodMax:  c.PeriodMax,
	}
}
