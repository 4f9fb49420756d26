// Package config loads the contagion-lab configuration from YAML with
// CONTAGION_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"contagion-lab/internal/decision"
	"contagion-lab/internal/domain"
	"contagion-lab/internal/logging"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Storage backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres" // postgres runs + clickhouse analytics
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig        `yaml:"server"`
	Storage    StorageConfig       `yaml:"storage"`
	Logging    LoggingConfig       `yaml:"logging"`
	Simulation SimulationConfig    `yaml:"simulation"`
	Schedule   ScheduleConfig      `yaml:"schedule"`
	Decision   decision.Thresholds `yaml:"decision"`
	Scenarios  []domain.Scenario   `yaml:"scenarios"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // extra websocket origins, "*" for any
}

// StorageConfig selects and configures persistence.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory, postgres
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
	Migrate       bool   `yaml:"migrate"` // apply embedded migrations on start
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SimulationConfig holds engine defaults.
type SimulationConfig struct {
	Workers       int     `yaml:"workers"` // concurrent magnitudes per sweep; 0 = GOMAXPROCS
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
}

// ScheduleConfig configures periodic batch runs.
type ScheduleConfig struct {
	Cron       string `yaml:"cron"` // empty disables scheduling
	OutputDir  string `yaml:"output_dir"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatJSON,
		},
		Simulation: SimulationConfig{
			Tolerance:     0.001,
			MaxIterations: 100,
		},
		Schedule: ScheduleConfig{
			OutputDir: "output",
		},
		Decision:  decision.DefaultThresholds(),
		Scenarios: domain.DefaultScenarios(),
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies CONTAGION_* environment variables.
func (c *Config) applyEnvOverrides() error {
	c.Server.Addr = getEnv("CONTAGION_ADDR", c.Server.Addr)
	if v, ok := os.LookupEnv("CONTAGION_ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitList(v)
	}
	c.Storage.Backend = getEnv("CONTAGION_STORAGE", c.Storage.Backend)
	c.Storage.PostgresDSN = getEnv("CONTAGION_POSTGRES_DSN", c.Storage.PostgresDSN)
	c.Storage.ClickHouseDSN = getEnv("CONTAGION_CLICKHOUSE_DSN", c.Storage.ClickHouseDSN)
	c.Logging.Level = getEnv("CONTAGION_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("CONTAGION_LOG_FORMAT", c.Logging.Format)
	c.Schedule.Cron = getEnv("CONTAGION_SCHEDULE", c.Schedule.Cron)
	c.Schedule.OutputDir = getEnv("CONTAGION_OUTPUT_DIR", c.Schedule.OutputDir)

	if v, ok := os.LookupEnv("CONTAGION_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONTAGION_WORKERS: %w", err)
		}
		c.Simulation.Workers = n
	}
	if v, ok := os.LookupEnv("CONTAGION_MAX_ITERATIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONTAGION_MAX_ITERATIONS: %w", err)
		}
		c.Simulation.MaxIterations = n
	}
	return nil
}

// Validate checks the configuration for required fields and ranges.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" || c.Storage.ClickHouseDSN == "" {
			return fmt.Errorf("%w: postgres_dsn and clickhouse_dsn are required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Simulation.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalidConfig)
	}
	if c.Simulation.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be > 0", ErrInvalidConfig)
	}
	if c.Simulation.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be >= 1", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(c.Scenarios))
	for _, s := range c.Scenarios {
		if s.Name == "" {
			return fmt.Errorf("%w: scenario without name", ErrInvalidConfig)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: duplicate scenario %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = struct{}{}
		if s.Seeds < 1 {
			return fmt.Errorf("%w: scenario %q: seeds must be >= 1", ErrInvalidConfig, s.Name)
		}
	}

	return nil
}

// Scenario returns the configured scenario with the given name.
func (c *Config) Scenario(name string) (domain.Scenario, bool) {
	for _, s := range c.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return domain.Scenario{}, false
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
