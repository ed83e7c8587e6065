package server

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sanonone/kektornav/internal/telemetry"
	"github.com/sanonone/kektornav/pkg/core/astar"
	"github.com/sanonone/kektornav/pkg/engine"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration file.
//
//	http_addr: ":9191"
//	auth_token: ${KEKTORNAV_TOKEN}
//	data_dir: ./data
//	search:
//	  node_pool_size: 256
//	  max_search_nodes: 100000
//	tracing:
//	  exporter: stdout
type Config struct {
	HTTPAddr  string `yaml:"http_addr"`
	AuthToken string `yaml:"auth_token"`
	LogLevel  string `yaml:"log_level"`
	// EnablePprof exposes /debug/pprof/ behind the auth middleware.
	EnablePprof bool `yaml:"enable_pprof"`

	DataDir              string        `yaml:"data_dir"`
	AofFilename          string        `yaml:"aof_filename"`
	AutoFlushInterval    time.Duration `yaml:"auto_flush_interval"`
	AofRewritePercentage int           `yaml:"aof_rewrite_percentage"`
	MaintenanceInterval  time.Duration `yaml:"maintenance_interval"`

	Search  astar.Policy     `yaml:"search"`
	Tracing telemetry.Config `yaml:"tracing"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	opts := engine.DefaultOptions("kektornav_data")
	return Config{
		HTTPAddr:             ":9191",
		LogLevel:             "info",
		DataDir:              opts.DataDir,
		AofFilename:          opts.AofFilename,
		AutoFlushInterval:    opts.AutoFlushInterval,
		AofRewritePercentage: opts.AofRewritePercentage,
		MaintenanceInterval:  opts.MaintenanceInterval,
		Search:               opts.Policy,
		Tracing:              telemetry.DefaultConfig(),
	}
}

// LoadConfig reads the YAML file at path over the defaults. Environment
// variables in the file are expanded. Unknown fields are rejected so typos
// do not go unnoticed. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read configuration file '%s': %w", path, err)
	}

	decoder := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("YAML syntax error in '%s': %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values the engine cannot start with.
func (c Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if c.AofRewritePercentage < 0 {
		return fmt.Errorf("aof_rewrite_percentage must be >= 0, got %d", c.AofRewritePercentage)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// EngineOptions converts the persistence and search settings.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		DataDir:              c.DataDir,
		AofFilename:          c.AofFilename,
		Policy:               c.Search,
		AutoFlushInterval:    c.AutoFlushInterval,
		AofRewritePercentage: c.AofRewritePercentage,
		MaintenanceInterval:  c.MaintenanceInterval,
	}
}
