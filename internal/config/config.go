// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Retry controls how the sender retries a failed batch before declaring
// it dropped and moving on.
type Retry struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// Config is the root configuration for the supervisor. Every field has a
// working default so the container image may ship without a config file;
// the tuning knobs exist because the right values depend on the platform's
// network, not on this code.
type Config struct {
	// WorkspaceDir is the directory holding the user entry point. The
	// entry point file name itself (train.sh) is a fixed convention and
	// is not configurable.
	WorkspaceDir string `yaml:"workspace_dir"`

	// GracePeriod is how long a forwarded termination signal may take to
	// stop the child before it is killed.
	GracePeriod time.Duration `yaml:"grace_period"`

	QueueSize     int           `yaml:"queue_size"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`

	// FinalFlushTimeout bounds the synchronous drain after the child has
	// exited, so a dead endpoint cannot hold the container open.
	FinalFlushTimeout time.Duration `yaml:"final_flush_timeout"`

	Retry Retry `yaml:"retry"`

	// StatusAddr is the listen address of the status HTTP server.
	// Empty disables it.
	StatusAddr string `yaml:"status_addr"`

	// MirrorFile, when set, receives a JSONL copy of every captured
	// chunk. It doubles as the input for `replay` and `tail`.
	MirrorFile string `yaml:"mirror_file"`
}

// rawConfig mirrors Config with durations as strings, the form they take
// in YAML. Pointer fields distinguish "absent" from an explicit zero so
// that unset keys keep their defaults.
type rawConfig struct {
	WorkspaceDir      string    `yaml:"workspace_dir"`
	GracePeriod       string    `yaml:"grace_period"`
	QueueSize         *int      `yaml:"queue_size"`
	BatchSize         *int      `yaml:"batch_size"`
	FlushInterval     string    `yaml:"flush_interval"`
	FinalFlushTimeout string    `yaml:"final_flush_timeout"`
	Retry             *rawRetry `yaml:"retry"`
	StatusAddr        *string   `yaml:"status_addr"`
	MirrorFile        string    `yaml:"mirror_file"`
}

type rawRetry struct {
	MaxAttempts    *int   `yaml:"max_attempts"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
}

// UnmarshalYAML decodes the file form, parsing duration strings and
// overriding only the fields the file actually sets.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.WorkspaceDir != "" {
		c.WorkspaceDir = raw.WorkspaceDir
	}
	if err := parseDuration("grace_period", raw.GracePeriod, &c.GracePeriod); err != nil {
		return err
	}
	if raw.QueueSize != nil {
		c.QueueSize = *raw.QueueSize
	}
	if raw.BatchSize != nil {
		c.BatchSize = *raw.BatchSize
	}
	if err := parseDuration("flush_interval", raw.FlushInterval, &c.FlushInterval); err != nil {
		return err
	}
	if err := parseDuration("final_flush_timeout", raw.FinalFlushTimeout, &c.FinalFlushTimeout); err != nil {
		return err
	}
	if raw.Retry != nil {
		if raw.Retry.MaxAttempts != nil {
			c.Retry.MaxAttempts = *raw.Retry.MaxAttempts
		}
		if err := parseDuration("retry.initial_backoff", raw.Retry.InitialBackoff, &c.Retry.InitialBackoff); err != nil {
			return err
		}
		if err := parseDuration("retry.max_backoff", raw.Retry.MaxBackoff, &c.Retry.MaxBackoff); err != nil {
			return err
		}
	}
	if raw.StatusAddr != nil {
		c.StatusAddr = *raw.StatusAddr
	}
	if raw.MirrorFile != "" {
		c.MirrorFile = raw.MirrorFile
	}
	return nil
}

// parseDuration parses s into dst; an empty string leaves dst untouched.
func parseDuration(field, s string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WorkspaceDir:      "/workspace",
		GracePeriod:       10 * time.Second,
		QueueSize:         1024,
		BatchSize:         64,
		FlushInterval:     2 * time.Second,
		FinalFlushTimeout: 5 * time.Second,
		Retry: Retry{
			MaxAttempts:    5,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     8 * time.Second,
		},
		StatusAddr: ":8080",
	}
}

// Load loads YAML config, validates it against a CUE schema, and applies
// environment overrides. A missing config file is not an error: the
// defaults apply and only the environment is consulted.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(configPath); err == nil {
		if cueSchemaPath != "" {
			if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
				return nil, err
			}
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot unmarshal config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from TRAINOPS_* environment variables.
// The platform injects these per run; they win over the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("TRAINOPS_WORKSPACE"); v != "" {
		c.WorkspaceDir = v
	}
	if v := os.Getenv("TRAINOPS_GRACE_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GracePeriod = d
		}
	}
	if v := os.Getenv("TRAINOPS_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.QueueSize = n
		}
	}
	if v := os.Getenv("TRAINOPS_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchSize = n
		}
	}
	if v := os.Getenv("TRAINOPS_FLUSH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.FlushInterval = d
		}
	}
	if v := os.Getenv("TRAINOPS_FINAL_FLUSH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.FinalFlushTimeout = d
		}
	}
	if v := os.Getenv("TRAINOPS_STATUS_ADDR"); v != "" {
		c.StatusAddr = v
	}
	if v := os.Getenv("TRAINOPS_MIRROR_FILE"); v != "" {
		c.MirrorFile = v
	}
}

// check rejects values the forwarder cannot operate with.
func (c *Config) check() error {
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be >= 1, got %d", c.QueueSize)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1, got %d", c.BatchSize)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.GracePeriod <= 0 {
		return fmt.Errorf("grace_period must be positive, got %s", c.GracePeriod)
	}
	return nil
}
