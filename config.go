package cyclor

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/cyclor/engine"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from YAML or JSON. The zero-value is useful – all nested
// fields inherit their package defaults.
type Config struct {
	Engine engine.Config `json:"engine" yaml:"engine"`

	// Gates maps step names to concurrency capacity overrides; names
	// absent here run unbounded, the record step is always serialized.
	Gates map[string]int `json:"gates,omitempty" yaml:"gates,omitempty"`

	// LoopN and StepN cap admitted loop instances and total step
	// executions; nil means unlimited.
	LoopN *int `json:"loopN,omitempty" yaml:"loopN,omitempty"`
	StepN *int `json:"stepN,omitempty" yaml:"stepN,omitempty"`

	// TimeBudget bounds the whole run wall-clock, e.g. "2h30m"; empty
	// disables the timer.
	TimeBudget string `json:"timeBudget,omitempty" yaml:"timeBudget,omitempty"`

	// CheckpointURL roots the filesystem checkpoint store; empty keeps
	// checkpoints in memory.
	CheckpointURL string `json:"checkpointURL,omitempty" yaml:"checkpointURL,omitempty"`
}

// DefaultConfig returns a Config populated with package defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: engine.DefaultConfig(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be > 0")
	}
	if c.Engine.LoopCap < 0 {
		return fmt.Errorf("engine.loopCap cannot be negative")
	}
	for name, capacity := range c.Gates {
		if capacity < 0 {
			return fmt.Errorf("gates[%s] cannot be negative", name)
		}
	}
	if c.TimeBudget != "" {
		if _, err := time.ParseDuration(c.TimeBudget); err != nil {
			return fmt.Errorf("invalid timeBudget: %w", err)
		}
	}
	return nil
}

// timeBudget returns the parsed time budget; zero when unset.
func (c *Config) timeBudget() time.Duration {
	if c == nil || c.TimeBudget == "" {
		return 0
	}
	budget, _ := time.ParseDuration(c.TimeBudget)
	return budget
}

// LoadConfig reads a YAML config from any afs-supported URL and validates
// it; unset fields keep their defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
