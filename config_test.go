package cyclor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	var testCases = []struct {
		description string
		mutate      func(c *Config)
		valid       bool
	}{
		{
			description: "defaults are valid",
			mutate:      func(c *Config) {},
			valid:       true,
		},
		{
			description: "zero workers",
			mutate:      func(c *Config) { c.Engine.Workers = 0 },
			valid:       false,
		},
		{
			description: "negative loop cap",
			mutate:      func(c *Config) { c.Engine.LoopCap = -1 },
			valid:       false,
		},
		{
			description: "negative gate capacity",
			mutate:      func(c *Config) { c.Gates = map[string]int{"draft": -1} },
			valid:       false,
		},
		{
			description: "malformed time budget",
			mutate:      func(c *Config) { c.TimeBudget = "soon" },
			valid:       false,
		},
		{
			description: "well formed time budget",
			mutate:      func(c *Config) { c.TimeBudget = "2h30m" },
			valid:       true,
		},
	}

	for _, testCase := range testCases {
		config := DefaultConfig()
		testCase.mutate(config)
		err := config.Validate()
		if testCase.valid {
			assert.Nil(t, err, testCase.description)
		} else {
			assert.NotNil(t, err, testCase.description)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	location := filepath.Join(t.TempDir(), "config.yaml")
	document := `
engine:
  workers: 7
  loopCap: 2
gates:
  draft: 3
loopN: 10
timeBudget: 45m
`
	assert.Nil(t, os.WriteFile(location, []byte(document), 0o644))

	config, err := LoadConfig(context.Background(), location)
	assert.Nil(t, err)
	assert.Equal(t, 7, config.Engine.Workers)
	assert.Equal(t, 2, config.Engine.LoopCap)
	assert.Equal(t, map[string]int{"draft": 3}, config.Gates)
	if assert.NotNil(t, config.LoopN) {
		assert.Equal(t, 10, *config.LoopN)
	}
	assert.Nil(t, config.StepN)
	assert.Equal(t, "45m", config.TimeBudget)
}

func TestLoadConfig_Invalid(t *testing.T) {
	location := filepath.Join(t.TempDir(), "config.yaml")
	assert.Nil(t, os.WriteFile(location, []byte("engine:\n  workers: 0\n"), 0o644))

	_, err := LoadConfig(context.Background(), location)
	assert.NotNil(t, err)

	_, err = LoadConfig(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}
