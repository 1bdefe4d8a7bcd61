// Package yaml provides YAML-based configuration file parsing.
package yaml

import (
	"fmt"
	"os"
	"time"

	"github.com/ochairo/vtscan/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlConfig represents the raw YAML structure of the config file
type yamlConfig struct {
	APIKey      string        `yaml:"api_key"`
	APIURL      string        `yaml:"api_url"`
	UserAgent   string        `yaml:"user_agent"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	SubmitDelay time.Duration `yaml:"submit_delay"`
	Poll        yamlPoll      `yaml:"poll"`
	Output      yamlOutput    `yaml:"output"`
	Keyring     string        `yaml:"keyring"`
}

type yamlPoll struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
	MaxWait     time.Duration `yaml:"max_wait"`
}

type yamlOutput struct {
	Verbose bool `yaml:"verbose"`
	Engines bool `yaml:"engines"`
	NoColor bool `yaml:"no_color"`
}

// ConfigParser parses YAML config files
type ConfigParser struct{}

// NewConfigParser creates a new YAML parser
func NewConfigParser() *ConfigParser {
	return &ConfigParser{}
}

// ParseFile reads filePath and layers its settings over base
func (p *ConfigParser) ParseFile(filePath string, base entities.RunConfig) (entities.RunConfig, error) {
	//nolint:gosec // G304: filePath is the operator's config file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return base, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data, base)
}

// Parse layers the settings in data over base. Keys absent from data keep
// the value they have in base.
func (p *ConfigParser) Parse(data []byte, base entities.RunConfig) (entities.RunConfig, error) {
	raw := fromRunConfig(base)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return base, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return raw.toRunConfig(base), nil
}

func fromRunConfig(c entities.RunConfig) yamlConfig {
	return yamlConfig{
		APIKey:      c.APIKey,
		APIURL:      c.APIURL,
		UserAgent:   c.UserAgent,
		HTTPTimeout: c.HTTPTimeout,
		SubmitDelay: c.SubmitDelay,
		Poll: yamlPoll{
			Interval:    c.Poll.Interval,
			MaxAttempts: c.Poll.MaxAttempts,
			MaxWait:     c.Poll.MaxWait,
		},
		Output: yamlOutput{
			Verbose: c.Verbose,
			Engines: c.ShowEngines,
			NoColor: c.NoColor,
		},
		Keyring: c.KeyringPath,
	}
}

func (y yamlConfig) toRunConfig(base entities.RunConfig) entities.RunConfig {
	c := base
	c.APIKey = y.APIKey
	c.APIURL = y.APIURL
	c.UserAgent = y.UserAgent
	c.HTTPTimeout = y.HTTPTimeout
	c.SubmitDelay = y.SubmitDelay
	c.Poll = entities.PollPolicy{
		Interval:    y.Poll.Interval,
		MaxAttempts: y.Poll.MaxAttempts,
		MaxWait:     y.Poll.MaxWait,
	}
	c.Verbose = y.Output.Verbose
	c.ShowEngines = y.Output.Engines
	c.NoColor = y.Output.NoColor
	c.KeyringPath = y.Keyring
	return c
}
