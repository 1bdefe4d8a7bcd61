// Package config assembles the run configuration from defaults, the YAML
// config file, a .env file, the environment and command line overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ochairo/vtscan/internal/domain-adapters/gateways"
	"github.com/ochairo/vtscan/internal/domain/entities"
	"github.com/ochairo/vtscan/internal/external-adapters/yaml"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	configDirName      = "vtscan"
	configFileName     = "config.yaml"
)

// ErrMissingCredential is returned when no API key was configured anywhere
var ErrMissingCredential = errors.New("missing API key (set VT_API_KEY or api_key in the config file)")

// envOverlay holds optional environment overrides. A variable that is unset,
// empty or blank leaves the lower layers untouched.
type envOverlay struct {
	APIKey       envString   `envconfig:"VT_API_KEY"`
	APIURL       envString   `envconfig:"VTSCAN_API_URL"`
	UserAgent    envString   `envconfig:"VTSCAN_USER_AGENT"`
	PollInterval envDuration `envconfig:"VTSCAN_POLL_INTERVAL"`
	MaxAttempts  envInt      `envconfig:"VTSCAN_MAX_ATTEMPTS"`
	MaxWait      envDuration `envconfig:"VTSCAN_MAX_WAIT"`
	SubmitDelay  envDuration `envconfig:"VTSCAN_SUBMIT_DELAY"`
	HTTPTimeout  envDuration `envconfig:"VTSCAN_HTTP_TIMEOUT"`
	Keyring      envString   `envconfig:"VTSCAN_KEYRING"`
}

// envString, envInt and envDuration implement envconfig.Decoder and record
// whether a non-blank value was present
type envString struct {
	value string
	set   bool
}

func (e *envString) Decode(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	e.value, e.set = raw, true
	return nil
}

type envInt struct {
	value int
	set   bool
}

func (e *envInt) Decode(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	e.value, e.set = n, true
	return nil
}

type envDuration struct {
	value time.Duration
	set   bool
}

func (e *envDuration) Decode(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	e.value, e.set = d, true
	return nil
}

// constraints mirrors RunConfig for validation
type constraints struct {
	APIKey      string        `validate:"required"`
	APIURL      string        `validate:"required,url"`
	Interval    time.Duration `validate:"gt=0"`
	MaxAttempts int           `validate:"gte=0"`
	MaxWait     time.Duration `validate:"gte=0"`
	SubmitDelay time.Duration `validate:"gte=0"`
	HTTPTimeout time.Duration `validate:"gt=0"`
}

// Loader builds a RunConfig
type Loader struct {
	// ConfigPath is an explicit config file. When empty the default location
	// is used if it exists.
	ConfigPath string

	// DotEnvPath is loaded into the environment before it is read; variables
	// already set take precedence. Missing files are ignored.
	DotEnvPath string

	parser   *yaml.ConfigParser
	validate *validator.Validate
}

// NewLoader creates a loader reading configPath and .env in the working directory
func NewLoader(configPath string) *Loader {
	return &Loader{
		ConfigPath: configPath,
		DotEnvPath: ".env",
		parser:     yaml.NewConfigParser(),
		validate:   validator.New(),
	}
}

// Defaults returns the configuration used when nothing else is set
func Defaults() entities.RunConfig {
	return entities.RunConfig{
		APIURL:      gateways.DefaultAPIURL,
		UserAgent:   gateways.DefaultUserAgent,
		HTTPTimeout: defaultHTTPTimeout,
		Poll:        entities.DefaultPollPolicy(),
		SubmitDelay: entities.DefaultPollInterval,
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/vtscan/config.yaml or its platform equivalent
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// Load merges all configuration layers, applies overrides last and validates
// the result
func (l *Loader) Load(overrides ...func(*entities.RunConfig)) (entities.RunConfig, error) {
	cfg := Defaults()

	cfg, err := l.loadFile(cfg)
	if err != nil {
		return cfg, err
	}

	if l.DotEnvPath != "" {
		if err := godotenv.Load(l.DotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load %s: %w", l.DotEnvPath, err)
		}
	}

	var env envOverlay
	if err := envconfig.Process("", &env); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}
	env.apply(&cfg)

	for _, o := range overrides {
		o(&cfg)
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if err := l.check(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (l *Loader) loadFile(cfg entities.RunConfig) (entities.RunConfig, error) {
	path := l.ConfigPath
	explicit := path != ""

	if !explicit {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to access config file: %w", err)
	}

	return l.parser.ParseFile(path, cfg)
}

func (l *Loader) check(cfg entities.RunConfig) error {
	if cfg.APIKey == "" {
		return ErrMissingCredential
	}

	err := l.validate.Struct(constraints{
		APIKey:      cfg.APIKey,
		APIURL:      cfg.APIURL,
		Interval:    cfg.Poll.Interval,
		MaxAttempts: cfg.Poll.MaxAttempts,
		MaxWait:     cfg.Poll.MaxWait,
		SubmitDelay: cfg.SubmitDelay,
		HTTPTimeout: cfg.HTTPTimeout,
	})

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s%s", fe.Field(), fe.Tag(), paramSuffix(fe.Param())))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return err
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

func (e envOverlay) apply(cfg *entities.RunConfig) {
	if e.APIKey.set {
		cfg.APIKey = e.APIKey.value
	}
	if e.APIURL.set {
		cfg.APIURL = e.APIURL.value
	}
	if e.UserAgent.set {
		cfg.UserAgent = e.UserAgent.value
	}
	if e.PollInterval.set {
		cfg.Poll.Interval = e.PollInterval.value
	}
	if e.MaxAttempts.set {
		cfg.Poll.MaxAttempts = e.MaxAttempts.value
	}
	if e.MaxWait.set {
		cfg.Poll.MaxWait = e.MaxWait.value
	}
	if e.SubmitDelay.set {
		cfg.SubmitDelay = e.SubmitDelay.value
	}
	if e.HTTPTimeout.set {
		cfg.HTTPTimeout = e.HTTPTimeout.value
	}
	if e.Keyring.set {
		cfg.KeyringPath = e.Keyring.value
	}
}
