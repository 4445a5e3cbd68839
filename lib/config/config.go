// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment variables read by this package.
const (
	ConfigEnv = "SWITCHBOARD_CONFIG"
	TokenEnv  = "SWITCHBOARD_TOKEN"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete switchboard configuration.
type Config struct {
	Environment Environment `yaml:"environment" json:"environment"`

	Gateway   GatewayConfig   `yaml:"gateway" json:"gateway"`
	Reconnect ReconnectConfig `yaml:"reconnect" json:"reconnect"`
	Inflate   InflateConfig   `yaml:"inflate" json:"inflate"`
	Relay     RelayConfig     `yaml:"relay" json:"relay"`
	Log       LogConfig       `yaml:"log" json:"log"`

	// Per-environment overrides, applied after the base values.
	Development *Overrides `yaml:"development,omitempty" json:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty" json:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty" json:"production,omitempty"`
}

// Overrides contains the fields an environment section may replace.
// Empty values leave the base value alone.
type Overrides struct {
	Gateway *GatewayConfig `yaml:"gateway,omitempty" json:"gateway,omitempty"`
	Relay   *RelayConfig   `yaml:"relay,omitempty" json:"relay,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty" json:"log,omitempty"`
}

// GatewayConfig configures the gateway connection and identify payload.
type GatewayConfig struct {
	// URL is the gateway endpoint, ws:// or wss://.
	URL string `yaml:"url" json:"url"`

	// APIVersion is sent as the v query parameter.
	// Default: 9
	APIVersion int `yaml:"api_version" json:"api_version"`

	// Compress requests zlib-stream transport compression.
	// Default: true
	Compress bool `yaml:"compress" json:"compress"`

	Capabilities   int  `yaml:"capabilities" json:"capabilities"`
	Intents        *int `yaml:"intents,omitempty" json:"intents,omitempty"`
	LargeThreshold int  `yaml:"large_threshold" json:"large_threshold"`

	// TokenFile holds the session token when SWITCHBOARD_TOKEN is not
	// set. Surrounding whitespace is ignored.
	TokenFile string `yaml:"token_file" json:"token_file"`

	Properties PropertiesConfig `yaml:"properties" json:"properties"`
}

// PropertiesConfig is the client description sent with identify.
type PropertiesConfig struct {
	OS      string `yaml:"os" json:"os"`
	Browser string `yaml:"browser" json:"browser"`
	Device  string `yaml:"device" json:"device"`
}

// ReconnectConfig tunes reconnect timing.
type ReconnectConfig struct {
	// Delay is the first non-zero backoff step.
	// Default: 1s
	Delay Duration `yaml:"delay" json:"delay"`

	// MaxDelay caps the backoff.
	// Default: 30s
	MaxDelay Duration `yaml:"max_delay" json:"max_delay"`

	// InvalidSessionDelay is the wait before re-identifying after an
	// invalid session.
	// Default: 1s
	InvalidSessionDelay Duration `yaml:"invalid_session_delay" json:"invalid_session_delay"`
}

// InflateConfig tunes the frame decompressor.
type InflateConfig struct {
	// ChunkSize is the decompressor's output growth step in bytes.
	// Default: 65536
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
}

// RelayConfig configures republishing notifications to NATS. Relaying
// is off when NATSURL is empty.
type RelayConfig struct {
	NATSURL string `yaml:"nats_url" json:"nats_url"`

	// SubjectPrefix is prepended to each notification kind.
	// Default: switchboard
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level" json:"level"`
}

// Duration is a time.Duration written as a Go duration string ("1s",
// "250ms") in the configuration file.
type Duration time.Duration

func (d *Duration) parse(text string) error {
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	return d.parse(text)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return d.parse(text)
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used as a base before the file is
// loaded.
func Default() *Config {
	return &Config{
		Environment: Development,
		Gateway: GatewayConfig{
			APIVersion: 9,
			Compress:   true,
			Properties: PropertiesConfig{
				OS:      "linux",
				Browser: "switchboard",
				Device:  "switchboard",
			},
		},
		Reconnect: ReconnectConfig{
			Delay:               Duration(time.Second),
			MaxDelay:            Duration(30 * time.Second),
			InvalidSessionDelay: Duration(time.Second),
		},
		Inflate: InflateConfig{ChunkSize: 64 * 1024},
		Relay:   RelayConfig{SubjectPrefix: "switchboard"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load loads configuration from the file named by SWITCHBOARD_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(ConfigEnv)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your switchboard.yaml, or use --config", ConfigEnv)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, applies the matching
// environment section and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return yaml.Unmarshal(data, c)
	}
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if gateway := overrides.Gateway; gateway != nil {
		if gateway.URL != "" {
			c.Gateway.URL = gateway.URL
		}
		if gateway.APIVersion != 0 {
			c.Gateway.APIVersion = gateway.APIVersion
		}
		if gateway.TokenFile != "" {
			c.Gateway.TokenFile = gateway.TokenFile
		}
		if gateway.Intents != nil {
			c.Gateway.Intents = gateway.Intents
		}
	}
	if relay := overrides.Relay; relay != nil {
		if relay.NATSURL != "" {
			c.Relay.NATSURL = relay.NATSURL
		}
		if relay.SubjectPrefix != "" {
			c.Relay.SubjectPrefix = relay.SubjectPrefix
		}
	}
	if log := overrides.Log; log != nil && log.Level != "" {
		c.Log.Level = log.Level
	}
}

func (c *Config) expandVariables() {
	c.Gateway.URL = expandVars(c.Gateway.URL)
	c.Gateway.TokenFile = expandVars(c.Gateway.TokenFile)
	c.Relay.NATSURL = expandVars(c.Relay.NATSURL)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
// An unset or empty variable takes the default.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Token returns the session token from SWITCHBOARD_TOKEN, or else
// from the token file.
func (c *Config) Token() (string, error) {
	if token := os.Getenv(TokenEnv); token != "" {
		return token, nil
	}
	if c.Gateway.TokenFile == "" {
		return "", fmt.Errorf("no token: set %s or gateway.token_file", TokenEnv)
	}
	data, err := os.ReadFile(c.Gateway.TokenFile)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", c.Gateway.TokenFile)
	}
	return token, nil
}

// ConnectURL returns the gateway URL with the v and encoding query
// parameters set. Parameters already present in the URL are kept.
func (g GatewayConfig) ConnectURL() (string, error) {
	parsed, err := url.Parse(g.URL)
	if err != nil {
		return "", fmt.Errorf("gateway.url: %w", err)
	}
	query := parsed.Query()
	if !query.Has("v") {
		query.Set("v", strconv.Itoa(g.APIVersion))
	}
	if !query.Has("encoding") {
		query.Set("encoding", "json")
	}
	parsed.RawQuery = query.Encode()
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.String(), nil
}

// SlogLevel returns the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Validate checks the configuration for errors and reports all of
// them together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Gateway.URL == "" {
		errs = append(errs, errors.New("gateway.url is required"))
	} else if parsed, err := url.Parse(c.Gateway.URL); err != nil {
		errs = append(errs, fmt.Errorf("gateway.url: %w", err))
	} else if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		errs = append(errs, fmt.Errorf("gateway.url must use ws or wss, not %q", parsed.Scheme))
	}
	if c.Gateway.APIVersion <= 0 {
		errs = append(errs, errors.New("gateway.api_version must be positive"))
	}
	if c.Gateway.LargeThreshold < 0 {
		errs = append(errs, errors.New("gateway.large_threshold must not be negative"))
	}

	if c.Reconnect.Delay <= 0 {
		errs = append(errs, errors.New("reconnect.delay must be positive"))
	}
	if c.Reconnect.MaxDelay < c.Reconnect.Delay {
		errs = append(errs, errors.New("reconnect.max_delay must be at least reconnect.delay"))
	}
	if c.Reconnect.InvalidSessionDelay < 0 {
		errs = append(errs, errors.New("reconnect.invalid_session_delay must not be negative"))
	}

	if c.Inflate.ChunkSize <= 0 {
		errs = append(errs, errors.New("inflate.chunk_size must be positive"))
	}

	if c.Relay.NATSURL != "" && c.Relay.SubjectPrefix == "" {
		errs = append(errs, errors.New("relay.subject_prefix is required when relay.nats_url is set"))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
