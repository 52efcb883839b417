package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"soundboard/internal/catalog"
)

// ConfigError marks a missing mandatory field. Startup treats it as fatal
// and does not retry, unlike transient init failures.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is missing in the config file", e.Field)
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

type Config struct {
	Server ServerConfig  `yaml:"server"`
	Twitch TwitchConfig  `yaml:"twitch"`
	MIDIIn string        `yaml:"midi_in"`
	Assets AssetsConfig  `yaml:"assets"`
	Client ClientConfig  `yaml:"client"`
	Sounds []catalog.Cue `yaml:"sounds"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	HTTPPort int    `yaml:"http_port"`
	WSPort   int    `yaml:"ws_port"`
}

type TwitchConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokensFile   string `yaml:"tokens_file"`
}

type AssetsConfig struct {
	Dir string `yaml:"dir"`
}

type ClientConfig struct {
	// LoadTimeout bounds how long a play waits for one asset to become
	// ready before skipping that part.
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
		},
		Twitch: TwitchConfig{
			TokensFile: "tokens.json",
		},
		Assets: AssetsConfig{
			Dir: "assets",
		},
		Client: ClientConfig{
			LoadTimeout: 10 * time.Second,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the mandatory fields. Ports and Twitch app credentials
// have no workable defaults; everything else does.
func (c *Config) Validate() error {
	if c.Server.HTTPPort == 0 {
		return &ConfigError{Field: "server.http_port"}
	}
	if c.Server.WSPort == 0 {
		return &ConfigError{Field: "server.ws_port"}
	}
	if c.Twitch.ClientID == "" {
		return &ConfigError{Field: "twitch.client_id"}
	}
	if c.Twitch.ClientSecret == "" {
		return &ConfigError{Field: "twitch.client_secret"}
	}
	return nil
}

// Catalog builds the immutable cue catalog from the configured sounds.
func (c *Config) Catalog() *catalog.Catalog {
	return catalog.New(c.Sounds)
}
