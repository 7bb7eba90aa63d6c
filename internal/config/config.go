package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

const appName = "ytanalytics"

type Config struct {
	YouTube  YouTube  `yaml:"youtube"`
	Channels Channels `yaml:"channels"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

type YouTube struct {
	APIKeyEnv         string        `yaml:"api_key_env"`
	BaseURL           string        `yaml:"base_url"`
	FeedURL           string        `yaml:"feed_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
	SearchMaxResults  int           `yaml:"search_max_results"`
	VideoCount        int           `yaml:"video_count"`
}

type Channels struct {
	Predefined []Channel `yaml:"predefined"`
}

type Channel struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

type Server struct {
	Port       int           `yaml:"port"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// UnknownChannel is the name reported for ids outside the predefined list.
const UnknownChannel = "Unknown Channel"

// ConfigDir returns the XDG config directory for ytanalytics.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// ResolveConfigPath finds the config file following priority:
// explicit path > $XDG_CONFIG_HOME/ytanalytics/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'ytanalytics init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the embedded configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		YouTube: YouTube{
			APIKeyEnv:         "YOUTUBE_API_KEY",
			BaseURL:           "https://www.googleapis.com/youtube/v3",
			FeedURL:           "https://www.youtube.com/feeds/videos.xml",
			RequestsPerSecond: 5,
			Timeout:           30 * time.Second,
			SearchMaxResults:  20,
			VideoCount:        50,
		},
		Server:  Server{Port: 8000, SessionTTL: 2 * time.Hour},
		Logging: Logging{Level: "info", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.YouTube.RequestsPerSecond < 0 {
		return fmt.Errorf("youtube.requests_per_second must not be negative")
	}
	if c.YouTube.SearchMaxResults < 1 || c.YouTube.SearchMaxResults > 50 {
		return fmt.Errorf("youtube.search_max_results must be between 1 and 50, got %d", c.YouTube.SearchMaxResults)
	}
	for i, ch := range c.Channels.Predefined {
		if strings.TrimSpace(ch.ID) == "" {
			return fmt.Errorf("channels.predefined[%d] (%s) has no id", i, ch.Name)
		}
	}
	return nil
}

// APIKey returns explicit if set, otherwise the value of the configured
// environment variable. An empty result means no key is available.
func (c *Config) APIKey(explicit string) string {
	if k := strings.TrimSpace(explicit); k != "" {
		return k
	}
	if c.YouTube.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.YouTube.APIKeyEnv))
}

// ChannelIDs returns the ids of the predefined channels in list order.
func (ch Channels) ChannelIDs() []string {
	ids := make([]string, 0, len(ch.Predefined))
	for _, c := range ch.Predefined {
		ids = append(ids, c.ID)
	}
	return ids
}

// NameByID returns the predefined name for a channel id, or UnknownChannel.
func (ch Channels) NameByID(id string) string {
	for _, c := range ch.Predefined {
		if c.ID == id {
			return c.Name
		}
	}
	return UnknownChannel
}

// SearchByName returns the id of the first predefined channel whose name
// contains name, ignoring case.
func (ch Channels) SearchByName(name string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", false
	}
	for _, c := range ch.Predefined {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			return c.ID, true
		}
	}
	return "", false
}
