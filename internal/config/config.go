package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/lullaby-cli/internal/quality"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const (
	AppName           = "Lullaby CLI"
	AppTagline        = "Soothing sounds for little sleepers"
	AppDescription    = "A terminal soothing-sounds player for baby sleep"
	AppAuthor         = "Ilya Glebov"
	AppAuthorURL      = "https://ilyaglebov.dev"
	AppAuthorURLShort = "ilyaglebov.dev"
	AppProjectURL     = "https://github.com/glebovdev/lullaby-cli"
	AppProjectShort   = "github.com/glebovdev/lullaby-cli"

	ConfigDir      = ".config/lullaby"
	ConfigFileName = "config.yml"
	DefaultVolume  = 70
	MinVolume      = 0
	MaxVolume      = 100

	DefaultCrossfadeSeconds = 0.05
	MaxCrossfadeSeconds     = 10.0

	EnvCatalogURL = "LULLABY_CATALOG_URL"
	EnvProbeURL   = "LULLABY_PROBE_URL"
	EnvAutostart  = "LULLABY_AUTOSTART"
)

// ClampVolume ensures volume is within the valid range [0, 100].
func ClampVolume(volume int) int {
	if volume < MinVolume {
		return MinVolume
	}
	if volume > MaxVolume {
		return MaxVolume
	}
	return volume
}

// AppVersion can be overridden at build time using ldflags:
// go build -ldflags "-X github.com/glebovdev/lullaby-cli/internal/config.AppVersion=1.0.0"
var AppVersion = "dev"

type Theme struct {
	Background                string `yaml:"background"`
	Foreground                string `yaml:"foreground"`
	Borders                   string `yaml:"borders"`
	Highlight                 string `yaml:"highlight"`
	MutedVolume               string `yaml:"muted_volume"`
	HeaderBackground          string `yaml:"header_background"`
	TrackListHeaderBackground string `yaml:"track_list_header_background"`
	TrackListHeaderForeground string `yaml:"track_list_header_foreground"`
	HelpBackground            string `yaml:"help_background"`
	HelpForeground            string `yaml:"help_foreground"`
	HelpHotkey                string `yaml:"help_hotkey"`
	CategoryTagBackground     string `yaml:"category_tag_background"`
	ModalBackground           string `yaml:"modal_background"`
}

// Engine holds the persisted playback engine preferences.
type Engine struct {
	NetworkAdaptive  bool    `yaml:"network_adaptive"`
	CrossfadeSeconds float64 `yaml:"crossfade_seconds"`
	Preload          bool    `yaml:"preload"`
}

// Crossfade returns the fade-in length as a duration.
func (e Engine) Crossfade() time.Duration {
	return time.Duration(e.CrossfadeSeconds * float64(time.Second))
}

type Config struct {
	Volume     int              `yaml:"volume"`
	LastTrack  string           `yaml:"last_track"`
	Autostart  bool             `yaml:"autostart"`
	Favorites  []string         `yaml:"favorites"`
	Recent     []string         `yaml:"recent"`
	Quality    quality.Settings `yaml:"quality"`
	Engine     Engine           `yaml:"engine"`
	CatalogURL string           `yaml:"catalog_url,omitempty"`
	ProbeURL   string           `yaml:"probe_url,omitempty"`
	Theme      Theme            `yaml:"theme"`
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(home, ConfigDir, ConfigFileName)
	return configPath, nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.normalize()

	return cfg, nil
}

func (c *Config) normalize() {
	c.Volume = ClampVolume(c.Volume)
	c.Quality = c.Quality.Normalize()

	switch {
	case math.IsNaN(c.Engine.CrossfadeSeconds):
		c.Engine.CrossfadeSeconds = DefaultCrossfadeSeconds
	case c.Engine.CrossfadeSeconds < 0:
		c.Engine.CrossfadeSeconds = 0
	case c.Engine.CrossfadeSeconds > MaxCrossfadeSeconds:
		c.Engine.CrossfadeSeconds = MaxCrossfadeSeconds
	}

	if c.Favorites == nil {
		c.Favorites = []string{}
	}
	if c.Recent == nil {
		c.Recent = []string{}
	}
}

// ApplyEnv overrides file settings with LULLABY_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvCatalogURL)); v != "" {
		c.CatalogURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvProbeURL)); v != "" {
		c.ProbeURL = v
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvAutostart))) {
	case "1", "true", "yes":
		c.Autostart = true
	case "0", "false", "no":
		c.Autostart = false
	}
}

// Save writes the configuration to disk atomically.
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := renameio.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Volume:    DefaultVolume,
		LastTrack: "",
		Autostart: false,
		Favorites: []string{},
		Recent:    []string{},
		Quality:   quality.DefaultSettings(),
		Engine: Engine{
			NetworkAdaptive:  true,
			CrossfadeSeconds: DefaultCrossfadeSeconds,
			Preload:          false,
		},
		Theme: Theme{
			Background:                "#161a2b",
			Foreground:                "#b8c0e0",
			Borders:                   "#3b4261",
			Highlight:                 "#f5c2e7",
			MutedVolume:               "#f38ba8",
			HeaderBackground:          "#2a2f4a",
			TrackListHeaderBackground: "#30365a",
			TrackListHeaderForeground: "#cdd6f4",
			HelpBackground:            "#232742",
			HelpForeground:            "#9aa5ce",
			HelpHotkey:                "#f5c2e7",
			CategoryTagBackground:     "#30365a",
			ModalBackground:           "#1e2136",
		},
	}
}

func GetColor(colorStr string) tcell.Color {
	if colorStr == "" || colorStr == "default" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(colorStr)
}
