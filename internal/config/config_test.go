package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/lullaby-cli/internal/quality"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Volume != DefaultVolume {
		t.Errorf("DefaultConfig().Volume = %d, want %d", cfg.Volume, DefaultVolume)
	}

	if cfg.LastTrack != "" {
		t.Errorf("DefaultConfig().LastTrack = %q, want empty string", cfg.LastTrack)
	}

	if cfg.Autostart != false {
		t.Errorf("DefaultConfig().Autostart = %v, want false", cfg.Autostart)
	}

	if cfg.Quality != quality.DefaultSettings() {
		t.Errorf("DefaultConfig().Quality = %+v, want %+v", cfg.Quality, quality.DefaultSettings())
	}

	if !cfg.Engine.NetworkAdaptive || cfg.Engine.Preload {
		t.Errorf("DefaultConfig().Engine = %+v, want adaptive without preload", cfg.Engine)
	}

	if cfg.Engine.Crossfade() != 50*time.Millisecond {
		t.Errorf("DefaultConfig().Engine.Crossfade() = %v, want 50ms", cfg.Engine.Crossfade())
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	testCfg := DefaultConfig()
	testCfg.Volume = 85
	testCfg.LastTrack = "ocean-waves"
	testCfg.Favorites = []string{"brahms", "heartbeat"}
	testCfg.Recent = []string{"ocean-waves", "brahms"}
	testCfg.Quality = quality.Settings{AutoSelect: false, PreferredTier: quality.Low}
	testCfg.Engine = Engine{NetworkAdaptive: false, CrossfadeSeconds: 1.5, Preload: true}
	testCfg.CatalogURL = "https://cdn.example.com/catalog"

	if err := testCfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	configPath := filepath.Join(tmpDir, ConfigDir, ConfigFileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}

	loadedCfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loadedCfg.Volume != 85 || loadedCfg.LastTrack != "ocean-waves" {
		t.Errorf("Load() volume/last track = %d/%q", loadedCfg.Volume, loadedCfg.LastTrack)
	}
	if len(loadedCfg.Favorites) != 2 || loadedCfg.Favorites[0] != "brahms" {
		t.Errorf("Load().Favorites = %v", loadedCfg.Favorites)
	}
	if len(loadedCfg.Recent) != 2 || loadedCfg.Recent[0] != "ocean-waves" {
		t.Errorf("Load().Recent = %v", loadedCfg.Recent)
	}
	if loadedCfg.Quality != testCfg.Quality {
		t.Errorf("Load().Quality = %+v, want %+v", loadedCfg.Quality, testCfg.Quality)
	}
	if loadedCfg.Engine != testCfg.Engine {
		t.Errorf("Load().Engine = %+v, want %+v", loadedCfg.Engine, testCfg.Engine)
	}
	if loadedCfg.CatalogURL != testCfg.CatalogURL {
		t.Errorf("Load().CatalogURL = %q", loadedCfg.CatalogURL)
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Volume != DefaultVolume {
		t.Errorf("Load().Volume = %d, want default %d", cfg.Volume, DefaultVolume)
	}
}

func TestLoadNormalizes(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		volume    int
		crossfade float64
		tier      quality.Tier
	}{
		{"valid", "volume: 50\n", 50, DefaultCrossfadeSeconds, quality.Medium},
		{"negative volume", "volume: -10\n", 0, DefaultCrossfadeSeconds, quality.Medium},
		{"volume over 100", "volume: 1000\n", 100, DefaultCrossfadeSeconds, quality.Medium},
		{"negative crossfade", "engine:\n  crossfade_seconds: -2\n", DefaultVolume, 0, quality.Medium},
		{"huge crossfade", "engine:\n  crossfade_seconds: 60\n", DefaultVolume, MaxCrossfadeSeconds, quality.Medium},
		{"nan crossfade", "engine:\n  crossfade_seconds: .nan\n", DefaultVolume, DefaultCrossfadeSeconds, quality.Medium},
		{"infinite crossfade", "engine:\n  crossfade_seconds: .inf\n", DefaultVolume, MaxCrossfadeSeconds, quality.Medium},
		{"unknown tier", "quality:\n  preferred_tier: ultra\n", DefaultVolume, DefaultCrossfadeSeconds, quality.Medium},
		{"low tier", "quality:\n  preferred_tier: low\n", DefaultVolume, DefaultCrossfadeSeconds, quality.Low},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Setenv("HOME", tmpDir)

			configDir := filepath.Join(tmpDir, ConfigDir)
			_ = os.MkdirAll(configDir, 0755)
			_ = os.WriteFile(filepath.Join(configDir, ConfigFileName), []byte(tt.yaml), 0644)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Volume != tt.volume {
				t.Errorf("Volume = %d, want %d", cfg.Volume, tt.volume)
			}
			if cfg.Engine.CrossfadeSeconds != tt.crossfade {
				t.Errorf("CrossfadeSeconds = %v, want %v", cfg.Engine.CrossfadeSeconds, tt.crossfade)
			}
			if cfg.Quality.PreferredTier != tt.tier {
				t.Errorf("PreferredTier = %q, want %q", cfg.Quality.PreferredTier, tt.tier)
			}
			if !cfg.Quality.AutoSelect {
				t.Error("AutoSelect should keep its default when absent")
			}
		})
	}
}

func TestThemeDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Logf("Load() error (expected): %v", err)
	}

	def := DefaultConfig().Theme
	if cfg.Theme != def {
		t.Errorf("Theme = %+v, want defaults %+v", cfg.Theme, def)
	}
	if cfg.Theme.Highlight == "" || cfg.Theme.MutedVolume == "" {
		t.Error("default theme should define highlight and muted colors")
	}
}

func TestThemePersistence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	testCfg := DefaultConfig()
	testCfg.Theme.Background = "black"
	testCfg.Theme.Highlight = "red"

	if err := testCfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loadedCfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loadedCfg.Theme.Background != "black" {
		t.Errorf("Theme.Background = %q, want %q", loadedCfg.Theme.Background, "black")
	}
	if loadedCfg.Theme.Highlight != "red" {
		t.Errorf("Theme.Highlight = %q, want %q", loadedCfg.Theme.Highlight, "red")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvCatalogURL, " https://cdn.example.com/lullaby ")
	t.Setenv(EnvProbeURL, "https://cdn.example.com/probe.bin")
	t.Setenv(EnvAutostart, "yes")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.CatalogURL != "https://cdn.example.com/lullaby" {
		t.Errorf("CatalogURL = %q", cfg.CatalogURL)
	}
	if cfg.ProbeURL != "https://cdn.example.com/probe.bin" {
		t.Errorf("ProbeURL = %q", cfg.ProbeURL)
	}
	if !cfg.Autostart {
		t.Error("Autostart should be enabled by env")
	}

	t.Setenv(EnvAutostart, "0")
	cfg.ApplyEnv()
	if cfg.Autostart {
		t.Error("Autostart should be disabled by env")
	}
}

func TestGetColor(t *testing.T) {
	tests := []struct {
		input    string
		expected tcell.Color
	}{
		{"", tcell.ColorDefault},
		{"default", tcell.ColorDefault},
		{"red", tcell.ColorRed},
		{"#ff0000", tcell.NewHexColor(0xff0000)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := GetColor(tt.input); got != tt.expected {
				t.Errorf("GetColor(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configDir := filepath.Join(tmpDir, ConfigDir)
	_ = os.MkdirAll(configDir, 0755)
	_ = os.WriteFile(filepath.Join(configDir, ConfigFileName), []byte("this is not: valid: yaml: ["), 0644)

	cfg, err := Load()
	if err == nil {
		t.Error("Load() should report invalid YAML")
	}
	if cfg.Volume != DefaultVolume {
		t.Errorf("Load() with invalid YAML returned Volume = %d, want default %d", cfg.Volume, DefaultVolume)
	}
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("GetConfigPath() = %q, want absolute path", path)
	}
}
