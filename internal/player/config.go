package player

import (
	"time"

	"github.com/glebovdev/lullaby-cli/internal/buffer"
	"github.com/glebovdev/lullaby-cli/internal/quality"
)

const (
	DefaultAdaptiveInterval = 30 * time.Second
	DefaultLoadTimeout      = 10 * time.Second
	DefaultCrossfade        = 50 * time.Millisecond
	MaxCrossfade            = 10 * time.Second
	DefaultVolume           = 0.7
)

// EngineConfig is the engine's tunable behavior. It is passed to
// NewController and changed afterwards only through the Controller setters.
type EngineConfig struct {
	Quality          quality.Settings
	NetworkAdaptive  bool
	Crossfade        time.Duration
	Preload          bool
	AdaptiveInterval time.Duration
	LoadTimeout      time.Duration
	BufferThreshold  time.Duration
	Volume           float64
	Loop             bool
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Quality:          quality.DefaultSettings(),
		NetworkAdaptive:  true,
		Crossfade:        DefaultCrossfade,
		Preload:          false,
		AdaptiveInterval: DefaultAdaptiveInterval,
		LoadTimeout:      DefaultLoadTimeout,
		BufferThreshold:  buffer.DefaultThreshold,
		Volume:           DefaultVolume,
		Loop:             false,
	}
}

func (c EngineConfig) normalize() EngineConfig {
	c.Quality = c.Quality.Normalize()
	c.Crossfade = clampCrossfade(c.Crossfade)
	if c.AdaptiveInterval <= 0 {
		c.AdaptiveInterval = DefaultAdaptiveInterval
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = DefaultLoadTimeout
	}
	if c.BufferThreshold <= 0 {
		c.BufferThreshold = buffer.DefaultThreshold
	}
	c.Volume = ClampVolume(c.Volume)
	return c
}

func clampCrossfade(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxCrossfade {
		return MaxCrossfade
	}
	return d
}
