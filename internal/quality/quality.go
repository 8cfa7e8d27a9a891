// Package quality selects the audio quality tier for the current device and
// network conditions.
package quality

import (
	"fmt"
	"strings"

	"github.com/glebovdev/lullaby-cli/internal/device"
)

// Tier is the audio quality class of a track variant.
type Tier string

const (
	High   Tier = "high"
	Medium Tier = "medium"
	Low    Tier = "low"
)

// Tiers lists every tier from best to worst.
func Tiers() []Tier {
	return []Tier{High, Medium, Low}
}

func (t Tier) String() string {
	return string(t)
}

func (t Tier) Valid() bool {
	switch t {
	case High, Medium, Low:
		return true
	}
	return false
}

// Short returns the compact label used in the status bar.
func (t Tier) Short() string {
	switch t {
	case High:
		return "HQ"
	case Medium:
		return "MQ"
	case Low:
		return "LQ"
	default:
		return ""
	}
}

// ParseTier parses a tier name case-insensitively.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown quality tier %q (want high, medium or low)", s)
	}
	return t, nil
}

// Settings is the user's quality preference.
type Settings struct {
	AutoSelect    bool `yaml:"auto_select"`
	PreferredTier Tier `yaml:"preferred_tier"`
}

func DefaultSettings() Settings {
	return Settings{
		AutoSelect:    true,
		PreferredTier: Medium,
	}
}

// Normalize replaces an unknown preferred tier with Medium.
func (s Settings) Normalize() Settings {
	if !s.PreferredTier.Valid() {
		s.PreferredTier = Medium
	}
	return s
}

// SelectTier picks the tier to play. An explicit user choice always wins;
// otherwise mobile devices are capped at Medium and slow networks step down.
func SelectTier(profile device.Profile, settings Settings) Tier {
	if !settings.AutoSelect {
		return settings.Normalize().PreferredTier
	}

	if profile.IsMobile {
		switch profile.Network {
		case device.NetworkSlow:
			return Low
		default:
			return Medium
		}
	}

	if profile.Network == device.NetworkSlow {
		return Medium
	}
	return High
}
