// Package catalog defines the playable tracks of the soothing-sounds player.
package catalog

import (
	"maps"
	"strings"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/quality"
)

// Category groups tracks in the browser.
type Category string

const (
	CategoryNature     Category = "nature"
	CategoryAmbient    Category = "ambient"
	CategoryLullaby    Category = "lullaby"
	CategorySleep      Category = "sleep"
	CategoryWhiteNoise Category = "white-noise"
)

func Categories() []Category {
	return []Category{CategoryNature, CategoryAmbient, CategoryLullaby, CategorySleep, CategoryWhiteNoise}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns the human-readable category name.
func (c Category) Label() string {
	switch c {
	case CategoryWhiteNoise:
		return "White noise"
	case "":
		return ""
	default:
		s := string(c)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

// Track is an immutable playable sound.
type Track struct {
	ID              string                  `json:"id" yaml:"id"`
	Name            string                  `json:"name" yaml:"name"`
	Category        Category                `json:"category" yaml:"category"`
	Subcategory     string                  `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	URLs            map[quality.Tier]string `json:"urls" yaml:"urls"`
	DurationSeconds int                     `json:"duration_seconds" yaml:"duration_seconds"`
	Description     string                  `json:"description,omitempty" yaml:"description,omitempty"`
}

func (t *Track) Duration() time.Duration {
	return time.Duration(t.DurationSeconds) * time.Second
}

// fallbackOrder lists, for each tier, the tiers to try when it has no asset.
var fallbackOrder = map[quality.Tier][]quality.Tier{
	quality.High:   {quality.High, quality.Medium, quality.Low},
	quality.Medium: {quality.Medium, quality.High, quality.Low},
	quality.Low:    {quality.Low, quality.Medium, quality.High},
}

// URL returns the asset for tier, falling back to the nearest tier that
// has one. Returns "" when the track has no assets at all.
func (t *Track) URL(tier quality.Tier) string {
	order, ok := fallbackOrder[tier]
	if !ok {
		order = fallbackOrder[quality.Medium]
	}
	for _, candidate := range order {
		if url := strings.TrimSpace(t.URLs[candidate]); url != "" {
			return url
		}
	}
	return ""
}

// matches reports whether the lowercase query occurs in any searchable field.
func (t *Track) matches(query string) bool {
	fields := []string{t.Name, string(t.Category), t.Category.Label(), t.Subcategory, t.Description}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// clone returns a copy of t that shares no state with the catalog.
func (t Track) clone() Track {
	t.URLs = maps.Clone(t.URLs)
	return t
}

// normalized returns a copy of t with every tier populated.
func (t Track) normalized() Track {
	urls := make(map[quality.Tier]string, len(fallbackOrder))
	for _, tier := range quality.Tiers() {
		urls[tier] = t.URL(tier)
	}
	t.URLs = urls
	return t
}
