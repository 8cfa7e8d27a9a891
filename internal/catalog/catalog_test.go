package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/glebovdev/lullaby-cli/internal/quality"
)

func testTracks() []Track {
	return []Track{
		{
			ID:              "rain",
			Name:            "Gentle Rain",
			Category:        CategoryNature,
			Subcategory:     "water",
			DurationSeconds: 120,
			Description:     "Light rainfall",
			URLs:            map[quality.Tier]string{quality.High: "https://cdn.example/rain-hq.mp3"},
		},
		{
			ID:       "hush",
			Name:     "Hush",
			Category: CategoryWhiteNoise,
			URLs: map[quality.Tier]string{
				quality.High: "hush-hq.mp3",
				quality.Low:  "hush-lq.mp3",
			},
		},
		{
			ID:          "brahms",
			Name:        "Brahms' Lullaby",
			Category:    CategoryLullaby,
			Description: "Music box melody",
			URLs:        map[quality.Tier]string{quality.Medium: "brahms.mp3"},
		},
	}
}

func mustNew(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(testTracks())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewValidation(t *testing.T) {
	urls := map[quality.Tier]string{quality.High: "a.mp3"}

	tests := []struct {
		name   string
		tracks []Track
	}{
		{"missing id", []Track{{Category: CategorySleep, URLs: urls}}},
		{"duplicate id", []Track{
			{ID: "a", Category: CategorySleep, URLs: urls},
			{ID: "a", Category: CategorySleep, URLs: urls},
		}},
		{"unknown category", []Track{{ID: "a", Category: "jazz", URLs: urls}}},
		{"no urls", []Track{{ID: "a", Category: CategorySleep}}},
		{"blank url", []Track{{ID: "a", Category: CategorySleep, URLs: map[quality.Tier]string{quality.Low: "  "}}}},
		{"negative duration", []Track{{ID: "a", Category: CategorySleep, URLs: urls, DurationSeconds: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.tracks)
			if !errors.Is(err, ErrInvalidTrack) {
				t.Errorf("New() error = %v, want ErrInvalidTrack", err)
			}
		})
	}
}

func TestMissingTiersInheritNearest(t *testing.T) {
	c := mustNew(t)

	tests := []struct {
		id       string
		tier     quality.Tier
		expected string
	}{
		{"rain", quality.High, "https://cdn.example/rain-hq.mp3"},
		{"rain", quality.Low, "https://cdn.example/rain-hq.mp3"},
		{"hush", quality.Medium, "hush-hq.mp3"},
		{"hush", quality.Low, "hush-lq.mp3"},
		{"brahms", quality.High, "brahms.mp3"},
		{"brahms", quality.Low, "brahms.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.id+"/"+string(tt.tier), func(t *testing.T) {
			track, ok := c.Get(tt.id)
			if !ok {
				t.Fatalf("Get(%q) not found", tt.id)
			}
			if got := track.URLs[tt.tier]; got != tt.expected {
				t.Errorf("URLs[%s] = %q, want %q", tt.tier, got, tt.expected)
			}
		})
	}
}

func TestEveryTierResolves(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("default catalog is empty")
	}

	for _, track := range c.List() {
		for _, tier := range quality.Tiers() {
			if track.URL(tier) == "" {
				t.Errorf("%s has no url for %s", track.ID, tier)
			}
		}
		if track.Duration() <= 0 {
			t.Errorf("%s has no duration", track.ID)
		}
	}
}

func TestGet(t *testing.T) {
	c := mustNew(t)

	track, ok := c.Get("rain")
	if !ok || track.Name != "Gentle Rain" {
		t.Errorf("Get(rain) = %+v, %v", track, ok)
	}
	if track.Duration().Seconds() != 120 {
		t.Errorf("Duration() = %v, want 2m", track.Duration())
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should not be found")
	}
}

func TestListIsACopy(t *testing.T) {
	c := mustNew(t)

	list := c.List()
	list[0].Name = "changed"

	if track, _ := c.Get(list[0].ID); track.Name == "changed" {
		t.Error("List() must not expose internal storage")
	}
}

func TestTrackURLsAreCopies(t *testing.T) {
	c := mustNew(t)
	const original = "https://cdn.example/rain-hq.mp3"

	track, _ := c.Get("rain")
	track.URLs[quality.High] = "changed.mp3"

	list := c.List()
	list[0].URLs[quality.Low] = "changed.mp3"

	c.Search("rain")[0].URLs[quality.Medium] = "changed.mp3"
	c.ByCategory(CategoryNature)[0].URLs[quality.High] = "changed.mp3"
	c.View([]string{"rain"})[0].URLs[quality.High] = "changed.mp3"

	again, _ := c.Get("rain")
	for _, tier := range quality.Tiers() {
		if got := again.URL(tier); got != original {
			t.Errorf("URL(%s) = %q after caller edits, want %q", tier, got, original)
		}
	}
}

func TestSearch(t *testing.T) {
	c := mustNew(t)

	tests := []struct {
		query    string
		expected []string
	}{
		{"", []string{"rain", "hush", "brahms"}},
		{"rain", []string{"rain"}},
		{"RAIN", []string{"rain"}},
		{"nature", []string{"rain"}},
		{"white noise", []string{"hush"}},
		{"music box", []string{"brahms"}},
		{"water", []string{"rain"}},
		{"zzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ids(c.Search(tt.query))
			if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.expected)
			}
		})
	}
}

func TestByCategoryAndView(t *testing.T) {
	c := mustNew(t)

	if got := ids(c.ByCategory(CategoryLullaby)); len(got) != 1 || got[0] != "brahms" {
		t.Errorf("ByCategory(lullaby) = %v", got)
	}
	if got := c.ByCategory(CategoryAmbient); len(got) != 0 {
		t.Errorf("ByCategory(ambient) = %v, want empty", got)
	}

	got := ids(c.View([]string{"brahms", "gone", "rain"}))
	if strings.Join(got, ",") != "brahms,rain" {
		t.Errorf("View() = %v, want [brahms rain]", got)
	}
}

func TestLoad(t *testing.T) {
	doc := `
tracks:
  - id: waves
    name: Waves
    category: nature
    duration_seconds: 60
    urls:
      low: waves.mp3
`
	c, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	track, ok := c.Get("waves")
	if !ok {
		t.Fatal("waves not loaded")
	}
	if track.URL(quality.High) != "waves.mp3" {
		t.Errorf("URL(high) = %q", track.URL(quality.High))
	}

	if _, err := Load(strings.NewReader("tracks: [")); err == nil {
		t.Error("Load() should fail on malformed yaml")
	}
}

func TestCategoryLabel(t *testing.T) {
	tests := []struct {
		category Category
		expected string
	}{
		{CategoryNature, "Nature"},
		{CategoryWhiteNoise, "White noise"},
		{CategorySleep, "Sleep"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := tt.category.Label(); got != tt.expected {
			t.Errorf("Label(%q) = %q, want %q", tt.category, got, tt.expected)
		}
	}
}

func ids(tracks []Track) []string {
	var out []string
	for _, t := range tracks {
		out = append(out, t.ID)
	}
	return out
}
