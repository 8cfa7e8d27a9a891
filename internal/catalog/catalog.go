package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tracks.yml
var defaultTracks []byte

// ErrInvalidTrack reports a track descriptor that cannot be played.
var ErrInvalidTrack = errors.New("invalid track")

// Catalog is a static, read-only registry of tracks.
type Catalog struct {
	tracks []Track
	index  map[string]int
}

// New validates tracks and builds a catalog. Tiers without an asset inherit
// the nearest tier that has one.
func New(tracks []Track) (*Catalog, error) {
	c := &Catalog{
		tracks: make([]Track, 0, len(tracks)),
		index:  make(map[string]int, len(tracks)),
	}

	for i, t := range tracks {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, fmt.Errorf("%w: track %d has no id", ErrInvalidTrack, i)
		}
		if _, dup := c.index[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidTrack, t.ID)
		}
		if !t.Category.Valid() {
			return nil, fmt.Errorf("%w: %q has unknown category %q", ErrInvalidTrack, t.ID, t.Category)
		}
		if t.URL("") == "" {
			return nil, fmt.Errorf("%w: %q has no audio url", ErrInvalidTrack, t.ID)
		}
		if t.DurationSeconds < 0 {
			return nil, fmt.Errorf("%w: %q has negative duration", ErrInvalidTrack, t.ID)
		}
		if t.Name == "" {
			t.Name = t.ID
		}

		c.index[t.ID] = len(c.tracks)
		c.tracks = append(c.tracks, t.normalized())
	}

	return c, nil
}

type catalogFile struct {
	Tracks []Track `yaml:"tracks"`
}

// Load parses a YAML catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var doc catalogFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(doc.Tracks)
}

// Default returns the built-in catalog of synthesized sounds.
func Default() (*Catalog, error) {
	return Load(strings.NewReader(string(defaultTracks)))
}

// List returns every track in catalog order.
func (c *Catalog) List() []Track {
	out := make([]Track, len(c.tracks))
	for i, t := range c.tracks {
		out[i] = t.clone()
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.tracks)
}

func (c *Catalog) Get(id string) (Track, bool) {
	i, ok := c.index[id]
	if !ok {
		return Track{}, false
	}
	return c.tracks[i].clone(), true
}

// Search returns tracks whose name, category or description contain query,
// case-insensitively. An empty query matches everything.
func (c *Catalog) Search(query string) []Track {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.List()
	}

	var out []Track
	for i := range c.tracks {
		if c.tracks[i].matches(query) {
			out = append(out, c.tracks[i].clone())
		}
	}
	return out
}

func (c *Catalog) ByCategory(category Category) []Track {
	var out []Track
	for _, t := range c.tracks {
		if t.Category == category {
			out = append(out, t.clone())
		}
	}
	return out
}

// View resolves ids in order, skipping ids the catalog does not know.
func (c *Catalog) View(ids []string) []Track {
	out := make([]Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := c.Get(id); ok {
			out = append(out, t)
		}
	}
	return out
}

// IDs returns the set of known track ids.
func (c *Catalog) IDs() map[string]bool {
	ids := make(map[string]bool, len(c.tracks))
	for _, t := range c.tracks {
		ids[t.ID] = true
	}
	return ids
}
