package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/catalog"
	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/glebovdev/lullaby-cli/internal/quality"
	"go.uber.org/goleak"
)

type fakeFetcher struct {
	catalog *catalog.Catalog
	err     error
	calls   atomic.Int32
}

func (f *fakeFetcher) GetCatalog(ctx context.Context) (*catalog.Catalog, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.catalog, nil
}

func remoteCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Track{
		{ID: "forest", Name: "Forest Birds", Category: catalog.CategoryNature, URLs: map[quality.Tier]string{quality.High: "https://cdn.example.com/forest.mp3"}},
		{ID: "lullaby-1", Name: "Hush Little Baby", Category: catalog.CategoryLullaby, URLs: map[quality.Tier]string{quality.Medium: "https://cdn.example.com/hush.mp3"}},
		{ID: "white-noise", Name: "White Noise", Category: catalog.CategoryWhiteNoise, URLs: map[quality.Tier]string{quality.Low: "synth://white?rate=22050"}},
	})
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return c
}

func newService(t *testing.T, fetcher CatalogFetcher, cfg *config.Config) *TrackService {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s, err := NewTrackService(fetcher, cfg)
	if err != nil {
		t.Fatalf("NewTrackService() error = %v", err)
	}
	return s
}

func visibleIDs(s *TrackService) []string {
	var ids []string
	for _, t := range s.Visible() {
		ids = append(ids, t.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewTrackServiceUsesBuiltinCatalog(t *testing.T) {
	s := newService(t, nil, nil)

	builtin, _ := catalog.Default()
	if s.TrackCount() != builtin.Len() {
		t.Errorf("TrackCount() = %d, want %d", s.TrackCount(), builtin.Len())
	}
	if s.IsRemote() {
		t.Error("IsRemote() = true without a fetcher")
	}
	if err := s.Refresh(context.Background()); err == nil {
		t.Error("Refresh() without a fetcher should fail")
	}
}

func TestNewTrackServicePrunesUnknownIDs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Favorites = []string{"white-noise", "gone"}
	cfg.Recent = []string{"gone", "heartbeat"}

	s := newService(t, nil, cfg)

	if s.FavoriteCount() != 1 || !s.IsFavorite("white-noise") {
		t.Errorf("favorites not pruned: %v", cfg.Favorites)
	}
	if got := s.RecentIDs(); !equalIDs(got, []string{"heartbeat"}) {
		t.Errorf("RecentIDs() = %v, want [heartbeat]", got)
	}

	loaded, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if !equalIDs(loaded.Favorites, []string{"white-noise"}) {
		t.Errorf("saved favorites = %v, want [white-noise]", loaded.Favorites)
	}
}

func TestRefreshSwapsToRemoteCatalog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Favorites = []string{"forest", "heartbeat"}
	fetcher := &fakeFetcher{catalog: remoteCatalog(t)}

	s := newService(t, fetcher, cfg)

	if !s.IsFavorite("forest") {
		t.Fatal("favorites must survive until the remote catalog is known")
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if !s.IsRemote() {
		t.Error("IsRemote() = false after refresh")
	}
	if got := visibleIDs(s); !equalIDs(got, []string{"forest", "lullaby-1", "white-noise"}) {
		t.Errorf("visible = %v", got)
	}
	if _, ok := s.Get("heartbeat"); ok {
		t.Error("builtin track should not resolve after remote refresh")
	}
	if s.IsFavorite("heartbeat") {
		t.Error("favorite missing from the remote catalog should be pruned")
	}
	if !s.IsFavorite("forest") {
		t.Error("favorite present in the remote catalog should be kept")
	}
}

func TestRefreshFailureKeepsCatalog(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	s := newService(t, fetcher, nil)
	before := s.TrackCount()

	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() should return the fetch error")
	}
	if s.TrackCount() != before {
		t.Errorf("TrackCount() = %d after failed refresh, want %d", s.TrackCount(), before)
	}
	if s.IsRemote() {
		t.Error("IsRemote() = true after failed refresh")
	}
}

func TestViewsAndFilter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Favorites = []string{"twinkle", "ocean-waves"}
	cfg.Recent = []string{"brahms", "gentle-rain", "white-noise"}
	s := newService(t, nil, cfg)

	tests := []struct {
		name   string
		view   View
		filter string
		want   []string
	}{
		{"favorites keep insertion order", ViewFavorites, "", []string{"twinkle", "ocean-waves"}},
		{"recent keeps recency order", ViewRecent, "", []string{"brahms", "gentle-rain", "white-noise"}},
		{"filter within favorites", ViewFavorites, "ocean", []string{"ocean-waves"}},
		{"filter by category label", ViewRecent, "lullaby", []string{"brahms"}},
		{"filter with no match", ViewAll, "thunderstorm", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetView(tt.view)
			s.SetFilter(tt.filter)
			if got := visibleIDs(s); !equalIDs(got, tt.want) {
				t.Errorf("visible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCycleView(t *testing.T) {
	s := newService(t, nil, nil)

	want := []View{ViewFavorites, ViewRecent, ViewAll}
	for i, v := range want {
		if got := s.CycleView(); got != v {
			t.Errorf("cycle %d = %v, want %v", i, got, v)
		}
	}
	if ViewRecent.String() != "Recent" {
		t.Errorf("ViewRecent.String() = %q", ViewRecent.String())
	}
}

func TestToggleFavorite(t *testing.T) {
	s := newService(t, nil, nil)
	s.SetView(ViewFavorites)

	if !s.ToggleFavorite("heartbeat") {
		t.Fatal("ToggleFavorite() = false, want true")
	}
	if got := visibleIDs(s); !equalIDs(got, []string{"heartbeat"}) {
		t.Errorf("favorites view = %v, want [heartbeat]", got)
	}

	loaded, _ := config.Load()
	if !equalIDs(loaded.Favorites, []string{"heartbeat"}) {
		t.Errorf("saved favorites = %v", loaded.Favorites)
	}

	if s.ToggleFavorite("heartbeat") {
		t.Error("second ToggleFavorite() = true, want false")
	}
	if s.TrackCount() != 0 {
		t.Errorf("favorites view should be empty, got %d", s.TrackCount())
	}

	if s.ToggleFavorite("no-such-track") {
		t.Error("unknown id should not become a favorite")
	}
}

func TestMarkPlayed(t *testing.T) {
	cfg := config.DefaultConfig()
	s := newService(t, nil, cfg)

	s.MarkPlayed("white-noise")
	s.MarkPlayed("brahms")
	s.MarkPlayed("white-noise")
	s.MarkPlayed("no-such-track")

	if got := s.RecentIDs(); !equalIDs(got, []string{"white-noise", "brahms"}) {
		t.Errorf("RecentIDs() = %v", got)
	}
	if cfg.LastTrack != "white-noise" {
		t.Errorf("LastTrack = %q, want white-noise", cfg.LastTrack)
	}

	loaded, _ := config.Load()
	if loaded.LastTrack != "white-noise" || !equalIDs(loaded.Recent, []string{"white-noise", "brahms"}) {
		t.Errorf("saved last=%q recent=%v", loaded.LastTrack, loaded.Recent)
	}
}

func TestFindIndexByID(t *testing.T) {
	s := newService(t, nil, nil)

	tests := []struct {
		name     string
		id       string
		expected int
	}{
		{"first track", "white-noise", 0},
		{"later track", "ocean-waves", 3},
		{"nonexistent track", "notfound", -1},
		{"empty string", "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.FindIndexByID(tt.id); got != tt.expected {
				t.Errorf("FindIndexByID(%q) = %d, want %d", tt.id, got, tt.expected)
			}
		})
	}
}

func TestGetTrack(t *testing.T) {
	s := newService(t, nil, nil)

	tests := []struct {
		name        string
		index       int
		expectedID  string
		expectedNil bool
	}{
		{"first track", 0, "white-noise", false},
		{"second track", 1, "pink-noise", false},
		{"negative index", -1, "", true},
		{"index out of bounds", s.TrackCount(), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.GetTrack(tt.index)

			if tt.expectedNil {
				if result != nil {
					t.Errorf("GetTrack(%d) = %v, want nil", tt.index, result)
				}
			} else if result == nil {
				t.Fatalf("GetTrack(%d) = nil, want track", tt.index)
			} else if result.ID != tt.expectedID {
				t.Errorf("GetTrack(%d).ID = %q, want %q", tt.index, result.ID, tt.expectedID)
			}
		})
	}
}

func TestByCategory(t *testing.T) {
	s := newService(t, nil, nil)

	lullabies := s.ByCategory(catalog.CategoryLullaby)
	if len(lullabies) != 2 {
		t.Errorf("ByCategory(lullaby) returned %d tracks, want 2", len(lullabies))
	}
	if got := s.Search("rain"); len(got) != 1 || got[0].ID != "gentle-rain" {
		t.Errorf("Search(rain) = %v", got)
	}
}

func TestPeriodicRefresh(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fetcher := &fakeFetcher{catalog: remoteCatalog(t)}
	s := newService(t, fetcher, nil)

	refreshed := make(chan struct{}, 8)
	s.StartPeriodicRefresh(10*time.Millisecond, func() {
		select {
		case refreshed <- struct{}{}:
		default:
		}
	})

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh callback never fired")
	}

	s.StopPeriodicRefresh()
	calls := fetcher.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if fetcher.calls.Load() != calls {
		t.Error("refresh kept running after StopPeriodicRefresh")
	}
	if !s.IsRemote() {
		t.Error("IsRemote() = false after periodic refresh")
	}
}

func TestPeriodicRefreshWithoutFetcher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := newService(t, nil, nil)
	s.StartPeriodicRefresh(time.Millisecond, func() { t.Error("callback without fetcher") })
	time.Sleep(10 * time.Millisecond)
	s.StopPeriodicRefresh()
}
