// Package service provides the business logic layer for browsing tracks.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/catalog"
	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/rs/zerolog/log"
)

// View selects which tracks the browser lists.
type View int

const (
	ViewAll View = iota
	ViewFavorites
	ViewRecent
)

func (v View) String() string {
	switch v {
	case ViewFavorites:
		return "Favorites"
	case ViewRecent:
		return "Recent"
	default:
		return "All"
	}
}

// Next cycles All -> Favorites -> Recent -> All.
func (v View) Next() View {
	return (v + 1) % 3
}

// CatalogFetcher loads a catalog from a remote source.
type CatalogFetcher interface {
	GetCatalog(ctx context.Context) (*catalog.Catalog, error)
}

// TrackService owns the effective catalog and the user's favorites and
// recently played lists, and keeps the visible track list for the browser.
type TrackService struct {
	fetcher CatalogFetcher
	cfg     *config.Config

	mu        sync.RWMutex
	catalog   *catalog.Catalog
	remote    bool
	favorites *catalog.Favorites
	recent    *catalog.Recent
	view      View
	query     string
	visible   []catalog.Track

	refreshMu   sync.Mutex
	stopRefresh chan struct{}
	refreshWG   sync.WaitGroup
}

// NewTrackService starts on the built-in catalog. fetcher may be nil when no
// remote catalog is configured; Refresh then has nothing to do.
func NewTrackService(fetcher CatalogFetcher, cfg *config.Config) (*TrackService, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	builtin, err := catalog.Default()
	if err != nil {
		return nil, err
	}

	s := &TrackService{
		fetcher:   fetcher,
		cfg:       cfg,
		catalog:   builtin,
		favorites: catalog.NewFavorites(cfg.Favorites),
		recent:    catalog.NewRecent(cfg.Recent),
	}

	// Without a remote source the built-in catalog is authoritative.
	if fetcher == nil {
		s.pruneLocked()
	}
	s.recomputeLocked()

	return s, nil
}

// Refresh replaces the catalog with the remote one. On failure the current
// catalog stays in place and the error is returned.
func (s *TrackService) Refresh(ctx context.Context) error {
	if s.fetcher == nil {
		return errors.New("no remote catalog configured")
	}

	remote, err := s.fetcher.GetCatalog(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.catalog = remote
	s.remote = true
	s.pruneLocked()
	s.recomputeLocked()
	s.mu.Unlock()

	log.Debug().Int("count", remote.Len()).Msg("Remote catalog loaded")
	return nil
}

// pruneLocked drops favorites and recent entries the catalog no longer has.
func (s *TrackService) pruneLocked() {
	ids := s.catalog.IDs()
	keep := func(id string) bool { return ids[id] }

	favorites, recent := s.favorites.Len(), s.recent.Len()
	s.favorites.Retain(keep)
	s.recent.Retain(keep)

	if s.favorites.Len() != favorites || s.recent.Len() != recent {
		log.Debug().
			Int("favorites", favorites-s.favorites.Len()).
			Int("recent", recent-s.recent.Len()).
			Msg("Pruned unknown track ids")
		s.persistLocked()
	}
}

func (s *TrackService) recomputeLocked() {
	var base []catalog.Track
	switch s.view {
	case ViewFavorites:
		base = s.catalog.View(s.favorites.IDs())
	case ViewRecent:
		base = s.catalog.View(s.recent.IDs())
	default:
		base = s.catalog.List()
	}

	if s.query == "" {
		s.visible = base
		return
	}

	matches := make(map[string]bool)
	for _, t := range s.catalog.Search(s.query) {
		matches[t.ID] = true
	}

	visible := make([]catalog.Track, 0, len(base))
	for _, t := range base {
		if matches[t.ID] {
			visible = append(visible, t)
		}
	}
	s.visible = visible
}

func (s *TrackService) persistLocked() {
	s.cfg.Favorites = s.favorites.IDs()
	s.cfg.Recent = s.recent.IDs()
	if err := s.cfg.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to save track lists")
	}
}

// Get resolves a track id against the effective catalog.
func (s *TrackService) Get(id string) (catalog.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Get(id)
}

func (s *TrackService) IsRemote() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remote
}

// Search queries the whole catalog, ignoring the current view.
func (s *TrackService) Search(query string) []catalog.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Search(query)
}

func (s *TrackService) ByCategory(category catalog.Category) []catalog.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.ByCategory(category)
}

func (s *TrackService) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *TrackService) SetView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
	s.recomputeLocked()
}

// CycleView advances to the next view and returns it.
func (s *TrackService) CycleView() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = s.view.Next()
	s.recomputeLocked()
	return s.view
}

func (s *TrackService) Filter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// SetFilter narrows the visible list to tracks matching query.
func (s *TrackService) SetFilter(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
	s.recomputeLocked()
}

// Visible returns a copy of the tracks the browser currently lists.
func (s *TrackService) Visible() []catalog.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Track, len(s.visible))
	copy(out, s.visible)
	return out
}

func (s *TrackService) TrackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visible)
}

// GetTrack returns a copy of the visible track at index, or nil when the
// index is out of bounds.
func (s *TrackService) GetTrack(index int) *catalog.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.visible) {
		return nil
	}
	t := s.visible[index]
	return &t
}

// FindIndexByID returns the visible index of id, or -1.
func (s *TrackService) FindIndexByID(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, t := range s.visible {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *TrackService) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favorites.Has(id)
}

func (s *TrackService) FavoriteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favorites.Len()
}

// ToggleFavorite flips the favorite flag of id, saves it and reports the new
// state. Unknown ids are ignored.
func (s *TrackService) ToggleFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.catalog.Get(id); !ok {
		return s.favorites.Has(id)
	}

	on := s.favorites.Toggle(id)
	s.persistLocked()
	if s.view == ViewFavorites {
		s.recomputeLocked()
	}
	return on
}

// MarkPlayed records id as the most recently played track.
func (s *TrackService) MarkPlayed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.catalog.Get(id); !ok {
		return
	}

	s.recent.Push(id)
	s.cfg.LastTrack = id
	s.persistLocked()
	if s.view == ViewRecent {
		s.recomputeLocked()
	}
}

func (s *TrackService) RecentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recent.IDs()
}

// StartPeriodicRefresh re-fetches the remote catalog every interval and
// calls callback after each successful refresh. It does nothing without a
// remote source.
func (s *TrackService) StartPeriodicRefresh(interval time.Duration, callback func()) {
	if s.fetcher == nil || interval <= 0 {
		return
	}

	s.StopPeriodicRefresh()

	s.refreshMu.Lock()
	stopCh := make(chan struct{})
	s.stopRefresh = stopCh
	s.refreshWG.Add(1)
	s.refreshMu.Unlock()

	go func() {
		defer s.refreshWG.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.refreshInBackground(stopCh, interval, callback)
			case <-stopCh:
				return
			}
		}
	}()

	log.Debug().Dur("interval", interval).Msg("Started periodic catalog refresh")
}

func (s *TrackService) refreshInBackground(stopCh <-chan struct{}, timeout time.Duration, callback func()) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Background refresh failed, keeping cached catalog")
		return
	}

	if callback != nil {
		callback()
	}
}

// StopPeriodicRefresh stops the refresh loop and waits for it to exit.
func (s *TrackService) StopPeriodicRefresh() {
	s.refreshMu.Lock()
	if s.stopRefresh != nil {
		close(s.stopRefresh)
		s.stopRefresh = nil
	}
	s.refreshMu.Unlock()

	s.refreshWG.Wait()
}
