package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/api"
	"github.com/glebovdev/lullaby-cli/internal/audio"
	"github.com/glebovdev/lullaby-cli/internal/audioctx"
	"github.com/glebovdev/lullaby-cli/internal/cache"
	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/glebovdev/lullaby-cli/internal/device"
	"github.com/glebovdev/lullaby-cli/internal/metrics"
	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/glebovdev/lullaby-cli/internal/service"
	"github.com/rs/zerolog/log"
)

const metricsShutdownTimeout = 2 * time.Second

// engine is everything a playing process owns, wired together.
type engine struct {
	ctx    context.Context
	cancel context.CancelFunc

	controller *player.Controller
	tracks     *service.TrackService
	speaker    *audio.Speaker
	element    *audio.Element
	metrics    *metrics.Metrics
	server     *http.Server
}

// engineConfig turns the persisted preferences into controller settings.
func engineConfig(cfg *config.Config) player.EngineConfig {
	ec := player.DefaultEngineConfig()
	ec.Quality = cfg.Quality
	ec.NetworkAdaptive = cfg.Engine.NetworkAdaptive
	ec.Crossfade = cfg.Engine.Crossfade()
	ec.Preload = cfg.Engine.Preload
	ec.Volume = float64(config.ClampVolume(cfg.Volume)) / 100
	return ec
}

// catalogFetcher returns nil when no remote catalog is configured.
func catalogFetcher(cfg *config.Config) service.CatalogFetcher {
	if cfg.CatalogURL == "" {
		return nil
	}
	return api.NewCatalogClient(cfg.CatalogURL)
}

func newEngine(cfg *config.Config, metricsAddr string, notifier player.Notifier) (*engine, error) {
	tracks, err := service.NewTrackService(catalogFetcher(cfg), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	// A nil *cache.Cache must not reach the loader as a non-nil interface.
	loader := audio.NewLoader(nil)
	if assets, err := cache.NewCache(); err != nil {
		log.Warn().Err(err).Msg("Asset cache disabled")
	} else {
		loader = audio.NewLoader(assets)
		go func() {
			if err := assets.CleanExpired(); err != nil {
				log.Debug().Err(err).Msg("Failed to clean expired assets")
			}
		}()
	}

	spk := audio.NewSpeaker()
	element := audio.NewElement(spk, loader)
	m := metrics.New()

	ctrl, err := player.NewController(player.Options{
		Sink:     element,
		Tracks:   tracks,
		Profiler: device.NewProfiler(device.NewSystemProbe(cfg.ProbeURL)),
		Unlocker: audioctx.NewBootstrapper(func() (audioctx.Context, error) { return spk, nil }),
		Notifier: notifier,
		Metrics:  m,
		Config:   engineConfig(cfg),
	})
	if err != nil {
		_ = element.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &engine{
		ctx:        ctx,
		cancel:     cancel,
		controller: ctrl,
		tracks:     tracks,
		speaker:    spk,
		element:    element,
		metrics:    m,
	}

	if metricsAddr != "" {
		if err := e.serveMetrics(metricsAddr); err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *engine) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.metrics.Handler())
	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return nil
}

// Close stops playback and releases the audio device.
func (e *engine) Close() {
	e.cancel()
	e.tracks.StopPeriodicRefresh()
	e.controller.Close()
	if err := e.element.Close(); err != nil {
		log.Debug().Err(err).Msg("Failed to close media element")
	}
	if err := e.speaker.Close(); err != nil {
		log.Debug().Err(err).Msg("Failed to close speaker")
	}

	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := e.server.Shutdown(ctx); err != nil {
			log.Debug().Err(err).Msg("Failed to stop metrics server")
		}
	}
}
