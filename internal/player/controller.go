// Package player implements the playback engine: a state machine that owns
// the single media sink and turns user actions and media events into
// PlaybackState transitions.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/buffer"
	"github.com/glebovdev/lullaby-cli/internal/catalog"
	"github.com/glebovdev/lullaby-cli/internal/device"
	"github.com/glebovdev/lullaby-cli/internal/metrics"
	"github.com/glebovdev/lullaby-cli/internal/quality"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownTrack = errors.New("unknown track")
	ErrClosed       = errors.New("player closed")
)

// TrackSource resolves track ids.
type TrackSource interface {
	Get(id string) (catalog.Track, bool)
}

// ProfileSource detects the device profile.
type ProfileSource interface {
	Detect(ctx context.Context) device.Profile
}

// AudioUnlocker prepares the platform audio output before playback.
type AudioUnlocker interface {
	EnsureReady(ctx context.Context, profile device.Profile) bool
}

// Notifier receives user-facing error messages.
type Notifier interface {
	Notify(kind ErrorKind, message string)
}

type NotifierFunc func(kind ErrorKind, message string)

func (f NotifierFunc) Notify(kind ErrorKind, message string) {
	f(kind, message)
}

type Options struct {
	Sink     Sink
	Tracks   TrackSource
	Profiler ProfileSource
	Unlocker AudioUnlocker
	Notifier Notifier
	Metrics  *metrics.Metrics
	Config   EngineConfig
}

type notice struct {
	kind    ErrorKind
	message string
}

// Controller is the playback state machine. It is the only component allowed
// to drive the sink.
type Controller struct {
	sink     Sink
	tracks   TrackSource
	profiler ProfileSource
	unlocker AudioUnlocker
	notifier Notifier
	metrics  *metrics.Metrics
	monitor  *buffer.Monitor

	mu            sync.Mutex
	cfg           EngineConfig
	state         PlaybackState
	profile       device.Profile
	load          uint64
	playRequested bool
	loadTimer     *time.Timer
	adaptiveStop  chan struct{}
	listeners     []func(PlaybackState)
	pending       []notice
	closed        bool

	wg sync.WaitGroup
}

func NewController(opts Options) (*Controller, error) {
	if opts.Sink == nil {
		return nil, errors.New("player: sink is required")
	}
	if opts.Tracks == nil {
		return nil, errors.New("player: track source is required")
	}

	cfg := opts.Config.normalize()
	c := &Controller{
		sink:     opts.Sink,
		tracks:   opts.Tracks,
		profiler: opts.Profiler,
		unlocker: opts.Unlocker,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		monitor:  buffer.NewMonitor(cfg.BufferThreshold),
		cfg:      cfg,
	}

	c.profile = c.detect(context.Background())
	c.state = PlaybackState{
		Status:     StatusIdle,
		Volume:     cfg.Volume,
		Looping:    cfg.Loop,
		ActiveTier: quality.SelectTier(c.profile, cfg.Quality),
	}

	c.sink.SetVolume(cfg.Volume)
	c.sink.SetLoop(cfg.Loop)
	c.sink.OnEvent(c.handleEvent)
	c.metrics.StateChanged("", StatusIdle.String())

	log.Debug().
		Str("device", c.profile.Kind()).
		Str("network", c.profile.Network.String()).
		Str("tier", string(c.state.ActiveTier)).
		Msg("Playback engine initialized")

	return c, nil
}

func (c *Controller) detect(ctx context.Context) device.Profile {
	if c.profiler == nil {
		return device.DefaultProfile()
	}
	return c.profiler.Detect(ctx)
}

// OnChange registers fn to receive a snapshot after every state change.
func (c *Controller) OnChange(fn func(PlaybackState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Snapshot returns the current playback state.
func (c *Controller) Snapshot() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Profile() device.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

func (c *Controller) Config() EngineConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Play starts track id. If id is already current it toggles between playing
// and paused instead. The only error returned is ErrUnknownTrack (or
// ErrClosed); media failures are recorded in the state.
func (c *Controller) Play(ctx context.Context, id string) error {
	track, ok := c.tracks.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if c.state.TrackID == id {
		switch c.state.Status {
		case StatusPlaying:
			c.pauseLocked()
			c.unlockAndPublish()
			return nil
		case StatusReady, StatusPaused, StatusEnded:
			return c.resume(ctx)
		case StatusLoading:
			if c.playRequested {
				c.mu.Unlock()
				return nil
			}
			c.playRequested = true
			c.mu.Unlock()
			log.Debug().Str("track", id).Msg("Play requested while loading")
			if err := c.sink.Play(ctx); err != nil {
				log.Debug().Err(err).Msg("Sink play request failed")
			}
			return nil
		}
	}

	return c.loadTrack(ctx, track)
}

// resume restarts the current source without reloading it. Called with c.mu
// held; releases it.
func (c *Controller) resume(ctx context.Context) error {
	load := c.load
	c.playRequested = true
	c.mu.Unlock()

	err := c.sink.Play(ctx)

	c.mu.Lock()
	if c.load != load || c.closed {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.playRequested = false
			c.mu.Unlock()
			return nil
		}
		kind, _ := ClassifyMediaError(MediaErrorCodeOf(err))
		c.failLocked(kind, err)
		c.unlockAndPublish()
		return nil
	}

	if c.state.Status == StatusEnded {
		c.monitor.Start(c.sink)
	}
	c.enterPlayingLocked()
	c.unlockAndPublish()
	return nil
}

// loadTrack tears down the current source and loads track. Called with c.mu held;
// releases it.
func (c *Controller) loadTrack(ctx context.Context, track catalog.Track) error {
	c.teardownLocked()

	c.load++
	load := c.load
	tier := quality.SelectTier(c.profile, c.cfg.Quality)
	profile := c.profile

	c.playRequested = true
	c.state = PlaybackState{
		Status:     c.state.Status,
		TrackID:    track.ID,
		Duration:   track.Duration(),
		Volume:     c.state.Volume,
		Looping:    c.state.Looping,
		ActiveTier: tier,
		IsLoading:  true,
		SessionID:  uuid.NewString(),
	}
	c.setStatusLocked(StatusLoading)
	c.metrics.TrackLoaded(string(tier))

	log.Debug().
		Str("track", track.ID).
		Str("tier", string(tier)).
		Str("session", c.state.SessionID).
		Msgf("Loading %s", track.Name)
	c.unlockAndPublish()

	ready := c.unlocker == nil || c.unlocker.EnsureReady(ctx, profile)

	c.mu.Lock()
	if c.load != load || c.closed {
		c.mu.Unlock()
		return nil
	}
	if !ready {
		c.failLocked(ErrorContextBootstrap, errors.New("audio context not ready"))
		c.unlockAndPublish()
		return nil
	}

	src := Source{
		Load:      load,
		TrackID:   track.ID,
		URL:       track.URL(tier),
		Tier:      tier,
		Duration:  track.Duration(),
		Crossfade: c.cfg.Crossfade,
		Preload:   c.cfg.Preload,
	}
	c.sink.SetVolume(c.state.Volume)
	c.sink.SetLoop(c.state.Looping)
	if err := c.sink.SetSource(src); err != nil {
		kind, _ := ClassifyMediaError(MediaErrorCodeOf(err))
		c.failLocked(kind, err)
		c.unlockAndPublish()
		return nil
	}
	c.armLoadTimeoutLocked(load)
	c.monitor.Start(c.sink)
	if !c.playRequested {
		// Paused while the audio context was unlocking.
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	err := c.sink.Play(ctx)

	c.mu.Lock()
	if c.load != load || c.closed {
		c.mu.Unlock()
		return nil
	}
	if !c.playRequested {
		if perr := c.sink.Pause(); perr != nil {
			log.Debug().Err(perr).Msg("Sink pause failed")
		}
		c.mu.Unlock()
		return nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		kind, _ := ClassifyMediaError(MediaErrorCodeOf(err))
		c.failLocked(kind, err)
		c.unlockAndPublish()
		return nil
	}
	c.mu.Unlock()
	return nil
}

// Pause pauses the current track, keeping its position. No-op unless playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	switch c.state.Status {
	case StatusPlaying:
		c.pauseLocked()
	case StatusLoading:
		c.playRequested = false
		_ = c.sink.Pause()
		c.mu.Unlock()
		return
	default:
		c.mu.Unlock()
		return
	}
	c.unlockAndPublish()
}

func (c *Controller) pauseLocked() {
	if err := c.sink.Pause(); err != nil {
		log.Debug().Err(err).Msg("Sink pause failed")
	}
	c.playRequested = false
	c.stopAdaptiveLocked()
	c.state.CurrentTime = c.sink.Position()
	c.state.IsPlaying = false
	c.setStatusLocked(StatusPaused)
}

// Stop releases the current track and returns to Idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state.Status == StatusIdle {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.unlockAndPublish()
}

func (c *Controller) stopLocked() {
	c.teardownLocked()
	c.load++
	c.playRequested = false
	c.state = PlaybackState{
		Status:     c.state.Status,
		Volume:     c.state.Volume,
		Looping:    c.state.Looping,
		ActiveTier: c.state.ActiveTier,
	}
	c.setStatusLocked(StatusIdle)
	log.Debug().Msg("Playback stopped")
}

// teardownLocked pauses, rewinds and clears the sink and stops every
// per-track activity.
func (c *Controller) teardownLocked() {
	c.stopLoadTimeoutLocked()
	c.stopAdaptiveLocked()
	c.monitor.Stop()

	if c.state.TrackID == "" {
		return
	}
	_ = c.sink.Pause()
	_ = c.sink.Seek(0)
	c.sink.Clear()
	c.metrics.SetBuffering(false)
}

// Seek moves the playback position, clamped to [0, duration].
func (c *Controller) Seek(pos time.Duration) {
	c.mu.Lock()
	if c.state.TrackID == "" || c.state.Status == StatusError || c.state.Status == StatusLoading {
		c.mu.Unlock()
		return
	}

	if pos < 0 {
		pos = 0
	}
	if c.state.Duration > 0 && pos > c.state.Duration {
		pos = c.state.Duration
	}

	if err := c.sink.Seek(pos); err != nil {
		log.Debug().Err(err).Msgf("Seek to %v failed", pos)
		c.mu.Unlock()
		return
	}
	c.state.CurrentTime = pos
	c.unlockAndPublish()
}

// SeekBy moves the playback position by delta.
func (c *Controller) SeekBy(delta time.Duration) {
	c.mu.Lock()
	target := c.state.CurrentTime + delta
	c.mu.Unlock()
	c.Seek(target)
}

// SetVolume sets the volume, clamped to [0, 1].
func (c *Controller) SetVolume(v float64) {
	v = ClampVolume(v)

	c.mu.Lock()
	c.state.Volume = v
	c.cfg.Volume = v
	c.sink.SetVolume(v)
	c.unlockAndPublish()
}

// ToggleLoop flips looping and returns the new value.
func (c *Controller) ToggleLoop() bool {
	c.mu.Lock()
	c.state.Looping = !c.state.Looping
	c.cfg.Loop = c.state.Looping
	c.sink.SetLoop(c.state.Looping)
	looping := c.state.Looping
	c.unlockAndPublish()
	return looping
}

// SetQualitySettings replaces the user's quality preference and re-evaluates
// the active tier.
func (c *Controller) SetQualitySettings(s quality.Settings) {
	c.mu.Lock()
	c.cfg.Quality = s.Normalize()
	c.reevaluateLocked("settings")
	c.unlockAndPublish()
}

// SetNetworkAdaptive turns the periodic quality re-check on or off.
func (c *Controller) SetNetworkAdaptive(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.NetworkAdaptive = on
	if on {
		c.startAdaptiveLocked()
	} else {
		c.stopAdaptiveLocked()
	}
}

// SetCrossfade sets the fade-in length used for the next load.
func (c *Controller) SetCrossfade(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Crossfade = clampCrossfade(d)
}

// SetPreload sets whether the next load waits for the complete asset.
func (c *Controller) SetPreload(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Preload = on
}

// Redetect refreshes the network part of the device profile and
// re-evaluates the active tier.
func (c *Controller) Redetect(ctx context.Context) device.Profile {
	profile := c.detect(ctx)

	c.mu.Lock()
	c.profile = profile
	c.reevaluateLocked("redetect")
	c.unlockAndPublish()
	return profile
}

// Close tears down playback and waits for background work to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	c.load++
	c.closed = true
	c.state.IsPlaying = false
	c.mu.Unlock()

	c.wg.Wait()
	log.Debug().Msg("Playback engine closed")
}

func (c *Controller) handleEvent(ev Event) {
	c.mu.Lock()
	if c.closed || ev.Load != c.load || c.state.TrackID == "" {
		if ev.Kind != EventTimeUpdate {
			log.Debug().Uint64("load", ev.Load).Uint64("current", c.load).Msgf("Dropping stale %s event", ev.Kind)
		}
		c.mu.Unlock()
		return
	}

	switch ev.Kind {
	case EventLoadStart:
		c.state.IsLoading = true

	case EventDurationChange:
		if ev.Duration <= 0 || ev.Duration == c.state.Duration {
			c.mu.Unlock()
			return
		}
		c.state.Duration = ev.Duration

	case EventCanPlay:
		if c.state.Status != StatusLoading {
			c.mu.Unlock()
			return
		}
		c.stopLoadTimeoutLocked()
		c.state.IsLoading = false
		if c.playRequested {
			c.enterPlayingLocked()
		} else {
			c.setStatusLocked(StatusReady)
		}

	case EventPlaying:
		if !c.playRequested {
			c.mu.Unlock()
			return
		}
		switch c.state.Status {
		case StatusLoading, StatusReady:
			c.stopLoadTimeoutLocked()
			c.state.IsLoading = false
			c.enterPlayingLocked()
		case StatusPlaying:
			if !c.state.IsBuffering {
				c.mu.Unlock()
				return
			}
			c.setBufferingLocked(false, c.state.BufferedAhead)
		default:
			c.mu.Unlock()
			return
		}

	case EventWaiting:
		if c.state.IsBuffering {
			c.mu.Unlock()
			return
		}
		c.setBufferingLocked(true, c.state.BufferedAhead)

	case EventTimeUpdate:
		if c.state.Status == StatusEnded {
			c.mu.Unlock()
			return
		}
		c.state.CurrentTime = ev.Position
		if c.monitor.Active() {
			health := c.monitor.Tick()
			c.setBufferingLocked(health.Buffering, health.Ahead)
		}

	case EventEnded:
		if c.state.Looping {
			c.mu.Unlock()
			return
		}
		c.endLocked()

	case EventError:
		kind, ok := ClassifyMediaError(ev.Code)
		if !ok {
			log.Debug().Err(ev.Err).Msg("Media load aborted")
			c.mu.Unlock()
			return
		}
		if c.state.Status == StatusError || c.state.Status == StatusEnded {
			c.mu.Unlock()
			return
		}
		c.failLocked(kind, ev.Err)

	default:
		c.mu.Unlock()
		return
	}

	c.unlockAndPublish()
}

func (c *Controller) enterPlayingLocked() {
	c.state.IsPlaying = true
	c.state.LastError = ErrorNone
	c.setStatusLocked(StatusPlaying)
	c.startAdaptiveLocked()
}

func (c *Controller) endLocked() {
	c.stopAdaptiveLocked()
	c.monitor.Stop()
	c.playRequested = false

	if err := c.sink.Seek(0); err != nil {
		log.Debug().Err(err).Msg("Rewind after end failed")
	}
	c.state.IsPlaying = false
	c.state.CurrentTime = 0
	c.setBufferingLocked(false, 0)
	c.setStatusLocked(StatusEnded)
}

func (c *Controller) failLocked(kind ErrorKind, err error) {
	c.stopLoadTimeoutLocked()
	c.stopAdaptiveLocked()
	c.monitor.Stop()
	c.playRequested = false
	_ = c.sink.Pause()

	c.state.IsPlaying = false
	c.state.IsLoading = false
	c.setBufferingLocked(false, 0)
	c.state.LastError = kind
	c.setStatusLocked(StatusError)
	c.metrics.PlaybackError(kind.String())
	c.pending = append(c.pending, notice{kind: kind, message: kind.Message()})

	log.Error().
		Err(err).
		Str("kind", kind.String()).
		Str("track", c.state.TrackID).
		Str("session", c.state.SessionID).
		Msg("Playback failed")
}

func (c *Controller) setBufferingLocked(buffering bool, ahead time.Duration) {
	c.state.BufferedAhead = ahead
	c.state.BufferFill = c.monitor.Measure(ahead).Fill()
	if c.state.IsBuffering == buffering {
		return
	}
	c.state.IsBuffering = buffering
	c.metrics.SetBuffering(buffering)
	log.Debug().Dur("ahead", ahead).Msgf("Buffering: %v", buffering)
}

func (c *Controller) setStatusLocked(status Status) {
	if c.state.Status == status {
		return
	}
	log.Debug().Msgf("Player state: %s -> %s", c.state.Status.String(), status.String())
	c.metrics.StateChanged(c.state.Status.String(), status.String())
	c.state.Status = status
}

func (c *Controller) armLoadTimeoutLocked(load uint64) {
	c.stopLoadTimeoutLocked()
	timeout := c.cfg.LoadTimeout
	c.loadTimer = time.AfterFunc(timeout, func() {
		c.mu.Lock()
		if c.load != load || c.closed || c.state.Status != StatusLoading {
			c.mu.Unlock()
			return
		}
		c.sink.Clear()
		c.failLocked(ErrorLoadTimeout, fmt.Errorf("no playable data after %v", timeout))
		c.unlockAndPublish()
	})
}

func (c *Controller) stopLoadTimeoutLocked() {
	if c.loadTimer != nil {
		c.loadTimer.Stop()
		c.loadTimer = nil
	}
}

// unlockAndPublish releases c.mu and then delivers pending notices and the
// new snapshot to observers.
func (c *Controller) unlockAndPublish() {
	snap := c.state
	listeners := make([]func(PlaybackState), len(c.listeners))
	copy(listeners, c.listeners)
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if c.notifier != nil {
		for _, n := range pending {
			c.notifier.Notify(n.kind, n.message)
		}
	}
	for _, fn := range listeners {
		fn(snap)
	}
}
