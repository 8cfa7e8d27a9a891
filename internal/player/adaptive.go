package player

import (
	"context"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/quality"
	"github.com/rs/zerolog/log"
)

const adaptiveProbeTimeout = 10 * time.Second

// startAdaptiveLocked launches the periodic quality re-check. It only runs
// while playing with network-adaptive mode on.
func (c *Controller) startAdaptiveLocked() {
	if c.adaptiveStop != nil || c.closed || !c.cfg.NetworkAdaptive || c.state.Status != StatusPlaying {
		return
	}

	stop := make(chan struct{})
	c.adaptiveStop = stop
	interval := c.cfg.AdaptiveInterval

	c.wg.Add(1)
	go c.adaptiveLoop(stop, interval)
	log.Debug().Msgf("Adaptive quality check every %v", interval)
}

func (c *Controller) stopAdaptiveLocked() {
	if c.adaptiveStop == nil {
		return
	}
	close(c.adaptiveStop)
	c.adaptiveStop = nil
}

func (c *Controller) adaptiveLoop(stop <-chan struct{}, interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.adaptiveTick(stop)
		}
	}
}

func (c *Controller) adaptiveTick(stop <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), adaptiveProbeTimeout)
	defer cancel()

	profile := c.detect(ctx)

	c.mu.Lock()
	select {
	case <-stop:
		c.mu.Unlock()
		return
	default:
	}

	c.profile = profile
	if !c.reevaluateLocked("adaptive") {
		c.mu.Unlock()
		return
	}
	c.unlockAndPublish()
}

// reevaluateLocked re-runs tier selection and records a changed tier. Tiers
// alias the same asset, so the running source is left untouched.
func (c *Controller) reevaluateLocked(reason string) bool {
	tier := quality.SelectTier(c.profile, c.cfg.Quality)
	if tier == c.state.ActiveTier {
		return false
	}

	prev := c.state.ActiveTier
	log.Info().
		Str("reason", reason).
		Str("network", c.profile.Network.String()).
		Str("track", c.state.TrackID).
		Msgf("Quality tier change: %s -> %s", prev, tier)

	if c.state.TrackID != "" {
		c.metrics.TierChanged(string(prev), string(tier))
	}
	c.state.ActiveTier = tier
	return true
}
