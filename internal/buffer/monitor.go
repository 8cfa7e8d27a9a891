// Package buffer tracks how much playable audio is buffered ahead of the
// playback position.
package buffer

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultThreshold is the buffered-ahead margin below which playback is
// considered at risk of stalling.
const DefaultThreshold = 10 * time.Second

// Source is the live media element being monitored.
type Source interface {
	Position() time.Duration
	BufferedEnd() time.Duration
}

// Health is the result of one evaluation.
type Health struct {
	Ahead     time.Duration
	Buffering bool
	threshold time.Duration
}

// Fill returns the buffered-ahead margin as a percentage of the threshold,
// capped at 100.
func (h Health) Fill() int {
	if h.threshold <= 0 {
		return 0
	}
	if h.Ahead >= h.threshold {
		return 100
	}
	if h.Ahead <= 0 {
		return 0
	}
	return int(h.Ahead * 100 / h.threshold)
}

// Monitor re-evaluates buffer health on every playback tick while a track is
// active. It retains nothing across Start calls.
type Monitor struct {
	threshold time.Duration

	mu     sync.Mutex
	src    Source
	last   Health
	active bool
}

// NewMonitor creates a monitor. A non-positive threshold means
// DefaultThreshold.
func NewMonitor(threshold time.Duration) *Monitor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Monitor{
		threshold: threshold,
		last:      Health{threshold: threshold},
	}
}

// Measure evaluates an already known buffered-ahead margin.
func (m *Monitor) Measure(ahead time.Duration) Health {
	if ahead < 0 {
		ahead = 0
	}
	return Health{
		Ahead:     ahead,
		Buffering: ahead < m.threshold,
		threshold: m.threshold,
	}
}

// Start begins monitoring src from a clean slate.
func (m *Monitor) Start(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.src = src
	m.active = src != nil
	m.last = Health{threshold: m.threshold}
}

// Stop ends evaluation; subsequent ticks report idle health.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.src = nil
	m.active = false
	m.last = Health{threshold: m.threshold}
}

func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Tick evaluates the buffered-ahead margin of the active source.
func (m *Monitor) Tick() Health {
	m.mu.Lock()
	if !m.active || m.src == nil {
		h := m.last
		m.mu.Unlock()
		return h
	}

	h := m.Measure(m.src.BufferedEnd() - m.src.Position())
	changed := h.Buffering != m.last.Buffering
	m.last = h
	m.mu.Unlock()

	if changed {
		log.Debug().Dur("ahead", h.Ahead).Bool("buffering", h.Buffering).Msg("Buffer health changed")
	}
	return h
}
