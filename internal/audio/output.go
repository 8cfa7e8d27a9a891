// Package audio plays catalog assets through the system speaker. Element is
// the media element driven by the player controller.
package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSampleRate = beep.SampleRate(44100)
	SpeakerBufferSize = time.Millisecond * 250
)

// Output is the device streamers are mixed into. Lock guards every streamer
// handed to Play.
type Output interface {
	Init(sampleRate beep.SampleRate) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

// Speaker is the process-wide beep speaker. It doubles as the audio context
// that is resumed before the first playback.
type Speaker struct {
	mu          sync.Mutex
	sampleRate  beep.SampleRate
	initialized bool
	suspended   bool
}

func NewSpeaker() *Speaker {
	return &Speaker{suspended: true}
}

func (s *Speaker) Init(sampleRate beep.SampleRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(sampleRate)
}

func (s *Speaker) initLocked(sampleRate beep.SampleRate) error {
	if s.initialized && sampleRate == s.sampleRate {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(SpeakerBufferSize)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	s.sampleRate = sampleRate
	s.initialized = true
	s.suspended = false
	log.Debug().Msgf("Speaker initialized with sample rate: %d Hz, buffer: %v", sampleRate, SpeakerBufferSize)
	return nil
}

func (s *Speaker) Play(st beep.Streamer) { speaker.Play(st) }
func (s *Speaker) Clear()                { speaker.Clear() }
func (s *Speaker) Lock()                 { speaker.Lock() }
func (s *Speaker) Unlock()               { speaker.Unlock() }

// Suspended reports whether the device has not been opened yet or was
// closed. Once opened it stays open until Close.
func (s *Speaker) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// Resume opens the device at the default rate if it is not open yet.
func (s *Speaker) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	return s.initLocked(DefaultSampleRate)
}

func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}
	speaker.Close()
	s.initialized = false
	s.suspended = true
	return nil
}
