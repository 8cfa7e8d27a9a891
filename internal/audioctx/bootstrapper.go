// Package audioctx unlocks the platform audio output before playback starts
// on devices that gate audio behind a user gesture.
package audioctx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/device"
	"github.com/rs/zerolog/log"
)

// ResumeTimeout bounds a single resume attempt.
const ResumeTimeout = 10 * time.Second

// Context is a platform audio context.
type Context interface {
	Suspended() bool
	Resume(ctx context.Context) error
	Close() error
}

// Factory constructs a new audio context.
type Factory func() (Context, error)

// Bootstrapper lazily creates and resumes a single audio context.
type Bootstrapper struct {
	factory Factory
	timeout time.Duration

	mu      sync.Mutex
	current Context
}

func NewBootstrapper(factory Factory) *Bootstrapper {
	return &Bootstrapper{
		factory: factory,
		timeout: ResumeTimeout,
	}
}

// EnsureReady reports whether audio may start for profile. Desktops are
// always ready. On mobile the context is created on the first call and
// reused afterwards; a suspended context is resumed. Failures are logged and
// reported as false so the caller can retry on the next user gesture.
func (b *Bootstrapper) EnsureReady(ctx context.Context, profile device.Profile) bool {
	if !profile.IsMobile {
		return true
	}
	if b == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureContext(); err != nil {
		log.Warn().Err(err).Str("device", profile.Kind()).Msg("Audio context unavailable")
		return false
	}

	if !b.current.Suspended() {
		return true
	}

	if err := b.resume(ctx); err != nil {
		log.Warn().Err(err).Str("device", profile.Kind()).Msg("Audio context resume failed")
		return false
	}

	log.Debug().Str("device", profile.Kind()).Msg("Audio context resumed")
	return true
}

func (b *Bootstrapper) ensureContext() (err error) {
	if b.current != nil {
		return nil
	}
	if b.factory == nil {
		return errors.New("no audio context factory configured")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audio context construction panicked: %v", r)
		}
	}()

	c, err := b.factory()
	if err != nil {
		return fmt.Errorf("failed to create audio context: %w", err)
	}
	if c == nil {
		return errors.New("audio context factory returned nil")
	}

	b.current = c
	log.Debug().Msg("Audio context created")
	return nil
}

func (b *Bootstrapper) resume(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- b.current.Resume(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("resume timed out after %v: %w", b.timeout, ctx.Err())
	}
}

// Created reports whether a context has been constructed.
func (b *Bootstrapper) Created() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current != nil
}

// Close releases the context, if any.
func (b *Bootstrapper) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return nil
	}
	err := b.current.Close()
	b.current = nil
	return err
}
