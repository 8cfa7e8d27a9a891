package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Probe exposes the platform introspection the profiler depends on.
type Probe interface {
	// UserAgent returns the platform identification string.
	UserAgent() (string, error)
	// EffectiveType returns the connection effective-type hint ("2g", "3g",
	// "4g", ...). ok is false when the platform cannot provide one.
	EffectiveType(ctx context.Context) (effectiveType string, ok bool, err error)
	// AdvancedAudioContext reports whether a low-latency audio context is available.
	AdvancedAudioContext() bool
}

// Profiler detects the device profile. The device class is detected once and
// cached; the network class is re-read on every call.
type Profiler struct {
	probe Probe

	mu       sync.Mutex
	class    *deviceClass
	advanced bool
}

func NewProfiler(probe Probe) *Profiler {
	return &Profiler{probe: probe}
}

// Detect returns a fresh profile. It never fails: any introspection error is
// logged and replaced with the conservative default for that field.
func (p *Profiler) Detect(ctx context.Context) Profile {
	profile := DefaultProfile()
	if p == nil || p.probe == nil {
		return profile
	}

	class, advanced := p.detectDevice()
	profile.IsMobile = class.mobile
	profile.IsIOS = class.ios
	profile.IsAndroid = class.android
	profile.SupportsAdvancedAudioContext = advanced
	profile.Network = p.detectNetwork(ctx)

	return profile
}

func (p *Profiler) detectDevice() (deviceClass, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.class != nil {
		return *p.class, p.advanced
	}

	class, advanced, err := safeDevice(p.probe)
	if err != nil {
		log.Warn().Err(err).Msg("Device detection failed, assuming desktop")
		return deviceClass{}, false
	}

	p.class = &class
	p.advanced = advanced
	log.Debug().
		Bool("mobile", class.mobile).
		Bool("ios", class.ios).
		Bool("android", class.android).
		Bool("advanced_audio", advanced).
		Msg("Device class detected")
	return class, advanced
}

func (p *Profiler) detectNetwork(ctx context.Context) NetworkClass {
	effectiveType, ok, err := safeEffectiveType(ctx, p.probe)
	if err != nil {
		log.Debug().Err(err).Msg("Network detection failed, assuming fast network")
		return NetworkFast
	}
	if !ok {
		return NetworkFast
	}

	class := ClassifyEffectiveType(effectiveType)
	log.Debug().Str("effective_type", effectiveType).Str("class", class.String()).Msg("Network class detected")
	return class
}

// Probes are platform code; a panic inside one must not take playback down.
func safeDevice(probe Probe) (class deviceClass, advanced bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("device probe panicked: %v", r)
		}
	}()

	ua, err := probe.UserAgent()
	if err != nil {
		return deviceClass{}, false, fmt.Errorf("failed to read user agent: %w", err)
	}
	return classifyUserAgent(ua), probe.AdvancedAudioContext(), nil
}

func safeEffectiveType(ctx context.Context, probe Probe) (effectiveType string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("network probe panicked: %v", r)
		}
	}()

	return probe.EffectiveType(ctx)
}
