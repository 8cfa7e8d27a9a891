package player

import (
	"math"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/quality"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusPlaying
	StatusPaused
	StatusEnded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusLoading:
		return "LOADING"
	case StatusReady:
		return "READY"
	case StatusPlaying:
		return "PLAYING"
	case StatusPaused:
		return "PAUSED"
	case StatusEnded:
		return "ENDED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ErrorKind classifies playback failures for the user.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorNetwork
	ErrorDecode
	ErrorSourceUnavailable
	ErrorContextBootstrap
	ErrorLoadTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorNetwork:
		return "network"
	case ErrorDecode:
		return "decode"
	case ErrorSourceUnavailable:
		return "source_unavailable"
	case ErrorContextBootstrap:
		return "context_bootstrap"
	case ErrorLoadTimeout:
		return "load_timeout"
	default:
		return "unknown"
	}
}

// Message is the short user-facing explanation of the failure.
func (k ErrorKind) Message() string {
	switch k {
	case ErrorNetwork:
		return "Network problem while loading the sound. Check your connection and press play to retry."
	case ErrorDecode:
		return "This sound can't be decoded on this device (unsupported audio format)."
	case ErrorSourceUnavailable:
		return "This sound is unavailable right now. Press play to retry."
	case ErrorContextBootstrap:
		return "Audio is locked on this device. Tap play again to enable sound."
	case ErrorLoadTimeout:
		return "The sound took too long to load. Press play to retry."
	default:
		return ""
	}
}

// ClassifyMediaError maps a media error code to an ErrorKind. Aborted loads
// are not failures and report ok=false.
func ClassifyMediaError(code MediaErrorCode) (kind ErrorKind, ok bool) {
	switch code {
	case MediaErrAborted:
		return ErrorNone, false
	case MediaErrNetwork:
		return ErrorNetwork, true
	case MediaErrDecode:
		return ErrorDecode, true
	default:
		return ErrorSourceUnavailable, true
	}
}

// PlaybackState is a snapshot of the engine. It is owned by the Controller
// and handed out by value.
type PlaybackState struct {
	Status        Status
	TrackID       string
	IsPlaying     bool
	CurrentTime   time.Duration
	Duration      time.Duration
	Volume        float64
	Looping       bool
	ActiveTier    quality.Tier
	IsLoading     bool
	IsBuffering   bool
	BufferedAhead time.Duration
	BufferFill    int // BufferedAhead as a percentage of the buffering threshold
	LastError     ErrorKind
	SessionID     string
}

// HasTrack reports whether a track is loaded.
func (s PlaybackState) HasTrack() bool {
	return s.TrackID != ""
}

// Progress returns the playback position as a fraction of the duration.
func (s PlaybackState) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	p := float64(s.CurrentTime) / float64(s.Duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ClampVolume bounds v to [0, 1].
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
