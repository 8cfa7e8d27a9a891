package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/quality"
)

// MediaErrorCode mirrors the media element error codes.
type MediaErrorCode int

const (
	MediaErrAborted         MediaErrorCode = 1
	MediaErrNetwork         MediaErrorCode = 2
	MediaErrDecode          MediaErrorCode = 3
	MediaErrSrcNotSupported MediaErrorCode = 4
)

func (c MediaErrorCode) String() string {
	switch c {
	case MediaErrAborted:
		return "MEDIA_ERR_ABORTED"
	case MediaErrNetwork:
		return "MEDIA_ERR_NETWORK"
	case MediaErrDecode:
		return "MEDIA_ERR_DECODE"
	case MediaErrSrcNotSupported:
		return "MEDIA_ERR_SRC_NOT_SUPPORTED"
	default:
		return fmt.Sprintf("MEDIA_ERR_%d", int(c))
	}
}

// MediaError is a media failure carrying its element error code.
type MediaError struct {
	Code MediaErrorCode
	Err  error
}

func (e *MediaError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// MediaErrorCodeOf extracts the media error code from err. Errors without
// one are reported as MediaErrSrcNotSupported.
func MediaErrorCodeOf(err error) MediaErrorCode {
	var mediaErr *MediaError
	if errors.As(err, &mediaErr) {
		return mediaErr.Code
	}
	return MediaErrSrcNotSupported
}

type EventKind int

const (
	EventLoadStart EventKind = iota
	EventDurationChange
	EventCanPlay
	EventPlaying
	EventWaiting
	EventTimeUpdate
	EventEnded
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventLoadStart:
		return "loadstart"
	case EventDurationChange:
		return "durationchange"
	case EventCanPlay:
		return "canplay"
	case EventPlaying:
		return "playing"
	case EventWaiting:
		return "waiting"
	case EventTimeUpdate:
		return "timeupdate"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a media element notification. Load echoes the Source.Load of the
// source that produced it.
type Event struct {
	Kind     EventKind
	Load     uint64
	Position time.Duration
	Duration time.Duration
	Code     MediaErrorCode
	Err      error
}

// Source is one assignment of media to the sink.
type Source struct {
	Load      uint64
	TrackID   string
	URL       string
	Tier      quality.Tier
	Duration  time.Duration
	Crossfade time.Duration
	Preload   bool
}

// Sink is the single media element owned by the Controller.
//
// Implementations must deliver events asynchronously: the handler passed to
// OnEvent must never be invoked from inside a Sink method call.
type Sink interface {
	SetSource(src Source) error
	Play(ctx context.Context) error
	Pause() error
	Seek(pos time.Duration) error
	SetVolume(volume float64)
	SetLoop(loop bool)
	Clear()
	Position() time.Duration
	BufferedEnd() time.Duration
	OnEvent(handler func(Event))
}
