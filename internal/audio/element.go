package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/rs/zerolog/log"
)

const (
	TimeUpdateInterval = 250 * time.Millisecond
	decodeChunkSize    = 4096
)

var (
	ErrNoSource      = errors.New("no source set")
	ErrElementClosed = errors.New("audio element closed")
)

// session is one SetSource assignment. Fields below prepared are written
// under Element.mu.
type session struct {
	src    player.Source
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	prepared    bool
	progressive bool
	buf         *Buffer
	decoder     beep.StreamSeekCloser
	format      beep.Format
	duration    time.Duration
	stream      *trackStream
	volume      *effects.Volume
	ctrl        *beep.Ctrl

	wantPlay bool
	playing  bool
	ended    bool
	err      error

	// pumpErr is written by the decode goroutine before it closes the feed.
	pumpErr error
}

// Element plays one source at a time through an Output and reports progress
// as player events.
type Element struct {
	out    Output
	loader *Loader
	events *eventQueue

	mu     sync.Mutex
	volume float64
	loop   bool
	cur    *session
	closed bool
}

var _ player.Sink = (*Element)(nil)

// NewElement creates an element. A nil loader fetches without caching.
func NewElement(out Output, loader *Loader) *Element {
	if loader == nil {
		loader = NewLoader(nil)
	}
	return &Element{
		out:    out,
		loader: loader,
		events: newEventQueue(),
		volume: player.DefaultVolume,
	}
}

func (e *Element) OnEvent(handler func(player.Event)) {
	e.events.setHandler(handler)
}

func (e *Element) emit(s *session, ev player.Event) {
	ev.Load = s.src.Load
	e.events.push(ev)
}

// SetSource drops the current session and starts loading src in the
// background. Progress is reported through events.
func (e *Element) SetSource(src player.Source) error {
	if src.URL == "" {
		return &player.MediaError{Code: player.MediaErrSrcNotSupported, Err: ErrNoSource}
	}

	e.Clear()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{src: src, ctx: ctx, cancel: cancel}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		cancel()
		return ErrElementClosed
	}
	e.cur = s
	s.wg.Add(1)
	e.mu.Unlock()

	log.Debug().Str("track", src.TrackID).Str("tier", string(src.Tier)).Msgf("Loading source: %s", src.URL)
	go e.prepare(s)
	return nil
}

func (e *Element) prepare(s *session) {
	defer s.wg.Done()

	e.emit(s, player.Event{Kind: player.EventLoadStart})

	dec, format, buf, progressive, err := e.open(s)
	if err != nil {
		e.fail(s, err)
		return
	}

	duration := s.src.Duration
	if !progressive && dec.Len() > 0 {
		duration = format.SampleRate.D(dec.Len())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur != s || s.ctx.Err() != nil {
		dec.Close()
		return
	}

	s.decoder = dec
	s.format = format
	s.buf = buf
	s.progressive = progressive
	s.duration = duration
	s.stream = e.newStreamLocked(s)
	s.prepared = true

	log.Debug().Msgf("Source ready: %d Hz, %v, progressive=%t", format.SampleRate, duration, progressive)

	e.emit(s, player.Event{Kind: player.EventDurationChange, Duration: duration})
	e.emit(s, player.Event{Kind: player.EventCanPlay, Duration: duration})

	if s.wantPlay {
		if err := e.startLocked(s); err != nil {
			e.failLocked(s, err)
		}
	}
}

func (e *Element) open(s *session) (beep.StreamSeekCloser, beep.Format, *Buffer, bool, error) {
	url := s.src.URL

	if IsSynth(url) {
		dec, format, err := openSynth(url, s.src.Duration)
		return dec, format, nil, false, err
	}

	buf, err := e.loader.Open(s.ctx, url)
	if err != nil {
		return nil, beep.Format{}, nil, false, err
	}

	if s.src.Preload || buf.Complete() {
		if err := buf.Wait(s.ctx); err != nil {
			return nil, beep.Format{}, nil, false, err
		}
		dec, format, err := decodeComplete(url, buf.Bytes())
		return dec, format, buf, false, err
	}

	dec, format, err := decodeProgressive(s.ctx, url, buf)
	return dec, format, buf, true, err
}

func (e *Element) newStreamLocked(s *session) *trackStream {
	ts := newTrackStream(s.format.SampleRate.N(s.src.Crossfade))
	ts.loop = e.loop
	ts.onEnd = func(err error) {
		go e.finish(s, err)
	}

	if !s.progressive {
		ts.direct = s.decoder
		return ts
	}

	feed := make(chan [2]float64, SampleChannelSize)
	ts.feed = feed
	ts.feedErr = func() error { return s.pumpErr }
	ts.onStarve = func(starved bool) {
		kind := player.EventPlaying
		if starved {
			kind = player.EventWaiting
		}
		e.emit(s, player.Event{Kind: kind})
	}

	s.wg.Add(1)
	go e.pump(s, feed)
	return ts
}

// pump decodes the progressive stream into feed until it ends or the session
// is cleared.
func (e *Element) pump(s *session, feed chan<- [2]float64) {
	defer s.wg.Done()
	defer close(feed)
	defer s.decoder.Close()

	samples := make([][2]float64, decodeChunkSize)

	for {
		n, ok := s.decoder.Stream(samples)
		for i := 0; i < n; i++ {
			select {
			case <-s.ctx.Done():
				return
			case feed <- samples[i]:
			}
		}
		if !ok {
			if s.ctx.Err() != nil {
				return
			}
			if bufErr := s.buf.Err(); bufErr != nil {
				s.pumpErr = bufErr
			} else if err := s.decoder.Err(); err != nil {
				log.Error().Err(err).Msg("Stream decoding error")
				s.pumpErr = &player.MediaError{Code: player.MediaErrDecode, Err: err}
			}
			return
		}
	}
}

// finish handles the end of the stream reported by the output.
func (e *Element) finish(s *session, err error) {
	var direct beep.StreamSeekCloser
	if err == nil && s.progressive && s.buf.Complete() {
		if d, _, derr := decodeComplete(s.src.URL, s.buf.Bytes()); derr == nil {
			direct = d
		} else {
			log.Debug().Err(derr).Msg("Failed to re-decode completed asset")
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur != s {
		if direct != nil {
			direct.Close()
		}
		return
	}

	if err != nil {
		e.failLocked(s, err)
		return
	}

	if direct != nil {
		e.out.Lock()
		swapErr := s.stream.switchToDirect(direct, s.stream.position())
		if swapErr == nil {
			s.decoder = direct
			s.progressive = false
			if s.stream.loop {
				_ = direct.Seek(0)
				s.stream.ended = false
			}
		}
		restart := !s.stream.ended
		e.out.Unlock()

		if swapErr != nil {
			direct.Close()
		} else if restart {
			e.out.Play(s.ctrl)
			return
		}
	}

	s.ended = true
	s.playing = false
	log.Debug().Str("track", s.src.TrackID).Msg("Track ended")
	e.emit(s, player.Event{Kind: player.EventEnded, Position: e.positionLocked(s)})
}

func (e *Element) fail(s *session, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failLocked(s, err)
}

func (e *Element) failLocked(s *session, err error) {
	if e.cur != s || s.ctx.Err() != nil {
		return
	}
	s.err = err
	s.playing = false

	code := player.MediaErrorCodeOf(err)
	if code == player.MediaErrAborted {
		return
	}
	log.Warn().Err(err).Str("track", s.src.TrackID).Msg("Playback source failed")
	e.emit(s, player.Event{Kind: player.EventError, Code: code, Err: err})
}

// Play starts or resumes the current source. Before the source is ready it
// only records the request.
func (e *Element) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.cur
	if s == nil {
		return ErrNoSource
	}
	if s.err != nil {
		return s.err
	}
	s.wantPlay = true
	if !s.prepared {
		return nil
	}
	return e.startLocked(s)
}

func (e *Element) startLocked(s *session) error {
	if s.ctrl == nil {
		if err := e.out.Init(s.format.SampleRate); err != nil {
			return &player.MediaError{Code: player.MediaErrSrcNotSupported, Err: fmt.Errorf("failed to initialize audio output: %w", err)}
		}

		s.volume = &effects.Volume{
			Streamer: s.stream,
			Base:     2,
			Volume:   percentToExponent(e.volume * 100),
			Silent:   e.volume == 0,
		}
		s.ctrl = &beep.Ctrl{Streamer: s.volume}
		e.out.Play(s.ctrl)

		s.wg.Add(1)
		go e.tick(s)
	} else {
		e.out.Lock()
		s.ctrl.Paused = false
		restart := s.stream.ended
		s.stream.ended = false
		e.out.Unlock()

		if restart {
			e.out.Play(s.ctrl)
		}
	}

	s.ended = false
	s.playing = true
	e.emit(s, player.Event{Kind: player.EventPlaying, Position: e.positionLocked(s)})
	return nil
}

func (e *Element) tick(s *session) {
	defer s.wg.Done()

	ticker := time.NewTicker(TimeUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.cur == s && s.playing {
				e.emit(s, player.Event{Kind: player.EventTimeUpdate, Position: e.positionLocked(s)})
			}
			e.mu.Unlock()
		}
	}
}

func (e *Element) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.cur
	if s == nil {
		return ErrNoSource
	}
	s.wantPlay = false
	if s.ctrl == nil {
		return nil
	}

	e.out.Lock()
	s.ctrl.Paused = true
	e.out.Unlock()
	s.playing = false
	return nil
}

func (e *Element) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.cur
	if s == nil {
		return ErrNoSource
	}
	if !s.prepared {
		return ErrSeekUnavailable
	}

	e.out.Lock()
	err := s.stream.seek(s.format.SampleRate.N(pos))
	e.out.Unlock()
	if err != nil {
		return err
	}
	log.Debug().Msgf("Seeked to %v", pos)
	return nil
}

func (e *Element) SetVolume(volume float64) {
	volume = player.ClampVolume(volume)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume = volume
	s := e.cur
	if s == nil || s.volume == nil {
		return
	}

	e.out.Lock()
	s.volume.Volume = percentToExponent(volume * 100)
	s.volume.Silent = volume == 0
	e.out.Unlock()
}

func (e *Element) SetLoop(loop bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.loop = loop
	s := e.cur
	if s == nil || s.stream == nil {
		return
	}

	e.out.Lock()
	s.stream.loop = loop
	e.out.Unlock()
}

// Clear stops the current session and waits for its goroutines.
func (e *Element) Clear() {
	e.mu.Lock()
	s := e.cur
	e.cur = nil
	e.mu.Unlock()

	if s == nil {
		return
	}

	s.cancel()
	e.out.Clear()
	s.wg.Wait()

	if s.decoder != nil && !s.progressive {
		s.decoder.Close()
	}
}

func (e *Element) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return 0
	}
	return e.positionLocked(e.cur)
}

func (e *Element) positionLocked(s *session) time.Duration {
	if s.stream == nil {
		return 0
	}
	e.out.Lock()
	p := s.stream.position()
	e.out.Unlock()
	return s.format.SampleRate.D(p)
}

// BufferedEnd reports how far playback can go without waiting on the
// network. Synthesized and fully downloaded assets are buffered to the end;
// a download of unknown size only counts what has been played.
func (e *Element) BufferedEnd() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.cur
	if s == nil || !s.prepared {
		return 0
	}
	if s.buf == nil || s.buf.Complete() {
		return s.duration
	}

	f := s.buf.Fraction()
	if f < 0 || s.duration <= 0 {
		return e.positionLocked(s)
	}
	end := time.Duration(float64(s.duration) * f)
	if pos := e.positionLocked(s); end < pos {
		return pos
	}
	return end
}

// Close clears the current session and stops event delivery.
func (e *Element) Close() error {
	e.Clear()

	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.events.close()
	return nil
}
