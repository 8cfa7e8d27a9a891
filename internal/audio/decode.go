package audio

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

type codec int

const (
	codecMP3 codec = iota
	codecWAV
)

func (c codec) String() string {
	if c == codecWAV {
		return "WAV"
	}
	return "MP3"
}

// codecFor picks a decoder from the URL extension, falling back to the RIFF
// magic of head when the extension says nothing.
func codecFor(rawURL string, head []byte) codec {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".wav", ".wave":
		return codecWAV
	case ".mp3":
		return codecMP3
	}
	if bytes.HasPrefix(head, []byte("RIFF")) {
		return codecWAV
	}
	return codecMP3
}

// readSeekCloser keeps the Seeker of a bytes.Reader visible to decoders,
// which io.NopCloser would hide.
type readSeekCloser struct {
	*bytes.Reader
}

func (readSeekCloser) Close() error { return nil }

// decodeComplete decodes a fully downloaded asset into a seekable streamer.
func decodeComplete(rawURL string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	c := codecFor(rawURL, data)
	r := readSeekCloser{bytes.NewReader(data)}

	var (
		s   beep.StreamSeekCloser
		f   beep.Format
		err error
	)
	switch c {
	case codecWAV:
		s, f, err = wav.Decode(r)
	default:
		s, f, err = mp3.Decode(r)
	}
	if err != nil {
		return nil, beep.Format{}, &player.MediaError{
			Code: player.MediaErrDecode,
			Err:  fmt.Errorf("failed to decode %s asset: %w", c, err),
		}
	}
	return s, f, nil
}

// decodeProgressive decodes buf while it is still downloading. The returned
// streamer cannot seek.
func decodeProgressive(ctx context.Context, rawURL string, buf *Buffer) (beep.StreamSeekCloser, beep.Format, error) {
	rc := buf.NewReader(ctx)
	c := codecFor(rawURL, nil)

	var (
		s   beep.StreamSeekCloser
		f   beep.Format
		err error
	)
	switch c {
	case codecWAV:
		s, f, err = wav.Decode(rc)
	default:
		s, f, err = mp3.Decode(rc)
	}
	if err != nil {
		rc.Close()
		if ctx.Err() != nil {
			return nil, beep.Format{}, &player.MediaError{Code: player.MediaErrAborted, Err: ctx.Err()}
		}
		if bufErr := buf.Err(); bufErr != nil {
			return nil, beep.Format{}, bufErr
		}
		return nil, beep.Format{}, &player.MediaError{
			Code: player.MediaErrDecode,
			Err:  fmt.Errorf("failed to decode %s stream: %w", c, err),
		}
	}
	return s, f, nil
}
