package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/config"
	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	NetworkReadSize = 4096
	ReadTimeout     = 5 * time.Second
	connectTimeout  = 15 * time.Second
)

// AssetCache stores fully downloaded assets by URL.
type AssetCache interface {
	Get(url string) ([]byte, bool)
	Put(url string, data []byte) error
}

// Relies on context cancellation to clean up the spawned read goroutine.
type contextReader struct {
	reader  io.Reader
	ctx     context.Context
	timeout time.Duration
}

func (cr *contextReader) Read(p []byte) (n int, err error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}

	timer := time.NewTimer(cr.timeout)
	defer timer.Stop()

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)

	go func() {
		n, err := cr.reader.Read(p)
		select {
		case done <- result{n, err}:
		case <-cr.ctx.Done():
		}
	}()

	select {
	case res := <-done:
		return res.n, res.err
	case <-timer.C:
		return 0, fmt.Errorf("read timeout: no data received for %v", cr.timeout)
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	}
}

// StatusError is a non-2xx HTTP response for an asset.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("asset returned status %d: %s", e.StatusCode, e.Status)
}

// isNonRetryableError reports responses that mean the asset does not exist
// rather than a transient failure.
func isNonRetryableError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case 401, 403, 404, 410:
			return true
		}
	}
	return false
}

func mediaError(code player.MediaErrorCode, err error) error {
	return &player.MediaError{Code: code, Err: err}
}

// Loader opens audio assets from local paths, file:// URLs and http(s) URLs.
type Loader struct {
	client      *resty.Client
	cache       AssetCache
	readTimeout time.Duration
}

// NewLoader creates a loader. cache may be nil.
func NewLoader(cache AssetCache) *Loader {
	return &Loader{
		client: resty.New().
			SetTimeout(0).
			SetTransport(&http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: connectTimeout,
				TLSHandshakeTimeout:   connectTimeout,
			}).
			SetHeader("User-Agent", fmt.Sprintf("Lullaby-CLI/%s", config.AppVersion)),
		cache:       cache,
		readTimeout: ReadTimeout,
	}
}

// Open starts loading rawURL. Remote assets are returned immediately and keep
// downloading in the background until complete or ctx is cancelled.
// Failures are *player.MediaError values.
func (l *Loader) Open(ctx context.Context, rawURL string) (*Buffer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, mediaError(player.MediaErrSrcNotSupported, fmt.Errorf("invalid asset url %q: %w", rawURL, err))
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return l.openRemote(ctx, rawURL)
	case "file":
		return l.openFile(u.Path)
	case "":
		return l.openFile(rawURL)
	default:
		return nil, mediaError(player.MediaErrSrcNotSupported, fmt.Errorf("unsupported asset scheme %q", u.Scheme))
	}
}

func (l *Loader) openFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, mediaError(player.MediaErrSrcNotSupported, fmt.Errorf("failed to read asset: %w", err))
	}
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Loaded local asset")
	return NewCompleteBuffer(data), nil
}

func (l *Loader) openRemote(ctx context.Context, rawURL string) (*Buffer, error) {
	if l.cache != nil {
		if data, ok := l.cache.Get(rawURL); ok {
			log.Debug().Str("url", rawURL).Msg("Serving asset from cache")
			return NewCompleteBuffer(data), nil
		}
	}

	resp, err := l.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return nil, mediaError(player.MediaErrNetwork, fmt.Errorf("failed to fetch asset: %w", err))
	}

	log.Debug().Msgf("Asset response status: %d, Content-Type: %s", resp.StatusCode(), resp.Header().Get("Content-Type"))

	if !resp.IsSuccess() {
		resp.RawBody().Close()
		statusErr := &StatusError{StatusCode: resp.StatusCode(), Status: resp.Status()}
		if isNonRetryableError(statusErr) {
			return nil, mediaError(player.MediaErrSrcNotSupported, statusErr)
		}
		return nil, mediaError(player.MediaErrNetwork, statusErr)
	}

	total := int64(-1)
	if resp.RawResponse != nil {
		total = resp.RawResponse.ContentLength
	}

	buf := NewBuffer(total)
	go l.download(ctx, rawURL, resp.RawBody(), buf)
	return buf, nil
}

func (l *Loader) download(ctx context.Context, rawURL string, body io.ReadCloser, buf *Buffer) {
	defer body.Close()

	reader := &contextReader{
		reader:  body,
		ctx:     ctx,
		timeout: l.readTimeout,
	}
	chunk := make([]byte, NetworkReadSize)

	for {
		n, err := reader.Read(chunk)
		if n > 0 {
			_, _ = buf.Write(chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			_ = buf.Close()
			log.Debug().Str("url", rawURL).Int64("bytes", buf.Len()).Msg("Asset download complete")
			if l.cache != nil {
				if err := l.cache.Put(rawURL, buf.Bytes()); err != nil {
					log.Debug().Err(err).Msg("Failed to cache asset")
				}
			}
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				_ = buf.CloseWithError(mediaError(player.MediaErrAborted, ctx.Err()))
				return
			}
			log.Error().Err(err).Str("url", rawURL).Msg("Error reading audio data")
			_ = buf.CloseWithError(mediaError(player.MediaErrNetwork, fmt.Errorf("network read error: %w", err)))
			return
		}
	}
}
