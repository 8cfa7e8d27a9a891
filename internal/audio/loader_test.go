package audio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/player"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(url string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[url]
	return d, ok
}

func (c *memCache) Put(url string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[url] = append([]byte(nil), data...)
	c.puts++
	return nil
}

func (c *memCache) putCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts
}

func TestIsNonRetryableError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{&StatusError{StatusCode: 401}, true},
		{&StatusError{StatusCode: 403}, true},
		{&StatusError{StatusCode: 404}, true},
		{&StatusError{StatusCode: 410}, true},
		{&StatusError{StatusCode: 500}, false},
		{errors.New("connection refused"), false},
		{errors.New("timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			result := isNonRetryableError(tt.err)
			if result != tt.expected {
				t.Errorf("isNonRetryableError(%q) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestContextReader(t *testing.T) {
	t.Run("successful read", func(t *testing.T) {
		reader := strings.NewReader("test data")
		cr := &contextReader{reader: reader, ctx: context.Background(), timeout: time.Second}

		buf := make([]byte, 100)
		n, err := cr.Read(buf)

		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if string(buf[:n]) != "test data" {
			t.Errorf("Data = %q, want 'test data'", string(buf[:n]))
		}
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		cr := &contextReader{reader: &blockingReader{release: release}, ctx: ctx, timeout: 10 * time.Millisecond}

		_, err := cr.Read(make([]byte, 100))
		if err == nil || !strings.Contains(err.Error(), "timeout") {
			t.Errorf("Error = %v, expected a timeout", err)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cr := &contextReader{reader: &blockingReader{}, ctx: ctx, timeout: time.Hour}

		_, err := cr.Read(make([]byte, 100))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Error = %v, expected context.Canceled", err)
		}
	})
}

type blockingReader struct {
	release chan struct{}
}

func (b *blockingReader) Read(p []byte) (int, error) {
	<-b.release
	return 0, errors.New("released")
}

func TestLoaderOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.wav")
	if err := os.WriteFile(path, []byte("RIFFdata"), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(nil)
	for _, url := range []string{path, "file://" + path} {
		buf, err := l.Open(context.Background(), url)
		if err != nil {
			t.Fatalf("Open(%q) error = %v", url, err)
		}
		if !buf.Complete() || string(buf.Bytes()) != "RIFFdata" {
			t.Errorf("Open(%q) = %q, complete=%v", url, buf.Bytes(), buf.Complete())
		}
	}

	_, err := l.Open(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	if code := player.MediaErrorCodeOf(err); err == nil || code != player.MediaErrSrcNotSupported {
		t.Errorf("missing file err = %v (%v), want SrcNotSupported", err, code)
	}
}

func TestLoaderOpenRemoteCaches(t *testing.T) {
	var hits int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Lullaby-CLI/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte("remote asset bytes"))
	}))
	defer server.Close()

	cache := newMemCache()
	l := NewLoader(cache)
	url := server.URL + "/rain.mp3"

	buf, err := l.Open(context.Background(), url)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := buf.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if string(buf.Bytes()) != "remote asset bytes" {
		t.Errorf("Bytes() = %q", buf.Bytes())
	}

	deadline := time.Now().Add(time.Second)
	for cache.putCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if cache.putCount() != 1 {
		t.Fatalf("cache puts = %d, want 1", cache.putCount())
	}

	again, err := l.Open(context.Background(), url)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if !again.Complete() {
		t.Error("cached asset should be complete immediately")
	}
	mu.Lock()
	defer mu.Unlock()
	if hits != 1 {
		t.Errorf("server hits = %d, want 1", hits)
	}
}

func TestLoaderOpenRemoteStatus(t *testing.T) {
	tests := []struct {
		status int
		code   player.MediaErrorCode
	}{
		{http.StatusNotFound, player.MediaErrSrcNotSupported},
		{http.StatusForbidden, player.MediaErrSrcNotSupported},
		{http.StatusInternalServerError, player.MediaErrNetwork},
		{http.StatusServiceUnavailable, player.MediaErrNetwork},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewLoader(nil).Open(context.Background(), server.URL+"/x.mp3")
			if err == nil {
				t.Fatal("expected error")
			}
			if code := player.MediaErrorCodeOf(err); code != tt.code {
				t.Errorf("code = %v, want %v", code, tt.code)
			}
			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.status {
				t.Errorf("err = %v, want StatusError %d", err, tt.status)
			}
		})
	}
}

func TestLoaderUnsupportedScheme(t *testing.T) {
	_, err := NewLoader(nil).Open(context.Background(), "ftp://example.com/a.mp3")
	if code := player.MediaErrorCodeOf(err); err == nil || code != player.MediaErrSrcNotSupported {
		t.Errorf("err = %v, want SrcNotSupported", err)
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		url  string
		head []byte
		want codec
	}{
		{"https://cdn.example.com/a.wav?sig=1", nil, codecWAV},
		{"/tmp/a.WAV", nil, codecWAV},
		{"https://cdn.example.com/a.mp3", []byte("RIFF"), codecMP3},
		{"https://cdn.example.com/stream", []byte("RIFF...."), codecWAV},
		{"https://cdn.example.com/stream", []byte("ID3"), codecMP3},
	}

	for _, tt := range tests {
		if got := codecFor(tt.url, tt.head); got != tt.want {
			t.Errorf("codecFor(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
