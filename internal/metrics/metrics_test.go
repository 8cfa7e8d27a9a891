package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.TrackLoaded("high")
	m.TrackLoaded("high")
	m.TrackLoaded("low")
	m.TierChanged("high", "medium")
	m.PlaybackError("network")

	if got := testutil.ToFloat64(m.trackLoads.WithLabelValues("high")); got != 2 {
		t.Errorf("track loads(high) = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.tierChanges.WithLabelValues("high", "medium")); got != 1 {
		t.Errorf("tier changes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.playbackErrors.WithLabelValues("network")); got != 1 {
		t.Errorf("playback errors = %v, want 1", got)
	}
}

func TestGauges(t *testing.T) {
	m := New()

	m.SetBuffering(true)
	if got := testutil.ToFloat64(m.buffering); got != 1 {
		t.Errorf("buffering = %v, want 1", got)
	}
	m.SetBuffering(false)
	if got := testutil.ToFloat64(m.buffering); got != 0 {
		t.Errorf("buffering = %v, want 0", got)
	}

	m.StateChanged("", "LOADING")
	m.StateChanged("LOADING", "PLAYING")
	if got := testutil.ToFloat64(m.state.WithLabelValues("LOADING")); got != 0 {
		t.Errorf("state(LOADING) = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.state.WithLabelValues("PLAYING")); got != 1 {
		t.Errorf("state(PLAYING) = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	m.TrackLoaded("high")
	m.TierChanged("high", "low")
	m.PlaybackError("decode")
	m.SetBuffering(true)
	m.StateChanged("IDLE", "LOADING")

	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.TrackLoaded("medium")

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `lullaby_track_loads_total{tier="medium"} 1`) {
		t.Errorf("metrics output missing track loads:\n%s", body)
	}
}
