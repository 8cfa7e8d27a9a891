package device

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	EnvUserAgent = "LULLABY_USER_AGENT"
	EnvNetwork   = "LULLABY_NETWORK"

	probeTimeout   = 10 * time.Second
	probeByteRange = "bytes=0-65535"
)

// SystemProbe reads device information from the running process and
// estimates the network by timing a small download from ProbeURL.
type SystemProbe struct {
	ProbeURL string
	client   *resty.Client
	goos     string
	goarch   string
	getenv   func(string) string
}

func NewSystemProbe(probeURL string) *SystemProbe {
	return &SystemProbe{
		ProbeURL: probeURL,
		client: resty.New().
			SetTimeout(probeTimeout).
			SetHeader("Cache-Control", "no-cache"),
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
		getenv: os.Getenv,
	}
}

func (s *SystemProbe) UserAgent() (string, error) {
	if ua := strings.TrimSpace(s.getenv(EnvUserAgent)); ua != "" {
		return ua, nil
	}

	switch s.goos {
	case "android":
		return fmt.Sprintf("Lullaby (Linux; Android; %s) Mobile", s.goarch), nil
	case "ios":
		return fmt.Sprintf("Lullaby (iPhone; CPU iPhone OS like Mac OS X; %s) Mobile", s.goarch), nil
	default:
		return fmt.Sprintf("Lullaby (%s; %s)", s.goos, s.goarch), nil
	}
}

// AdvancedAudioContext is true on every platform oto supports natively.
func (s *SystemProbe) AdvancedAudioContext() bool {
	switch s.goos {
	case "linux", "darwin", "windows", "freebsd", "android", "ios":
		return true
	}
	return false
}

func (s *SystemProbe) EffectiveType(ctx context.Context) (string, bool, error) {
	if et := strings.TrimSpace(s.getenv(EnvNetwork)); et != "" {
		return et, true, nil
	}
	if s.ProbeURL == "" {
		return "", false, nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		EnableTrace().
		SetHeader("Range", probeByteRange).
		Get(s.ProbeURL)
	if err != nil {
		return "", false, fmt.Errorf("network probe failed: %w", err)
	}
	if !resp.IsSuccess() {
		return "", false, fmt.Errorf("network probe returned status %d: %s", resp.StatusCode(), resp.Status())
	}

	trace := resp.Request.TraceInfo()
	transfer := trace.ResponseTime
	if transfer <= 0 {
		transfer = trace.TotalTime
	}

	return EstimateEffectiveType(trace.ServerTime, throughputKbps(resp.Size(), transfer)), true, nil
}

func throughputKbps(bytes int64, elapsed time.Duration) float64 {
	if bytes <= 0 || elapsed <= 0 {
		return 0
	}
	return float64(bytes*8) / elapsed.Seconds() / 1000
}

// EstimateEffectiveType applies the Network Information API thresholds to a
// measured round-trip time and downlink throughput. A zero downlink means
// "not measured" and only the RTT is considered.
func EstimateEffectiveType(rtt time.Duration, downlinkKbps float64) string {
	measured := downlinkKbps > 0

	switch {
	case rtt >= 2000*time.Millisecond || (measured && downlinkKbps <= 50):
		return "slow-2g"
	case rtt >= 1400*time.Millisecond || (measured && downlinkKbps <= 70):
		return "2g"
	case rtt >= 270*time.Millisecond || (measured && downlinkKbps <= 700):
		return "3g"
	default:
		return "4g"
	}
}
