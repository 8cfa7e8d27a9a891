package audio

import (
	"testing"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/gopxl/beep/v2"
)

func TestOpenSynth(t *testing.T) {
	s, format, err := openSynth("synth://pink?rate=22050", 2*time.Second)
	if err != nil {
		t.Fatalf("openSynth() error = %v", err)
	}
	defer s.Close()

	if format.SampleRate != 22050 || format.NumChannels != 2 {
		t.Errorf("format = %+v", format)
	}
	if s.Len() != 44100 {
		t.Errorf("Len() = %d, want 44100", s.Len())
	}
}

func TestOpenSynthDefaults(t *testing.T) {
	s, format, err := openSynth("synth://white", 0)
	if err != nil {
		t.Fatalf("openSynth() error = %v", err)
	}
	if format.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", format.SampleRate, DefaultSampleRate)
	}
	if got := format.SampleRate.D(s.Len()); got != DefaultSynthLength {
		t.Errorf("length = %v, want %v", got, DefaultSynthLength)
	}
}

func TestOpenSynthInvalid(t *testing.T) {
	tests := []string{
		"synth://nope",
		"synth://white?rate=abc",
		"synth://white?rate=100",
		"http://example.com/white",
	}

	for _, url := range tests {
		t.Run(url, func(t *testing.T) {
			_, _, err := openSynth(url, time.Second)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := player.MediaErrorCodeOf(err); code != player.MediaErrSrcNotSupported {
				t.Errorf("code = %v, want %v", code, player.MediaErrSrcNotSupported)
			}
		})
	}
}

func TestSynthGeneratorsAreDeterministicAndSeekable(t *testing.T) {
	for _, name := range Generators() {
		t.Run(name, func(t *testing.T) {
			a, _, err := openSynth("synth://"+name+"?rate=8000", time.Second)
			if err != nil {
				t.Fatalf("openSynth() error = %v", err)
			}

			first := make([][2]float64, 4000)
			if n, ok := a.Stream(first); n != len(first) || !ok {
				t.Fatalf("Stream() = %d, %v", n, ok)
			}

			var peak float64
			for _, s := range first {
				for _, v := range s {
					if v > 1 || v < -1 {
						t.Fatalf("sample %v out of range", v)
					}
					if v > peak {
						peak = v
					} else if -v > peak {
						peak = -v
					}
				}
			}
			if peak == 0 {
				t.Error("generator produced only silence")
			}

			if err := a.Seek(1000); err != nil {
				t.Fatalf("Seek() error = %v", err)
			}
			again := make([][2]float64, 10)
			a.Stream(again)
			for i := range again {
				if again[i] != first[1000+i] {
					t.Fatalf("sample %d after seek = %v, want %v", 1000+i, again[i], first[1000+i])
				}
			}
		})
	}
}

func TestSynthStreamEnds(t *testing.T) {
	s, _, _ := openSynth("synth://drone?rate=8000", 100*time.Millisecond)

	buf := make([][2]float64, 1000)
	n, ok := s.Stream(buf)
	if n != 800 || !ok {
		t.Fatalf("Stream() = %d, %v, want 800, true", n, ok)
	}
	if n, ok := s.Stream(buf); n != 0 || ok {
		t.Errorf("Stream() at end = %d, %v, want 0, false", n, ok)
	}
	if err := s.Seek(801); err == nil {
		t.Error("Seek past end should fail")
	}
}

func TestIsSynth(t *testing.T) {
	if !IsSynth("synth://rain?rate=32000") {
		t.Error("synth url not recognised")
	}
	if IsSynth("https://cdn.example.com/rain.mp3") || IsSynth("/tmp/rain.wav") {
		t.Error("non-synth url recognised as synth")
	}
}

var _ beep.StreamSeekCloser = (*synthStreamer)(nil)
