package audio

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/player"
	"github.com/gopxl/beep/v2"
)

// SynthScheme marks catalog URLs rendered locally instead of fetched.
const SynthScheme = "synth"

// DefaultSynthLength is used for synthesized tracks without a duration.
const DefaultSynthLength = 10 * time.Minute

const (
	minSynthRate = 8000
	maxSynthRate = 192000
)

// generator renders sample i at rate as a stereo pair. Generators are pure
// functions of i so the stream can seek anywhere.
type generator func(i int, rate float64) (l, r float64)

var generators = map[string]generator{
	"white":     whiteNoise,
	"pink":      pinkNoise,
	"brown":     brownNoise,
	"ocean":     oceanWaves,
	"rain":      rain,
	"heartbeat": heartbeat,
	"drone":     drone,
	"twinkle":   melody(96, twinkleNotes),
	"brahms":    melody(72, brahmsNotes),
}

// Generators returns the names accepted after synth://.
func Generators() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSynth reports whether rawURL is rendered locally.
func IsSynth(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme == SynthScheme
}

// openSynth parses synth://<generator>?rate=<hz> into a seekable streamer.
func openSynth(rawURL string, length time.Duration) (beep.StreamSeekCloser, beep.Format, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != SynthScheme {
		return nil, beep.Format{}, &player.MediaError{
			Code: player.MediaErrSrcNotSupported,
			Err:  fmt.Errorf("invalid synth url %q", rawURL),
		}
	}

	name := u.Host
	if name == "" {
		name = u.Opaque
	}
	gen, ok := generators[name]
	if !ok {
		return nil, beep.Format{}, &player.MediaError{
			Code: player.MediaErrSrcNotSupported,
			Err:  fmt.Errorf("unknown generator %q", name),
		}
	}

	rate := DefaultSampleRate
	if v := u.Query().Get("rate"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minSynthRate || n > maxSynthRate {
			return nil, beep.Format{}, &player.MediaError{
				Code: player.MediaErrSrcNotSupported,
				Err:  fmt.Errorf("invalid sample rate %q", v),
			}
		}
		rate = beep.SampleRate(n)
	}

	if length <= 0 {
		length = DefaultSynthLength
	}

	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	return &synthStreamer{gen: gen, rate: rate, length: rate.N(length)}, format, nil
}

type synthStreamer struct {
	gen    generator
	rate   beep.SampleRate
	pos    int
	length int
}

func (s *synthStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.pos >= s.length {
		return 0, false
	}
	rate := float64(s.rate)
	for i := range samples {
		if s.pos >= s.length {
			break
		}
		l, r := s.gen(s.pos, rate)
		samples[i] = [2]float64{l, r}
		s.pos++
		n++
	}
	return n, true
}

func (s *synthStreamer) Err() error    { return nil }
func (s *synthStreamer) Len() int      { return s.length }
func (s *synthStreamer) Position() int { return s.pos }
func (s *synthStreamer) Close() error  { return nil }

func (s *synthStreamer) Seek(p int) error {
	if p < 0 || p > s.length {
		return errors.New("synth: seek position out of range")
	}
	s.pos = p
	return nil
}

const (
	seedLeft  uint64 = 0x6c756c6c
	seedRight uint64 = 0x61627921
)

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// noise maps (i, seed) to a uniform value in [-1, 1).
func noise(i int64, seed uint64) float64 {
	h := splitmix(uint64(i) ^ (seed * 0x2545f4914f6cdd1d))
	return float64(h>>11)/float64(uint64(1)<<53)*2 - 1
}

func valueNoise(x float64, seed uint64) float64 {
	i := math.Floor(x)
	f := x - i
	a := noise(int64(i), seed)
	b := noise(int64(i)+1, seed)
	t := f * f * (3 - 2*f)
	return a + (b-a)*t
}

// fractal sums value noise over octaves [lo, hi). Octave k changes every 2^k
// samples; tilt > 0 favours the slow octaves.
func fractal(i int, seed uint64, lo, hi int, tilt float64) float64 {
	var sum, norm float64
	for k := lo; k < hi; k++ {
		w := math.Exp2(float64(k) * tilt)
		sum += w * valueNoise(float64(i)/math.Exp2(float64(k)), seed+uint64(k)*7919)
		norm += w
	}
	return sum / norm
}

func whiteNoise(i int, _ float64) (float64, float64) {
	return 0.25 * noise(int64(i), seedLeft), 0.25 * noise(int64(i), seedRight)
}

func pinkNoise(i int, _ float64) (float64, float64) {
	return 0.7 * fractal(i, seedLeft, 0, 9, 0), 0.7 * fractal(i, seedRight, 0, 9, 0)
}

func brownNoise(i int, _ float64) (float64, float64) {
	return 0.9 * fractal(i, seedLeft, 3, 11, 0.5), 0.9 * fractal(i, seedRight, 3, 11, 0.5)
}

func oceanWaves(i int, rate float64) (float64, float64) {
	t := float64(i) / rate
	swell := 0.35 + 0.65*0.5*(1+math.Sin(2*math.Pi*t/9))
	l, r := brownNoise(i, rate)
	return l * swell, r * (0.35 + 0.65*0.5*(1+math.Sin(2*math.Pi*(t+1.3)/9)))
}

func rain(i int, _ float64) (float64, float64) {
	return 0.5 * fractal(i, seedLeft, 0, 5, -0.3), 0.5 * fractal(i, seedRight, 0, 5, -0.3)
}

func thump(dt float64) float64 {
	if dt < 0 || dt >= 0.15 {
		return 0
	}
	return math.Sin(2*math.Pi*48*dt) * math.Exp(-dt*30)
}

func heartbeat(i int, rate float64) (float64, float64) {
	const period = 60.0 / 64
	phase := math.Mod(float64(i)/rate, period)
	v := 0.8*thump(phase) + 0.55*thump(phase-0.28)
	return v, v
}

func drone(i int, rate float64) (float64, float64) {
	t := float64(i) / rate
	swell := 0.8 + 0.2*math.Sin(2*math.Pi*0.05*t)
	base := 0.18*math.Sin(2*math.Pi*110*t) +
		0.12*math.Sin(2*math.Pi*164.81*t+0.3*math.Sin(2*math.Pi*0.07*t))
	l := base + 0.1*math.Sin(2*math.Pi*220.5*t)
	r := base + 0.1*math.Sin(2*math.Pi*220.7*t)
	return l * swell, r * swell
}

type note struct {
	freq  float64
	beats float64
}

const (
	noteC4 = 261.63
	noteD4 = 293.66
	noteE4 = 329.63
	noteF4 = 349.23
	noteG4 = 392.00
	noteA4 = 440.00
	noteB4 = 493.88
	noteC5 = 523.25
)

var twinkleNotes = []note{
	{noteC4, 1}, {noteC4, 1}, {noteG4, 1}, {noteG4, 1}, {noteA4, 1}, {noteA4, 1}, {noteG4, 2},
	{noteF4, 1}, {noteF4, 1}, {noteE4, 1}, {noteE4, 1}, {noteD4, 1}, {noteD4, 1}, {noteC4, 2},
	{noteG4, 1}, {noteG4, 1}, {noteF4, 1}, {noteF4, 1}, {noteE4, 1}, {noteE4, 1}, {noteD4, 2},
	{noteG4, 1}, {noteG4, 1}, {noteF4, 1}, {noteF4, 1}, {noteE4, 1}, {noteE4, 1}, {noteD4, 2},
	{noteC4, 1}, {noteC4, 1}, {noteG4, 1}, {noteG4, 1}, {noteA4, 1}, {noteA4, 1}, {noteG4, 2},
	{noteF4, 1}, {noteF4, 1}, {noteE4, 1}, {noteE4, 1}, {noteD4, 1}, {noteD4, 1}, {noteC4, 2},
	{0, 2},
}

var brahmsNotes = []note{
	{noteE4, 0.5}, {noteE4, 0.5}, {noteG4, 2}, {noteE4, 0.5}, {noteE4, 0.5}, {noteG4, 2},
	{noteE4, 0.5}, {noteG4, 0.5}, {noteC5, 1}, {noteB4, 1.5}, {noteA4, 0.5}, {noteA4, 1}, {noteG4, 1},
	{noteD4, 0.5}, {noteE4, 0.5}, {noteF4, 1}, {noteD4, 1}, {noteD4, 0.5}, {noteE4, 0.5}, {noteF4, 2},
	{noteD4, 0.5}, {noteF4, 0.5}, {noteB4, 0.5}, {noteA4, 0.5}, {noteG4, 1}, {noteB4, 1}, {noteC5, 2},
	{noteC4, 0.5}, {noteC4, 0.5}, {noteC5, 2}, {noteA4, 0.5}, {noteF4, 0.5}, {noteG4, 2},
	{noteE4, 0.5}, {noteC4, 0.5}, {noteF4, 1}, {noteG4, 1}, {noteA4, 1}, {noteG4, 2},
	{noteC4, 0.5}, {noteC4, 0.5}, {noteC5, 2}, {noteA4, 0.5}, {noteF4, 0.5}, {noteG4, 2},
	{noteE4, 0.5}, {noteC4, 0.5}, {noteF4, 1}, {noteE4, 1}, {noteD4, 1}, {noteC4, 2},
	{0, 2},
}

// melody loops notes at bpm with a soft attack and exponential decay.
func melody(bpm float64, notes []note) generator {
	beat := 60 / bpm
	starts := make([]float64, len(notes))
	var total float64
	for i, n := range notes {
		starts[i] = total
		total += n.beats * beat
	}

	return func(i int, rate float64) (float64, float64) {
		t := math.Mod(float64(i)/rate, total)
		k := sort.SearchFloat64s(starts, t)
		if k == len(starts) || starts[k] > t {
			k--
		}
		n := notes[k]
		if n.freq == 0 {
			return 0, 0
		}

		dt := t - starts[k]
		env := math.Exp(-dt * 2.5)
		if dt < 0.02 {
			env *= dt / 0.02
		}
		v := 0.3 * env * (math.Sin(2*math.Pi*n.freq*dt) + 0.3*math.Sin(4*math.Pi*n.freq*dt))
		return v, v
	}
}
