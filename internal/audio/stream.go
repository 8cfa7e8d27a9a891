package audio

import (
	"errors"
	"math"

	"github.com/gopxl/beep/v2"
)

const (
	SampleChannelSize   = 8192
	VolumeCurveExponent = 0.5
	MinVolumeDB         = -10.0
)

// ErrSeekUnavailable is returned when seeking a track that is still being
// decoded progressively.
var ErrSeekUnavailable = errors.New("seek unavailable while the track is downloading")

func percentToExponent(p float64) float64 {
	if p <= 0 {
		return MinVolumeDB
	}
	if p >= 100 {
		return 0
	}

	normalized := p / 100.0
	adjusted := math.Pow(normalized, VolumeCurveExponent)
	return (1.0 - adjusted) * MinVolumeDB
}

// trackStream is the streamer handed to the output for one session. It reads
// either a seekable decoder directly or the sample feed of a progressive
// decode. Every field is guarded by the output lock.
type trackStream struct {
	direct beep.StreamSeeker
	feed   <-chan [2]float64

	loop            bool
	pos             int
	fadeInRemaining int
	fadeInTotal     int
	ended           bool
	starved         bool

	// Callbacks run under the output lock and must not block.
	onEnd    func(err error)
	onStarve func(starved bool)
	feedErr  func() error
}

func newTrackStream(fadeIn int) *trackStream {
	return &trackStream{
		fadeInRemaining: fadeIn,
		fadeInTotal:     fadeIn,
	}
}

func (t *trackStream) Stream(samples [][2]float64) (n int, ok bool) {
	if t.ended {
		return 0, false
	}

	var filled int
	if t.direct != nil {
		filled = t.streamDirect(samples)
	} else {
		filled = t.streamFeed(samples)
	}

	t.applyFadeIn(samples[:filled])

	// Reporting the end in the same call drops the stream from the output
	// mixer before anyone can re-add it.
	if t.ended {
		return filled, false
	}

	for i := filled; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (t *trackStream) streamDirect(samples [][2]float64) int {
	filled := 0
	rewound := false

	for filled < len(samples) {
		n, ok := t.direct.Stream(samples[filled:])
		filled += n
		if n > 0 {
			rewound = false
		}
		if ok && n > 0 {
			continue
		}

		if err := t.direct.Err(); err != nil {
			t.end(err)
			return filled
		}
		if !t.loop || rewound || t.direct.Len() == 0 {
			t.end(nil)
			return filled
		}
		if err := t.direct.Seek(0); err != nil {
			t.end(err)
			return filled
		}
		rewound = true
	}
	return filled
}

// streamFeed drains the decode channel without blocking. An empty channel
// yields silence so the output keeps running during network stalls.
func (t *trackStream) streamFeed(samples [][2]float64) int {
	filled := 0

read:
	for filled < len(samples) {
		select {
		case sample, more := <-t.feed:
			if !more {
				var err error
				if t.feedErr != nil {
					err = t.feedErr()
				}
				t.end(err)
				break read
			}
			samples[filled] = sample
			filled++
		default:
			break read
		}
	}
	t.pos += filled

	if t.ended {
		return filled
	}
	switch {
	case filled == 0 && !t.starved:
		t.starved = true
		if t.onStarve != nil {
			t.onStarve(true)
		}
	case filled > 0 && t.starved:
		t.starved = false
		if t.onStarve != nil {
			t.onStarve(false)
		}
	}
	return filled
}

func (t *trackStream) applyFadeIn(samples [][2]float64) {
	if t.fadeInRemaining <= 0 {
		return
	}
	for i := range samples {
		pos := t.fadeInTotal - t.fadeInRemaining
		scale := float64(pos) / float64(t.fadeInTotal)
		samples[i][0] *= scale
		samples[i][1] *= scale
		t.fadeInRemaining--
		if t.fadeInRemaining <= 0 {
			break
		}
	}
}

func (t *trackStream) end(err error) {
	t.ended = true
	if t.onEnd != nil {
		t.onEnd(err)
	}
}

func (t *trackStream) position() int {
	if t.direct != nil {
		return t.direct.Position()
	}
	return t.pos
}

func (t *trackStream) length() int {
	if t.direct != nil {
		return t.direct.Len()
	}
	return -1
}

func (t *trackStream) seek(p int) error {
	if t.direct == nil {
		if p == t.pos {
			return nil
		}
		return ErrSeekUnavailable
	}
	if p < 0 {
		p = 0
	}
	if n := t.direct.Len(); n > 0 && p > n {
		p = n
	}
	return t.direct.Seek(p)
}

// switchToDirect replaces the feed with a seekable decoder of the complete
// asset, continuing at p.
func (t *trackStream) switchToDirect(d beep.StreamSeeker, p int) error {
	if n := d.Len(); p > n {
		p = n
	}
	if err := d.Seek(p); err != nil {
		return err
	}
	t.direct = d
	t.feed = nil
	t.starved = false
	return nil
}
