package engine

import (
	"math"

	"github.com/padgrid/padgrid"
	"github.com/padgrid/padgrid/audio"
)

// The stretch stage runs in two sub-stages per voice, both block-based.
//
// The varispeed reader advances the voice's integer loop cursor plus a
// fractional phase by the tempo ratio per output frame, interpolating between
// source frames with the same Catmull-Rom cubic the loader's resampler uses.
// At a ratio of exactly 1.0 the phase stays at zero and the stage is a
// bit-exact passthrough.
//
// The pitch corrector is a dual-tap rotating delay line: two read taps move
// through a fixed window at a rate of (1 - pitch ratio), crossfaded with
// complementary Hann weights so their sum is always unity. Its window is a
// fixed output latency, accepted rather than compensated. At zero transpose
// it is bypassed entirely.
const (
	shiftRingSize = 4096 // circular delay frames, power of two
	shiftWindow   = 2048 // tap rotation window, must be < shiftRingSize
)

type stretchState struct {
	phase float64 // fractional cursor position between two source frames

	ring [shiftRingSize][2]float32
	wpos int
	tap  float64 // delay of the first tap, in [0,shiftWindow)
}

// varispeed renders len(out) frames from buf, advancing *pos at ratio frames
// per output frame and wrapping exactly within loop.
func (s *stretchState) varispeed(buf *padgrid.Buffer, loop LoopRegion, pos *int, ratio float64, out padgrid.AudioBuffer) {
	for i := range out {
		p := *pos
		y0 := buf.Frame(loop.wrap(p - 1))
		y1 := buf.Frame(p)
		y2 := buf.Frame(loop.wrap(p + 1))
		y3 := buf.Frame(loop.wrap(p + 2))
		x := float32(s.phase)
		out[i][0] = audio.CubicInterpolate(y0[0], y1[0], y2[0], y3[0], x)
		out[i][1] = audio.CubicInterpolate(y0[1], y1[1], y2[1], y3[1], x)

		s.phase += ratio
		for s.phase >= 1 {
			s.phase--
			*pos = loop.wrap(*pos + 1)
		}
	}
}

// shift pitch-shifts frames in place by ratio (2^(semitones/12)). ratio 1 is
// an exact bypass.
func (s *stretchState) shift(frames padgrid.AudioBuffer, ratio float64) {
	if ratio == 1.0 {
		return
	}
	for i := range frames {
		s.ring[s.wpos] = frames[i]

		d1 := s.tap
		d2 := math.Mod(d1+shiftWindow/2, shiftWindow)
		// Complementary Hann weights: w1 + w2 == 1, and each weight is zero
		// exactly when its tap wraps, hiding the discontinuity.
		w1 := float32(0.5 - 0.5*math.Cos(2*math.Pi*d1/shiftWindow))
		w2 := 1 - w1

		r1 := s.readRing(d1)
		r2 := s.readRing(d2)
		frames[i][0] = r1[0]*w1 + r2[0]*w2
		frames[i][1] = r1[1]*w1 + r2[1]*w2

		s.tap += 1 - ratio
		for s.tap >= shiftWindow {
			s.tap -= shiftWindow
		}
		for s.tap < 0 {
			s.tap += shiftWindow
		}
		s.wpos = (s.wpos + 1) & (shiftRingSize - 1)
	}
}

// readRing reads the ring delay frames behind the write position with linear
// interpolation.
func (s *stretchState) readRing(delay float64) [2]float32 {
	whole, frac := math.Modf(delay)
	i0 := (s.wpos - int(whole)) & (shiftRingSize - 1)
	i1 := (i0 - 1) & (shiftRingSize - 1)
	f := float32(frac)
	a, b := s.ring[i0], s.ring[i1]
	return [2]float32{
		a[0] + (b[0]-a[0])*f,
		a[1] + (b[1]-a[1])*f,
	}
}

// reset clears the delay line for voice reuse.
func (s *stretchState) reset() {
	*s = stretchState{}
}
