package engine

import (
	"math"

	"github.com/padgrid/padgrid"
)

// The isolator splits each voice into three bands at two fixed crossovers.
// Low and high are extracted with 4th-order (two cascaded 2nd-order)
// Butterworth low-pass/high-pass filters; mid is whatever remains after
// subtracting both from the input, so at unity band gains the three bands sum
// back to the input exactly. Band gains at EqMinDB collapse to a true linear
// zero, the "kill" position.
const (
	crossoverLowHz  = 300.0
	crossoverHighHz = 3500.0

	EqMinDB = -26.0
	EqMaxDB = 6.0
)

type (
	biquadCoeff struct {
		b0, b1, b2, a1, a2 float32
	}

	biquadState struct {
		x1, x2, y1, y2 float32
	}

	// isolator holds the crossover coefficients for one sample rate. It is
	// shared by all voices; the filter memory lives in isolatorState, one per
	// voice, so overlapping voices of the same pad never contaminate each
	// other.
	isolator struct {
		low  [2]biquadCoeff // cascaded low-pass at the low crossover
		high [2]biquadCoeff // cascaded high-pass at the high crossover
	}

	isolatorState struct {
		low  [2][2]biquadState // [channel][cascade stage]
		high [2][2]biquadState
	}
)

func (state *biquadState) filter(buffer []float32, coeff biquadCoeff) {
	s := *state
	for i := 0; i < len(buffer); i++ {
		x := buffer[i]
		y := coeff.b0*x + coeff.b1*s.x1 + coeff.b2*s.x2 - coeff.a1*s.y1 - coeff.a2*s.y2
		s.x2, s.x1 = s.x1, x
		s.y2, s.y1 = s.y1, y
		buffer[i] = y
	}
	*state = s
}

// lowpassCoeff and highpassCoeff follow the RBJ audio EQ cookbook with
// Q = 1/sqrt(2); two cascaded stages make a Linkwitz-Riley 4th-order slope.
func lowpassCoeff(freq float64, rate int) biquadCoeff {
	w0 := 2 * math.Pi * freq / float64(rate)
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2 // Q = 1/sqrt(2)
	a0 := 1 + alpha
	return biquadCoeff{
		b0: float32((1 - cosw0) / 2 / a0),
		b1: float32((1 - cosw0) / a0),
		b2: float32((1 - cosw0) / 2 / a0),
		a1: float32(-2 * cosw0 / a0),
		a2: float32((1 - alpha) / a0),
	}
}

func highpassCoeff(freq float64, rate int) biquadCoeff {
	w0 := 2 * math.Pi * freq / float64(rate)
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2
	a0 := 1 + alpha
	return biquadCoeff{
		b0: float32((1 + cosw0) / 2 / a0),
		b1: float32(-(1 + cosw0) / a0),
		b2: float32((1 + cosw0) / 2 / a0),
		a1: float32(-2 * cosw0 / a0),
		a2: float32((1 - alpha) / a0),
	}
}

func newIsolator(rate int) isolator {
	lp := lowpassCoeff(crossoverLowHz, rate)
	hp := highpassCoeff(crossoverHighHz, rate)
	return isolator{
		low:  [2]biquadCoeff{lp, lp},
		high: [2]biquadCoeff{hp, hp},
	}
}

// process applies the three band gains to frames in place. in, low and high
// are caller-provided scratch of at least len(frames); the engine reuses one
// set of scratch slices across all voices since voices render sequentially.
func (iso *isolator) process(state *isolatorState, frames padgrid.AudioBuffer, in, low, high []float32, gainLow, gainMid, gainHigh float32) {
	n := len(frames)
	for ch := 0; ch < 2; ch++ {
		for i := 0; i < n; i++ {
			in[i] = frames[i][ch]
		}
		copy(low[:n], in[:n])
		for k := range iso.low {
			state.low[ch][k].filter(low[:n], iso.low[k])
		}
		copy(high[:n], in[:n])
		for k := range iso.high {
			state.high[ch][k].filter(high[:n], iso.high[k])
		}
		for i := 0; i < n; i++ {
			mid := in[i] - low[i] - high[i]
			frames[i][ch] = low[i]*gainLow + mid*gainMid + high[i]*gainHigh
		}
	}
}

// BandGain maps a band control in dB to a linear gain. The bottom of the
// range is an exact zero so a killed band contributes nothing at all.
func BandGain(db float32) float32 {
	if db <= EqMinDB {
		return 0
	}
	if db > EqMaxDB {
		db = EqMaxDB
	}
	return float32(math.Pow(10, float64(db)/20))
}
