package engine

import "github.com/padgrid/padgrid"

// NumVoices is the size of the fixed voice pool.
const NumVoices = 32

type (
	// voice is one active playback instance of a pad. Voices are pool slots:
	// a nil buffer means the slot is free. A voice keeps its own buffer
	// pointer and loop-region snapshot so it can finish its release fade even
	// after its pad has been unloaded or reloaded underneath it.
	voice struct {
		pad      int
		buffer   *padgrid.Buffer
		loop     LoopRegion
		pos      int // frame cursor, always within [loop.Start,loop.End)
		age      int // samples rendered since trigger, used for eviction
		velocity float32

		released bool
		fade     float32 // output ramp, 1 -> 0 while releasing

		ratio     float64 // smoothed tempo ratio
		transpose float64 // smoothed transpose, semitones

		eq      isolatorState
		stretch stretchState
	}

	// padParams is the per-pad mix state the engine owns: gain, isolator band
	// gains (already mapped to linear) and the BPM used by the tempo model.
	padParams struct {
		gain   float32
		eqLow  float32
		eqMid  float32
		eqHigh float32
		bpm    padBPM
	}
)

func (v *voice) active() bool { return v.buffer != nil }

// release starts the fade-out; the voice slot is reclaimed when it reaches
// zero.
func (v *voice) release() {
	if v.active() {
		v.released = true
	}
}

func defaultPadParams() padParams {
	return padParams{gain: 1, eqLow: 1, eqMid: 1, eqHigh: 1}
}
