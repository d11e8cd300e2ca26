package engine

import (
	"math"

	"github.com/padgrid/padgrid/engine/types"
)

const (
	// SpeedMin and SpeedMax bound the global playback speed multiplier.
	SpeedMin = 0.5
	SpeedMax = 2.0

	// tempoSmoothing is the per-block one-pole coefficient applied to each
	// voice's tempo ratio and transpose, so parameter jumps glide instead of
	// stepping between blocks.
	tempoSmoothing = 0.25
)

// padBPM is the per-pad tempo the BPM-lock model divides against; absent when
// the pad has neither a detected nor a manual BPM.
type padBPM = types.Optional[float32]

// tempoState is the renderer-local tempo and key model. It is mutated only by
// applying queued commands and recomputed per voice every block; the engine
// never persists it anywhere.
type tempoState struct {
	speed     float32
	keyLock   bool
	bpmLock   bool
	masterBPM types.Optional[float32]
}

func newTempoState() tempoState {
	return tempoState{speed: 1.0}
}

// ratioFor derives the playback-rate multiplier for one pad. With BPM-lock on
// and both a master and a pad BPM known, the pad is slaved to the master
// tempo; otherwise the raw speed multiplier applies.
func (t *tempoState) ratioFor(padBPM types.Optional[float32]) float64 {
	if t.bpmLock {
		if master, ok := t.masterBPM.Unpack(); ok {
			if bpm, ok := padBPM.Unpack(); ok && bpm > 0 {
				return float64(master) / float64(bpm)
			}
		}
	}
	return float64(t.speed)
}

// transposeFor derives the pitch correction in semitones. With key-lock on it
// cancels the pitch shift the tempo ratio would otherwise cause.
func (t *tempoState) transposeFor(ratio float64) float64 {
	if !t.keyLock || ratio <= 0 {
		return 0
	}
	return -12 * math.Log2(ratio)
}
