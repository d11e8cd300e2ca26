package engine

import "math"

// gridDivision is the snap resolution in fractions of a beat: 1/16 of a beat
// is a 1/64 note.
const gridDivision = 16

// snapRegion aligns a loop region to the musical grid of its sample. The grid
// is anchored on the first downbeat (falling back to the first beat, then to
// frame zero) and stepped at 1/64 notes of the detected tempo; both bounds
// round to the nearest grid line. Without a usable tempo the region is only
// clamped. The result always satisfies 0 <= start < end <= frames.
func snapRegion(start, end, frames int, a Analysis, rate int) (int, int) {
	if step, anchor, ok := grid(a, rate); ok {
		start = snapFrame(start, anchor, step)
		end = snapFrame(end, anchor, step)
	}
	return clampRegion(start, end, frames)
}

// barRegion derives a region spanning barCount bars, offset offsetBars past
// the grid anchor. It is the auto-loop default applied when a load completes.
// Falls back to the whole sample when the tempo or bar structure is unknown.
func barRegion(offsetBars, barCount, frames int, a Analysis, rate int) (int, int) {
	step, anchor, ok := grid(a, rate)
	if !ok || barCount <= 0 {
		return 0, frames
	}
	beatsPerBar := 4.0
	if len(a.Downbeats) >= 2 && a.BPM > 0 {
		beatsPerBar = math.Round((a.Downbeats[1] - a.Downbeats[0]) * a.BPM / 60)
		if beatsPerBar < 1 {
			beatsPerBar = 4
		}
	}
	bar := step * gridDivision * beatsPerBar
	start := anchor + float64(offsetBars)*bar
	end := start + float64(barCount)*bar
	return clampRegion(int(math.Round(start)), int(math.Round(end)), frames)
}

// grid returns the step in frames per 1/64 note and the anchor frame, or
// ok=false when the analysis carries no tempo.
func grid(a Analysis, rate int) (step, anchor float64, ok bool) {
	if a.BPM <= 0 {
		return 0, 0, false
	}
	step = 60 / a.BPM / gridDivision * float64(rate)
	switch {
	case len(a.Downbeats) > 0:
		anchor = a.Downbeats[0] * float64(rate)
	case len(a.Beats) > 0:
		anchor = a.Beats[0] * float64(rate)
	}
	return step, anchor, true
}

func snapFrame(pos int, anchor, step float64) int {
	n := math.Round((float64(pos) - anchor) / step)
	return int(math.Round(anchor + n*step))
}

func clampRegion(start, end, frames int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > frames {
		end = frames
	}
	if start >= end {
		if end > 0 {
			start = end - 1
		} else {
			start, end = 0, 1
			if frames < 1 {
				end = frames
			}
		}
	}
	return start, end
}
