package engine

import "github.com/padgrid/padgrid"

// NumPads is the size of the pad grid and of the sample bank.
const NumPads = 36

type (
	// LoopRegion is a half-open range [Start,End) of integer frame indices
	// within a pad's buffer. Cursors wrap exactly at End back to Start, which
	// is why the bounds are never fractional.
	LoopRegion struct {
		Start int
		End   int
	}

	slot struct {
		buffer *padgrid.Buffer
		loop   LoopRegion
	}

	// sampleBank is the engine-owned pad slot array. The control plane only
	// ever mutates it through queued commands.
	sampleBank [NumPads]slot
)

func (r LoopRegion) Frames() int { return r.End - r.Start }

// wrap folds pos into [Start,End).
func (r LoopRegion) wrap(pos int) int {
	n := r.Frames()
	if n <= 0 {
		return r.Start
	}
	for pos >= r.End {
		pos -= n
	}
	for pos < r.Start {
		pos += n
	}
	return pos
}

func (b *sampleBank) set(pad int, buf *padgrid.Buffer) {
	b[pad] = slot{
		buffer: buf,
		loop:   LoopRegion{Start: 0, End: buf.Frames()},
	}
}

func (b *sampleBank) clear(pad int) {
	b[pad] = slot{}
}

// setLoop applies a loop region if it is valid for the current buffer;
// invalid regions are absorbed silently, as the render context has no caller
// to report to.
func (b *sampleBank) setLoop(pad, start, end int) {
	buf := b[pad].buffer
	if buf == nil {
		return
	}
	if start < 0 || start >= end || end > buf.Frames() {
		return
	}
	b[pad].loop = LoopRegion{Start: start, End: end}
}
