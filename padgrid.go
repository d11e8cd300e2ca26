package padgrid

import (
	"encoding/binary"
	"io"
	"math"
)

type (
	// AudioBuffer is a buffer of stereo audio samples of the form
	// [[l1,r1],[l2,r2]...]. The values should be in the range [-1,1], but
	// rendering may temporarily exceed that before the final output clamp.
	AudioBuffer [][2]float32

	// Buffer is a decoded sample, published by the loader and shared between a
	// pad slot and any voices reading it. It is immutable after publish, so it
	// can be read from the render context without synchronization; replacing
	// the contents of a pad always means publishing a new Buffer.
	Buffer struct {
		Samples  []float32 // interleaved
		Channels int       // 1 or 2
		Rate     int       // samples per second, always the output rate
	}

	// AudioContext represents the platform audio output. The returned
	// CloserWaiter can be used to wait until the reader has been fully
	// consumed, or to stop the playback early.
	AudioContext interface {
		Play(r io.Reader) CloserWaiter
		Close() error
	}

	CloserWaiter interface {
		Close() error
		Wait()
	}
)

// Frames returns the length of the buffer in frames (not samples).
func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Frame returns the stereo frame at pos, duplicating the sample of a mono
// buffer to both channels. pos outside [0,Frames) returns silence.
func (b *Buffer) Frame(pos int) [2]float32 {
	if pos < 0 || pos >= b.Frames() {
		return [2]float32{}
	}
	if b.Channels == 1 {
		s := b.Samples[pos]
		return [2]float32{s, s}
	}
	return [2]float32{b.Samples[pos*2], b.Samples[pos*2+1]}
}

// Duration returns the length of the buffer in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.Rate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.Rate)
}

// Source returns an io.Reader that reads the buffer as little-endian float32
// stereo, the format the audio output consumes.
func (buffer AudioBuffer) Source() io.Reader {
	return &audioBufferReader{buffer: buffer}
}

type audioBufferReader struct {
	buffer AudioBuffer
	pos    int // in frames
}

func (r *audioBufferReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.buffer) {
		return 0, io.EOF
	}
	n := 0
	for r.pos < len(r.buffer) && n+8 <= len(p) {
		frame := r.buffer[r.pos]
		binary.LittleEndian.PutUint32(p[n:], math.Float32bits(frame[0]))
		binary.LittleEndian.PutUint32(p[n+4:], math.Float32bits(frame[1]))
		n += 8
		r.pos++
	}
	return n, nil
}
