package audio

import "io"

// BufferSource is a Source reading from an in-memory slice of interleaved
// samples. It is used to run already-decoded audio back through pipeline
// stages, e.g. to derive the mono analysis input from a decoded buffer.
type BufferSource struct {
	samples  []float32
	rate     int
	channels int
	pos      int
}

func NewBufferSource(samples []float32, channels, rate int) *BufferSource {
	return &BufferSource{samples: samples, rate: rate, channels: channels}
}

func (s *BufferSource) SampleRate() int { return s.rate }
func (s *BufferSource) Channels() int   { return s.channels }
func (s *BufferSource) Frames() int     { return len(s.samples) / s.channels }
func (s *BufferSource) Close() error    { return nil }

func (s *BufferSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	return n, nil
}
