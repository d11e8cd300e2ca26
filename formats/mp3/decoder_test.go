package mp3

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
)

// fakeMp3 serves a fixed int16 little-endian stereo stream, the byte format
// gomp3.Decoder produces.
type fakeMp3 struct {
	data []byte
	pos  int
	rate int
}

func newFakeMp3(samples []int16, rate int) *fakeMp3 {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return &fakeMp3{data: data, rate: rate}
}

func (f *fakeMp3) SampleRate() int { return f.rate }
func (f *fakeMp3) Length() int64   { return int64(len(f.data)) }

func (f *fakeMp3) Read(p []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func TestSourceConvertsPCM(t *testing.T) {
	samples := []int16{0, 16384, -16384, 32767, -32768, 0}
	s := &source{dec: newFakeMp3(samples, 44100), sampleRate: 44100}

	if s.SampleRate() != 44100 {
		t.Errorf("rate = %d, want 44100", s.SampleRate())
	}
	if s.Channels() != 2 {
		t.Errorf("channels = %d, want 2", s.Channels())
	}
	if s.Frames() != 3 {
		t.Errorf("frames = %d, want 3", s.Frames())
	}

	dst := make([]float32, len(samples))
	n, err := s.ReadSamples(dst)
	if n != len(samples) {
		t.Fatalf("read %d samples (%v), want %d", n, err, len(samples))
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768, -1, 0}
	for i := range want {
		if math.Abs(float64(dst[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, dst[i], want[i])
		}
	}
	if n, err := s.ReadSamples(dst); n != 0 || err != io.EOF {
		t.Errorf("past end read = %d, %v, want 0, EOF", n, err)
	}
}

func TestSourcePartialRead(t *testing.T) {
	samples := []int16{100, 200, 300, 400}
	s := &source{dec: newFakeMp3(samples, 48000), sampleRate: 48000}
	dst := make([]float32, 2)
	total := 0
	for {
		n, err := s.ReadSamples(dst)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadSamples: %v", err)
		}
	}
	if total != 4 {
		t.Errorf("total samples = %d, want 4", total)
	}
}
