package audio_test

import (
	"io"
	"math"
	"testing"

	"github.com/padgrid/padgrid/audio"
)

func rampSource(frames, channels, rate int) *audio.BufferSource {
	samples := make([]float32, frames*channels)
	for i := range samples {
		samples[i] = float32(i) / float32(len(samples))
	}
	return audio.NewBufferSource(samples, channels, rate)
}

func collect(t *testing.T, src audio.Source) []float32 {
	t.Helper()
	var out []float32
	buf := make([]float32, 512*src.Channels())
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples: %v", err)
		}
	}
}

func TestCubicInterpolate(t *testing.T) {
	if got := audio.CubicInterpolate(5, 7, 11, 13, 0); got != 7 {
		t.Errorf("x=0: got %v, want exactly y1", got)
	}
	if got := audio.CubicInterpolate(0, 1, 2, 3, 1); math.Abs(float64(got-2)) > 1e-6 {
		t.Errorf("x=1: got %v, want y2", got)
	}
	// Catmull-Rom reproduces linear segments exactly
	if got := audio.CubicInterpolate(0, 1, 2, 3, 0.5); math.Abs(float64(got-1.5)) > 1e-6 {
		t.Errorf("linear midpoint: got %v, want 1.5", got)
	}
}

func TestResamplerPassthroughSameRate(t *testing.T) {
	src := rampSource(100, 1, 44100)
	rs := audio.NewResampler(src, 44100)
	out := collect(t, rs)
	// the 4-frame window costs one head and two tail frames
	if len(out) != 97 {
		t.Fatalf("output frames = %d, want 97", len(out))
	}
	for i, v := range out {
		want := float32(i+1) / 100
		if v != want {
			t.Fatalf("sample %d = %v, want exactly %v", i, v, want)
		}
	}
}

func TestResamplerUpsampleDoublesLength(t *testing.T) {
	src := rampSource(1000, 1, 22050)
	rs := audio.NewResampler(src, 44100)
	if est := rs.Frames(); est != 2000 {
		t.Errorf("estimated frames = %d, want 2000", est)
	}
	out := collect(t, rs)
	if len(out) < 1950 || len(out) > 2010 {
		t.Errorf("output frames = %d, want about 2000", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("upsampled ramp not monotone at %d", i)
		}
	}
}

func TestResamplerDownsampleHalvesLength(t *testing.T) {
	src := rampSource(1000, 1, 44100)
	rs := audio.NewResampler(src, 22050)
	out := collect(t, rs)
	if len(out) < 480 || len(out) > 502 {
		t.Errorf("output frames = %d, want about 500", len(out))
	}
}

func TestResamplerKeepsChannelCount(t *testing.T) {
	src := rampSource(200, 2, 44100)
	rs := audio.NewResampler(src, 48000)
	if rs.Channels() != 2 {
		t.Fatalf("channels = %d, want 2", rs.Channels())
	}
	out := collect(t, rs)
	if len(out)%2 != 0 {
		t.Errorf("output length %d not a whole number of stereo frames", len(out))
	}
}

func TestResamplerRejectsPartialFrameDst(t *testing.T) {
	rs := audio.NewResampler(rampSource(100, 2, 44100), 44100)
	if _, err := rs.ReadSamples(make([]float32, 3)); err != audio.ErrInvalidDstSize {
		t.Errorf("error = %v, want ErrInvalidDstSize", err)
	}
}

func TestMonoMixerAveragesStereo(t *testing.T) {
	samples := []float32{0.2, 0.6, -1, 1, 0.5, 0.5}
	m := audio.NewMonoMixer(audio.NewBufferSource(samples, 2, 44100))
	out := collect(t, m)
	want := []float32{0.4, 0, 0.5}
	if len(out) != len(want) {
		t.Fatalf("frames = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("frame %d = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestMonoMixerPassesMonoThrough(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	m := audio.NewMonoMixer(audio.NewBufferSource(samples, 1, 44100))
	out := collect(t, m)
	if len(out) != 3 || out[0] != 0.1 || out[2] != 0.3 {
		t.Errorf("out = %v, want the input untouched", out)
	}
}

func TestResampleToMono(t *testing.T) {
	out, rate, err := audio.ResampleToMono(rampSource(1000, 2, 44100), 44100, 512)
	if err != nil {
		t.Fatalf("ResampleToMono: %v", err)
	}
	if rate != 44100 {
		t.Errorf("rate = %d, want 44100", rate)
	}
	if len(out) != 1000 {
		t.Errorf("mono samples = %d, want exactly 1000 at matching rate", len(out))
	}

	out, rate, err = audio.ResampleToMono(rampSource(1000, 2, 44100), 22050, 512)
	if err != nil {
		t.Fatalf("ResampleToMono: %v", err)
	}
	if rate != 22050 {
		t.Errorf("rate = %d, want 22050", rate)
	}
	if len(out) < 490 || len(out) > 510 {
		t.Errorf("mono samples = %d, want about 500", len(out))
	}

	if _, _, err := audio.ResampleToMono(rampSource(10, 1, 44100), 0, 512); err != audio.ErrInvalidTargetRate {
		t.Errorf("error = %v, want ErrInvalidTargetRate", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := audio.NewRegistry()
	if _, ok := reg.Get("wav"); ok {
		t.Error("empty registry should miss")
	}
	reg.Register("wav", fakeDecoder{})
	if _, ok := reg.Get("wav"); !ok {
		t.Error("registered decoder not found")
	}
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(io.Reader) (audio.Source, error) { return nil, nil }
