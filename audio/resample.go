package audio

import (
	"fmt"
	"io"
)

// ResampleToMono resamples the source to targetRate and mixes it down to a
// single channel, collecting all samples. This is the shape the analysis
// collaborator consumes. A source already at targetRate passes straight to
// the mixer, keeping its frame count intact.
func ResampleToMono(src Source, targetRate, bufferSize int) ([]float32, int, error) {
	if targetRate <= 0 {
		return nil, 0, ErrInvalidTargetRate
	}
	if src.SampleRate() != targetRate {
		src = NewResampler(src, targetRate)
	}
	mono := NewMonoMixer(src)

	var out []float32
	buf := make([]float32, bufferSize)
	for {
		n, err := mono.ReadSamples(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w", err)
		}
	}
	return out, targetRate, nil
}
