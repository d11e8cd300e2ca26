package engine

// Analysis is the musical metadata extracted from a decoded sample: detected
// tempo, estimated key, and the beat/downbeat times in seconds. A zero BPM
// means detection did not converge; the loader publishes the sample anyway.
type Analysis struct {
	BPM       float64
	Key       string
	Beats     []float64
	Downbeats []float64
}

// Analyzer runs musical analysis over a mono sample. Implementations are
// expected to be slow relative to decoding; the loader runs them off the
// render context and reports their duration as a progress stage.
type Analyzer interface {
	Analyze(samples []float32, rate int) (Analysis, error)
}

// NopAnalyzer satisfies Analyzer without analyzing anything. Used when
// playback alone is wanted and for offline rendering.
type NopAnalyzer struct{}

func (NopAnalyzer) Analyze([]float32, int) (Analysis, error) { return Analysis{}, nil }
