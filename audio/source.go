// Package audio provides the streaming sample pipeline used by the sample
// loader: decoding sources, rate conversion and channel mapping. Everything
// here runs off the render context; the render side only ever sees fully
// decoded buffers.
package audio

import (
	"io"
	"sync"
)

// Source is a stream of interleaved float32 PCM samples in [-1,1].
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples. Returns the
	// number of float32 values written (not frames). When n == 0 with err ==
	// io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)
	// Close releases any resources.
	Close() error
}

// Lengther is implemented by sources that know their total length up front
// (e.g. file formats with a sample count in the header). The loader uses it
// for exact progress reporting.
type Lengther interface {
	Frames() int
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry maps format keys (lower-case file extensions without the dot,
// e.g. "wav", "mp3") to decoders.
type Registry struct {
	codecs map[string]Decoder

	mtx sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
	}
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[format] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}
