package engine

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/padgrid/padgrid"
	"github.com/padgrid/padgrid/audio"
	"github.com/padgrid/padgrid/formats/aiff"
	"github.com/padgrid/padgrid/formats/mp3"
	"github.com/padgrid/padgrid/formats/vorbis"
	"github.com/padgrid/padgrid/formats/wav"
)

// progress stage weights; collection runs decode and resample fused in one
// streaming pass, analysis runs after it on the collected sample.
const (
	collectWeight = 0.85
	readChunk     = 32768 // samples per streaming read
)

// Loader decodes, resamples and analyzes samples off the render context and
// publishes them to the engine by pad. Each Load runs on its own goroutine;
// progress, success and failure are reported on the broker's load queue and a
// successful load ends with a CmdLoadSample carrying the finished buffer, so
// the render context only ever sees complete, immutable samples.
type Loader struct {
	broker   *Broker
	rate     int
	analyzer Analyzer
	registry *audio.Registry
	cacheDir string
}

// NewLoader builds a loader targeting the engine sample rate. cacheDir may be
// empty to disable the decoded-sample cache.
func NewLoader(broker *Broker, rate int, analyzer Analyzer, cacheDir string) *Loader {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	return &Loader{
		broker:   broker,
		rate:     rate,
		analyzer: analyzer,
		registry: reg,
		cacheDir: cacheDir,
	}
}

// Load starts an asynchronous load of path onto pad. The call itself only
// validates the pad id; everything else happens on the spawned goroutine. A
// failed load leaves whatever the pad currently holds untouched.
func (l *Loader) Load(pad int, path string) error {
	if pad < 0 || pad >= NumPads {
		return fmt.Errorf("engine: pad %d out of range", pad)
	}
	go l.run(pad, path)
	return nil
}

func (l *Loader) run(pad int, path string) {
	start := time.Now()
	TrySend(l.broker.LoadEvents, LoadEvent{Kind: LoadStarted, Pad: pad, Path: path})

	buf, err := l.decode(pad, path)
	if err != nil {
		TrySend(l.broker.LoadEvents, LoadEvent{Kind: LoadError, Pad: pad, Path: path, Message: err.Error()})
		return
	}

	TrySend(l.broker.LoadEvents, LoadEvent{
		Kind: LoadProgress, Pad: pad, Path: path, Percent: collectWeight, Stage: "analyze",
	})
	analysis, err := l.analyze(buf)
	if err != nil {
		TrySend(l.broker.LoadEvents, LoadEvent{Kind: LoadError, Pad: pad, Path: path, Message: err.Error()})
		return
	}

	if !TrySend(l.broker.ToEngine, Command{Kind: CmdLoadSample, Pad: pad, Buffer: buf}) {
		TrySend(l.broker.LoadEvents, LoadEvent{Kind: LoadError, Pad: pad, Path: path, Message: "command queue full"})
		return
	}
	TrySend(l.broker.LoadEvents, LoadEvent{
		Kind:     LoadSuccess,
		Pad:      pad,
		Path:     path,
		Percent:  1,
		Duration: time.Since(start),
		Frames:   buf.Frames(),
		Analysis: analysis,
	})
}

// decode opens path, streams it through the format decoder and the resampler
// and collects the result into an immutable buffer at the engine rate.
func (l *Loader) decode(pad int, path string) (*padgrid.Buffer, error) {
	if cached := l.readCache(path); cached != nil {
		return cached, nil
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	dec, ok := l.registry.Get(ext)
	if !ok {
		return nil, fmt.Errorf("engine: %w: %q", audio.ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("engine: open sample: %w", err)
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("engine: decode %s: %w", filepath.Base(path), err)
	}
	defer src.Close()
	if src.Channels() > 2 {
		return nil, fmt.Errorf("engine: %s: %w", filepath.Base(path), audio.ErrUnsupportedLayout)
	}

	rs := audio.NewResampler(src, l.rate)
	total := 0 // expected samples after resampling, 0 when unknown
	if lr, ok := src.(audio.Lengther); ok {
		total = int(float64(lr.Frames()) * float64(l.rate) / float64(src.SampleRate()) * float64(src.Channels()))
	}

	var samples []float32
	chunk := make([]float32, readChunk)
	nextReport := 0
	for {
		n, err := rs.ReadSamples(chunk)
		samples = append(samples, chunk[:n]...)
		if err != nil {
			break
		}
		if len(samples) >= nextReport {
			nextReport = len(samples) + l.rate*src.Channels()
			TrySend(l.broker.LoadEvents, LoadEvent{
				Kind:    LoadProgress,
				Pad:     pad,
				Path:    path,
				Percent: collectProgress(len(samples), total, l.rate*src.Channels()),
				Stage:   "decode",
			})
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("engine: %s decoded to zero frames", filepath.Base(path))
	}

	buf := &padgrid.Buffer{Samples: samples, Channels: src.Channels(), Rate: l.rate}
	l.writeCache(path, buf)
	return buf, nil
}

// collectProgress maps the number of collected samples to [0,collectWeight).
// With an unknown total it creeps asymptotically so it stays monotone without
// ever claiming completion.
func collectProgress(collected, total, perSecond int) float64 {
	if total > 0 {
		p := float64(collected) / float64(total)
		if p > 1 {
			p = 1
		}
		return p * collectWeight
	}
	secs := float64(collected) / float64(perSecond)
	return collectWeight * (secs / (secs + 10))
}

func (l *Loader) analyze(buf *padgrid.Buffer) (Analysis, error) {
	src := audio.NewBufferSource(buf.Samples, buf.Channels, buf.Rate)
	mono, rate, err := audio.ResampleToMono(src, buf.Rate, readChunk)
	if err != nil {
		return Analysis{}, fmt.Errorf("engine: analyze: %w", err)
	}
	return l.analyzer.Analyze(mono, rate)
}

// cachePath keys the cache on the source path, its mtime and size, and the
// target rate, so a re-exported file or a rate change misses cleanly.
func (l *Loader) cachePath(path string) string {
	if l.cacheDir == "" {
		return ""
	}
	fi, err := os.Stat(path)
	if err != nil {
		return ""
	}
	h := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%d|%d", path, fi.ModTime().UnixNano(), fi.Size(), l.rate)))
	return filepath.Join(l.cacheDir, hex.EncodeToString(h[:])+".wav")
}

func (l *Loader) readCache(path string) *padgrid.Buffer {
	p := l.cachePath(path)
	if p == "" {
		return nil
	}
	f, err := os.Open(p)
	if err != nil {
		return nil
	}
	defer f.Close()
	src, err := wav.Decoder{}.Decode(f)
	if err != nil {
		return nil
	}
	defer src.Close()
	if src.SampleRate() != l.rate || src.Channels() > 2 {
		return nil
	}
	var samples []float32
	chunk := make([]float32, readChunk)
	for {
		n, err := src.ReadSamples(chunk)
		samples = append(samples, chunk[:n]...)
		if err != nil {
			break
		}
	}
	if len(samples) == 0 {
		return nil
	}
	return &padgrid.Buffer{Samples: samples, Channels: src.Channels(), Rate: l.rate}
}

func (l *Loader) writeCache(path string, buf *padgrid.Buffer) {
	p := l.cachePath(path)
	if p == "" {
		return
	}
	if err := os.MkdirAll(l.cacheDir, 0o755); err != nil {
		return
	}
	out := make(padgrid.AudioBuffer, buf.Frames())
	for i := range out {
		out[i] = buf.Frame(i)
	}
	data, err := out.Wav(buf.Rate, true)
	if err != nil {
		return
	}
	// cache writes are best effort
	_ = os.WriteFile(p, data, 0o644)
}
