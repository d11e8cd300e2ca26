package engine_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/padgrid/padgrid"
	"github.com/padgrid/padgrid/engine"
)

// writeWav writes a one second 440 Hz stereo 16-bit wav and returns its path.
func writeWav(t *testing.T, dir string, rate int) string {
	t.Helper()
	buffer := make(padgrid.AudioBuffer, rate)
	for i := range buffer {
		v := float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		buffer[i] = [2]float32{v, v}
	}
	data, err := buffer.Wav(rate, true)
	if err != nil {
		t.Fatalf("generating wav: %v", err)
	}
	path := filepath.Join(dir, "tone.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing wav: %v", err)
	}
	return path
}

// waitLoad polls the load queue until the load for pad finishes either way.
func waitLoad(t *testing.T, broker *engine.Broker, pad int) engine.LoadEvent {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	sawStarted, lastPercent := false, 0.0
	for time.Now().Before(deadline) {
		ev, ok := engine.TimeoutReceive(broker.LoadEvents, time.Until(deadline))
		if !ok {
			break
		}
		if ev.Pad != pad {
			continue
		}
		switch ev.Kind {
		case engine.LoadStarted:
			sawStarted = true
		case engine.LoadProgress:
			if ev.Percent < lastPercent {
				t.Errorf("progress went backwards: %v after %v", ev.Percent, lastPercent)
			}
			lastPercent = ev.Percent
		case engine.LoadSuccess, engine.LoadError:
			if !sawStarted {
				t.Error("no started event before completion")
			}
			return ev
		}
	}
	t.Fatal("load did not complete")
	return engine.LoadEvent{}
}

func TestLoaderDecodesAndResamples(t *testing.T) {
	broker := engine.NewBroker()
	loader := engine.NewLoader(broker, 48000, engine.NopAnalyzer{}, "")
	path := writeWav(t, t.TempDir(), 44100)

	if err := loader.Load(0, path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ev := waitLoad(t, broker, 0)
	if ev.Kind != engine.LoadSuccess {
		t.Fatalf("load failed: %v", ev.Message)
	}
	// one second of audio resampled from 44.1 kHz to 48 kHz
	if ev.Frames < 48000-64 || ev.Frames > 48000+64 {
		t.Errorf("frames = %d, want about 48000", ev.Frames)
	}
	if ev.Path != path {
		t.Errorf("event path = %q, want %q", ev.Path, path)
	}

	cmd, ok := engine.TimeoutReceive(broker.ToEngine, time.Second)
	if !ok || cmd.Kind != engine.CmdLoadSample {
		t.Fatalf("command = %+v, want CmdLoadSample", cmd)
	}
	if cmd.Buffer == nil || cmd.Buffer.Rate != 48000 || cmd.Buffer.Channels != 2 {
		t.Errorf("buffer = %+v, want stereo at 48 kHz", cmd.Buffer)
	}
	if ev.Duration <= 0 {
		t.Error("success event should carry the load duration")
	}
}

func TestLoaderRejectsUnknownFormat(t *testing.T) {
	broker := engine.NewBroker()
	loader := engine.NewLoader(broker, 44100, engine.NopAnalyzer{}, "")
	path := filepath.Join(t.TempDir(), "sample.xyz")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := loader.Load(1, path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ev := waitLoad(t, broker, 1)
	if ev.Kind != engine.LoadError {
		t.Fatalf("event = %+v, want an error", ev)
	}
}

func TestLoaderReportsMissingFile(t *testing.T) {
	broker := engine.NewBroker()
	loader := engine.NewLoader(broker, 44100, engine.NopAnalyzer{}, "")
	if err := loader.Load(2, filepath.Join(t.TempDir(), "missing.wav")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ev := waitLoad(t, broker, 2); ev.Kind != engine.LoadError {
		t.Fatalf("event = %+v, want an error", ev)
	}
}

func TestLoaderRejectsBadPad(t *testing.T) {
	broker := engine.NewBroker()
	loader := engine.NewLoader(broker, 44100, engine.NopAnalyzer{}, "")
	if err := loader.Load(engine.NumPads, "x.wav"); err == nil {
		t.Error("out of range pad should fail synchronously")
	}
}

func TestLoaderCacheRoundTrip(t *testing.T) {
	broker := engine.NewBroker()
	cacheDir := filepath.Join(t.TempDir(), "cache")
	loader := engine.NewLoader(broker, 44100, engine.NopAnalyzer{}, cacheDir)
	path := writeWav(t, t.TempDir(), 44100)

	if err := loader.Load(0, path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	first := waitLoad(t, broker, 0)
	if first.Kind != engine.LoadSuccess {
		t.Fatalf("first load failed: %v", first.Message)
	}
	entries, err := os.ReadDir(cacheDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("cache entries = %v (%v), want 1", len(entries), err)
	}

	if err := loader.Load(0, path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	second := waitLoad(t, broker, 0)
	if second.Kind != engine.LoadSuccess {
		t.Fatalf("cached load failed: %v", second.Message)
	}
	if second.Frames != first.Frames {
		t.Errorf("cached frames = %d, want %d", second.Frames, first.Frames)
	}
}

// analyzerFunc adapts a function to the Analyzer interface.
type analyzerFunc func(samples []float32, rate int) (engine.Analysis, error)

func (f analyzerFunc) Analyze(samples []float32, rate int) (engine.Analysis, error) {
	return f(samples, rate)
}

func TestLoaderRunsAnalyzerOnMono(t *testing.T) {
	broker := engine.NewBroker()
	var gotSamples, gotRate int
	an := analyzerFunc(func(samples []float32, rate int) (engine.Analysis, error) {
		gotSamples, gotRate = len(samples), rate
		return engine.Analysis{BPM: 123}, nil
	})
	loader := engine.NewLoader(broker, 44100, an, "")
	path := writeWav(t, t.TempDir(), 44100)

	if err := loader.Load(0, path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ev := waitLoad(t, broker, 0)
	if ev.Kind != engine.LoadSuccess {
		t.Fatalf("load failed: %v", ev.Message)
	}
	if ev.Analysis.BPM != 123 {
		t.Errorf("analysis bpm = %v, want 123", ev.Analysis.BPM)
	}
	if gotRate != 44100 {
		t.Errorf("analyzer rate = %d, want 44100", gotRate)
	}
	if gotSamples != ev.Frames {
		t.Errorf("analyzer samples = %d, want the mono frame count %d", gotSamples, ev.Frames)
	}
}
