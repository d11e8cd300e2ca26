package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/padgrid/padgrid"
	"github.com/padgrid/padgrid/engine"
	"github.com/padgrid/padgrid/oto"
	"github.com/padgrid/padgrid/version"
)

const rate = 44100

// midiContext is the part of the MIDI input the player loop needs; the cgo
// build provides the rtmidi implementation, the non-cgo build a null one.
type midiContext interface {
	TryToOpenBy(namePrefix string, takeFirst bool)
	Dispatch(m *engine.Model)
	Close()
}

func main() {
	help := flag.Bool("h", false, "Show help.")
	session := flag.String("session", "", "Session file to load; sample arguments are placed on pads after the session's.")
	duration := flag.Float64("d", 0, "Seconds to play or render. 0 plays until interrupted (or renders one pass of the longest sample).")
	speed := flag.Float64("speed", 1, "Playback speed multiplier.")
	wavOut := flag.Bool("w", false, "Do not play; render to a .wav file instead.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	outFile := flag.String("o", "out.wav", "Output file for -w.")
	midiPrefix := flag.String("midi", "", "Open the first MIDI input whose name starts with this prefix.")
	cacheDir := flag.String("cache", "", "Directory for the decoded-sample cache. Empty disables caching.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if (flag.NArg() == 0 && *session == "") || *help {
		flag.Usage()
		os.Exit(0)
	}

	broker := engine.NewBroker()
	loader := engine.NewLoader(broker, rate, engine.NopAnalyzer{}, *cacheDir)
	model := engine.NewModel(broker, loader, rate)
	eng := engine.NewEngine(broker, rate)

	loading := 0
	if *session != "" {
		s, err := engine.ReadSession(*session)
		if err != nil {
			fatalf("%v", err)
		}
		if err := model.Restore(s); err != nil {
			fatalf("could not restore session: %v", err)
		}
		loading += len(s.Pads)
	}
	for i, path := range flag.Args() {
		if err := model.Load(i, path); err != nil {
			fatalf("could not load %v: %v", path, err)
		}
	}
	loading += flag.NArg()

	// wait for the async loads; a load error on any pad is fatal here, since
	// a player with missing samples is useless
	longest := 0.0
	for loading > 0 {
		ev, ok := model.PollLoadEvent()
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		switch ev.Kind {
		case engine.LoadSuccess:
			loading--
			if d := float64(ev.Frames) / rate; d > longest {
				longest = d
			}
		case engine.LoadError:
			fatalf("pad %d: %v", ev.Pad, ev.Message)
		}
	}

	if err := model.SetSpeed(float32(*speed)); err != nil {
		fatalf("invalid speed: %v", err)
	}
	for pad := 0; pad < engine.NumPads; pad++ {
		if state, err := model.Pad(pad); err == nil && state.Loaded {
			if err := model.Trigger(pad, 1); err != nil {
				fatalf("could not trigger pad %d: %v", pad, err)
			}
		}
	}

	if *wavOut {
		render(eng, *duration, longest, *pcm, *outFile)
		return
	}
	play(eng, model, *duration, *midiPrefix)
}

func render(eng *engine.Engine, duration, longest float64, pcm bool, outFile string) {
	if duration <= 0 {
		duration = longest
	}
	buffer := make(padgrid.AudioBuffer, int(duration*rate))
	eng.Process(buffer)
	data, err := buffer.Wav(rate, pcm)
	if err != nil {
		fatalf("could not generate .wav file: %v", err)
	}
	if dir := filepath.Dir(outFile); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			fatalf("could not create output directory %v: %v", dir, err)
		}
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		fatalf("could not write file %v: %v", outFile, err)
	}
}

func play(eng *engine.Engine, model *engine.Model, duration float64, midiPrefix string) {
	audioContext, err := oto.NewContext(rate)
	if err != nil {
		fatalf("could not acquire audio context: %v", err)
	}
	defer audioContext.Close()

	midi := newMidiContext()
	defer midi.Close()
	if midiPrefix != "" {
		midi.TryToOpenBy(midiPrefix, false)
	}

	playWaiter := audioContext.Play(eng)
	defer playWaiter.Close()

	var deadline time.Time
	if duration > 0 {
		deadline = time.Now().Add(time.Duration(duration * float64(time.Second)))
	}
	for deadline.IsZero() || time.Now().Before(deadline) {
		midi.Dispatch(model)
		for {
			if _, ok := model.PollEvent(); !ok {
				break
			}
		}
		for {
			if _, ok := model.PollLoadEvent(); !ok {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	model.StopAll()
	time.Sleep(100 * time.Millisecond)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "PadGrid command line player\nVersion %v\n", version.VersionOrHash)
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [sample files...]\n", strings.TrimSuffix(filepath.Base(os.Args[0]), ".exe"))
	flag.PrintDefaults()
}
