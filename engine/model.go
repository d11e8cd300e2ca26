package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/padgrid/padgrid/engine/types"
)

const peakHalfLife = 150 * time.Millisecond

var (
	ErrPadRange     = errors.New("engine: pad out of range")
	ErrValueRange   = errors.New("engine: value out of range")
	ErrNotLoaded    = errors.New("engine: pad has no sample")
	ErrInvalidValue = errors.New("engine: value must be finite")
)

type (
	// Model is the control-context view of the instrument. It owns the
	// authoritative pad state (what a UI would display), validates every
	// parameter before anything crosses to the render context, and mirrors
	// back the telemetry the engine reports. All methods must be called from
	// one goroutine; the broker is the only thing shared with the engine.
	Model struct {
		broker *Broker
		loader *Loader
		rate   int

		speed     float32
		keyLock   bool
		bpmLock   bool
		masterBPM types.Optional[float32]
		// masterExplicit marks a master tempo set by hand, as opposed to one
		// anchored by engaging the lock; only the latter clears on release.
		masterExplicit bool
		anchorPad      int // last triggered pad, the BPM-lock anchor

		pads [NumPads]PadState

		// loop regions restored from a session, waiting for their loads
		pendingLoop [NumPads]types.Optional[LoopRegion]

		peaks     [NumPads]float32
		peakTimes [NumPads]time.Time
		playheads [NumPads]int
	}

	// PadState is the control-side mirror of one pad.
	PadState struct {
		Loaded     bool
		Path       string
		Frames     int
		Analysis   Analysis
		Loop       LoopRegion
		AutoLoop   bool
		LoopOffset int // bars past the grid anchor
		BarCount   int
		Gain       float32
		EqLow      float32 // dB
		EqMid      float32
		EqHigh     float32
		BPM        types.Optional[float32] // manual override, else Analysis.BPM applies
	}
)

func NewModel(broker *Broker, loader *Loader, rate int) *Model {
	m := &Model{
		broker:    broker,
		loader:    loader,
		rate:      rate,
		speed:     1,
		anchorPad: -1,
	}
	for i := range m.pads {
		m.pads[i] = PadState{Gain: 1, BarCount: 4}
	}
	return m
}

func (m *Model) checkPad(pad int) error {
	if pad < 0 || pad >= NumPads {
		return fmt.Errorf("%w: %d", ErrPadRange, pad)
	}
	return nil
}

// Load starts loading path onto pad. Completion arrives later through
// PollLoadEvent; until then the pad keeps whatever it held, path included, so
// a failed load never leaves a phantom entry behind.
func (m *Model) Load(pad int, path string) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	return m.loader.Load(pad, path)
}

func (m *Model) Unload(pad int) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	p := &m.pads[pad]
	p.Loaded = false
	p.Path = ""
	p.Frames = 0
	p.Analysis = Analysis{}
	p.Loop = LoopRegion{}
	TrySend(m.broker.ToEngine, Command{Kind: CmdUnloadSample, Pad: pad})
	return nil
}

// Trigger starts pad at velocity in [0,1]. The triggered pad becomes the
// BPM-lock anchor.
func (m *Model) Trigger(pad int, velocity float32) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	if !m.pads[pad].Loaded {
		return fmt.Errorf("%w: pad %d", ErrNotLoaded, pad)
	}
	if velocity < 0 || velocity > 1 || !finite(velocity) {
		return fmt.Errorf("%w: velocity %v", ErrValueRange, velocity)
	}
	m.anchorPad = pad
	TrySend(m.broker.ToEngine, Command{Kind: CmdPlaySample, Pad: pad, Velocity: velocity})
	return nil
}

func (m *Model) Stop(pad int) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	TrySend(m.broker.ToEngine, Command{Kind: CmdStopSample, Pad: pad})
	return nil
}

func (m *Model) StopAll() {
	TrySend(m.broker.ToEngine, Command{Kind: CmdStopAll})
}

// SetSpeed sets the global playback multiplier, clamped to
// [SpeedMin,SpeedMax]. While BPM-lock is engaged the master tempo follows the
// speed change so the locked pads keep their relationship.
func (m *Model) SetSpeed(speed float32) error {
	if !finite(speed) {
		return fmt.Errorf("%w: speed", ErrInvalidValue)
	}
	if speed < SpeedMin {
		speed = SpeedMin
	}
	if speed > SpeedMax {
		speed = SpeedMax
	}
	m.speed = speed
	TrySend(m.broker.ToEngine, Command{Kind: CmdSetSpeed, Value: speed})
	if m.bpmLock {
		m.recomputeMaster()
	}
	return nil
}

func (m *Model) Speed() float32 { return m.speed }

func (m *Model) SetPadGain(pad int, gain float32) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	if !finite(gain) || gain < 0 {
		return fmt.Errorf("%w: gain %v", ErrValueRange, gain)
	}
	m.pads[pad].Gain = gain
	TrySend(m.broker.ToEngine, Command{Kind: CmdSetPadGain, Pad: pad, Value: gain})
	return nil
}

// SetPadEq sets the three isolator band gains in dB, clamped to
// [EqMinDB,EqMaxDB]. The bottom of the range is a full kill.
func (m *Model) SetPadEq(pad int, low, mid, high float32) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	if !finite(low) || !finite(mid) || !finite(high) {
		return fmt.Errorf("%w: eq", ErrInvalidValue)
	}
	low, mid, high = clampDB(low), clampDB(mid), clampDB(high)
	p := &m.pads[pad]
	p.EqLow, p.EqMid, p.EqHigh = low, mid, high
	TrySend(m.broker.ToEngine, Command{Kind: CmdSetPadEq, Pad: pad, Low: low, Mid: mid, High: high})
	return nil
}

// SetPadLoopRegion sets the loop bounds in frames. With auto-loop on the
// bounds snap to the sample's musical grid; with auto-loop off they pass
// through untouched. Bounds must satisfy 0 <= start < end <= frames.
func (m *Model) SetPadLoopRegion(pad, start, end int) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	p := &m.pads[pad]
	if !p.Loaded {
		return fmt.Errorf("%w: pad %d", ErrNotLoaded, pad)
	}
	if start < 0 || end > p.Frames || start >= end {
		return fmt.Errorf("%w: loop [%d,%d) of %d frames", ErrValueRange, start, end, p.Frames)
	}
	if p.AutoLoop {
		start, end = snapRegion(start, end, p.Frames, p.Analysis, m.rate)
	}
	p.Loop = LoopRegion{Start: start, End: end}
	TrySend(m.broker.ToEngine, Command{Kind: CmdSetPadLoopRegion, Pad: pad, Start: start, End: end})
	return nil
}

// SetPadAutoLoop switches the pad to the bar-derived loop region; the region
// recomputes from the pad's bar offset and count.
func (m *Model) SetPadAutoLoop(pad int, on bool) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	m.pads[pad].AutoLoop = on
	if on {
		m.applyAutoLoop(pad)
	}
	return nil
}

func (m *Model) SetPadLoopOffset(pad, bars int) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	if bars < 0 {
		return fmt.Errorf("%w: loop offset %d", ErrValueRange, bars)
	}
	m.pads[pad].LoopOffset = bars
	if m.pads[pad].AutoLoop {
		m.applyAutoLoop(pad)
	}
	return nil
}

func (m *Model) SetPadBarCount(pad, bars int) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	if bars < 1 {
		return fmt.Errorf("%w: bar count %d", ErrValueRange, bars)
	}
	m.pads[pad].BarCount = bars
	if m.pads[pad].AutoLoop {
		m.applyAutoLoop(pad)
	}
	return nil
}

func (m *Model) applyAutoLoop(pad int) {
	p := &m.pads[pad]
	if !p.Loaded {
		return
	}
	start, end := barRegion(p.LoopOffset, p.BarCount, p.Frames, p.Analysis, m.rate)
	p.Loop = LoopRegion{Start: start, End: end}
	TrySend(m.broker.ToEngine, Command{Kind: CmdSetPadLoopRegion, Pad: pad, Start: start, End: end})
}

func (m *Model) SetKeyLock(on bool) {
	m.keyLock = on
	TrySend(m.broker.ToEngine, Command{Kind: CmdSetKeyLock, On: on})
}

// SetBpmLock engages or releases tempo slaving. On engage, if no master tempo
// is set yet, the last triggered pad anchors it: master = pad tempo * speed.
// On release an anchored master clears again, so the next engage re-anchors;
// a master set by hand survives.
func (m *Model) SetBpmLock(on bool) {
	m.bpmLock = on
	TrySend(m.broker.ToEngine, Command{Kind: CmdSetBpmLock, On: on})
	if on {
		if m.masterBPM.Empty() {
			m.recomputeMaster()
		}
	} else if !m.masterExplicit {
		m.setMaster(types.Optional[float32]{})
	}
}

func (m *Model) recomputeMaster() {
	if m.anchorPad < 0 {
		return
	}
	if bpm, ok := m.padBPM(m.anchorPad).Unpack(); ok {
		m.masterExplicit = false
		m.setMaster(types.NewOptional(bpm * m.speed))
	}
}

// padBPM resolves the effective tempo of a pad: manual override first, then
// the analyzed tempo.
func (m *Model) padBPM(pad int) types.Optional[float32] {
	p := &m.pads[pad]
	if !p.BPM.Empty() {
		return p.BPM
	}
	if p.Analysis.BPM > 0 {
		return types.NewOptional(float32(p.Analysis.BPM))
	}
	return types.Optional[float32]{}
}

func (m *Model) setMaster(bpm types.Optional[float32]) {
	m.masterBPM = bpm
	v, ok := bpm.Unpack()
	TrySend(m.broker.ToEngine, Command{Kind: CmdSetMasterBpm, Value: v, HasValue: ok})
}

func (m *Model) SetMasterBpm(bpm float32) error {
	if !finite(bpm) || bpm <= 0 {
		return fmt.Errorf("%w: master bpm %v", ErrValueRange, bpm)
	}
	m.masterExplicit = true
	m.setMaster(types.NewOptional(bpm))
	return nil
}

func (m *Model) ClearMasterBpm() {
	m.masterExplicit = false
	m.setMaster(types.Optional[float32]{})
}

func (m *Model) SetPadBpm(pad int, bpm float32) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	if !finite(bpm) || bpm <= 0 {
		return fmt.Errorf("%w: pad bpm %v", ErrValueRange, bpm)
	}
	m.pads[pad].BPM = types.NewOptional(bpm)
	TrySend(m.broker.ToEngine, Command{Kind: CmdSetPadBpm, Pad: pad, Value: bpm, HasValue: true})
	return nil
}

func (m *Model) ClearPadBpm(pad int) error {
	if err := m.checkPad(pad); err != nil {
		return err
	}
	m.pads[pad].BPM = types.Optional[float32]{}
	TrySend(m.broker.ToEngine, Command{Kind: CmdSetPadBpm, Pad: pad, HasValue: false})
	return nil
}

func (m *Model) Pad(pad int) (PadState, error) {
	if err := m.checkPad(pad); err != nil {
		return PadState{}, err
	}
	return m.pads[pad], nil
}

// PollEvent drains one telemetry event from the engine and folds it into the
// model's peak and playhead mirrors. Call it in the UI loop until it returns
// false.
func (m *Model) PollEvent() (Event, bool) {
	select {
	case ev := <-m.broker.ToControl:
		switch ev.Kind {
		case EvPadPeak:
			if ev.Pad >= 0 && ev.Pad < NumPads {
				m.peaks[ev.Pad] = ev.Peak
				m.peakTimes[ev.Pad] = time.Now()
			}
		case EvPadPlayhead:
			if ev.Pad >= 0 && ev.Pad < NumPads {
				m.playheads[ev.Pad] = ev.Position
			}
		}
		return ev, true
	default:
		return Event{}, false
	}
}

// PollLoadEvent drains one loader event. On success the pad state flips to
// loaded and the loop region defaults to the whole sample, or to the
// bar-derived region when auto-loop is set.
func (m *Model) PollLoadEvent() (LoadEvent, bool) {
	select {
	case ev := <-m.broker.LoadEvents:
		if ev.Kind == LoadSuccess && ev.Pad >= 0 && ev.Pad < NumPads {
			p := &m.pads[ev.Pad]
			p.Loaded = true
			p.Path = ev.Path
			p.Frames = ev.Frames
			p.Analysis = ev.Analysis
			p.Loop = LoopRegion{Start: 0, End: ev.Frames}
			if p.AutoLoop {
				m.applyAutoLoop(ev.Pad)
			} else if loop, ok := m.pendingLoop[ev.Pad].Unpack(); ok {
				if err := m.SetPadLoopRegion(ev.Pad, loop.Start, loop.End); err != nil {
					// stale region for a changed file, keep the full sample
					p.Loop = LoopRegion{Start: 0, End: ev.Frames}
				}
			}
			m.pendingLoop[ev.Pad] = types.Optional[LoopRegion]{}
		}
		return ev, true
	default:
		return LoadEvent{}, false
	}
}

// Peak returns the pad's meter level, decayed exponentially since the last
// report so meters fall smoothly between telemetry ticks.
func (m *Model) Peak(pad int) float32 {
	if pad < 0 || pad >= NumPads || m.peaks[pad] == 0 {
		return 0
	}
	elapsed := time.Since(m.peakTimes[pad])
	decay := float32(math.Exp2(-float64(elapsed) / float64(peakHalfLife)))
	v := m.peaks[pad] * decay
	if v < 1e-4 {
		m.peaks[pad] = 0
		return 0
	}
	return v
}

func (m *Model) Playhead(pad int) int {
	if pad < 0 || pad >= NumPads {
		return 0
	}
	return m.playheads[pad]
}

// Ping round-trips a message through the render context, for liveness checks.
func (m *Model) Ping(timeout time.Duration) bool {
	TrySend(m.broker.ToEngine, Command{Kind: CmdPing})
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ev, ok := TimeoutReceive(m.broker.ToControl, time.Until(deadline)); ok {
			if ev.Kind == EvPong {
				return true
			}
			continue
		}
		return false
	}
	return false
}

func clampDB(db float32) float32 {
	if db < EqMinDB {
		return EqMinDB
	}
	if db > EqMaxDB {
		return EqMaxDB
	}
	return db
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
