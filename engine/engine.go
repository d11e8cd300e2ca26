package engine

import (
	"encoding/binary"
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/padgrid/padgrid"
	"github.com/padgrid/padgrid/engine/types"
)

const (
	// maxBlockFrames bounds the number of frames rendered per internal block;
	// larger Process calls are chunked. All scratch is sized to it so the
	// render path never allocates.
	maxBlockFrames = 8192

	fadeSeconds   = 0.005 // stop/retrigger fade-out
	telemetryHz   = 10    // per-pad peak/playhead report rate
	masterGain    = 1.0
	bypassEpsilon = 1e-3 // transpose below this snaps to exact bypass
)

// Engine is the voice mixer, the owner of the render context. It is driven
// either by the audio output pulling Read, or directly through Process in
// offline rendering and tests. Everything it owns — sample bank, voice pool,
// tempo state — is mutated only by applying commands drained from the broker
// at the start of each block, so no locks appear anywhere on the render path.
type Engine struct {
	broker *Broker
	rate   int

	bank   sampleBank
	pads   [NumPads]padParams
	tempo  tempoState
	voices [NumVoices]voice

	iso      isolator
	fadeStep float32

	// preallocated scratch
	voiceBuf padgrid.AudioBuffer
	inTmp    []float32
	lowTmp   []float32
	highTmp  []float32
	peakTmp  []float32

	padPeak   [NumPads]float32
	padPos    [NumPads]int
	padLive   [NumPads]bool
	reportIn  [NumPads]int // frames until next telemetry report
	reportGap int

	readBuf padgrid.AudioBuffer
}

func NewEngine(broker *Broker, rate int) *Engine {
	e := &Engine{
		broker:    broker,
		rate:      rate,
		tempo:     newTempoState(),
		iso:       newIsolator(rate),
		fadeStep:  float32(1 / (fadeSeconds * float64(rate))),
		voiceBuf:  make(padgrid.AudioBuffer, maxBlockFrames),
		inTmp:     make([]float32, maxBlockFrames),
		lowTmp:    make([]float32, maxBlockFrames),
		highTmp:   make([]float32, maxBlockFrames),
		peakTmp:   make([]float32, maxBlockFrames*2),
		reportGap: rate / telemetryHz,
		readBuf:   make(padgrid.AudioBuffer, maxBlockFrames),
	}
	for i := range e.pads {
		e.pads[i] = defaultPadParams()
	}
	return e
}

func (e *Engine) Rate() int { return e.rate }

// Process renders the next block of output. Each internal block first drains
// the command queue, then renders and retires voices, then reports telemetry.
func (e *Engine) Process(buffer padgrid.AudioBuffer) {
	for len(buffer) > 0 {
		n := len(buffer)
		if n > maxBlockFrames {
			n = maxBlockFrames
		}
		e.processBlock(buffer[:n])
		buffer = buffer[n:]
	}
}

// Read implements io.Reader producing little-endian float32 stereo, the
// format the audio output pulls. This is the render callback: the platform
// audio driver calls it at block cadence.
func (e *Engine) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	if frames > maxBlockFrames {
		frames = maxBlockFrames
	}
	buf := e.readBuf[:frames]
	e.Process(buf)
	for i, frame := range buf {
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(frame[0]))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(frame[1]))
	}
	return frames * 8, nil
}

func (e *Engine) processBlock(out padgrid.AudioBuffer) {
	e.processCommands()

	for i := range out {
		out[i] = [2]float32{}
	}
	for i := range e.padLive {
		e.padLive[i] = false
	}

	for vi := range e.voices {
		v := &e.voices[vi]
		if !v.active() {
			continue
		}
		e.renderVoice(v, out)
	}

	e.reportTelemetry(len(out))
}

func (e *Engine) renderVoice(v *voice, out padgrid.AudioBuffer) {
	p := &e.pads[v.pad]

	// pick up live loop-region edits as long as the slot still holds the
	// voice's buffer; after unload/replace the voice keeps its snapshot
	if e.bank[v.pad].buffer == v.buffer {
		v.loop = e.bank[v.pad].loop
	}

	targetRatio := e.tempo.ratioFor(p.bpm)
	targetTranspose := e.tempo.transposeFor(targetRatio)
	v.ratio += (targetRatio - v.ratio) * tempoSmoothing
	v.transpose += (targetTranspose - v.transpose) * tempoSmoothing
	if targetTranspose == 0 && math.Abs(v.transpose) < bypassEpsilon {
		v.transpose = 0
	}

	n := len(out)
	buf := e.voiceBuf[:n]
	v.stretch.varispeed(v.buffer, v.loop, &v.pos, v.ratio, buf)
	if v.transpose != 0 {
		v.stretch.shift(buf, math.Exp2(v.transpose/12))
	}
	e.iso.process(&v.eq, buf, e.inTmp, e.lowTmp, e.highTmp, p.eqLow, p.eqMid, p.eqHigh)

	gain := p.gain * v.velocity * masterGain
	for i := range buf {
		if v.released && v.fade > 0 {
			v.fade -= e.fadeStep
			if v.fade < 0 {
				v.fade = 0
			}
		}
		g := gain * v.fade
		out[i][0] += buf[i][0] * g
		out[i][1] += buf[i][1] * g
		e.peakTmp[i*2] = buf[i][0] * g
		e.peakTmp[i*2+1] = buf[i][1] * g
	}
	v.age += n

	pad := v.pad
	e.padLive[pad] = true
	vek32.Abs_Inplace(e.peakTmp[:n*2])
	peak := vek32.Max(e.peakTmp[:n*2])
	if peak > 1 {
		peak = 1
	}
	if peak > e.padPeak[pad] {
		e.padPeak[pad] = peak
	}
	if !v.released {
		e.padPos[pad] = v.pos
	}

	if v.released && v.fade == 0 {
		*v = voice{}
	}
}

func (e *Engine) reportTelemetry(blockFrames int) {
	for pad := 0; pad < NumPads; pad++ {
		if !e.padLive[pad] {
			continue
		}
		e.reportIn[pad] -= blockFrames
		if e.reportIn[pad] > 0 {
			continue
		}
		e.reportIn[pad] = e.reportGap
		TrySend(e.broker.ToControl, Event{Kind: EvPadPeak, Pad: pad, Peak: e.padPeak[pad]})
		TrySend(e.broker.ToControl, Event{Kind: EvPadPlayhead, Pad: pad, Position: e.padPos[pad]})
		e.padPeak[pad] = 0
	}
}

// processCommands drains the control queue completely; the queue capacity
// bounds the work done here.
func (e *Engine) processCommands() {
	for {
		select {
		case cmd := <-e.broker.ToEngine:
			e.apply(cmd)
		default:
			return
		}
	}
}

func (e *Engine) apply(cmd Command) {
	if cmd.Pad < 0 || cmd.Pad >= NumPads {
		// ids are validated control-side; a stray message is absorbed here
		return
	}
	switch cmd.Kind {
	case CmdLoadSample:
		if cmd.Buffer == nil {
			return
		}
		e.releasePad(cmd.Pad)
		e.bank.set(cmd.Pad, cmd.Buffer)
	case CmdUnloadSample:
		e.releasePad(cmd.Pad)
		e.bank.clear(cmd.Pad)
	case CmdPlaySample:
		e.trigger(cmd.Pad, cmd.Velocity)
	case CmdStopSample:
		e.releasePad(cmd.Pad)
	case CmdStopAll:
		for i := range e.voices {
			e.voices[i].release()
		}
		TrySend(e.broker.ToControl, Event{Kind: EvStopped})
	case CmdSetSpeed:
		e.tempo.speed = cmd.Value
	case CmdSetPadGain:
		e.pads[cmd.Pad].gain = cmd.Value
	case CmdSetPadEq:
		e.pads[cmd.Pad].eqLow = BandGain(cmd.Low)
		e.pads[cmd.Pad].eqMid = BandGain(cmd.Mid)
		e.pads[cmd.Pad].eqHigh = BandGain(cmd.High)
	case CmdSetPadLoopRegion:
		e.bank.setLoop(cmd.Pad, cmd.Start, cmd.End)
		loop := e.bank[cmd.Pad].loop
		for i := range e.voices {
			v := &e.voices[i]
			if v.active() && v.pad == cmd.Pad && v.buffer == e.bank[cmd.Pad].buffer {
				v.pos = loop.wrap(v.pos)
			}
		}
	case CmdSetKeyLock:
		e.tempo.keyLock = cmd.On
	case CmdSetBpmLock:
		e.tempo.bpmLock = cmd.On
	case CmdSetMasterBpm:
		if cmd.HasValue {
			e.tempo.masterBPM = types.NewOptional(cmd.Value)
		} else {
			e.tempo.masterBPM = types.Optional[float32]{}
		}
	case CmdSetPadBpm:
		if cmd.HasValue {
			e.pads[cmd.Pad].bpm = types.NewOptional(cmd.Value)
		} else {
			e.pads[cmd.Pad].bpm = types.Optional[float32]{}
		}
	case CmdPing:
		TrySend(e.broker.ToControl, Event{Kind: EvPong})
	}
}

// trigger starts a fresh voice for pad at the loop start. A pad with nothing
// loaded is a no-op; a pad already sounding is retriggered (its old voice
// fades out); a full pool deterministically reclaims the oldest voice.
func (e *Engine) trigger(pad int, velocity float32) {
	buf := e.bank[pad].buffer
	if buf == nil {
		return
	}
	e.releasePad(pad)

	v := e.allocVoice()
	target := e.tempo.ratioFor(e.pads[pad].bpm)
	*v = voice{
		pad:       pad,
		buffer:    buf,
		loop:      e.bank[pad].loop,
		pos:       e.bank[pad].loop.Start,
		velocity:  velocity,
		fade:      1,
		ratio:     target,
		transpose: e.tempo.transposeFor(target),
	}
	v.stretch.reset()
}

func (e *Engine) releasePad(pad int) {
	for i := range e.voices {
		if e.voices[i].active() && e.voices[i].pad == pad {
			e.voices[i].release()
		}
	}
}

// allocVoice returns a free pool slot, or reclaims the voice with the
// greatest age. The tie-break on equal ages is the lowest index, so eviction
// is fully deterministic.
func (e *Engine) allocVoice() *voice {
	var oldest *voice
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active() {
			return v
		}
		if oldest == nil || v.age > oldest.age {
			oldest = v
		}
	}
	*oldest = voice{}
	return oldest
}

// liveVoices counts pool slots in use; exported for telemetry-style
// inspection from the control side in tests and tools only.
func (e *Engine) liveVoices() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active() {
			n++
		}
	}
	return n
}
