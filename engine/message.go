package engine

import (
	"time"

	"github.com/padgrid/padgrid"
)

type (
	CommandKind uint8

	// Command is a control-to-engine message. It is a flat struct with a Kind
	// discriminator instead of an interface so that queueing one never
	// allocates; unused fields are simply zero. The only pointer it can carry
	// is the immutable sample buffer of a load.
	Command struct {
		Kind     CommandKind
		Pad      int
		Buffer   *padgrid.Buffer // LoadSample
		Velocity float32         // PlaySample
		Value    float32         // SetSpeed, SetPadGain, SetMasterBpm, SetPadBpm
		HasValue bool            // SetPadBpm: false clears the override
		Low      float32         // SetPadEq, in dB
		Mid      float32
		High     float32
		Start    int // SetPadLoopRegion, in frames
		End      int
		On       bool // SetKeyLock, SetBpmLock
	}

	EventKind uint8

	// Event is an engine-to-control message: telemetry and acknowledgements.
	Event struct {
		Kind     EventKind
		Pad      int
		Peak     float32 // PadPeak, in [0,1]
		Position int     // PadPlayhead, in frames
	}

	LoadEventKind uint8

	// LoadEvent reports the progress of an asynchronous load. These are
	// polled by the control surface from Broker.LoadEvents.
	LoadEvent struct {
		Kind     LoadEventKind
		Pad      int
		Path     string
		Percent  float64 // Progress, in [0,1], monotone per load
		Stage    string  // Progress: "decode", "analyze"
		Duration time.Duration
		Frames   int
		Analysis Analysis
		Message  string // Error
	}
)

const (
	CmdNone CommandKind = iota
	CmdLoadSample
	CmdUnloadSample
	CmdPlaySample
	CmdStopSample
	CmdStopAll
	CmdSetSpeed
	CmdSetPadGain
	CmdSetPadEq
	CmdSetPadLoopRegion
	CmdSetKeyLock
	CmdSetBpmLock
	CmdSetMasterBpm
	CmdSetPadBpm
	CmdPing
)

const (
	EvNone EventKind = iota
	EvPong
	EvStopped
	EvPadPeak
	EvPadPlayhead
)

const (
	LoadNone LoadEventKind = iota
	LoadStarted
	LoadProgress
	LoadSuccess
	LoadError
)
