package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/padgrid/padgrid/engine/types"
)

type (
	// Session is the serialized form of the control state: everything needed
	// to restore a performance setup, but none of the decoded audio — samples
	// reload from their original paths.
	Session struct {
		Speed     float32      `yaml:"speed"`
		KeyLock   bool         `yaml:"keylock"`
		BpmLock   bool         `yaml:"bpmlock"`
		MasterBPM float32      `yaml:"masterbpm,omitempty"`
		Pads      []PadSession `yaml:"pads,omitempty"`
	}

	PadSession struct {
		Pad        int     `yaml:"pad"`
		Path       string  `yaml:"path"`
		Gain       float32 `yaml:"gain"`
		EqLow      float32 `yaml:"eqlow"`
		EqMid      float32 `yaml:"eqmid"`
		EqHigh     float32 `yaml:"eqhigh"`
		LoopStart  int     `yaml:"loopstart"`
		LoopEnd    int     `yaml:"loopend"`
		AutoLoop   bool    `yaml:"autoloop,omitempty"`
		LoopOffset int     `yaml:"loopoffset,omitempty"`
		BarCount   int     `yaml:"barcount,omitempty"`
		BPM        float32 `yaml:"bpm,omitempty"`
	}
)

// Snapshot captures the current control state. Pads with no sample path are
// omitted.
func (m *Model) Snapshot() Session {
	s := Session{
		Speed:   m.speed,
		KeyLock: m.keyLock,
		BpmLock: m.bpmLock,
	}
	if bpm, ok := m.masterBPM.Unpack(); ok {
		s.MasterBPM = bpm
	}
	for i := range m.pads {
		p := &m.pads[i]
		if p.Path == "" {
			continue
		}
		ps := PadSession{
			Pad:        i,
			Path:       p.Path,
			Gain:       p.Gain,
			EqLow:      p.EqLow,
			EqMid:      p.EqMid,
			EqHigh:     p.EqHigh,
			LoopStart:  p.Loop.Start,
			LoopEnd:    p.Loop.End,
			AutoLoop:   p.AutoLoop,
			LoopOffset: p.LoopOffset,
			BarCount:   p.BarCount,
		}
		if bpm, ok := p.BPM.Unpack(); ok {
			ps.BPM = bpm
		}
		s.Pads = append(s.Pads, ps)
	}
	return s
}

// Restore applies a session: global state immediately, pad mix state
// immediately, and starts the sample loads. Loop regions saved in the session
// reapply once the matching load completes (the control loop does this by
// polling load events as usual). Invalid pad entries fail the restore before
// anything is sent.
func (m *Model) Restore(s Session) error {
	for i := range s.Pads {
		if err := m.checkPad(s.Pads[i].Pad); err != nil {
			return err
		}
	}
	if err := m.SetSpeed(s.Speed); err != nil {
		return err
	}
	m.SetKeyLock(s.KeyLock)
	if s.MasterBPM > 0 {
		if err := m.SetMasterBpm(s.MasterBPM); err != nil {
			return err
		}
	}
	m.SetBpmLock(s.BpmLock)
	for _, ps := range s.Pads {
		pad := ps.Pad
		if err := m.SetPadGain(pad, ps.Gain); err != nil {
			return err
		}
		if err := m.SetPadEq(pad, ps.EqLow, ps.EqMid, ps.EqHigh); err != nil {
			return err
		}
		p := &m.pads[pad]
		p.AutoLoop = ps.AutoLoop
		p.LoopOffset = ps.LoopOffset
		if ps.BarCount > 0 {
			p.BarCount = ps.BarCount
		}
		if ps.BPM > 0 {
			if err := m.SetPadBpm(pad, ps.BPM); err != nil {
				return err
			}
		}
		if !ps.AutoLoop && ps.LoopEnd > ps.LoopStart {
			// applied once the load publishes
			m.pendingLoop[pad] = types.NewOptional(LoopRegion{Start: ps.LoopStart, End: ps.LoopEnd})
		}
		if err := m.Load(pad, ps.Path); err != nil {
			return err
		}
	}
	return nil
}

// SaveSession writes the session to path as YAML.
func SaveSession(path string, s Session) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("engine: marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("engine: write session: %w", err)
	}
	return nil
}

// ReadSession reads a YAML session from path.
func ReadSession(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("engine: read session: %w", err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("engine: parse session: %w", err)
	}
	return s, nil
}
