package engine_test

import (
	"path/filepath"
	"testing"

	"github.com/padgrid/padgrid/engine"
)

func TestSessionSnapshotRoundTrip(t *testing.T) {
	m, broker := newTestModel()
	loadPadPath(t, m, broker, 2, 100000, engine.Analysis{BPM: 120}, "loops/beat.wav")
	m.SetSpeed(1.5)
	m.SetKeyLock(true)
	m.SetPadGain(2, 0.7)
	m.SetPadEq(2, -6, 0, 3)
	m.SetPadLoopRegion(2, 1000, 9000)
	m.SetMasterBpm(128)
	m.SetBpmLock(true)

	s := m.Snapshot()
	if s.Speed != 1.5 || !s.KeyLock || !s.BpmLock || s.MasterBPM != 128 {
		t.Errorf("global state = %+v", s)
	}
	if len(s.Pads) != 1 {
		t.Fatalf("pads = %d, want 1", len(s.Pads))
	}
	p := s.Pads[0]
	if p.Pad != 2 || p.Path != "loops/beat.wav" || p.Gain != 0.7 {
		t.Errorf("pad session = %+v", p)
	}
	if p.EqLow != -6 || p.EqMid != 0 || p.EqHigh != 3 {
		t.Errorf("eq = %v/%v/%v", p.EqLow, p.EqMid, p.EqHigh)
	}

	path := filepath.Join(t.TempDir(), "session.yml")
	if err := engine.SaveSession(path, s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	got, err := engine.ReadSession(path)
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if got.Speed != s.Speed || got.MasterBPM != s.MasterBPM || len(got.Pads) != 1 {
		t.Errorf("read back = %+v, want %+v", got, s)
	}
	if got.Pads[0] != s.Pads[0] {
		t.Errorf("pad read back = %+v, want %+v", got.Pads[0], s.Pads[0])
	}
}

func TestRestoreRejectsBadPad(t *testing.T) {
	m, _ := newTestModel()
	err := m.Restore(engine.Session{
		Speed: 1,
		Pads:  []engine.PadSession{{Pad: engine.NumPads, Path: "x.wav", Gain: 1}},
	})
	if err == nil {
		t.Error("restore with out-of-range pad should fail")
	}
}

func TestRestoreAppliesGlobalState(t *testing.T) {
	m, broker := newTestModel()
	err := m.Restore(engine.Session{Speed: 1.5, KeyLock: true, MasterBPM: 100, BpmLock: true})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if m.Speed() != 1.5 {
		t.Errorf("speed = %v, want 1.5", m.Speed())
	}
	var sawKeyLock, sawBpmLock, sawMaster bool
	for _, cmd := range drainCommands(broker) {
		switch cmd.Kind {
		case engine.CmdSetKeyLock:
			sawKeyLock = cmd.On
		case engine.CmdSetBpmLock:
			sawBpmLock = cmd.On
		case engine.CmdSetMasterBpm:
			sawMaster = cmd.HasValue && cmd.Value == 100
		}
	}
	if !sawKeyLock || !sawBpmLock || !sawMaster {
		t.Errorf("missing commands: keylock=%v bpmlock=%v master=%v", sawKeyLock, sawBpmLock, sawMaster)
	}
}
