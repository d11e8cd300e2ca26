package engine

import "testing"

// At 120 BPM and 44.1 kHz a 1/64 note is 44100/32 = 1378.125 frames.
var gridAnalysis = Analysis{BPM: 120, Beats: []float64{0, 0.5, 1}, Downbeats: []float64{0, 2}}

func TestSnapRegionRoundsToGrid(t *testing.T) {
	start, end := snapRegion(1300, 5600, 40000, gridAnalysis, 44100)
	if start != 1378 {
		t.Errorf("start = %d, want 1378", start)
	}
	if end != 5513 {
		t.Errorf("end = %d, want 5513", end)
	}
}

func TestSnapRegionAnchorsOnDownbeat(t *testing.T) {
	a := gridAnalysis
	a.Downbeats = []float64{0.25} // anchor at frame 11025
	start, _ := snapRegion(11000, 30000, 40000, a, 44100)
	if start != 11025 {
		t.Errorf("start = %d, want the downbeat frame 11025", start)
	}
}

func TestSnapRegionWithoutTempoOnlyClamps(t *testing.T) {
	start, end := snapRegion(-5, 50000, 40000, Analysis{}, 44100)
	if start != 0 || end != 40000 {
		t.Errorf("region = [%d,%d), want [0,40000)", start, end)
	}
}

func TestSnapRegionNeverInverts(t *testing.T) {
	start, end := snapRegion(100, 200, 40000, gridAnalysis, 44100)
	if start >= end {
		t.Errorf("region [%d,%d) inverted after snapping", start, end)
	}
}

func TestBarRegion(t *testing.T) {
	// one bar of 4/4 at 120 BPM is 2 s = 88200 frames
	start, end := barRegion(1, 2, 400000, gridAnalysis, 44100)
	if start != 88200 {
		t.Errorf("start = %d, want 88200", start)
	}
	if end != 88200+2*88200 {
		t.Errorf("end = %d, want %d", end, 88200+2*88200)
	}
	t.Run("clamped to buffer", func(t *testing.T) {
		start, end := barRegion(1, 2, 200000, gridAnalysis, 44100)
		if start != 88200 || end != 200000 {
			t.Errorf("region = [%d,%d), want [88200,200000)", start, end)
		}
	})
	t.Run("no tempo falls back to whole sample", func(t *testing.T) {
		start, end := barRegion(1, 2, 200000, Analysis{}, 44100)
		if start != 0 || end != 200000 {
			t.Errorf("region = [%d,%d), want [0,200000)", start, end)
		}
	})
}
