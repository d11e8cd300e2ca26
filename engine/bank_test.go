package engine

import "testing"

func TestLoopRegionWrap(t *testing.T) {
	r := LoopRegion{Start: 100, End: 1100}
	for _, c := range []struct{ in, want int }{
		{100, 100},
		{1099, 1099},
		{1100, 100},
		{1101, 101},
		{2100, 100},
		{3100, 100},
		{99, 1099},
		{0, 1000},
	} {
		if got := r.wrap(c.in); got != c.want {
			t.Errorf("wrap(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestLoopRegionWrapDegenerate(t *testing.T) {
	r := LoopRegion{Start: 5, End: 5}
	if got := r.wrap(123); got != 5 {
		t.Errorf("wrap on empty region = %d, want start", got)
	}
}

func TestBankSetDefaultsToFullSample(t *testing.T) {
	var b sampleBank
	b.set(3, rampBuffer(1234))
	if got := b[3].loop; got.Start != 0 || got.End != 1234 {
		t.Errorf("default loop = %+v, want [0,1234)", got)
	}
}

func TestBankRejectsInvalidLoop(t *testing.T) {
	var b sampleBank
	b.set(0, rampBuffer(1000))
	for _, c := range []struct{ start, end int }{
		{-1, 500},
		{500, 500},
		{600, 500},
		{0, 1001},
	} {
		b.setLoop(0, c.start, c.end)
		if got := b[0].loop; got.Start != 0 || got.End != 1000 {
			t.Errorf("loop after setLoop(%d,%d) = %+v, want untouched", c.start, c.end, got)
		}
	}
	b.setLoop(0, 250, 750)
	if got := b[0].loop; got.Start != 250 || got.End != 750 {
		t.Errorf("valid loop not applied, got %+v", got)
	}
}
