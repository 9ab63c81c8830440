package quark

import "testing"

func TestIDGenSequential(t *testing.T) {
	g := newIDGen()
	for want := int64(1); want <= 3; want++ {
		if got := g.allocate(); got != want {
			t.Fatalf("allocate() = %d, want %d", got, want)
		}
	}
}

func TestIDGenWrapAround(t *testing.T) {
	g := idGen{next: MaxSafeInteger}

	want := []int64{MaxSafeInteger, MinSafeInteger, MinSafeInteger + 1}
	for i, w := range want {
		if got := g.allocate(); got != w {
			t.Errorf("allocate() #%d = %d, want %d", i, got, w)
		}
	}
}

func TestIDsAreUniquePerRuntime(t *testing.T) {
	rt := NewRuntime()
	seen := make(map[int64]bool)

	ids := []int64{
		NewAtom(rt, 0).ID(),
		NewCompute(rt, func() int { return 0 }).ID(),
		NewSignal[int](rt).ID(),
		NewEffect(rt, NewSignal[int](rt), func(int) {}).ID(),
		rt.NewScope().ID(),
	}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}
