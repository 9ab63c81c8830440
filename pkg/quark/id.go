package quark

// Identifier bounds. Ids stay inside the range of integers that survive a
// round trip through float64, so they can be shipped to inspectors as JSON
// numbers without loss.
const (
	MaxSafeInteger int64 = 1<<53 - 1
	MinSafeInteger int64 = -MaxSafeInteger
)

// idGen allocates node identifiers for one runtime.
// Allocation past MaxSafeInteger wraps to MinSafeInteger.
type idGen struct {
	next int64
}

func newIDGen() idGen {
	return idGen{next: 1}
}

func (g *idGen) allocate() int64 {
	id := g.next
	if g.next >= MaxSafeInteger {
		g.next = MinSafeInteger
	} else {
		g.next++
	}
	return id
}
