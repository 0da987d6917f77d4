package ae

// maxTotal is the frequency total at which the model halves every count.
// A normalized range is at least 1<<30 + 2 wide, so with the total below
// 1<<29 a count of 1 still maps to at least two register values and
// high > low holds after narrowing.
const maxTotal = 1 << 29

// model holds adaptive symbol frequencies. cum[s] is the sum of the counts of
// all symbols below s, so symbol s owns [cum[s], cum[s]+count[s]).
type model struct {
	count [NumSymbols]uint64
	cum   [NumSymbols]uint64
	total uint64
}

func newModel() *model {
	m := &model{}
	for s := 0; s < NumSymbols; s++ {
		m.count[s] = 1
		m.cum[s] = uint64(s)
	}
	m.total = NumSymbols
	return m
}

// bounds returns the cumulative interval owned by symbol s.
func (m *model) bounds(s int) (lo, hi uint64) {
	return m.cum[s], m.cum[s] + m.count[s]
}

// increment records one more occurrence of s.
func (m *model) increment(s int) {
	m.count[s]++
	m.total++
	for i := s + 1; i < NumSymbols; i++ {
		m.cum[i]++
	}

	if m.total >= maxTotal {
		m.rescale()
	}
}

func (m *model) rescale() {
	var cum uint64
	for s := 0; s < NumSymbols; s++ {
		m.count[s] = (m.count[s] + 1) / 2
		m.cum[s] = cum
		cum += m.count[s]
	}
	m.total = cum
}

// symbolFor returns the symbol whose interval contains target.
func (m *model) symbolFor(target uint64) int {
	s := NumSymbols - 1
	for s > 0 && m.cum[s] > target {
		s--
	}
	return s
}
