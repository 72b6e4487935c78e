package engine

// candidatePool is the shrinking set of metrics not yet ranked. Names live in a fixed arena and
// removal only clears an active flag, so iteration order always follows declaration order.
type candidatePool struct {
	names     []string
	active    []bool
	slot      map[string]int
	remaining int
	buf       []string
}

func newCandidatePool(names []string) *candidatePool {
	p := &candidatePool{
		names:     append([]string(nil), names...),
		active:    make([]bool, len(names)),
		slot:      make(map[string]int, len(names)),
		remaining: len(names),
		buf:       make([]string, 0, len(names)),
	}
	for i, name := range p.names {
		p.active[i] = true
		p.slot[name] = i
	}
	return p
}

// Len returns the number of active candidates.
func (p *candidatePool) Len() int { return p.remaining }

// Active returns the active names in declaration order. The slice is reused by the next call.
func (p *candidatePool) Active() []string {
	p.buf = p.buf[:0]
	for i, name := range p.names {
		if p.active[i] {
			p.buf = append(p.buf, name)
		}
	}
	return p.buf
}

// Remove deactivates name and reports whether it was active.
func (p *candidatePool) Remove(name string) bool {
	i, ok := p.slot[name]
	if !ok || !p.active[i] {
		return false
	}
	p.active[i] = false
	p.remaining--
	return true
}
