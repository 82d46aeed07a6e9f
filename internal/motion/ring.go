package motion

// ring is a fixed-capacity buffer of g-force values.
type ring struct {
	data []float64
	pos  int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{data: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	r.data[r.pos] = v
	r.pos++
	if r.pos >= len(r.data) {
		r.pos = 0
		r.full = true
	}
}

func (r *ring) len() int {
	if r.full {
		return len(r.data)
	}
	return r.pos
}

// last returns the i-th most recent value, where 0 is the newest.
func (r *ring) last(i int) float64 {
	idx := (r.pos - 1 - i + 2*len(r.data)) % len(r.data)
	return r.data[idx]
}

// slice returns the contents oldest first.
func (r *ring) slice() []float64 {
	out := make([]float64, r.len())
	if r.full {
		copy(out, r.data[r.pos:])
		copy(out[len(r.data)-r.pos:], r.data[:r.pos])
	} else {
		copy(out, r.data[:r.pos])
	}
	return out
}

func (r *ring) reset() {
	r.pos = 0
	r.full = false
}
