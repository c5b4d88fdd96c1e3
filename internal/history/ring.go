package history

// #region ring

// DefaultCapacity is the ring size used when none is configured.
const DefaultCapacity = 100

// Ring is a fixed-capacity, append-only window of past fitness scores.
// Push evicts the oldest value once full. A Ring is not safe for concurrent use;
// the evaluation context that owns it serializes access.
type Ring struct {
	buf  []float64
	next int
	full bool
}

// NewRing creates an empty ring. capacity < 1 uses DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Push appends a score, evicting the oldest when the ring is full.
func (r *Ring) Push(v float64) {
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// Len returns the number of stored scores.
func (r *Ring) Len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Values returns a copy of the stored scores, oldest first.
func (r *Ring) Values() []float64 {
	if !r.full {
		out := make([]float64, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]float64, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Mean returns the average score and false when the ring is empty.
func (r *Ring) Mean() (float64, bool) {
	n := r.Len()
	if n == 0 {
		return 0, false
	}
	var total float64
	for _, v := range r.Values() {
		total += v
	}
	return total / float64(n), true
}

// Last returns the most recent score and false when the ring is empty.
func (r *Ring) Last() (float64, bool) {
	if r.Len() == 0 {
		return 0, false
	}
	i := r.next - 1
	if i < 0 {
		i = len(r.buf) - 1
	}
	return r.buf[i], true
}

// Restore refills an empty ring from persisted scores, oldest first, keeping the newest.
func (r *Ring) Restore(values []float64) {
	if len(values) > len(r.buf) {
		values = values[len(values)-len(r.buf):]
	}
	for _, v := range values {
		r.Push(v)
	}
}

// #endregion ring
