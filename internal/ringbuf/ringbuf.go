// Package ringbuf provides a bounded history ring for indicator
// snapshots. The live runner keeps one per ticker so rule evaluation
// always has the previous and current snapshot at hand without growing
// an unbounded slice over long sessions.
package ringbuf

import (
	"algotradingv1/internal/model"
)

// Ring is a fixed-capacity snapshot history. Once full, a push
// overwrites the oldest entry. Capacity is rounded up to the next power
// of two for fast bitwise modulo. Not safe for concurrent use; each
// ticker loop owns its ring.
type Ring struct {
	buf   []model.IndicatorSnapshot
	mask  uint64
	head  uint64 // total pushes
	count int
}

// New creates a ring. capacity is rounded up to the next power of two,
// minimum 2 so LastPair can always be served once warm.
func New(capacity int) *Ring {
	cap := nextPow2(capacity)
	if cap < 2 {
		cap = 2
	}
	return &Ring{
		buf:  make([]model.IndicatorSnapshot, cap),
		mask: uint64(cap - 1),
	}
}

// Push appends a snapshot, overwriting the oldest when full.
func (r *Ring) Push(s model.IndicatorSnapshot) {
	r.buf[r.head&r.mask] = s
	r.head++
	if r.count < len(r.buf) {
		r.count++
	}
}

// Len returns the number of stored snapshots.
func (r *Ring) Len() int {
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// At returns the i-th stored snapshot, oldest first.
func (r *Ring) At(i int) (model.IndicatorSnapshot, bool) {
	if i < 0 || i >= r.count {
		return model.IndicatorSnapshot{}, false
	}
	start := r.head - uint64(r.count)
	return r.buf[(start+uint64(i))&r.mask], true
}

// LastPair returns the previous and current snapshots. ok is false
// until at least two snapshots have been pushed.
func (r *Ring) LastPair() (prev, curr model.IndicatorSnapshot, ok bool) {
	if r.count < 2 {
		return model.IndicatorSnapshot{}, model.IndicatorSnapshot{}, false
	}
	prev = r.buf[(r.head-2)&r.mask]
	curr = r.buf[(r.head-1)&r.mask]
	return prev, curr, true
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
