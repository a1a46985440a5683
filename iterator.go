// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package qf

// Iterator walks every fingerprint stored in a Filter in slot order,
// starting at the first unshifted slot from slot 0 and wrapping around the
// table. Remainders ascend within each run; when a cluster wraps past the
// last slot, the overall order is not sorted by fingerprint. It holds a
// reference to the Filter it was created from and does not copy any
// storage; mutating the Filter while an Iterator is in flight produces
// undefined results.
//
// The traversal mirrors eachHashValue's single-pass, stack-of-quotients
// walk, but exposes it incrementally via Next/Done instead of a callback so
// callers can interleave iteration with other work.
type Iterator struct {
	qf      *Filter
	i       uint64
	end     uint64
	stack   []uint64
	visited uint64
	total   uint64
	done    bool
}

// Iterator returns a new Iterator positioned before the first stored
// fingerprint.
func (qf *Filter) Iterator() *Iterator {
	it := &Iterator{qf: qf, total: qf.entries}
	if qf.entries == 0 {
		it.done = true
		return it
	}

	// start scanning from any unshifted slot: it is guaranteed to be a
	// cluster boundary, so a single forward pass from there visits every
	// run exactly once. Mirrors eachHashValue's own starting point.
	start := uint64(0)
	for qf.read(start).shifted() {
		right(&start, qf.size)
	}
	it.i = start
	it.end = start
	left(&it.end, qf.size)
	return it
}

// Done reports whether every stored fingerprint has already been returned
// by Next.
func (it *Iterator) Done() bool {
	return it.done
}

// Next returns the next (fingerprint, value) pair in the traversal, where
// fingerprint is the full q+r bit value reconstructed from the slot's
// canonical quotient and its stored remainder, and value is whatever
// external storage holds for that slot (0 if the Filter has none
// configured). Next panics if called after Done reports true.
func (it *Iterator) Next() (fingerprint uint64, value uint64) {
	if it.done {
		panic("qf: Iterator.Next called after iteration is complete")
	}
	qf := it.qf
	for {
		sd := qf.read(it.i)
		if !sd.continuation() && len(it.stack) > 0 {
			it.stack = it.stack[1:]
		}
		if sd.occupied() {
			it.stack = append(it.stack, it.i)
		}

		var v uint64
		if qf.storage != nil {
			v = qf.storage.Get(it.i)
		}
		produce := len(it.stack) > 0
		reachedEnd := it.i == it.end

		if !reachedEnd {
			right(&it.i, qf.size)
		}

		if produce {
			r := sd.r()
			fingerprint = (it.stack[0] << qf.rBits) | (r & qf.rMask)
			value = v
			it.visited++
			if reachedEnd || it.visited >= it.total {
				it.done = true
			}
			return fingerprint, value
		}

		if reachedEnd {
			it.done = true
			return 0, 0
		}
	}
}
