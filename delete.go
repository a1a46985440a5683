// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package qf

import "unsafe"

// Remove deletes the key (byte slice) from the quotient filter if present.
// Removing a key that was never inserted is a no-op and returns true; the
// caller must guarantee that no two distinct keys ever hash to the same
// (q+r)-bit fingerprint, or a single Remove can introduce a false negative
// for the other key sharing that fingerprint.
func (qf *Filter) Remove(v []byte) bool {
	dq, dr := hash(qf.hashfn, v, qf.rBits, qf.rMask)
	return qf.removeByHash(dq, dr)
}

// RemoveString is like Remove, but for strings.
func (qf *Filter) RemoveString(s string) bool {
	return qf.Remove(*(*[]byte)(unsafe.Pointer(&s)))
}

// RemoveHash is the low-level entry point mirroring InsertHash/LookupHash:
// it deletes an already-computed (q+r)-bit hash value directly. Per the
// spec's contract, a hash with any bit set above position q+r is rejected
// outright (false, no side effects) rather than silently truncated the way
// InsertHash/LookupHash truncate theirs.
func (qf *Filter) RemoveHash(hashVal uint64) bool {
	if hashVal>>(qf.qBits+qf.rBits) != 0 {
		return false
	}
	dq, dr := qf.splitHash(hashVal)
	return qf.removeByHash(dq, dr)
}

// removeByHash deletes the (dq, dr) fingerprint from the filter's own
// slot/storage vectors. It always reports success; it does no check for
// bits above q+r, which RemoveHash performs before calling it.
func (qf *Filter) removeByHash(dq, dr uint64) bool {
	if qf.entries == 0 {
		return true
	}
	sd := qf.read(dq)
	if !sd.occupied() {
		return true
	}

	start := findStart(dq, qf.size, qf.filter.Get)
	slot := start
	sd = qf.read(slot)
	found := false
	for {
		r := sd.r()
		if r == dr {
			found = true
			break
		}
		if r > dr {
			break
		}
		right(&slot, qf.size)
		sd = qf.read(slot)
		if !sd.continuation() {
			break
		}
	}
	if !found {
		return true
	}

	// the deleted slot is the run's last entry iff the slot that follows
	// it does not continue the same run; it is the run's only entry when
	// it is also the run start.
	next := slot
	right(&next, qf.size)
	soleEntryInRun := !qf.read(next).continuation()
	wasRunStart := slot == start

	if wasRunStart && soleEntryInRun {
		cleared := qf.read(dq)
		cleared.setOccupied(false)
		qf.write(dq, cleared)
	}

	qf.shiftBack(slot, dq)

	if wasRunStart && !soleEntryInRun {
		// the slot that used to hold the second entry of the run is now
		// the run's head; it must stop claiming to be a continuation, and
		// it is no longer shifted when it sits in its canonical slot.
		head := qf.read(slot)
		head.setContinuation(false)
		if slot == dq {
			head.setShifted(false)
		}
		qf.write(slot, head)
	}

	qf.entries--
	return true
}

// shiftBack slides the remainder of the cluster starting at s back by one
// slot, preserving occupied-by-index. A run start that lands back on its
// canonical slot has its shifted bit cleared; every other moved slot keeps
// its own continuation and shifted bits. quot tracks the quotient whose run is currently
// being walked, used to detect when a shifted entry lands back on its
// canonical slot. Mirrors original_source/quotient-filter.c's delete_entry.
func (qf *Filter) shiftBack(s, quot uint64) {
	orig := s
	cur := qf.read(s)
	sp := s
	right(&sp, qf.size)

	for {
		next := qf.read(sp)
		curOccupied := cur.occupied()

		if next.empty() || next.isClusterStart() || sp == orig {
			qf.write(s, 0)
			if qf.storage != nil {
				qf.storage.Set(s, 0)
			}
			return
		}

		updated := next
		if next.isRunStart() {
			for {
				right(&quot, qf.size)
				if qf.read(quot).occupied() {
					break
				}
			}
			if curOccupied && quot == s {
				updated.setShifted(false)
			}
		}
		updated.setOccupied(curOccupied)
		qf.write(s, updated)
		if qf.storage != nil {
			qf.storage.Set(s, qf.storage.Get(sp))
		}

		s = sp
		right(&sp, qf.size)
		cur = next
	}
}
