// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

// Package cqf implements an alternate quotient filter representation that
// keeps the three metadata bits (occupied, continuation, shifted) in their
// own bitset planes rather than packed alongside the remainder in a single
// slot word. It trades a slightly larger footprint for metadata scans that
// touch only the plane they need, and demonstrates the same run/cluster
// algorithm over a different storage strategy than the primary package.
package cqf

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/bits-and-blooms/bitset"

	qf "github.com/quotientfilter/qfext"
)

// Index is a bitset-plane backed quotient filter. It supports insertion and
// lookup only: deletion and iteration are intentionally left to package
// qf's Filter, which is the fully specified implementation; Index exists to
// show how the metadata layout generalizes, not to duplicate that surface.
type Index struct {
	entries      uint
	occupied     *bitset.BitSet
	continuation *bitset.BitSet
	shifted      *bitset.BitSet
	remainders   qf.Vector
	size         uint64
	qBits        uint
	rMask        uint64
}

// Config describes the fixed capacity of an Index.
type Config struct {
	ExpectedNumberOfEntries uint64
	QBits                   uint
}

// DetermineSize picks a QBits large enough to hold numberOfEntries at a
// reasonable load factor.
func DetermineSize(numberOfEntries uint64) Config {
	x := uint64(1)
	for x < (numberOfEntries * 2) {
		x <<= 1
	}
	return Config{
		ExpectedNumberOfEntries: numberOfEntries,
		QBits:                   uint(bits.TrailingZeros64(x)),
	}
}

func (c *Config) BucketCount() uint64 {
	return uint64(1) << c.QBits
}

func (c *Config) ExpectedLoading() float64 {
	return 100. * float64(c.ExpectedNumberOfEntries) / float64(c.BucketCount())
}

// New allocates an Index sized per c.
func New(c Config) *Index {
	var ix Index
	n := c.BucketCount()
	ix.occupied = bitset.New(uint(n))
	ix.continuation = bitset.New(uint(n))
	ix.shifted = bitset.New(uint(n))
	ix.remainders = qf.BitPackedVectorAllocate(64-c.QBits, n)
	ix.size = n
	ix.qBits = c.QBits
	for i := uint(0); i < (64 - c.QBits); i++ {
		ix.rMask |= 1 << i
	}
	return &ix
}

// Entries reports how many fingerprints have been inserted.
func (ix *Index) Entries() uint {
	return ix.entries
}

type metadata struct {
	occupied     bool
	continuation bool
	shifted      bool
}

func (md metadata) empty() bool {
	return !md.occupied && !md.continuation && !md.shifted
}

func (ix *Index) read(slot uint64) metadata {
	return metadata{
		occupied:     ix.occupied.Test(uint(slot)),
		continuation: ix.continuation.Test(uint(slot)),
		shifted:      ix.shifted.Test(uint(slot)),
	}
}

func (ix *Index) right(i *uint64) {
	*i++
	if *i >= ix.size {
		*i = 0
	}
}

func (ix *Index) left(i *uint64) {
	if *i == 0 {
		*i += ix.size
	}
	*i--
}

func (ix *Index) findStart(dq uint64) uint64 {
	runs, complete := 1, 0
	for i := dq; true; ix.left(&i) {
		if !ix.continuation.Test(uint(i)) {
			complete++
		}
		if !ix.shifted.Test(uint(i)) {
			break
		} else if ix.occupied.Test(uint(i)) {
			runs++
		}
	}
	for runs > complete {
		ix.right(&dq)
		if !ix.continuation.Test(uint(dq)) {
			complete++
		}
	}
	return dq
}

func (ix *Index) hash(v []byte) (q, r uint64) {
	hv := fnv64a(v)
	dq := hv >> (64 - ix.qBits)
	dr := hv & ix.rMask
	return dq, dr
}

const (
	offset64 = uint64(14695981039346656037)
	prime64  = uint64(1099511628211)
)

func fnv64a(v []byte) uint64 {
	hv := offset64
	for _, c := range v {
		hv *= prime64
		hv ^= uint64(c)
	}
	return hv
}

// InsertString is like Insert, but for strings.
func (ix *Index) InsertString(s string) {
	ix.Insert(*(*[]byte)(unsafe.Pointer(&s)))
}

// Insert adds v's fingerprint to the index.
func (ix *Index) Insert(v []byte) {
	dq, dr := ix.hash(v)
	md := ix.read(dq)
	extendingRun := md.occupied
	ix.occupied.Set(uint(dq))

	if md.empty() {
		ix.entries++
		ix.remainders.Set(dq, dr)
		return
	}

	runStart := ix.findStart(dq)

	slot := runStart
	if extendingRun {
		md = ix.read(slot)
		for {
			if md.empty() || ix.remainders.Get(slot) >= dr {
				break
			}
			ix.right(&slot)
			md = ix.read(slot)
			if !md.continuation {
				break
			}
		}
	}

	if dr == ix.remainders.Get(slot) {
		// duplicate fingerprint, already present
		return
	}
	ix.entries++

	shifted := slot != dq
	md.continuation = slot > runStart

	for {
		old := ix.remainders.Swap(slot, dr)
		nxt := ix.read(slot)
		if (slot == runStart) && extendingRun {
			nxt.continuation = true
		}
		ix.continuation.SetTo(uint(slot), md.continuation)
		ix.shifted.SetTo(uint(slot), shifted)
		ix.right(&slot)
		md = nxt
		dr = old
		if md.empty() {
			break
		}
		shifted = true
	}
}

// Contains reports whether v's fingerprint is present.
func (ix *Index) Contains(v []byte) bool {
	found, _ := ix.Lookup(v)
	return found
}

// ContainsString is like Contains, but for strings.
func (ix *Index) ContainsString(s string) bool {
	return ix.Contains(*(*[]byte)(unsafe.Pointer(&s)))
}

// Lookup reports whether v's fingerprint is present.
func (ix *Index) Lookup(v []byte) (bool, uint64) {
	dq, dr := ix.hash(v)
	if !ix.occupied.Test(uint(dq)) {
		return false, 0
	}
	slot := ix.findStart(dq)
	for {
		sv := ix.remainders.Get(slot)
		if sv == dr {
			return true, 0
		}
		if sv > dr {
			return false, 0
		}
		ix.right(&slot)
		if !ix.continuation.Test(uint(slot)) {
			return false, 0
		}
	}
}

// LookupString is like Lookup, but for strings.
func (ix *Index) LookupString(s string) (bool, uint64) {
	return ix.Lookup(*(*[]byte)(unsafe.Pointer(&s)))
}

// CheckConsistency verifies bookkeeping invariants: every occupied slot
// heads exactly one run, entry counts agree with a fresh scan.
func (ix *Index) CheckConsistency() error {
	var counted uint
	for i := uint64(0); i < ix.size; i++ {
		if !ix.read(i).empty() {
			counted++
		}
	}
	if counted != ix.entries {
		return fmt.Errorf("%d items added, only %d found", ix.entries, counted)
	}

	usage := map[uint64]uint64{}
	for i := uint64(0); i < ix.size; i++ {
		if !ix.read(i).occupied {
			continue
		}
		dq := i
		runStart := ix.findStart(dq)
		for {
			who, used := usage[runStart]
			if used {
				return fmt.Errorf("slot %d used by both dq %d and %d", runStart, dq, who)
			}
			usage[runStart] = dq
			ix.right(&runStart)
			if !ix.read(runStart).continuation {
				break
			}
		}
	}
	if uint(len(usage)) != ix.entries {
		return fmt.Errorf("records show %d entries in index, found %d via scanning",
			ix.entries, len(usage))
	}
	return nil
}

// eachHashValue calls cb once for every fingerprint currently stored,
// reconstructed from its canonical quotient and stored remainder.
func (ix *Index) eachHashValue(cb func(uint64)) {
	stack := []uint64{}
	for i := uint64(0); i < ix.size; i++ {
		md := ix.read(i)
		if !md.continuation && len(stack) > 0 {
			stack = stack[1:]
		}
		if md.occupied {
			stack = append(stack, i)
		}
		if len(stack) > 0 {
			cb((stack[0] << (64 - ix.qBits)) | ix.remainders.Get(i))
		}
	}
}

// DebugDump prints every occupied slot's metadata and remainder to stdout.
func (ix *Index) DebugDump() {
	fmt.Printf("\n  bucket  O C S remainder->\n")
	skipped := 0
	for i := uint64(0); i < ix.size; i++ {
		md := ix.read(i)
		if md.empty() {
			skipped++
			continue
		}
		if skipped > 0 {
			fmt.Printf("          ...\n")
			skipped = 0
		}
		o, c, s := 0, 0, 0
		if md.occupied {
			o = 1
		}
		if md.continuation {
			c = 1
		}
		if md.shifted {
			s = 1
		}
		fmt.Printf("%8d  %d %d %d %x\n", i, o, c, s, ix.remainders.Get(i))
	}
	if skipped > 0 {
		fmt.Printf("          ...\n")
	}
}
