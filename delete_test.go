// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package qf

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveAbsentIsNoOp(t *testing.T) {
	qf := NewWithConfig(Config{ExpectedEntries: uint64(len(testStrings))})
	for _, s := range testStrings {
		qf.InsertString(s)
	}
	before := snapshotSlots(qf)
	entriesBefore := qf.Len()

	assert.True(t, qf.RemoveString("this string was never inserted"))

	assert.Equal(t, entriesBefore, qf.Len())
	assert.Equal(t, before, snapshotSlots(qf))
	assert.NoError(t, qf.checkConsistency())
}

func TestRemoveEmptyFilterIsNoOp(t *testing.T) {
	qf := New()
	assert.True(t, qf.RemoveString("anything"))
	assert.Equal(t, uint64(0), qf.Len())
}

func TestInsertRemoveRoundTrip(t *testing.T) {
	qf := NewWithConfig(Config{ExpectedEntries: uint64(len(testStrings))})
	for _, s := range testStrings[:len(testStrings)/2] {
		qf.InsertString(s)
	}
	assert.NoError(t, qf.checkConsistency())

	const probe = "round trip probe that is not already present"
	assert.False(t, qf.ContainsString(probe))

	before := snapshotSlots(qf)
	entriesBefore := qf.Len()

	qf.InsertString(probe)
	assert.True(t, qf.ContainsString(probe))
	assert.True(t, qf.RemoveString(probe))

	assert.False(t, qf.ContainsString(probe))
	assert.Equal(t, entriesBefore, qf.Len())
	assert.Equal(t, before, snapshotSlots(qf))
	assert.NoError(t, qf.checkConsistency())
}

func TestRemoveFromRunMiddle(t *testing.T) {
	qf, err := NewRaw(3, 3)
	assert.NoError(t, err)
	for _, h := range []uint64{0, 1, 2, 3} {
		assert.True(t, qf.InsertHash(h))
	}
	assert.NoError(t, qf.checkConsistency())

	assert.True(t, qf.RemoveHash(1))
	assert.NoError(t, qf.checkConsistency())

	assert.True(t, qf.LookupHash(0))
	assert.False(t, qf.LookupHash(1))
	assert.True(t, qf.LookupHash(2))
	assert.True(t, qf.LookupHash(3))
	assert.Equal(t, uint64(3), qf.Len())
}

func TestRemoveRunStartPromotesNextEntry(t *testing.T) {
	qf, err := NewRaw(3, 3)
	assert.NoError(t, err)
	for _, h := range []uint64{0, 1, 2} {
		assert.True(t, qf.InsertHash(h))
	}
	assert.NoError(t, qf.checkConsistency())

	assert.True(t, qf.RemoveHash(0))
	assert.NoError(t, qf.checkConsistency())

	sd := qf.read(0)
	assert.True(t, sd.occupied())
	assert.False(t, sd.continuation())
	assert.False(t, sd.shifted())
	assert.Equal(t, uint64(1), sd.r())

	assert.False(t, qf.LookupHash(0))
	assert.True(t, qf.LookupHash(1))
	assert.True(t, qf.LookupHash(2))
}

func TestRemoveSoleEntryClearsOccupied(t *testing.T) {
	qf, err := NewRaw(3, 3)
	assert.NoError(t, err)
	assert.True(t, qf.InsertHash(9)) // fq=1, fr=1
	assert.NoError(t, qf.checkConsistency())

	assert.True(t, qf.RemoveHash(9))
	assert.NoError(t, qf.checkConsistency())

	sd := qf.read(1)
	assert.True(t, sd.empty())
	assert.Equal(t, uint64(0), qf.Len())
}

func TestRemoveUnwindsShiftedCluster(t *testing.T) {
	qf, err := NewRaw(3, 3)
	assert.NoError(t, err)
	for _, h := range []uint64{1, 2, 3} {
		assert.True(t, qf.InsertHash(h))
	}
	assert.True(t, qf.InsertHash(9)) // forces quotient 1's run to slot 3
	assert.NoError(t, qf.checkConsistency())
	assert.Equal(t, uint64(3), findStart(1, qf.size, qf.filter.Get))

	assert.True(t, qf.RemoveHash(9))
	assert.NoError(t, qf.checkConsistency())

	assert.False(t, qf.LookupHash(9))
	assert.True(t, qf.LookupHash(1))
	assert.True(t, qf.LookupHash(2))
	assert.True(t, qf.LookupHash(3))
	assert.Equal(t, uint64(3), qf.Len())
	assert.True(t, qf.read(3).empty())
}

func TestRemoveRejectsHashWithBitsAboveQPlusR(t *testing.T) {
	qf, err := NewRaw(4, 4)
	assert.NoError(t, err)
	assert.True(t, qf.InsertHash(5))

	assert.False(t, qf.RemoveHash(uint64(1)<<8))
	assert.True(t, qf.LookupHash(5))
	assert.Equal(t, uint64(1), qf.Len())
}

func TestFillRemoveInsertCycle(t *testing.T) {
	qf, err := NewRaw(4, 4)
	assert.NoError(t, err)
	for i := uint64(0); i < qf.size; i++ {
		assert.True(t, qf.InsertHash(i<<4))
	}
	assert.Equal(t, qf.size, qf.Len())
	assert.False(t, qf.InsertHash(1))

	assert.True(t, qf.RemoveHash(3<<4))
	assert.NoError(t, qf.checkConsistency())
	assert.True(t, qf.InsertHash(3<<4|1))
	assert.Equal(t, qf.size, qf.Len())
	assert.NoError(t, qf.checkConsistency())
}

// TestRandomInsertRemoveMaintainsInvariants drives a large number of random
// insert/remove operations (with occasional duplicate hashes, since
// NewRaw's small q+r widths make collisions common and exercise the
// multi-entry-run deletion paths) and checks every invariant after each
// mutation, plus that every surviving hash is still found.
func TestRandomInsertRemoveMaintainsInvariants(t *testing.T) {
	rnd := rand.New(rand.NewSource(1234))
	qf, err := NewRaw(6, 6)
	assert.NoError(t, err)

	present := map[uint64]bool{}
	for i := 0; i < 5000; i++ {
		h := uint64(rnd.Intn(1 << 12))
		if rnd.Intn(3) == 0 && len(present) > 0 {
			// remove a random currently-present hash
			var victim uint64
			for k := range present {
				victim = k
				break
			}
			assert.True(t, qf.RemoveHash(victim))
			delete(present, victim)
		} else {
			if qf.InsertHash(h) {
				present[h] = true
			}
		}
		assert.NoError(t, qf.checkConsistency())
	}

	for h := range present {
		assert.True(t, qf.LookupHash(h), "missing hash %d", h)
	}
	assert.Equal(t, uint64(len(present)), qf.Len())
}

func snapshotSlots(qf *Filter) []uint64 {
	out := make([]uint64, qf.size)
	for i := uint64(0); i < qf.size; i++ {
		out[i] = uint64(qf.read(i))
	}
	return out
}
