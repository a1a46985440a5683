// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package qf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIteratorEmptyFilterIsImmediatelyDone(t *testing.T) {
	qf := New()
	it := qf.Iterator()
	assert.True(t, it.Done())
}

func TestIteratorNextPanicsWhenDone(t *testing.T) {
	qf := New()
	it := qf.Iterator()
	assert.True(t, it.Done())
	assert.Panics(t, func() {
		it.Next()
	})
}

func TestIteratorSingleEntry(t *testing.T) {
	qf, err := NewRaw(3, 3)
	assert.NoError(t, err)
	assert.True(t, qf.InsertHash(9)) // fq=1, fr=1

	it := qf.Iterator()
	assert.False(t, it.Done())
	fp, _ := it.Next()
	assert.Equal(t, uint64(9), fp)
	assert.True(t, it.Done())
}

func TestIteratorVisitsEveryEntryExactlyOnce(t *testing.T) {
	qf, err := NewRaw(4, 4)
	assert.NoError(t, err)
	inserted := map[uint64]bool{}
	for _, h := range []uint64{0, 1, 5, 5<<4 | 2, 5<<4 | 7, 9 << 4, 15<<4 | 15} {
		qf.InsertHash(h)
		inserted[h] = true
	}

	visited := map[uint64]int{}
	it := qf.Iterator()
	count := uint64(0)
	for !it.Done() {
		fp, _ := it.Next()
		visited[fp]++
		count++
	}

	assert.Equal(t, qf.Len(), count)
	assert.Equal(t, uint64(len(inserted)), count)
	for fp := range inserted {
		assert.Equal(t, 1, visited[fp], "fingerprint %d should be visited exactly once", fp)
	}
	for fp := range visited {
		assert.True(t, inserted[fp], "iterator produced a fingerprint that was never inserted: %d", fp)
	}
}

func TestIteratorMatchesEachHashValueAcrossRuns(t *testing.T) {
	qf := NewWithConfig(Config{ExpectedEntries: uint64(len(testStrings))})
	for _, s := range testStrings {
		qf.InsertString(s)
	}

	fromCallback := map[uint64]struct{}{}
	qf.eachHashValue(func(hv uint64, _ uint64) {
		fromCallback[hv] = struct{}{}
	})

	fromIterator := map[uint64]struct{}{}
	it := qf.Iterator()
	for !it.Done() {
		hv, _ := it.Next()
		fromIterator[hv] = struct{}{}
	}

	assert.Equal(t, fromCallback, fromIterator)
	assert.Equal(t, int(qf.Len()), len(fromIterator))
}

func TestIteratorSurvivesAfterRemoval(t *testing.T) {
	qf, err := NewRaw(3, 3)
	assert.NoError(t, err)
	for _, h := range []uint64{1, 2, 3} {
		assert.True(t, qf.InsertHash(h))
	}
	assert.True(t, qf.RemoveHash(2))

	seen := map[uint64]bool{}
	it := qf.Iterator()
	for !it.Done() {
		fp, _ := it.Next()
		seen[fp] = true
	}
	assert.Equal(t, map[uint64]bool{1: true, 3: true}, seen)
}

func TestIteratorReportsStoredValues(t *testing.T) {
	qf := NewWithConfig(Config{BitsOfStoragePerEntry: 8, ExpectedEntries: 16})
	qf.InsertStringWithValue("alpha", 7)
	qf.InsertStringWithValue("beta", 42)

	alphaFP, alphaVal := qf.LookupString("alpha")
	assert.True(t, alphaFP)
	assert.Equal(t, uint64(7), alphaVal)
	betaFP, betaVal := qf.LookupString("beta")
	assert.True(t, betaFP)
	assert.Equal(t, uint64(42), betaVal)

	values := map[uint64]uint64{}
	it := qf.Iterator()
	for !it.Done() {
		fp, v := it.Next()
		values[fp] = v
	}
	assert.Equal(t, 2, len(values))

	wantHash := func(s string) uint64 {
		dq, dr := hash(qf.hashfn, []byte(s), qf.rBits, qf.rMask)
		return (dq << qf.rBits) | dr
	}
	assert.Equal(t, alphaVal, values[wantHash("alpha")])
	assert.Equal(t, betaVal, values[wantHash("beta")])
}
