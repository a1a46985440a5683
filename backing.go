// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package qf

import (
	"encoding/binary"
	"fmt"
	"io"
)

// diskBacking gives the two on-disk Vector readers (packedDiskReader,
// unpackedDiskReader) a single, endian-safe word-fetch routine instead of
// each hand-rolling its own ReadAt + byte-order conversion.
type diskBacking struct {
	start uint64
	f     io.ReaderAt
}

// readWords reads cnt consecutive 64 bit little-endian words starting at
// word index off (relative to the backing's start offset).
func (b diskBacking) readWords(off, cnt uint64) ([]uint64, error) {
	raw := make([]byte, cnt*8)
	n, err := b.f.ReadAt(raw, int64(b.start+off*8))
	if err != nil {
		return nil, fmt.Errorf("failed to read from qf backing: %w", err)
	}
	if uint64(n) != cnt*8 {
		return nil, fmt.Errorf("short read: %d/%d", n, cnt*8)
	}
	words := make([]uint64, cnt)
	for i := uint64(0); i < cnt; i++ {
		words[i] = binary.LittleEndian.Uint64(raw[i*8 : (i+1)*8])
	}
	return words, nil
}
