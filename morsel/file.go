// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package morsel

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luxfi/skipledger/ledgers"
)

// Magic opens every morsel file.
var Magic = [6]byte{'M', 'O', 'R', 'S', 'E', 'L'}

// Version is the highest file version this library writes and fully
// understands. Version 0 is invalid on disk.
const Version uint16 = 1

// File layout:
//
//	MAGIC[6] VERSION[2]
//	IDS_COUNT[4] LEDGER_ID*
//	PARTITION_COUNT[4] (id_no[4] offset[8] length[8])*
//	NUGGET_BLOBS
//
// Partition offsets are absolute file offsets, so a handle can fetch one
// nugget with a single ranged read.

// partitionEntrySize is the byte width of one partition-index record.
const partitionEntrySize = 4 + 8 + 8

// encodeFile renders a whole morsel file image.
func encodeFile(nuggets []*Nugget) ([]byte, error) {
	if len(nuggets) == 0 {
		return nil, fmt.Errorf("%w: refusing to emit a morsel with no ledgers", ledgers.ErrConfig)
	}
	seen := make(map[uint32]bool, len(nuggets))
	for _, n := range nuggets {
		if seen[n.id.No] {
			return nil, fmt.Errorf("%w: duplicate ledger id %d", ledgers.ErrConfig, n.id.No)
		}
		seen[n.id.No] = true
	}

	var b []byte
	b = append(b, Magic[:]...)
	b = binary.BigEndian.AppendUint16(b, Version)
	b = binary.BigEndian.AppendUint32(b, uint32(len(nuggets)))
	for _, n := range nuggets {
		b = n.id.AppendBinary(b)
	}
	b = binary.BigEndian.AppendUint32(b, uint32(len(nuggets)))

	blobs := make([][]byte, len(nuggets))
	for i, n := range nuggets {
		blobs[i] = encodeNugget(n)
	}
	offset := uint64(len(b) + len(nuggets)*partitionEntrySize)
	for i, n := range nuggets {
		b = binary.BigEndian.AppendUint32(b, n.id.No)
		b = binary.BigEndian.AppendUint64(b, offset)
		b = binary.BigEndian.AppendUint64(b, uint64(len(blobs[i])))
		offset += uint64(len(blobs[i]))
	}
	for _, blob := range blobs {
		b = append(b, blob...)
	}
	return b, nil
}

// Write emits a morsel file at path. The file must not already exist; the
// parent directory is created if absent.
func Write(path string, nuggets []*Nugget) error {
	img, err := encodeFile(nuggets)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ledgers.ErrStorage, filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ledgers.ErrStorage, path, err)
	}
	if _, err := f.Write(img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%w: writing %s: %v", ledgers.ErrStorage, path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: closing %s: %v", ledgers.ErrStorage, path, err)
	}
	return nil
}
