// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package morsel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	log "github.com/luxfi/log"

	"github.com/luxfi/skipledger/ledgers"
)

// span locates one nugget blob in the file.
type span struct {
	id     ledgers.ID
	offset uint64
	length uint64
}

// Reader is a random-access morsel handle. It validates the header and
// partition index up front but decodes a nugget only when asked for it, so
// opening a large morsel to read one ledger stays cheap. The handle keeps
// its channel open until Close.
type Reader struct {
	ra      io.ReaderAt
	closer  io.Closer
	size    int64
	version uint16
	ids     []ledgers.ID
	spans   map[uint32]span
	log     log.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithLogger routes the reader's warnings to lg.
func WithLogger(lg log.Logger) ReaderOption {
	return func(r *Reader) { r.log = lg }
}

// Open returns a lazy handle over the morsel file at path. Malformed
// headers fail with a format error naming the path.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ledgers.ErrStorage, path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ledgers.ErrStorage, path, err)
	}
	r, err := newReader(f, f, st.Size(), opts)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// OpenInMemory reads the whole stream into a buffer and returns a handle
// with the same semantics as Open. Closing it is a no-op.
func OpenInMemory(src io.Reader, opts ...ReaderOption) (*Reader, error) {
	img, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: reading morsel stream: %v", ledgers.ErrStorage, err)
	}
	return newReader(bytes.NewReader(img), nil, int64(len(img)), opts)
}

func newReader(ra io.ReaderAt, closer io.Closer, size int64, opts []ReaderOption) (*Reader, error) {
	r := &Reader{ra: ra, closer: closer, size: size}
	for _, o := range opts {
		o(r)
	}
	if err := r.parseHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) readAt(off int64, n int, what string) ([]byte, error) {
	if off+int64(n) > r.size {
		return nil, fmt.Errorf("%w: truncated %s", ledgers.ErrFormat, what)
	}
	b := make([]byte, n)
	if _, err := r.ra.ReadAt(b, off); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ledgers.ErrStorage, what, err)
	}
	return b, nil
}

func (r *Reader) parseHeader() error {
	head, err := r.readAt(0, 12, "morsel header")
	if err != nil {
		return err
	}
	if !bytes.Equal(head[:6], Magic[:]) {
		return fmt.Errorf("%w: bad magic", ledgers.ErrFormat)
	}
	r.version = binary.BigEndian.Uint16(head[6:])
	if r.version == 0 {
		return fmt.Errorf("%w: version 0", ledgers.ErrFormat)
	}
	if r.version > Version && r.log != nil {
		r.log.Warn("morsel version newer than supported; attempting to read",
			"fileVersion", r.version, "supported", Version)
	}
	idCount := binary.BigEndian.Uint32(head[8:])

	off := int64(12)
	r.ids = make([]ledgers.ID, 0, idCount)
	for i := uint32(0); i < idCount; i++ {
		// Fixed prefix first, then the variable metadata.
		fixed, err := r.readAt(off, 9, "ledger id")
		if err != nil {
			return err
		}
		metaLen := int(binary.BigEndian.Uint32(fixed[5:]))
		rec, err := r.readAt(off, 9+metaLen, "ledger id")
		if err != nil {
			return err
		}
		id, n, err := ledgers.DecodeID(rec)
		if err != nil {
			return err
		}
		r.ids = append(r.ids, id)
		off += int64(n)
	}

	pc, err := r.readAt(off, 4, "partition count")
	if err != nil {
		return err
	}
	if got := binary.BigEndian.Uint32(pc); got != idCount {
		return fmt.Errorf("%w: partition count %d, ledger count %d", ledgers.ErrFormat, got, idCount)
	}
	off += 4

	index, err := r.readAt(off, int(idCount)*partitionEntrySize, "partition index")
	if err != nil {
		return err
	}
	r.spans = make(map[uint32]span, idCount)
	byNo := make(map[uint32]ledgers.ID, idCount)
	for _, id := range r.ids {
		if _, dup := byNo[id.No]; dup {
			return fmt.Errorf("%w: duplicate ledger id %d", ledgers.ErrFormat, id.No)
		}
		byNo[id.No] = id
	}
	for i := uint32(0); i < idCount; i++ {
		rec := index[i*partitionEntrySize:]
		no := binary.BigEndian.Uint32(rec)
		id, ok := byNo[no]
		if !ok {
			return fmt.Errorf("%w: partition entry for unknown ledger %d", ledgers.ErrFormat, no)
		}
		s := span{
			id:     id,
			offset: binary.BigEndian.Uint64(rec[4:]),
			length: binary.BigEndian.Uint64(rec[12:]),
		}
		if s.offset+s.length > uint64(r.size) {
			return fmt.Errorf("%w: partition of ledger %d past end of file", ledgers.ErrFormat, no)
		}
		if _, dup := r.spans[no]; dup {
			return fmt.Errorf("%w: duplicate partition entry for ledger %d", ledgers.ErrFormat, no)
		}
		r.spans[no] = s
	}
	return nil
}

// Version returns the file's version.
func (r *Reader) Version() uint16 { return r.version }

// IDs returns the ledger ids in file order.
func (r *Reader) IDs() []ledgers.ID { return append([]ledgers.ID(nil), r.ids...) }

// Nugget fetches and decodes one ledger's nugget without touching the
// others.
func (r *Reader) Nugget(idNo uint32) (*Nugget, error) {
	s, ok := r.spans[idNo]
	if !ok {
		return nil, fmt.Errorf("%w: no ledger %d in morsel", ledgers.ErrOutOfBounds, idNo)
	}
	blob, err := r.readAt(int64(s.offset), int(s.length), fmt.Sprintf("nugget %d", idNo))
	if err != nil {
		return nil, err
	}
	return decodeNugget(s.id, blob)
}

// Nuggets decodes every nugget in file order.
func (r *Reader) Nuggets() ([]*Nugget, error) {
	out := make([]*Nugget, 0, len(r.ids))
	for _, id := range r.ids {
		n, err := r.Nugget(id.No)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Close releases the handle's channel.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
