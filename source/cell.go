// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package source models typed source-table cells and rows, their canonical
// hashing, and per-cell redaction.
package source

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/salt"
)

// CellType tags a cell variant. The numeric values double as the wire TAG
// byte and as the first byte of the cell's hash preimage.
type CellType uint8

const (
	TypeNull CellType = iota
	TypeLong
	TypeDouble
	TypeString
	TypeDate
	TypeBytes
	TypeHashOnly
)

// String returns the variant name.
func (t CellType) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeLong:
		return "LONG"
	case TypeDouble:
		return "DOUBLE"
	case TypeString:
		return "STRING"
	case TypeDate:
		return "DATE"
	case TypeBytes:
		return "BYTES"
	case TypeHashOnly:
		return "HASH"
	default:
		return fmt.Sprintf("CELL(%d)", uint8(t))
	}
}

// Valid reports whether t names a known variant.
func (t CellType) Valid() bool {
	return t <= TypeHashOnly
}

// Cell is a tagged variant over the source value types, plus an optional
// 32-byte salt. A HashOnly cell never carries a salt: its hash is already
// final.
type Cell struct {
	typ  CellType
	num  int64 // LONG and DATE payload, or DOUBLE bits
	str  string
	blob []byte
	sum  hashing.Hash // HASH payload
	salt []byte       // nil or 32 bytes
}

// Null returns a NULL cell.
func Null() Cell { return Cell{typ: TypeNull} }

// Long returns a LONG cell.
func Long(v int64) Cell { return Cell{typ: TypeLong, num: v} }

// Double returns a DOUBLE cell.
func Double(v float64) Cell { return Cell{typ: TypeDouble, num: int64(math.Float64bits(v))} }

// DoubleBits returns a DOUBLE cell from raw IEEE-754 bits, the wire form.
func DoubleBits(bits uint64) Cell { return Cell{typ: TypeDouble, num: int64(bits)} }

// String returns a STRING cell over UTF-8 text.
func String(s string) Cell { return Cell{typ: TypeString, str: s} }

// Date returns a DATE cell in milliseconds since the epoch.
func Date(ms int64) Cell { return Cell{typ: TypeDate, num: ms} }

// Bytes returns a BYTES cell. The slice is copied.
func Bytes(b []byte) Cell { return Cell{typ: TypeBytes, blob: append([]byte(nil), b...)} }

// HashOnly returns a redacted cell whose hash is h.
func HashOnly(h hashing.Hash) Cell { return Cell{typ: TypeHashOnly, sum: h} }

// Type returns the variant tag.
func (c Cell) Type() CellType { return c.typ }

// Redacted reports whether the cell is HashOnly.
func (c Cell) Redacted() bool { return c.typ == TypeHashOnly }

// Salted reports whether the cell carries a salt.
func (c Cell) Salted() bool { return c.salt != nil }

// Salt returns a copy of the cell's salt, if any.
func (c Cell) Salt() ([]byte, bool) {
	if c.salt == nil {
		return nil, false
	}
	return append([]byte(nil), c.salt...), true
}

// WithSalt returns a copy of the cell carrying the given salt. HashOnly
// cells take no salt.
func (c Cell) WithSalt(s [salt.SeedWidth]byte) (Cell, error) {
	if c.typ == TypeHashOnly {
		return Cell{}, fmt.Errorf("%w: salt on a hash-only cell", ledgers.ErrConfig)
	}
	c.salt = append([]byte(nil), s[:]...)
	return c, nil
}

// LongValue returns the LONG or DATE payload.
func (c Cell) LongValue() int64 { return c.num }

// DoubleValue returns the DOUBLE payload.
func (c Cell) DoubleValue() float64 { return math.Float64frombits(uint64(c.num)) }

// StringValue returns the STRING payload.
func (c Cell) StringValue() string { return c.str }

// BytesValue returns a copy of the BYTES payload.
func (c Cell) BytesValue() []byte { return append([]byte(nil), c.blob...) }

// HashValue returns the HASH payload.
func (c Cell) HashValue() hashing.Hash { return c.sum }

// CanonicalBytes returns the variant's canonical byte form, the middle of
// the hash preimage. HashOnly cells have none.
func (c Cell) CanonicalBytes() []byte {
	switch c.typ {
	case TypeNull, TypeHashOnly:
		return nil
	case TypeLong, TypeDate:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(c.num))
		return b[:]
	case TypeDouble:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(c.num)) // already IEEE-754 bits
		return b[:]
	case TypeString:
		return []byte(c.str)
	case TypeBytes:
		return append([]byte(nil), c.blob...)
	default:
		return nil
	}
}

// Hash returns the cell's hash: the stored hash for HashOnly, otherwise
// H(tag, canonical_bytes, salt?).
func (c Cell) Hash(algo hashing.Algo) hashing.Hash {
	if c.typ == TypeHashOnly {
		return c.sum
	}
	return algo.Sum([]byte{byte(c.typ)}, c.CanonicalBytes(), c.salt)
}

// DataEqual reports whether two cells carry the same variant and value,
// ignoring salts. HashOnly cells compare by hash.
func (c Cell) DataEqual(o Cell) bool {
	if c.typ != o.typ {
		return false
	}
	switch c.typ {
	case TypeNull:
		return true
	case TypeLong, TypeDouble, TypeDate:
		return c.num == o.num
	case TypeString:
		return c.str == o.str
	case TypeBytes:
		return bytes.Equal(c.blob, o.blob)
	case TypeHashOnly:
		return c.sum == o.sum
	default:
		return false
	}
}
