// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledgers holds the model shared by every ledger-facing package:
// ledger identities, the capability environment, and the error taxonomy.
package ledgers

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// Type classifies what a ledger commits to.
type Type uint8

const (
	// TypeLog is a general relational-source ledger.
	TypeLog Type = 0
	// TypeBStream is a byte-stream ledger.
	TypeBStream Type = 1
	// TypeTimechain is a commits-only notary chain. It carries no source
	// rows of its own.
	TypeTimechain Type = 2
)

// String returns the canonical type name.
func (t Type) String() string {
	switch t {
	case TypeLog:
		return "LOG"
	case TypeBStream:
		return "BSTREAM"
	case TypeTimechain:
		return "TIMECHAIN"
	default:
		return fmt.Sprintf("TYPE(%d)", uint8(t))
	}
}

// CommitsOnly reports whether ledgers of this type never carry source rows.
func (t Type) CommitsOnly() bool {
	return t == TypeTimechain
}

// MetaName is the metadata key holding a ledger's display name.
const MetaName = "name"

// ID identifies one ledger inside a morsel. Id numbers are positive and
// distinct per morsel; 0 is reserved.
type ID struct {
	No   uint32
	Type Type
	Meta map[string]string
}

// NewID returns a named ledger id.
func NewID(no uint32, typ Type, name string) (ID, error) {
	id := ID{No: no, Type: typ}
	if name != "" {
		id.Meta = map[string]string{MetaName: name}
	}
	if err := id.Validate(); err != nil {
		return ID{}, err
	}
	return id, nil
}

// Validate checks the reserved-zero rule and the metadata encoding.
func (id ID) Validate() error {
	if id.No == 0 {
		return fmt.Errorf("%w: ledger id 0 is reserved", ErrConfig)
	}
	for k := range id.Meta {
		if strings.ContainsAny(k, "=\n") {
			return fmt.Errorf("%w: ledger meta key %q", ErrConfig, k)
		}
	}
	for _, v := range id.Meta {
		if strings.Contains(v, "\n") {
			return fmt.Errorf("%w: ledger meta value %q", ErrConfig, v)
		}
	}
	return nil
}

// Name returns the display name, or the empty string.
func (id ID) Name() string {
	return id.Meta[MetaName]
}

// metaBytes encodes metadata as sorted "k=v" lines. Deterministic so equal
// ids serialize to equal bytes.
func (id ID) metaBytes() []byte {
	if len(id.Meta) == 0 {
		return nil
	}
	keys := make([]string, 0, len(id.Meta))
	for k := range id.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(id.Meta[k])
	}
	return []byte(sb.String())
}

// AppendBinary appends the wire form: ID_NO[4] TYPE[1] META_LEN[4] META.
func (id ID) AppendBinary(b []byte) []byte {
	meta := id.metaBytes()
	b = binary.BigEndian.AppendUint32(b, id.No)
	b = append(b, byte(id.Type))
	b = binary.BigEndian.AppendUint32(b, uint32(len(meta)))
	return append(b, meta...)
}

// DecodeID decodes one wire-form id and returns the number of bytes read.
func DecodeID(b []byte) (ID, int, error) {
	if len(b) < 9 {
		return ID{}, 0, fmt.Errorf("%w: truncated ledger id", ErrFormat)
	}
	id := ID{
		No:   binary.BigEndian.Uint32(b),
		Type: Type(b[4]),
	}
	metaLen := int(binary.BigEndian.Uint32(b[5:]))
	if len(b) < 9+metaLen {
		return ID{}, 0, fmt.Errorf("%w: truncated ledger id metadata", ErrFormat)
	}
	if metaLen > 0 {
		id.Meta = make(map[string]string)
		for _, line := range strings.Split(string(b[9:9+metaLen]), "\n") {
			k, v, ok := strings.Cut(line, "=")
			if !ok {
				return ID{}, 0, fmt.Errorf("%w: ledger id metadata line %q", ErrFormat, line)
			}
			id.Meta[k] = v
		}
	}
	if id.No == 0 {
		return ID{}, 0, fmt.Errorf("%w: ledger id 0 is reserved", ErrFormat)
	}
	return id, 9 + metaLen, nil
}
