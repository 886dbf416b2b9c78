// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package salt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luxfi/skipledger/ledgers"
)

// Polarity states how a scheme's column list is read. The values are the
// wire tags of the morsel SALT_SCHEME record.
type Polarity uint8

const (
	// Exclude salts every column except the listed ones.
	Exclude Polarity = 0
	// Include salts exactly the listed columns.
	Include Polarity = 1
)

// MaxSchemeText bounds the encoded text form of a scheme.
const MaxSchemeText = 4096

// Scheme decides which cell columns receive salts. The zero value excludes
// nothing, i.e. salts every column.
type Scheme struct {
	polarity Polarity
	columns  []uint32
}

// SaltAll is the default scheme: every column salted.
var SaltAll = Scheme{polarity: Exclude}

// SaltNone salts no column at all.
var SaltNone = Scheme{polarity: Include}

// NewScheme validates and returns a scheme. Columns must be strictly
// ascending (thus unique), and the text encoding must fit MaxSchemeText.
func NewScheme(p Polarity, columns []uint32) (Scheme, error) {
	if p != Exclude && p != Include {
		return Scheme{}, fmt.Errorf("%w: polarity %d", ledgers.ErrConfig, p)
	}
	for i := 1; i < len(columns); i++ {
		if columns[i] <= columns[i-1] {
			return Scheme{}, fmt.Errorf("%w: scheme columns not ascending at index %d", ledgers.ErrConfig, i)
		}
	}
	s := Scheme{polarity: p, columns: append([]uint32(nil), columns...)}
	if len(s.String()) > MaxSchemeText {
		return Scheme{}, fmt.Errorf("%w: scheme text exceeds %d bytes", ledgers.ErrConfig, MaxSchemeText)
	}
	return s, nil
}

// Polarity returns the scheme's polarity.
func (s Scheme) Polarity() Polarity { return s.polarity }

// Columns returns a copy of the listed column indices.
func (s Scheme) Columns() []uint32 {
	return append([]uint32(nil), s.columns...)
}

// Mixed reports a non-empty column list with INCLUDE polarity. Mixed
// schemes are disallowed on LOG-type ledgers.
func (s Scheme) Mixed() bool {
	return s.polarity == Include && len(s.columns) > 0
}

// Salted reports whether column col receives a salt under this scheme:
// listed XOR exclude-polarity.
func (s Scheme) Salted(col uint32) bool {
	listed := false
	for _, c := range s.columns {
		if c == col {
			listed = true
			break
		}
		if c > col {
			break
		}
	}
	return listed == (s.polarity == Include)
}

// String renders the text form, e.g. "include:0,2" or "exclude:".
func (s Scheme) String() string {
	var sb strings.Builder
	if s.polarity == Include {
		sb.WriteString("include:")
	} else {
		sb.WriteString("exclude:")
	}
	for i, c := range s.columns {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(c), 10))
	}
	return sb.String()
}

// ParseScheme parses the text form produced by String.
func ParseScheme(text string) (Scheme, error) {
	if len(text) > MaxSchemeText {
		return Scheme{}, fmt.Errorf("%w: scheme text exceeds %d bytes", ledgers.ErrConfig, MaxSchemeText)
	}
	head, list, ok := strings.Cut(text, ":")
	if !ok {
		return Scheme{}, fmt.Errorf("%w: scheme text %q", ledgers.ErrFormat, text)
	}
	var p Polarity
	switch head {
	case "include":
		p = Include
	case "exclude":
		p = Exclude
	default:
		return Scheme{}, fmt.Errorf("%w: scheme polarity %q", ledgers.ErrFormat, head)
	}
	var cols []uint32
	if list != "" {
		for _, tok := range strings.Split(list, ",") {
			c, err := strconv.ParseUint(tok, 10, 32)
			if err != nil {
				return Scheme{}, fmt.Errorf("%w: scheme column %q", ledgers.ErrFormat, tok)
			}
			cols = append(cols, uint32(c))
		}
	}
	return NewScheme(p, cols)
}

// EffectiveCellSalt returns the salt for (row n, column col) iff the scheme
// salts that column.
func EffectiveCellSalt(rs RowSalter, s Scheme, n uint64, col uint32) ([SeedWidth]byte, bool, error) {
	if !s.Salted(col) {
		return [SeedWidth]byte{}, false, nil
	}
	rowSalt, err := rs.RowSalt(n)
	if err != nil {
		return [SeedWidth]byte{}, false, err
	}
	return CellSalt(rs.Algo(), rowSalt, col), true, nil
}
