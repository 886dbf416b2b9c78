// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hashing

import (
	"encoding/base64"
	"fmt"

	"github.com/luxfi/skipledger/ledgers"
)

// EncodedLen is the text width of an encoded hash: 43 characters carry
// exactly one 32-byte value in the unpadded URL-safe base-64 alphabet.
const EncodedLen = 43

// b64 is the B64_32 alphabet: RFC 4648 URL-safe, unpadded, strict about the
// two trailing bits so the mapping is one-to-one both ways.
var b64 = base64.RawURLEncoding.Strict()

// Encode returns the 43-character text form of h.
func Encode(h Hash) string {
	return b64.EncodeToString(h[:])
}

// Decode parses a 43-character B64_32 string. Wrong length, out-of-alphabet
// characters, and non-canonical final characters all fail as format errors.
func Decode(s string) (Hash, error) {
	var h Hash
	if len(s) != EncodedLen {
		return h, fmt.Errorf("%w: b64_32 length %d, want %d", ledgers.ErrFormat, len(s), EncodedLen)
	}
	if _, err := b64.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("%w: b64_32 %q: %v", ledgers.ErrFormat, s, err)
	}
	return h, nil
}
