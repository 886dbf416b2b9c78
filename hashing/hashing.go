// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hashing defines the 256-bit hash primitive every ledger structure
// is built from, the digest algorithms backing it, and the 43-character
// base-64 text codec used where hashes live in text columns.
package hashing

import (
	"fmt"
	"hash"

	"crypto/sha256"

	"github.com/zeebo/blake3"

	"github.com/luxfi/skipledger/ledgers"
)

// HashWidth is the byte width of every hash in the system.
const HashWidth = 32

// Hash is a 256-bit digest value.
type Hash [HashWidth]byte

// SentinelHash stands in for the hash of the non-existent row 0.
var SentinelHash Hash

// IsSentinel reports whether h is all zero.
func (h Hash) IsSentinel() bool {
	return h == SentinelHash
}

// String returns the B64_32 text form.
func (h Hash) String() string {
	return Encode(h)
}

// Algo selects the digest algorithm behind the 256-bit hash primitive.
// SHA256 is the interoperable default; ledgers record a non-default choice
// in their id metadata.
type Algo uint8

const (
	SHA256 Algo = iota
	Blake3
)

// DefaultAlgo is used wherever a configuration leaves the algorithm unset.
const DefaultAlgo = SHA256

// String returns the canonical algorithm name.
func (a Algo) String() string {
	switch a {
	case SHA256:
		return "sha256"
	case Blake3:
		return "blake3"
	default:
		return fmt.Sprintf("algo(%d)", uint8(a))
	}
}

// ParseAlgo maps a canonical name back to its Algo.
func ParseAlgo(name string) (Algo, error) {
	switch name {
	case "sha256":
		return SHA256, nil
	case "blake3":
		return Blake3, nil
	default:
		return 0, fmt.Errorf("%w: unknown hash algo %q", ledgers.ErrConfig, name)
	}
}

// Valid reports whether a names a known algorithm.
func (a Algo) Valid() bool {
	return a == SHA256 || a == Blake3
}

// New returns a fresh digest. Unknown algos fall back to SHA-256 so a
// corrupted config fails hash checks instead of panicking mid-append.
func (a Algo) New() hash.Hash {
	switch a {
	case Blake3:
		return blake3.New()
	default:
		return sha256.New()
	}
}

// Sum digests the concatenation of the given chunks.
func (a Algo) Sum(chunks ...[]byte) Hash {
	d := a.New()
	for _, c := range chunks {
		d.Write(c)
	}
	var h Hash
	d.Sum(h[:0])
	return h
}
