// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package salt

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
)

func testSeed(fill byte) [SeedWidth]byte {
	var s [SeedWidth]byte
	for i := range s {
		s[i] = fill
	}
	return s
}

func TestRowSaltDerivation(t *testing.T) {
	seed := testSeed(0x5a)
	var rowNo [8]byte
	binary.BigEndian.PutUint64(rowNo[:], 42)
	want := hashing.SHA256.Sum(seed[:], rowNo[:])

	require.Equal(t, [SeedWidth]byte(want), RowSalt(hashing.SHA256, seed, 42))
	require.NotEqual(t, RowSalt(hashing.SHA256, seed, 42), RowSalt(hashing.SHA256, seed, 43))
	require.NotEqual(t, RowSalt(hashing.SHA256, seed, 42), RowSalt(hashing.SHA256, testSeed(0x5b), 42))
}

func TestCellSaltDerivation(t *testing.T) {
	rs := RowSalt(hashing.SHA256, testSeed(1), 7)
	c0 := CellSalt(hashing.SHA256, rs, 0)
	c1 := CellSalt(hashing.SHA256, rs, 1)
	require.NotEqual(t, c0, c1)
	require.Equal(t, c0, CellSalt(hashing.SHA256, rs, 0), "derivation is pure")
}

func TestTableSaltCacheAndClose(t *testing.T) {
	ts := NewTableSalt(hashing.SHA256, testSeed(9))

	a, err := ts.RowSalt(5)
	require.NoError(t, err)
	b, err := ts.RowSalt(5) // cached
	require.NoError(t, err)
	require.Equal(t, a, b)

	cs, err := ts.CellSalt(5, 2)
	require.NoError(t, err)
	require.Equal(t, CellSalt(hashing.SHA256, a, 2), cs)

	require.NoError(t, ts.Close())
	_, err = ts.RowSalt(5)
	require.ErrorIs(t, err, ErrClosed)
}

func TestSharedTableSalt(t *testing.T) {
	seed := testSeed(3)
	shared := NewSharedTableSalt(hashing.SHA256, seed)
	got, err := shared.RowSalt(11)
	require.NoError(t, err)
	require.Equal(t, RowSalt(hashing.SHA256, seed, 11), got)

	require.NoError(t, shared.Close())
	_, err = shared.RowSalt(11)
	require.ErrorIs(t, err, ErrClosed)
}

func TestEpochedValidation(t *testing.T) {
	tests := []struct {
		name   string
		epochs []EpochSeed
	}{
		{"empty", nil},
		{"startsAtZero", []EpochSeed{{StartRow: 0}}},
		{"startsPastOne", []EpochSeed{{StartRow: 2}}},
		{"descending", []EpochSeed{{StartRow: 1}, {StartRow: 10}, {StartRow: 5}}},
		{"duplicate", []EpochSeed{{StartRow: 1}, {StartRow: 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEpochedTableSalt(hashing.SHA256, tc.epochs)
			require.ErrorIs(t, err, ledgers.ErrConfig)
		})
	}
}

func TestEpochedSeedSelection(t *testing.T) {
	first, second := testSeed(1), testSeed(2)
	ts, err := NewEpochedTableSalt(hashing.SHA256, []EpochSeed{
		{StartRow: 1, Seed: first},
		{StartRow: 100, Seed: second},
	})
	require.NoError(t, err)

	for _, tc := range []struct {
		row  uint64
		seed [SeedWidth]byte
	}{
		{1, first}, {99, first}, {100, second}, {1 << 40, second},
	} {
		got, err := ts.RowSalt(tc.row)
		require.NoError(t, err)
		require.Equal(t, RowSalt(hashing.SHA256, tc.seed, tc.row), got, "row %d", tc.row)
	}

	require.NoError(t, ts.Close())
	_, err = ts.RowSalt(1)
	require.ErrorIs(t, err, ErrClosed)
}

func TestSchemeSaltedXOR(t *testing.T) {
	include, err := NewScheme(Include, []uint32{0, 2})
	require.NoError(t, err)
	exclude, err := NewScheme(Exclude, []uint32{0, 2})
	require.NoError(t, err)

	for col := uint32(0); col < 5; col++ {
		listed := col == 0 || col == 2
		require.Equal(t, listed, include.Salted(col), "include col %d", col)
		require.Equal(t, !listed, exclude.Salted(col), "exclude col %d", col)
	}
}

func TestSchemeValidation(t *testing.T) {
	_, err := NewScheme(Include, []uint32{2, 1})
	require.ErrorIs(t, err, ledgers.ErrConfig)
	_, err = NewScheme(Include, []uint32{1, 1})
	require.ErrorIs(t, err, ledgers.ErrConfig)
	_, err = NewScheme(Polarity(7), nil)
	require.ErrorIs(t, err, ledgers.ErrConfig)
}

func TestSchemeMixed(t *testing.T) {
	mixed, err := NewScheme(Include, []uint32{0, 2})
	require.NoError(t, err)
	require.True(t, mixed.Mixed())

	require.False(t, SaltAll.Mixed())
	require.False(t, SaltNone.Mixed())

	excl, err := NewScheme(Exclude, []uint32{0, 2})
	require.NoError(t, err)
	require.False(t, excl.Mixed())
}

func TestSchemeTextRoundTrip(t *testing.T) {
	for _, text := range []string{"exclude:", "include:", "include:0,2", "exclude:1,5,9"} {
		s, err := ParseScheme(text)
		require.NoError(t, err)
		require.Equal(t, text, s.String())
	}
	for _, text := range []string{"", "both:1", "include", "include:2,1", "include:x"} {
		_, err := ParseScheme(text)
		require.Error(t, err, "text %q", text)
	}
}

func TestEffectiveCellSalt(t *testing.T) {
	ts := NewTableSalt(hashing.SHA256, testSeed(4))
	scheme, err := NewScheme(Exclude, []uint32{1})
	require.NoError(t, err)

	s, ok, err := EffectiveCellSalt(ts, scheme, 3, 0)
	require.NoError(t, err)
	require.True(t, ok)
	rs, _ := ts.RowSalt(3)
	require.Equal(t, CellSalt(hashing.SHA256, rs, 0), s)

	_, ok, err = EffectiveCellSalt(ts, scheme, 3, 1)
	require.NoError(t, err)
	require.False(t, ok, "excluded column takes no salt")
}
