// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sldg implements the skip ledger: the pointer topology, the
// incremental hash frontier, the abstract skip-table storage contract, and
// the commitment-path structures built over it.
package sldg

import "math/bits"

// SkipCount returns the number of back-pointers row n carries:
// 1 plus the count of trailing zeros of n. Zero for the non-row 0.
func SkipCount(n uint64) int {
	if n == 0 {
		return 0
	}
	return bits.TrailingZeros64(n) + 1
}

// Levels returns the frontier level count at row n: 64 − leading_zeros(n).
func Levels(n uint64) int {
	return 64 - bits.LeadingZeros64(n)
}

// LevelRow returns the row at level l of the frontier at n:
// n with the low l bits cleared.
func LevelRow(n uint64, l int) uint64 {
	return (n >> l) << l
}

// SkipRef returns the row number referenced by row n at pointer level l:
// n − 2^l. Row 0 stands for the sentinel hash.
func SkipRef(n uint64, l int) uint64 {
	return n - 1<<l
}

// SkipRefs returns all rows referenced by row n, lowest level first.
func SkipRefs(n uint64) []uint64 {
	k := SkipCount(n)
	refs := make([]uint64, k)
	for l := 0; l < k; l++ {
		refs[l] = SkipRef(n, l)
	}
	return refs
}

// SkipPathNos returns the shortest ascending row-number walk from lo to hi
// where each step follows one skip pointer backwards from the higher row.
// Both endpoints are included. lo must be ≤ hi and ≥ 1.
func SkipPathNos(lo, hi uint64) []uint64 {
	nos := []uint64{hi}
	for cur := hi; cur > lo; {
		// Largest backward step that does not overshoot lo.
		step := cur
		for l := SkipCount(cur) - 1; l >= 0; l-- {
			if ref := SkipRef(cur, l); ref >= lo {
				step = ref
				break
			}
		}
		cur = step
		nos = append(nos, cur)
	}
	// Reverse into ascending order.
	for i, j := 0, len(nos)-1; i < j; i, j = i+1, j-1 {
		nos[i], nos[j] = nos[j], nos[i]
	}
	return nos
}
