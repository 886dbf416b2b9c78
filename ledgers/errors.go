// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledgers

import "errors"

// Error categories. Every error surfaced by this module wraps exactly one of
// these sentinels, so callers branch with errors.Is instead of string
// matching. The one exception is salt.ErrClosed, returned by closed salt
// engines, which wraps none of them.
var (
	// ErrFormat signals malformed on-wire or on-disk bytes: bad magic,
	// version 0, truncated records, out-of-alphabet text.
	ErrFormat = errors.New("format error")

	// ErrConfig signals invalid construction parameters: bad epoch lists,
	// disallowed salt schemes, zero ledger ids.
	ErrConfig = errors.New("config error")

	// ErrHashConflict signals a failed cryptographic check: a recomputed
	// hash disagreeing with a recorded one.
	ErrHashConflict = errors.New("hash conflict")

	// ErrUnlinkedPath signals a path that does not connect to the rows it
	// was combined with.
	ErrUnlinkedPath = errors.New("unlinked path")

	// ErrOutOfBounds signals a row number outside the addressable range.
	ErrOutOfBounds = errors.New("row number out of bounds")

	// ErrUnsupported signals an operation forbidden by capability flags or
	// by ledger type.
	ErrUnsupported = errors.New("operation unsupported")

	// ErrConcurrentModification signals an invariant observably broken by
	// an external writer sharing the same storage.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrStorage wraps failures of the underlying storage driver.
	ErrStorage = errors.New("storage error")

	// ErrInternal signals a broken invariant the module itself should have
	// prevented. Fatal for the operation.
	ErrInternal = errors.New("internal error")
)
