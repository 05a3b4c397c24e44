// Package store implements the versioned entity/attribute/triple store
// and the relation store on top of the graph.Backend abstraction.
package store

import (
	"errors"
	"fmt"
)

// Sentinel error kinds, matching the error taxonomy: callers use
// errors.Is/errors.As against these rather than string-matching.
var (
	// ErrNotFound is returned by reads that find nothing; it is not an
	// error condition for find_triple/find_relation (callers get the
	// zero value), only for write-target lookups that require presence.
	ErrNotFound = errors.New("store: not found")

	// ErrBackend wraps transport/auth/constraint failures from the
	// backend after retries are exhausted.
	ErrBackend = errors.New("store: backend error")

	// ErrConsistency indicates V1/V2 (or V4 for relations) would be
	// violated by a mutation: a bug, not a data problem. Aborts the
	// containing block.
	ErrConsistency = errors.New("store: consistency violation")

	// ErrDecode marks a malformed payload; fatal to the containing
	// event, not to the block.
	ErrDecode = errors.New("store: decode error")

	// ErrTriplesConversion marks an IntoAttributes/FromAttributes
	// round-trip failure in the high-level façade.
	ErrTriplesConversion = errors.New("store: triples conversion error")
)

// ConsistencyError carries the offending (entity, attribute, space) for
// diagnostics while still satisfying errors.Is(err, ErrConsistency).
type ConsistencyError struct {
	Entity, Attribute, Space string
	Reason                   string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("store: consistency violation on (%s,%s,%s): %s", e.Entity, e.Attribute, e.Space, e.Reason)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// NotFoundWarning marks an ingestion-time reference to an unknown space/
// account/proposal: warn-and-skip, never fatal to the block.
type NotFoundWarning struct {
	Category, Target string
}

func (e *NotFoundWarning) Error() string {
	return fmt.Sprintf("store: %s reference %q not found", e.Category, e.Target)
}

func (e *NotFoundWarning) Unwrap() error { return ErrNotFound }
