// Package block carries the block-scoped metadata threaded through every
// versioned mutation, so that updated_at_block monotonicity (V3) can be
// enforced uniformly by the stores rather than by each call site.
package block

import "time"

// Metadata describes the block a mutation is attributed to.
type Metadata struct {
	Cursor    string
	Number    uint64
	Timestamp time.Time
}
