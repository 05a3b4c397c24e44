package ingest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/block"
	"github.com/kgindex/kgnode/kg/store"
	"github.com/kgindex/kgnode/kg/value"
)

// CursorStore persists the last successfully processed bundle's cursor
// and block number as a single entity's attributes under the indexer
// space, consulted on startup to resume ingestion.
type CursorStore struct {
	attrs *store.AttributeStore
}

func NewCursorStore(attrs *store.AttributeStore) *CursorStore {
	return &CursorStore{attrs: attrs}
}

// Advance persists cursor/block as the new checkpoint, called only
// after a bundle's every category has applied successfully.
func (c *CursorStore) Advance(ctx context.Context, b block.Metadata, cursor string, blockNumber uint64) error {
	cursorVal, err := value.New(cursor, schema.Text, value.Options{})
	if err != nil {
		return err
	}
	blockVal, err := value.New(strconv.FormatUint(blockNumber, 10), schema.Number, value.Options{})
	if err != nil {
		return err
	}
	return c.attrs.InsertAttributesBulk(ctx, b, schema.IndexerSpaceID, "0", map[string]store.Attributes{
		schema.CursorEntityID: {
			schema.CursorAttr:      cursorVal,
			schema.BlockNumberAttr: blockVal,
		},
	})
}

// Show reads the persisted cursor/block, found=false if ingestion has
// never advanced.
func (c *CursorStore) Show(ctx context.Context) (cursor string, blockNumber uint64, found bool, err error) {
	cursorVal, found, err := c.attrs.FindTriple(ctx, schema.CursorAttr, schema.CursorEntityID, schema.IndexerSpaceID, nil)
	if err != nil || !found {
		return "", 0, false, err
	}
	blockVal, found, err := c.attrs.FindTriple(ctx, schema.BlockNumberAttr, schema.CursorEntityID, schema.IndexerSpaceID, nil)
	if err != nil || !found {
		return "", 0, false, err
	}
	n, perr := strconv.ParseUint(blockVal.Raw, 10, 64)
	if perr != nil {
		return "", 0, false, fmt.Errorf("ingest: cursor: malformed persisted block number %q: %w", blockVal.Raw, perr)
	}
	return cursorVal.Raw, n, true, nil
}

// Reset retires the persisted cursor/block attributes, forcing the next
// startup to begin from the stream source's own default starting point.
func (c *CursorStore) Reset(ctx context.Context, b block.Metadata) error {
	if err := c.attrs.DeleteTriple(ctx, b, schema.IndexerSpaceID, "0", schema.CursorEntityID, schema.CursorAttr); err != nil {
		return err
	}
	return c.attrs.DeleteTriple(ctx, b, schema.IndexerSpaceID, "0", schema.CursorEntityID, schema.BlockNumberAttr)
}
