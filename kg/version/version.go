// Package version implements per-space version-ordinal resolution: the
// mapping from an externally supplied opaque version_id string to a
// comparable ordinal, via the version entity's EDIT_INDEX attribute.
package version

import (
	"context"
	"fmt"

	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/graph"
)

// Resolver resolves opaque version_id strings to ordinals by reading the
// EDIT_INDEX attribute recorded against the version entity itself. An
// empty versionID resolves to the empty ordinal, which means "live" (no
// version constraint).
type Resolver struct {
	backend graph.Backend
}

func NewResolver(backend graph.Backend) *Resolver {
	return &Resolver{backend: backend}
}

// Ordinal looks up the externally supplied ordinal for versionID. The
// spec's resolved Open Question makes this an opaque string with an
// externally supplied ordinal, so resolution is a single attribute
// lookup, never a parse of the version string itself.
func (r *Resolver) Ordinal(ctx context.Context, versionID string) (string, error) {
	if versionID == "" {
		return "", nil
	}
	cur, err := r.backend.Execute(ctx,
		"MATCH (v:Entity {id: $version_id})-[a:ATTRIBUTE {attribute_id: $attr}]->(val) WHERE a.max_version IS NULL RETURN val.raw AS ordinal",
		map[string]any{"version_id": versionID, "attr": schema.EditIndexAttr},
	)
	if err != nil {
		return "", fmt.Errorf("version: resolve ordinal: %w", err)
	}
	defer cur.Close(ctx)
	row, ok, err := cur.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("version: resolve ordinal: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("version: unknown version id %q", versionID)
	}
	ordinal, _ := row["ordinal"].(string)
	return ordinal, nil
}

// Compare orders two ordinals lexicographically; the external ordinal
// supplier is responsible for producing strings whose lexicographic
// order matches their intended total order (e.g. zero-padded decimal).
func Compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// LiveVersion is the reserved ingestion-time version string used until
// an external version scheme is wired in.
const LiveVersion = "0"
