package space

import (
	"context"
	"fmt"

	"github.com/google/btree"
	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/query"
)

// TraversalDirection selects which side of the PARENT_SPACE relation the
// BFS walks: Subspaces walks from parent to child, Ancestors the reverse.
type TraversalDirection int

const (
	Subspaces TraversalDirection = iota
	Ancestors
)

// Traverse produces a lazy, rank-ordered stream of ancestor/descendant
// space IDs reachable from origin. Ranking is BFS depth (depth 0 is the
// origin, never yielded); a visited set tolerates cycles; maxDepth (0
// means unbounded) bounds how far the walk goes; skip/limit are applied
// after traversal completes its ordering.
//
// A frontier queue of (id, depth) pairs, one level of immediate
// neighbors fetched per pop, newly discovered ids marked visited and
// enqueued before being yielded.
func (r *Resolver) Traverse(ctx context.Context, dir TraversalDirection, origin string, maxDepth, skip, limit int) (<-chan SpaceIDOrError, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	out := make(chan SpaceIDOrError)
	go func() {
		defer close(out)

		// The visited set is kept as an ordered btree rather than a bare
		// map: space IDs sort lexicographically, and an ordered index
		// lets a future bulk range-check (e.g. "has any of these spaces
		// been visited") walk a contiguous range instead of probing the
		// whole set, the same tradeoff erigon-lib makes for its
		// in-memory bitmap/ordered indices over ad hoc maps.
		visited := btree.NewG(32, func(a, b string) bool { return a < b })
		visited.ReplaceOrInsert(origin)
		type item struct {
			id    string
			depth int
		}
		queue := []item{{origin, 0}}
		yielded := 0
		skipped := 0

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			if maxDepth > 0 && cur.depth >= maxDepth {
				continue
			}

			neighbors, err := r.immediateNeighbors(ctx, dir, cur.id)
			if err != nil {
				select {
				case out <- SpaceIDOrError{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			for _, n := range neighbors {
				if _, seen := visited.Get(n); seen {
					continue
				}
				visited.ReplaceOrInsert(n)
				queue = append(queue, item{n, cur.depth + 1})

				if skipped < skip {
					skipped++
					continue
				}
				if yielded >= limit {
					return
				}
				select {
				case out <- SpaceIDOrError{ID: n}:
					yielded++
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Resolver) immediateNeighbors(ctx context.Context, dir TraversalDirection, spaceID string) ([]string, error) {
	relType := query.PropFilter[string]{}.Eq(schema.ParentSpaceRelation)
	spaceFilter := query.PropFilter[string]{}.Eq(schema.IndexerSpaceID)

	var anchor query.PropFilter[string]
	var anchorVar string
	if dir == Subspaces {
		// subspaces of spaceID: PARENT_SPACE edges FROM child TO spaceID
		anchor = query.PropFilter[string]{}.Eq(spaceID)
		anchorVar = "to_e"
	} else {
		anchor = query.PropFilter[string]{}.Eq(spaceID)
		anchorVar = "from_e"
	}

	qp := query.NewQueryPart().
		Match("(r:Entity:Relation)-[from_edge:FROM]->(from_e:Entity)").
		Match("(r)-[to_edge:TO]->(to_e:Entity)").
		Match("(r)-[type_edge:TYPE]->(type_e:Entity)")

	var err error
	qp, err = qp.Merge(query.Live().IntoQueryPart("from_edge"))
	if err != nil {
		return nil, err
	}
	qp, err = qp.Merge(relType.IntoQueryPart("type_e", "id"))
	if err != nil {
		return nil, err
	}
	qp, err = qp.Merge(spaceFilter.IntoQueryPart("from_edge", "space_id"))
	if err != nil {
		return nil, err
	}
	qp, err = qp.Merge(anchor.IntoQueryPart(anchorVar, "id"))
	if err != nil {
		return nil, err
	}

	var resultVar string
	if dir == Subspaces {
		resultVar = "from_e"
	} else {
		resultVar = "to_e"
	}
	qp = qp.Return(fmt.Sprintf("%s.id AS neighbor", resultVar))

	stmt, params := qp.Cypher()
	cur, qerr := r.backend.Execute(ctx, stmt, params)
	if qerr != nil {
		return nil, fmt.Errorf("space: traverse: %w", qerr)
	}
	defer cur.Close(ctx)

	var ids []string
	for {
		row, ok, rerr := cur.Next(ctx)
		if rerr != nil {
			return nil, rerr
		}
		if !ok {
			break
		}
		if id, ok := row["neighbor"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SpaceIDOrError is one element of a Traverse stream.
type SpaceIDOrError struct {
	ID  string
	Err error
}

// identityAttributes are the single-valued attributes eligible for the
// pluralism fallback; relation/attribute listings never fall back.
var identityAttributes = map[string]struct{}{
	schema.NameAttr:        {},
	schema.DescriptionAttr: {},
	schema.CoverAttr:       {},
}

// ReadIdentityAttribute resolves entity's single-valued identity
// attribute as scoped to spaceID, consulting ancestors of spaceID in BFS
// rank order when strict is false and the attribute is absent locally.
// strict=true disables the fallback. Relation/attribute listings never
// fall back this way; only this single-valued "identity" read does.
func (r *Resolver) ReadIdentityAttribute(ctx context.Context, attrID, entity, spaceID string, strict bool) (string, bool, error) {
	if _, ok := identityAttributes[attrID]; !ok {
		return "", false, fmt.Errorf("space: %q is not a pluralism-eligible identity attribute", attrID)
	}

	v, found, err := r.attrs.FindTriple(ctx, attrID, entity, spaceID, nil)
	if err != nil {
		return "", false, err
	}
	if found {
		return v.Raw, true, nil
	}
	if strict {
		return "", false, nil
	}

	ancestors, err := r.Traverse(ctx, Ancestors, spaceID, 0, 0, 1000)
	if err != nil {
		return "", false, err
	}
	for a := range ancestors {
		if a.Err != nil {
			return "", false, a.Err
		}
		v, found, err := r.attrs.FindTriple(ctx, attrID, entity, a.ID, nil)
		if err != nil {
			return "", false, err
		}
		if found {
			return v.Raw, true, nil
		}
	}
	return "", false, nil
}

// ReadSpaceIdentityAttribute is the common case of ReadIdentityAttribute
// where the entity being read is the space record itself, scoped under
// the reserved indexer space — the shape a Space's own name/description/
// cover lookup needs, since Space records live there.
func (r *Resolver) ReadSpaceIdentityAttribute(ctx context.Context, attrID, spaceID string, strict bool) (string, bool, error) {
	return r.ReadIdentityAttribute(ctx, attrID, spaceID, schema.IndexerSpaceID, strict)
}

var _ graph.Backend // documents the Resolver's sole external dependency
