// Package api implements the read API surface: the query-language-
// agnostic operations the rest of the read path (the entity façade, and
// eventually an outer HTTP/GraphQL layer, out of scope here) is built
// on. It composes kg/store and kg/space without exposing their Cypher
// compilation, and adds the pagination (skip) convenience the lower
// layer's streaming finds don't carry on their own.
package api

import (
	"context"
	"fmt"

	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/query"
	"github.com/kgindex/kgnode/kg/space"
	"github.com/kgindex/kgnode/kg/store"
	"github.com/kgindex/kgnode/kg/value"
	"github.com/kgindex/kgnode/kg/version"
)

// ReadAPI is the read-only façade over one backend handle.
type ReadAPI struct {
	backend   graph.Backend
	attrs     *store.AttributeStore
	relations *store.RelationStore
	spaces    *space.Resolver
	versions  *version.Resolver
}

// New constructs a ReadAPI over backend.
func New(backend graph.Backend) *ReadAPI {
	return &ReadAPI{
		backend:   backend,
		attrs:     store.NewAttributeStore(backend),
		relations: store.NewRelationStore(backend),
		spaces:    space.NewResolver(backend),
		versions:  version.NewResolver(backend),
	}
}

// resolveVersion translates an external, opaque version_id into the
// ordinal the store layer's as-of filters compare against. A nil or
// empty versionID means "live" and passes through unresolved.
func (a *ReadAPI) resolveVersion(ctx context.Context, versionID *string) (*string, error) {
	if versionID == nil || *versionID == "" {
		return nil, nil
	}
	ordinal, err := a.versions.Ordinal(ctx, *versionID)
	if err != nil {
		return nil, fmt.Errorf("api: resolve version: %w", err)
	}
	return &ordinal, nil
}

// GetAttributeValue reads one entity's attribute value in space at an
// optional version_id (nil = live).
func (a *ReadAPI) GetAttributeValue(ctx context.Context, entityID, attrID, spaceID string, versionID *string) (value.Value, bool, error) {
	ver, err := a.resolveVersion(ctx, versionID)
	if err != nil {
		return value.Value{}, false, err
	}
	return a.attrs.FindTriple(ctx, attrID, entityID, spaceID, ver)
}

// GetEntityAttributes reads an entity's whole attribute bag in space at
// an optional version_id (nil = live).
func (a *ReadAPI) GetEntityAttributes(ctx context.Context, entityID, spaceID string, versionID *string) (store.Attributes, error) {
	ver, err := a.resolveVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return a.attrs.FindEntityAttributes(ctx, entityID, spaceID, ver)
}

// EntityIDOrError is one element of a FindEntityIDs stream.
type EntityIDOrError struct {
	ID  string
	Err error
}

// FindEntityIDs streams the ids of entities matching filter, ordered by
// id for deterministic pagination, skipping and limiting after that
// order is fixed.
func (a *ReadAPI) FindEntityIDs(ctx context.Context, filter query.EntityFilter, skip, limit int) (<-chan EntityIDOrError, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	qp, err := filter.IntoQueryPart()
	if err != nil {
		return nil, fmt.Errorf("api: find entities: %w", err)
	}
	qp = qp.Return("e.id AS id").Order("e.id ASC")
	if skip > 0 {
		qp = qp.SkipN(skip)
	}
	qp = qp.LimitN(limit)

	stmt, params := qp.Cypher()
	cur, err := a.backend.Execute(ctx, stmt, params)
	if err != nil {
		return nil, fmt.Errorf("api: find entities: %w: %v", store.ErrBackend, err)
	}

	out := make(chan EntityIDOrError)
	go func() {
		defer close(out)
		defer cur.Close(ctx)
		for {
			row, ok, err := cur.Next(ctx)
			if err != nil {
				sendID(ctx, out, EntityIDOrError{Err: fmt.Errorf("%w: %v", store.ErrBackend, err)})
				return
			}
			if !ok {
				return
			}
			id, _ := row["id"].(string)
			if !sendID(ctx, out, EntityIDOrError{ID: id}) {
				return
			}
		}
	}()
	return out, nil
}

func sendID(ctx context.Context, out chan<- EntityIDOrError, v EntityIDOrError) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// ListRelations streams relations matching filter, honoring skip on top
// of the underlying store's limit-only streaming find. Because skip is
// applied by discarding rows after they're fetched, the skip+limit rows
// fetched are capped at 1000, the maximum FindRelations accepts.
func (a *ReadAPI) ListRelations(ctx context.Context, filter store.RelationFilter, versionID *string, skip, limit int) (<-chan store.RelationOrError, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	ver, err := a.resolveVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	fetch := skip + limit
	if fetch > 1000 {
		fetch = 1000
	}
	raw, err := a.relations.FindRelations(ctx, filter, ver, fetch)
	if err != nil {
		return nil, err
	}
	out := make(chan store.RelationOrError)
	go func() {
		defer close(out)
		skipped := 0
		for r := range raw {
			if r.Err == nil && skipped < skip {
				skipped++
				continue
			}
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// TraverseSpaces streams the ancestor/descendant space ids reachable
// from origin, per the space hierarchy resolver's BFS traversal.
func (a *ReadAPI) TraverseSpaces(ctx context.Context, dir space.TraversalDirection, origin string, maxDepth, skip, limit int) (<-chan space.SpaceIDOrError, error) {
	return a.spaces.Traverse(ctx, dir, origin, maxDepth, skip, limit)
}

// GetSpace resolves a space's own metadata by its entity id.
func (a *ReadAPI) GetSpace(ctx context.Context, spaceID string) (space.Space, bool, error) {
	return a.spaces.ByID(ctx, spaceID)
}

// ReadIdentityAttribute resolves entity's single-valued identity
// attribute (name/description/cover) as scoped to spaceID, falling back
// through ancestor spaces when strict is false and the attribute is
// unset locally (pluralism). Relation/attribute listings never fall
// back this way; only this single-valued read does.
func (a *ReadAPI) ReadIdentityAttribute(ctx context.Context, attrID, entityID, spaceID string, strict bool) (string, bool, error) {
	return a.spaces.ReadIdentityAttribute(ctx, attrID, entityID, spaceID, strict)
}

// ReadSpaceIdentityAttribute resolves a space's own name/description/
// cover, falling back through ancestor spaces when strict is false and
// the attribute is unset locally (pluralism).
func (a *ReadAPI) ReadSpaceIdentityAttribute(ctx context.Context, attrID, spaceID string, strict bool) (string, bool, error) {
	return a.spaces.ReadSpaceIdentityAttribute(ctx, attrID, spaceID, strict)
}
