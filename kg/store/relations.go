package store

import (
	"context"
	"fmt"

	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/kgindex/kgnode/kg/block"
	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/query"
)

// RelationStore materializes first-class relations: a relation entity R
// plus four typed edges FROM/TO/TYPE/INDEX, all sharing one
// (space_id, min_version) and retired together (V4).
type RelationStore struct {
	backend graph.Backend
}

func NewRelationStore(backend graph.Backend) *RelationStore {
	return &RelationStore{backend: backend}
}

// RelationRecord is the logical relation tuple.
type RelationRecord struct {
	ID           string
	From         string
	To           string
	RelationType string
	Index        string
}

// InsertRelation creates R if new, retires any prior live 4-tuple for R
// in space, and writes the new 4-tuple — all four edges sharing one
// min_version, atomically. A write that repeats the currently-live
// 4-tuple at the same space is a no-op (idempotence under replay),
// mirroring AttributeStore.insertOne's live-value comparison.
func (s *RelationStore) InsertRelation(ctx context.Context, b block.Metadata, space, ver string, rec RelationRecord) error {
	live, found, err := s.FindRelation(ctx, rec.ID, space, nil)
	if err != nil {
		return fmt.Errorf("store: insert relation: %w", err)
	}
	if found && live == rec {
		log.Debug("store: insert relation no-op, 4-tuple unchanged", "id", rec.ID, "space", space)
		return nil
	}

	// from/to/type are MERGEd, not MATCHed: an entity is implicitly
	// created the first time any edge names it, and a relation is
	// frequently the first edge to name its endpoints (e.g. a freshly
	// minted Account entity named only by a SPACE_EDITOR relation).
	stmt := `
MERGE (r:Entity:Relation {id: $id})
  ON CREATE SET r.created_at = $ts, r.created_at_block = $block
WITH r
MERGE (from_e:Entity {id: $from})
  ON CREATE SET from_e.created_at = $ts, from_e.created_at_block = $block
MERGE (to_e:Entity {id: $to})
  ON CREATE SET to_e.created_at = $ts, to_e.created_at_block = $block
MERGE (type_e:Entity {id: $type})
  ON CREATE SET type_e.created_at = $ts, type_e.created_at_block = $block
WITH r, from_e, to_e, type_e
OPTIONAL MATCH (r)-[old_from:FROM {space_id: $space}]->() WHERE old_from.max_version IS NULL
OPTIONAL MATCH (r)-[old_to:TO {space_id: $space}]->() WHERE old_to.max_version IS NULL
OPTIONAL MATCH (r)-[old_type:TYPE {space_id: $space}]->() WHERE old_type.max_version IS NULL
OPTIONAL MATCH (r)-[old_index:INDEX {space_id: $space}]->() WHERE old_index.max_version IS NULL
SET old_from.max_version = $version, old_to.max_version = $version, old_type.max_version = $version, old_index.max_version = $version
CREATE (r)-[:FROM {space_id: $space, min_version: $version}]->(from_e)
CREATE (r)-[:TO {space_id: $space, min_version: $version}]->(to_e)
CREATE (r)-[:TYPE {space_id: $space, min_version: $version}]->(type_e)
CREATE (r)-[:INDEX {space_id: $space, min_version: $version, value: $index}]->(r)
`
	params := map[string]any{
		"id": rec.ID, "from": rec.From, "to": rec.To, "type": rec.RelationType,
		"space": space, "version": ver, "index": rec.Index,
		"ts": b.Timestamp, "block": b.Number,
	}
	if err := s.backend.Run(ctx, stmt, params); err != nil {
		return fmt.Errorf("store: insert relation: %w: %v", ErrBackend, err)
	}
	return nil
}

// InsertRelationsBulk writes several relations; no-op on an empty list.
func (s *RelationStore) InsertRelationsBulk(ctx context.Context, b block.Metadata, space, ver string, recs []RelationRecord) error {
	for _, rec := range recs {
		if err := s.InsertRelation(ctx, b, space, ver, rec); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRelation retires all four live edges of the relation with id in
// space at version.
func (s *RelationStore) DeleteRelation(ctx context.Context, b block.Metadata, space, ver, id string) error {
	stmt := `
MATCH (r:Entity:Relation {id: $id})-[edge]->()
WHERE edge.space_id = $space AND edge.max_version IS NULL AND type(edge) IN ['FROM','TO','TYPE','INDEX']
SET edge.max_version = $version
`
	params := map[string]any{"id": id, "space": space, "version": ver, "ts": b.Timestamp, "block": b.Number}
	if err := s.backend.Run(ctx, stmt, params); err != nil {
		return fmt.Errorf("store: delete relation: %w: %v", ErrBackend, err)
	}
	return nil
}

// FindRelation performs a single lookup by id, space, and optional
// version (nil = live).
func (s *RelationStore) FindRelation(ctx context.Context, id, space string, ver *string) (RelationRecord, bool, error) {
	idFilter := query.PropFilter[string]{}.Eq(id)
	spaceFilter := query.PropFilter[string]{}.Eq(space)
	recs, err := s.findMany(ctx, filterSet{id: &idFilter, space: &spaceFilter}, ver, 1)
	if err != nil {
		return RelationRecord{}, false, err
	}
	var first RelationRecord
	found := false
	for r := range recs {
		if r.Err != nil {
			return RelationRecord{}, false, r.Err
		}
		first = r.Record
		found = true
		break
	}
	return first, found, nil
}

// RelationFilter selects relations by id/space/type/from/to, each an
// optional PropFilter[string].
type RelationFilter struct {
	ID           *query.PropFilter[string]
	SpaceID      *query.PropFilter[string]
	RelationType *query.PropFilter[string]
	FromID       *query.PropFilter[string]
	ToID         *query.PropFilter[string]
}

type filterSet struct {
	id, typ, from, to, space *query.PropFilter[string]
}

// FindRelations streams relations matching filter, ordered by INDEX
// value ascending with relation-id tie-break.
func (s *RelationStore) FindRelations(ctx context.Context, filter RelationFilter, ver *string, limit int) (<-chan RelationOrError, error) {
	return s.findMany(ctx, filterSet{id: filter.ID, typ: filter.RelationType, from: filter.FromID, to: filter.ToID, space: filter.SpaceID}, ver, limit)
}

func (s *RelationStore) findMany(ctx context.Context, fs filterSet, ver *string, limit int) (<-chan RelationOrError, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	vf := query.Live()
	if ver != nil {
		vf = query.AsOf(*ver)
	}

	qp := query.NewQueryPart().Match("(r:Entity:Relation)-[from_edge:FROM]->(from_e:Entity)").
		Match("(r)-[to_edge:TO]->(to_e:Entity)").
		Match("(r)-[type_edge:TYPE]->(type_e:Entity)").
		Match("(r)-[index_edge:INDEX]->(r)")

	var err error
	qp, err = merge(qp, vf.IntoQueryPart("from_edge"))
	if err != nil {
		return nil, err
	}
	if fs.id != nil {
		qp, err = merge(qp, fs.id.IntoQueryPart("r", "id"))
		if err != nil {
			return nil, err
		}
	}
	if fs.typ != nil {
		qp, err = merge(qp, fs.typ.IntoQueryPart("type_e", "id"))
		if err != nil {
			return nil, err
		}
	}
	if fs.from != nil {
		qp, err = merge(qp, fs.from.IntoQueryPart("from_e", "id"))
		if err != nil {
			return nil, err
		}
	}
	if fs.to != nil {
		qp, err = merge(qp, fs.to.IntoQueryPart("to_e", "id"))
		if err != nil {
			return nil, err
		}
	}
	if fs.space != nil {
		qp, err = merge(qp, fs.space.IntoQueryPart("from_edge", "space_id"))
		if err != nil {
			return nil, err
		}
	}

	qp = qp.Return("r.id AS id").
		Return("from_e.id AS from_id").
		Return("to_e.id AS to_id").
		Return("type_e.id AS relation_type").
		Return("index_edge.value AS idx").
		Order("index_edge.value ASC").
		Order("r.id ASC").
		LimitN(limit)

	stmt, params := qp.Cypher()
	cur, err := s.backend.Execute(ctx, stmt, params)
	if err != nil {
		return nil, fmt.Errorf("store: find relations: %w: %v", ErrBackend, err)
	}

	out := make(chan RelationOrError)
	go func() {
		defer close(out)
		defer cur.Close(ctx)
		for {
			row, ok, err := cur.Next(ctx)
			if err != nil {
				send2(ctx, out, RelationOrError{Err: fmt.Errorf("%w: %v", ErrBackend, err)})
				return
			}
			if !ok {
				return
			}
			rec := RelationRecord{}
			rec.ID, _ = row["id"].(string)
			rec.From, _ = row["from_id"].(string)
			rec.To, _ = row["to_id"].(string)
			rec.RelationType, _ = row["relation_type"].(string)
			rec.Index, _ = row["idx"].(string)
			if !send2(ctx, out, RelationOrError{Record: rec}) {
				return
			}
		}
	}()
	return out, nil
}

func send2(ctx context.Context, out chan<- RelationOrError, v RelationOrError) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

func merge(a, b query.QueryPart) (query.QueryPart, error) { return a.Merge(b) }

// RelationOrError is one element of a FindRelations stream.
type RelationOrError struct {
	Record RelationRecord
	Err    error
}
