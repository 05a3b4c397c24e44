package store

import (
	"context"
	"fmt"

	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/kgindex/kgnode/kg/block"
	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/query"
	"github.com/kgindex/kgnode/kg/value"
)

// AttributeStore implements the entity/attribute/triple CRUD contract:
// versioned insert-retire mutations and lazy, space/version-scoped reads.
type AttributeStore struct {
	backend graph.Backend
}

func NewAttributeStore(backend graph.Backend) *AttributeStore {
	return &AttributeStore{backend: backend}
}

// Triple is the logical (entity, attribute_id, value) tuple returned by
// reads, annotated with the interval it was live over.
type Triple struct {
	Entity      string
	AttributeID string
	Value       value.Value
	SpaceID     string
	MinVersion  string
	MaxVersion  *string
}

// InsertTriple ensures the entity exists, retires any live edge for
// (entity, attribute, space), and inserts the new attribute edge in one
// backend transaction. A write that repeats the currently-live value at
// the same space is a no-op (idempotence under replay).
func (s *AttributeStore) InsertTriple(ctx context.Context, b block.Metadata, space, ver, entity, attribute string, v value.Value) error {
	return s.insertOne(ctx, b, space, ver, entity, attribute, v)
}

func (s *AttributeStore) insertOne(ctx context.Context, b block.Metadata, space, ver, entity, attribute string, v value.Value) error {
	live, found, err := s.FindTriple(ctx, attribute, entity, space, nil)
	if err != nil {
		return fmt.Errorf("store: insert triple: %w", err)
	}
	if found && live.Equal(v) {
		log.Debug("store: insert triple no-op, value unchanged", "entity", entity, "attribute", attribute, "space", space)
		return nil
	}

	stmt := `
MERGE (e:Entity {id: $entity})
  ON CREATE SET e.created_at = $ts, e.created_at_block = $block, e.updated_at = $ts, e.updated_at_block = $block
  ON MATCH SET e.updated_at = $ts, e.updated_at_block = $block
WITH e
OPTIONAL MATCH (e)-[old:ATTRIBUTE {attribute_id: $attribute, space_id: $space}]->(oldval)
WHERE old.max_version IS NULL
SET old.max_version = $version
WITH e
CREATE (e)-[new:ATTRIBUTE {attribute_id: $attribute, space_id: $space, min_version: $version}]->(newval:Value {raw: $raw, value_type: $value_type, format: $format, unit: $unit, language: $language})
`
	params := map[string]any{
		"entity":     entity,
		"attribute":  attribute,
		"space":      space,
		"version":    ver,
		"ts":         b.Timestamp,
		"block":      b.Number,
		"raw":        v.Raw,
		"value_type": v.Type.String(),
		"format":     v.Options.Format,
		"unit":       v.Options.Unit,
		"language":   v.Options.Language,
	}
	if err := s.backend.Run(ctx, stmt, params); err != nil {
		return fmt.Errorf("store: insert triple: %w: %v", ErrBackend, err)
	}
	return nil
}

// Attributes is an entity's to-be-written attribute bag for a bulk
// insert: attribute_id -> Value.
type Attributes map[string]value.Value

// InsertAttributesBulk writes several entities' attribute sets within a
// single call: one insertOne statement per attribute, in map iteration
// order, stopping at the first failure. Each statement is atomic at the
// backend, but the call as a whole is not: writes that succeeded before
// a failure stay applied and are not rolled back, since the Backend
// interface exposes no multi-statement transaction handle.
func (s *AttributeStore) InsertAttributesBulk(ctx context.Context, b block.Metadata, space, ver string, byEntity map[string]Attributes) error {
	for entity, attrs := range byEntity {
		for attrID, v := range attrs {
			if err := s.insertOne(ctx, b, space, ver, entity, attrID, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// FindTriple returns the value live at version (nil = absolute-live), or
// found=false.
func (s *AttributeStore) FindTriple(ctx context.Context, attribute, entity, space string, ver *string) (value.Value, bool, error) {
	vf := query.Live()
	if ver != nil {
		vf = query.AsOf(*ver)
	}
	qp := vf.IntoQueryPart("a")
	matchStmt := "MATCH (e:Entity {id: $entity})-[a:ATTRIBUTE {attribute_id: $attribute, space_id: $space}]->(val)\n"
	whereStmt, params := qp.Cypher()
	params["entity"] = entity
	params["attribute"] = attribute
	params["space"] = space
	stmt := matchStmt + whereStmt + "RETURN val.raw AS raw, val.value_type AS value_type, val.format AS format, val.unit AS unit, val.language AS language\n"

	cur, err := s.backend.Execute(ctx, stmt, params)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("store: find triple: %w: %v", ErrBackend, err)
	}
	defer cur.Close(ctx)
	row, ok, err := cur.Next(ctx)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("store: find triple: %w: %v", ErrBackend, err)
	}
	if !ok {
		return value.Value{}, false, nil
	}
	return rowToValue(row)
}

func rowToValue(row graph.Row) (value.Value, bool, error) {
	raw, _ := row["raw"].(string)
	typeName, _ := row["value_type"].(string)
	format, _ := row["format"].(string)
	unit, _ := row["unit"].(string)
	lang, _ := row["language"].(string)
	v, err := value.ParseWire(raw, typeName, value.Options{Format: format, Unit: unit, Language: lang})
	if err != nil {
		return value.Value{}, false, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v, true, nil
}

// FindEntityAttributes reads every attribute edge live on entity in
// space at version (nil = live), returned as an attribute_id -> Value
// bag. Unlike FindTriples, which filters by a specific attribute_id,
// this reads the entity's whole attribute set — the shape the entity
// façade's typed Get needs to reconstruct a model.
func (s *AttributeStore) FindEntityAttributes(ctx context.Context, entity, space string, ver *string) (Attributes, error) {
	vf := query.Live()
	if ver != nil {
		vf = query.AsOf(*ver)
	}
	qp := vf.IntoQueryPart("a")
	matchStmt := "MATCH (e:Entity {id: $entity})-[a:ATTRIBUTE {space_id: $space}]->(val)\n"
	whereStmt, params := qp.Cypher()
	params["entity"] = entity
	params["space"] = space
	stmt := matchStmt + whereStmt +
		"RETURN a.attribute_id AS attribute_id, val.raw AS raw, val.value_type AS value_type, val.format AS format, val.unit AS unit, val.language AS language\n"

	cur, err := s.backend.Execute(ctx, stmt, params)
	if err != nil {
		return nil, fmt.Errorf("store: find entity attributes: %w: %v", ErrBackend, err)
	}
	defer cur.Close(ctx)

	bag := Attributes{}
	for {
		row, ok, err := cur.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("store: find entity attributes: %w: %v", ErrBackend, err)
		}
		if !ok {
			break
		}
		attrID, _ := row["attribute_id"].(string)
		v, _, err := rowToValue(row)
		if err != nil {
			return nil, err
		}
		bag[attrID] = v
	}
	return bag, nil
}

// FindTriples yields a lazy, finite, non-restartable stream of triples
// matching the given AttributeFilter scoped to space/version.
func (s *AttributeStore) FindTriples(ctx context.Context, filter query.AttributeFilter, space string, ver *string, limit int) (<-chan TripleOrError, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	filter.SpaceID = ptr(query.PropFilter[string]{}.Eq(space))
	if ver != nil {
		filter.Version = query.AsOf(*ver)
	} else {
		filter.Version = query.Live()
	}
	qp, err := filter.IntoQueryPart("e", 0)
	if err != nil {
		return nil, err
	}
	qp = qp.Match("(e:Entity)").
		Return("e.id AS entity").
		Return("attr0.attribute_id AS attribute_id").
		Return("attr0_value.raw AS raw").
		Return("attr0_value.value_type AS value_type").
		Return("attr0.min_version AS min_version").
		Return("attr0.max_version AS max_version").
		LimitN(limit)

	stmt, params := qp.Cypher()
	cur, err := s.backend.Execute(ctx, stmt, params)
	if err != nil {
		return nil, fmt.Errorf("store: find triples: %w: %v", ErrBackend, err)
	}

	out := make(chan TripleOrError)
	go func() {
		defer close(out)
		defer cur.Close(ctx)
		for {
			row, ok, err := cur.Next(ctx)
			if err != nil {
				send(ctx, out, TripleOrError{Err: fmt.Errorf("%w: %v", ErrBackend, err)})
				return
			}
			if !ok {
				return
			}
			t, terr := rowToTriple(row, space)
			if terr != nil {
				send(ctx, out, TripleOrError{Err: terr})
				continue
			}
			if !send(ctx, out, TripleOrError{Triple: t}) {
				return
			}
		}
	}()
	return out, nil
}

func send(ctx context.Context, out chan<- TripleOrError, v TripleOrError) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

func rowToTriple(row graph.Row, space string) (Triple, error) {
	v, _, err := rowToValue(row)
	if err != nil {
		return Triple{}, err
	}
	entity, _ := row["entity"].(string)
	attrID, _ := row["attribute_id"].(string)
	minVer, _ := row["min_version"].(string)
	var maxVer *string
	if mv, ok := row["max_version"].(string); ok && mv != "" {
		maxVer = &mv
	}
	return Triple{Entity: entity, AttributeID: attrID, Value: v, SpaceID: space, MinVersion: minVer, MaxVersion: maxVer}, nil
}

// TripleOrError is one element of a FindTriples stream.
type TripleOrError struct {
	Triple Triple
	Err    error
}

// DeleteTriple retires the live edge for (entity, attribute, space) by
// setting its max_version. Idempotent: retiring an already-retired or
// absent edge is a no-op.
func (s *AttributeStore) DeleteTriple(ctx context.Context, b block.Metadata, space, ver, entity, attribute string) error {
	stmt := `
MATCH (e:Entity {id: $entity})-[a:ATTRIBUTE {attribute_id: $attribute, space_id: $space}]->(val)
WHERE a.max_version IS NULL
SET a.max_version = $version, e.updated_at = $ts, e.updated_at_block = $block
`
	params := map[string]any{
		"entity": entity, "attribute": attribute, "space": space, "version": ver,
		"ts": b.Timestamp, "block": b.Number,
	}
	if err := s.backend.Run(ctx, stmt, params); err != nil {
		return fmt.Errorf("store: delete triple: %w: %v", ErrBackend, err)
	}
	return nil
}

// DeleteEntity retires all live attribute edges for entity in space at
// version. Does not cascade across spaces.
func (s *AttributeStore) DeleteEntity(ctx context.Context, b block.Metadata, space, ver, entity string) error {
	stmt := `
MATCH (e:Entity {id: $entity})-[a:ATTRIBUTE {space_id: $space}]->(val)
WHERE a.max_version IS NULL
SET a.max_version = $version, e.updated_at = $ts, e.updated_at_block = $block
`
	params := map[string]any{"entity": entity, "space": space, "version": ver, "ts": b.Timestamp, "block": b.Number}
	if err := s.backend.Run(ctx, stmt, params); err != nil {
		return fmt.Errorf("store: delete entity: %w: %v", ErrBackend, err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
