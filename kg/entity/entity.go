// Package entity implements the typed high-level façade over the raw
// attribute/triple store: a generic round trip between a Go struct and
// its attribute bag, plus the TYPES relation lookup used to discover
// which typed schema an entity was recorded under.
package entity

import (
	"context"
	"fmt"

	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/block"
	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/query"
	"github.com/kgindex/kgnode/kg/store"
	"github.com/kgindex/kgnode/kg/value"
)

// AttributeSchema is the pair of conversions a typed entity model must
// implement to round-trip through the attribute store: IntoAttributes
// projects the Go value down to the untyped attribute bag the store
// writes, and FromAttributes reconstructs it back from a bag a read
// produced. Implementations are expected to be pure: IntoAttributes must
// not mutate the receiver, and FromAttributes must not retain the bag.
type AttributeSchema[T any] interface {
	IntoAttributes() (store.Attributes, error)
	FromAttributes(attrs store.Attributes) (T, error)
}

// Store is the generic façade: typed Put/Get/TypesOf over a backing
// AttributeStore and RelationStore, parametrized by the model's
// AttributeSchema implementation.
type Store[T AttributeSchema[T]] struct {
	attrs     *store.AttributeStore
	relations *store.RelationStore
}

// NewStore constructs a typed Store over backend.
func NewStore[T AttributeSchema[T]](backend graph.Backend) *Store[T] {
	return &Store[T]{
		attrs:     store.NewAttributeStore(backend),
		relations: store.NewRelationStore(backend),
	}
}

// Put writes model's attribute projection for entity in space, and
// records (or leaves unchanged, if already present) the TYPES relation
// tagging entity with typeID.
func (s *Store[T]) Put(ctx context.Context, b block.Metadata, space, ver, entityID, typeID string, model T) error {
	attrs, err := model.IntoAttributes()
	if err != nil {
		return fmt.Errorf("entity: put: %w", err)
	}
	if err := s.attrs.InsertAttributesBulk(ctx, b, space, ver, map[string]store.Attributes{entityID: attrs}); err != nil {
		return err
	}
	if typeID == "" {
		return nil
	}
	// InsertRelation itself no-ops when the live 4-tuple is unchanged, so
	// repeated Put calls for the same (entity, type) pairing don't grow a
	// new retired-then-live generation on every call.
	return s.relations.InsertRelation(ctx, b, space, ver, store.RelationRecord{
		ID:           relationID(entityID, typeID),
		From:         entityID,
		To:           typeID,
		RelationType: schema.TypesRelation,
		Index:        "0",
	})
}

// Get reads every live attribute edge for entityID in space and decodes
// it through the model's FromAttributes, found=false if the entity has
// no live attributes in that space.
func (s *Store[T]) Get(ctx context.Context, entityID, space string, ver *string) (T, bool, error) {
	var zero T
	bag, err := s.attrs.FindEntityAttributes(ctx, entityID, space, ver)
	if err != nil {
		return zero, false, err
	}
	if len(bag) == 0 {
		return zero, false, nil
	}
	model, err := zero.FromAttributes(bag)
	if err != nil {
		return zero, false, fmt.Errorf("%w: %v", store.ErrTriplesConversion, err)
	}
	return model, true, nil
}

// TypesOf returns the type entity IDs entityID is tagged with in space,
// ordered by relation INDEX then relation id. Put writes every TYPES
// relation with INDEX "0", so for relations written by Put the order is
// by relation id, not insertion order.
func (s *Store[T]) TypesOf(ctx context.Context, entityID, space string) ([]string, error) {
	recs, err := s.relations.FindRelations(ctx, store.RelationFilter{
		FromID:       ptrFilter(entityID),
		RelationType: ptrFilter(schema.TypesRelation),
		SpaceID:      ptrFilter(space),
	}, nil, 1000)
	if err != nil {
		return nil, err
	}
	var types []string
	for r := range recs {
		if r.Err != nil {
			return nil, r.Err
		}
		types = append(types, r.Record.To)
	}
	return types, nil
}

func ptrFilter(v string) *query.PropFilter[string] {
	f := query.PropFilter[string]{}.Eq(v)
	return &f
}

// relationID derives a stable TYPES relation id from (entity, type) so
// repeated Put calls for the same pairing are idempotent across replay.
func relationID(entityID, typeID string) string {
	return value.DeriveID("TYPES", entityID, typeID)
}
