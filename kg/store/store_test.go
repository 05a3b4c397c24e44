package store

import (
	"context"
	"testing"
	"time"

	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/block"
	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/graph/graphtest"
	"github.com/kgindex/kgnode/kg/value"
	"github.com/stretchr/testify/require"
)

func testBlock() block.Metadata {
	return block.Metadata{Number: 1, Timestamp: time.Unix(0, 0), Cursor: "c1"}
}

// Scenario 1: set then read live.
func TestSetThenReadLive(t *testing.T) {
	fake := graphtest.New()
	s := NewAttributeStore(fake)
	ctx := context.Background()

	v, _ := value.New("Alice", schema.Text, value.Options{})
	require.NoError(t, s.InsertTriple(ctx, testBlock(), "S1", "0", "abc", "name", v))

	fake.SeedRows(graph.Row{"raw": "Alice", "value_type": "TEXT"})
	got, found, err := s.FindTriple(ctx, "name", "abc", "S1", nil)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Alice", got.Raw)
}

// Scenario 3 (partial, unit-level): insert then delete relation issues
// the expected statements against the backend.
func TestRelationInsertAndDelete(t *testing.T) {
	fake := graphtest.New()
	s := NewRelationStore(fake)
	ctx := context.Background()

	rec := RelationRecord{ID: "abc", From: "alice", To: "bob", RelationType: "knows", Index: "0"}
	require.NoError(t, s.InsertRelation(ctx, testBlock(), "ROOT", "0", rec))
	require.NoError(t, s.DeleteRelation(ctx, testBlock(), "ROOT", "1", "abc"))

	require.Len(t, fake.Runs, 2)
}

func TestInsertTripleNoOpOnEqualValue(t *testing.T) {
	fake := graphtest.New()
	s := NewAttributeStore(fake)
	ctx := context.Background()

	fake.SeedRows(graph.Row{"raw": "Alice", "value_type": "TEXT"})
	v, _ := value.New("Alice", schema.Text, value.Options{})
	require.NoError(t, s.InsertTriple(ctx, testBlock(), "S1", "0", "abc", "name", v))

	// no Run call should have happened since the live value is equal
	require.Empty(t, fake.Runs)
}

// Scenario 6 (relation half): replaying an InsertRelation call for a
// 4-tuple that is already live must not produce a new retired-then-live
// edge generation.
func TestInsertRelationNoOpOnEqual4Tuple(t *testing.T) {
	fake := graphtest.New()
	s := NewRelationStore(fake)
	ctx := context.Background()

	rec := RelationRecord{ID: "abc", From: "alice", To: "bob", RelationType: "knows", Index: "0"}
	fake.SeedRows(
		graph.Row{"id": "abc", "from_id": "alice", "to_id": "bob", "relation_type": "knows", "idx": "0"},
	)
	require.NoError(t, s.InsertRelation(ctx, testBlock(), "ROOT", "0", rec))

	// no Run call should have happened since the live 4-tuple is equal
	require.Empty(t, fake.Runs)
}
