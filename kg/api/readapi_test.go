package api

import (
	"context"
	"testing"

	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/graph/graphtest"
	"github.com/kgindex/kgnode/kg/query"
	"github.com/kgindex/kgnode/kg/store"
	"github.com/stretchr/testify/require"
)

func TestGetAttributeValue(t *testing.T) {
	fake := graphtest.New()
	a := New(fake)
	ctx := context.Background()

	fake.SeedRows(graph.Row{"raw": "hello", "value_type": "TEXT"})
	v, found, err := a.GetAttributeValue(ctx, "entity1", "attr1", "space1", nil)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "hello", v.Raw)
}

func TestFindEntityIDsOrdersAndPaginates(t *testing.T) {
	fake := graphtest.New()
	a := New(fake)
	ctx := context.Background()

	fake.SeedRows(graph.Row{"id": "e1"}, graph.Row{"id": "e2"})
	filter := query.EntityFilter{SpaceID: ptrFilter("space1")}

	out, err := a.FindEntityIDs(ctx, filter, 0, 10)
	require.NoError(t, err)

	var ids []string
	for r := range out {
		require.NoError(t, r.Err)
		ids = append(ids, r.ID)
	}
	require.Equal(t, []string{"e1", "e2"}, ids)
	require.Len(t, fake.Executes, 1)
	require.Contains(t, fake.Executes[0].Statement, "ORDER BY e.id ASC")
	require.Contains(t, fake.Executes[0].Statement, "LIMIT 10")
}

func TestListRelationsAppliesSkip(t *testing.T) {
	fake := graphtest.New()
	a := New(fake)
	ctx := context.Background()

	fake.SeedRows(
		graph.Row{"id": "r1", "from_id": "a", "to_id": "b", "relation_type": "KNOWS", "idx": "0"},
		graph.Row{"id": "r2", "from_id": "a", "to_id": "c", "relation_type": "KNOWS", "idx": "1"},
		graph.Row{"id": "r3", "from_id": "a", "to_id": "d", "relation_type": "KNOWS", "idx": "2"},
	)

	out, err := a.ListRelations(ctx, store.RelationFilter{}, nil, 1, 10)
	require.NoError(t, err)

	var ids []string
	for r := range out {
		require.NoError(t, r.Err)
		ids = append(ids, r.Record.ID)
	}
	require.Equal(t, []string{"r2", "r3"}, ids)
}

func TestReadSpaceIdentityAttribute(t *testing.T) {
	fake := graphtest.New()
	a := New(fake)
	ctx := context.Background()

	fake.SeedRows(graph.Row{"raw": "My Space", "value_type": "TEXT"})
	got, found, err := a.ReadSpaceIdentityAttribute(ctx, schema.NameAttr, "space1", true)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "My Space", got)
}

func ptrFilter(v string) *query.PropFilter[string] {
	f := query.PropFilter[string]{}.Eq(v)
	return &f
}
