package entity

import (
	"context"
	"testing"

	"github.com/kgindex/kgnode/internal/schema"
	"github.com/kgindex/kgnode/kg/block"
	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/graph/graphtest"
	"github.com/kgindex/kgnode/kg/store"
	"github.com/kgindex/kgnode/kg/value"
	"github.com/stretchr/testify/require"
)

// person is a minimal typed model exercising the AttributeSchema pair.
type person struct {
	Name string
	Bio  string
}

func (p person) IntoAttributes() (store.Attributes, error) {
	attrs := store.Attributes{}
	nameVal, err := value.New(p.Name, schema.Text, value.Options{})
	if err != nil {
		return nil, err
	}
	attrs[schema.NameAttr] = nameVal
	if p.Bio != "" {
		bioVal, err := value.New(p.Bio, schema.Text, value.Options{})
		if err != nil {
			return nil, err
		}
		attrs[schema.DescriptionAttr] = bioVal
	}
	return attrs, nil
}

func (person) FromAttributes(attrs store.Attributes) (person, error) {
	return person{
		Name: attrs[schema.NameAttr].Raw,
		Bio:  attrs[schema.DescriptionAttr].Raw,
	}, nil
}

func testBlock() block.Metadata { return block.Metadata{Number: 1, Cursor: "c1"} }

// Round-trip law: Put followed by Get (against rows the fake is seeded to
// echo back) reconstructs the same model that was written.
func TestPutThenGetRoundTrip(t *testing.T) {
	fake := graphtest.New()
	s := NewStore[person](fake)
	ctx := context.Background()

	p := person{Name: "Alice", Bio: "a builder"}
	require.NoError(t, s.Put(ctx, testBlock(), "space1", "0", "alice-id", "", p))

	fake.SeedRows(
		graph.Row{"attribute_id": schema.NameAttr, "raw": "Alice", "value_type": "TEXT"},
		graph.Row{"attribute_id": schema.DescriptionAttr, "raw": "a builder", "value_type": "TEXT"},
	)
	got, found, err := s.Get(ctx, "alice-id", "space1", nil)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, p, got)
}

func TestGetNotFound(t *testing.T) {
	fake := graphtest.New()
	s := NewStore[person](fake)
	ctx := context.Background()

	fake.SeedRows() // no attribute edges at all for this entity
	_, found, err := s.Get(ctx, "nobody", "space1", nil)
	require.NoError(t, err)
	require.False(t, found)
}

func TestPutRecordsTypesRelationOnce(t *testing.T) {
	fake := graphtest.New()
	s := NewStore[person](fake)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testBlock(), "space1", "0", "alice-id", "PersonType", person{Name: "Alice"}))
	require.NotEmpty(t, fake.Runs)
	typesRuns := 0
	for _, run := range fake.Runs {
		if run.Params["type"] == schema.TypesRelation {
			typesRuns++
		}
	}
	require.Equal(t, 1, typesRuns)
}
