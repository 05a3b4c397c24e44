package version

import (
	"context"
	"testing"

	"github.com/kgindex/kgnode/kg/graph"
	"github.com/kgindex/kgnode/kg/graph/graphtest"
	"github.com/stretchr/testify/require"
)

func TestOrdinalResolvesEditIndexAttribute(t *testing.T) {
	fake := graphtest.New()
	r := NewResolver(fake)
	ctx := context.Background()

	fake.SeedRows(graph.Row{"ordinal": "000042"})
	ordinal, err := r.Ordinal(ctx, "version-abc")
	require.NoError(t, err)
	require.Equal(t, "000042", ordinal)
}

func TestOrdinalEmptyVersionIDMeansLive(t *testing.T) {
	fake := graphtest.New()
	r := NewResolver(fake)
	ctx := context.Background()

	ordinal, err := r.Ordinal(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "", ordinal)
	require.Empty(t, fake.Executes)
}

func TestOrdinalUnknownVersionID(t *testing.T) {
	fake := graphtest.New()
	r := NewResolver(fake)
	ctx := context.Background()

	_, err := r.Ordinal(ctx, "no-such-version")
	require.Error(t, err)
}

func TestCompareOrdersLexicographically(t *testing.T) {
	require.Equal(t, -1, Compare("000001", "000002"))
	require.Equal(t, 1, Compare("000002", "000001"))
	require.Equal(t, 0, Compare("000001", "000001"))
}
