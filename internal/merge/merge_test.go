package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/repository/memstore"
)

func TestMerge_PersistsSurvivorRewritesRefsAndRemovesOthers(t *testing.T) {
	store := memstore.New()

	a := area("a-crowd", domain.SourceCrowdsourced, false, domain.ActivityDownhill)
	b := area("b-reg", domain.SourceRegistry, false, domain.ActivityNordic)
	store.Put(a)
	store.Put(b)

	lift := &domain.MapObject{
		Key: "lift-1", ID: "lift-1", Type: domain.ObjectTypeLift,
		SkiAreas: domain.NewStringSet(b.ID),
	}
	store.Put(lift)

	merged, ok, err := Merge(context.Background(), store, DefaultComposer, b, []*domain.MapObject{a})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a-crowd", merged.Key)

	remaining := store.All()
	require.Len(t, remaining, 2)
	for _, o := range remaining {
		assert.NotEqual(t, "b-reg", o.Key)
	}

	assert.True(t, lift.SkiAreas.Has(merged.ID), "rewritten to point at the survivor")
	assert.False(t, lift.SkiAreas.Has(b.ID), "stale reference to the removed area is gone")
}

func TestMerge_NoOtherCandidatesIsANoOp(t *testing.T) {
	store := memstore.New()
	a := area("solo", domain.SourceCrowdsourced, false, domain.ActivityDownhill)
	store.Put(a)

	merged, ok, err := Merge(context.Background(), store, DefaultComposer, a, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "solo", merged.Key)
	assert.Len(t, store.All(), 1)
}
