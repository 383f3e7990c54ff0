package traversal

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
	"github.com/skicluster/engine/internal/repository/memstore"
)

func lift(key string, pt orb.Point, activities ...domain.Activity) *domain.MapObject {
	return &domain.MapObject{
		Key:        key,
		ID:         key,
		Type:       domain.ObjectTypeLift,
		Geometry:   pt,
		Activities: domain.NewActivitySet(activities...),
		SkiAreas:   domain.NewStringSet(),
	}
}

func TestVisit_BufferedFloodFillChainsThroughNeighbors(t *testing.T) {
	store := memstore.New()
	a := lift("a", orb.Point{10.000, 46.000}, domain.ActivityDownhill)
	b := lift("b", orb.Point{10.004, 46.000}, domain.ActivityDownhill) // within 0.5km buffer of a
	c := lift("c", orb.Point{10.009, 46.000}, domain.ActivityDownhill) // only reachable via b
	far := lift("far", orb.Point{12.000, 46.000}, domain.ActivityDownhill)
	store.Put(a)
	store.Put(b)
	store.Put(c)
	store.Put(far)

	vctx := &repository.VisitContext{
		ID:         "ski-area-1",
		Activities: domain.NewActivitySet(domain.ActivityDownhill),
		AlreadyVisited: domain.NewStringSet(a.Key),
	}

	result, err := Visit(context.Background(), store, vctx, a, DefaultBufferKM)
	require.NoError(t, err)

	keys := make([]string, 0, len(result))
	for _, o := range result {
		keys = append(keys, o.Key)
	}
	assert.Contains(t, keys, "a")
	assert.Contains(t, keys, "b")
	assert.Contains(t, keys, "c")
	assert.NotContains(t, keys, "far")
}

func TestVisit_PolygonPhaseDoesNotRecurse(t *testing.T) {
	store := memstore.New()
	poly := orb.Polygon{orb.Ring{
		{9.9, 45.9}, {10.1, 45.9}, {10.1, 46.1}, {9.9, 46.1}, {9.9, 45.9},
	}}
	skiArea := &domain.MapObject{
		Key: "sa", ID: "sa", Type: domain.ObjectTypeSkiArea,
		Geometry: poly, IsPolygon: true,
		Activities: domain.NewActivitySet(domain.ActivityDownhill),
		SkiAreas:   domain.NewStringSet(),
	}
	contained := lift("inside", orb.Point{10.0, 46.0}, domain.ActivityDownhill)
	store.Put(skiArea)
	store.Put(contained)

	vctx := &repository.VisitContext{
		ID:             "sa",
		Activities:     domain.NewActivitySet(domain.ActivityDownhill),
		SearchPolygon:  poly,
		AlreadyVisited: domain.NewStringSet("sa"),
	}

	result, err := Visit(context.Background(), store, vctx, skiArea, DefaultBufferKM)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "sa", result[0].Key)
	assert.Equal(t, "inside", result[1].Key)
}

func TestVisit_ActivitiesNarrowOnlyNeverBroaden(t *testing.T) {
	store := memstore.New()
	a := lift("a", orb.Point{10.000, 46.000}, domain.ActivityDownhill, domain.ActivityNordic)
	b := lift("b", orb.Point{10.004, 46.000}, domain.ActivityDownhill)
	store.Put(a)
	store.Put(b)

	vctx := &repository.VisitContext{
		ID:             "ski-area-1",
		Activities:     domain.NewActivitySet(domain.ActivityDownhill, domain.ActivityNordic),
		AlreadyVisited: domain.NewStringSet(a.Key),
	}

	_, err := Visit(context.Background(), store, vctx, a, DefaultBufferKM)
	require.NoError(t, err)

	// a narrows ctx to {downhill, nordic} ∩ {downhill, nordic} = both; then b
	// narrows it further to {downhill} only — it must never regain nordic.
	assert.True(t, vctx.Activities.Has(domain.ActivityDownhill))
	assert.False(t, vctx.Activities.Has(domain.ActivityNordic))
}
