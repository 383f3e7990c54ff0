package phase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/repository/memstore"
)

func runNear(key string, lon, lat float64, activities ...domain.Activity) *domain.MapObject {
	return &domain.MapObject{
		Key:        key,
		ID:         key,
		Type:       domain.ObjectTypeRun,
		Geometry:   orb.LineString{{lon, lat}, {lon + 0.001, lat + 0.001}},
		Activities: domain.NewActivitySet(activities...),
		SkiAreas:   domain.NewStringSet(),
	}
}

// A run just outside the polygon, but within the buffered search radius,
// is pulled in as a member without widening the ski area's activity set.
func TestP2_PullsInBufferedNeighborOutsidePolygon(t *testing.T) {
	store := memstore.New()
	area := skiAreaPolygon(domain.ActivityDownhill)
	area = store.Put(area)
	near := store.Put(runNear("r-near", 10.0105, 46.0105, domain.ActivityDownhill))

	report, err := RunP2(context.Background(), testDeps(store))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	assert.True(t, near.SkiAreas.Has(area.ID))
}

// A run already claimed by a polygon pass (IsInSkiAreaPolygon=true) must
// not be re-claimed by the buffered pass.
func TestP2_SkipsObjectsAlreadyInSkiAreaPolygon(t *testing.T) {
	store := memstore.New()
	area := skiAreaPolygon(domain.ActivityDownhill)
	area = store.Put(area)

	other := skiAreaPolygon(domain.ActivityDownhill)
	other.ID = uuid.NewString()
	store.Put(other)

	claimed := runNear("r-claimed", 10.0105, 46.0105, domain.ActivityDownhill)
	claimed.IsInSkiAreaPolygon = true
	claimed.SkiAreas = domain.NewStringSet(other.ID)
	store.Put(claimed)

	_, err := RunP2(context.Background(), testDeps(store))
	require.NoError(t, err)

	var got *domain.MapObject
	for _, o := range store.All() {
		if o.Key == claimed.Key {
			got = o
		}
	}
	require.NotNil(t, got)
	assert.False(t, got.SkiAreas.Has(area.ID))
}
