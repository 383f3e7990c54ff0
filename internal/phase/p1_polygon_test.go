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

func skiAreaPolygon(activities ...domain.Activity) *domain.MapObject {
	return &domain.MapObject{
		ID:         uuid.NewString(),
		Type:       domain.ObjectTypeSkiArea,
		Source:     domain.SourceCrowdsourced,
		Geometry:   square(10, 46, 10.01, 46.01),
		IsPolygon:  true,
		Activities: domain.NewActivitySet(activities...),
		SkiAreas:   domain.NewStringSet(),
		Properties: &domain.SkiAreaProperties{},
	}
}

func runInside(key string, activities ...domain.Activity) *domain.MapObject {
	return &domain.MapObject{
		Key:        key,
		ID:         key,
		Type:       domain.ObjectTypeRun,
		Geometry:   orb.LineString{{10.002, 46.002}, {10.004, 46.004}},
		Activities: domain.NewActivitySet(activities...),
		SkiAreas:   domain.NewStringSet(),
	}
}

// Scenario 1: single crowdsourced polygon, two runs inside.
func TestP1_Scenario1_TwoRunsInsideAreKept(t *testing.T) {
	store := memstore.New()
	area := skiAreaPolygon(domain.ActivityDownhill)
	area = store.Put(area)
	r1 := store.Put(runInside("r1", domain.ActivityDownhill))
	r2 := store.Put(runInside("r2", domain.ActivityDownhill))

	report, err := RunP1(context.Background(), testDeps(store))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Removed)

	all := store.All()
	require.Len(t, all, 3) // area + r1 + r2, nothing synthesized
	assert.True(t, r1.SkiAreas.Has(area.ID))
	assert.True(t, r2.SkiAreas.Has(area.ID))
	assert.True(t, r1.IsInSkiAreaPolygon)
	assert.True(t, r2.IsInSkiAreaPolygon)
}

// Scenario 2: empty crowdsourced polygon, no members found → removed.
func TestP1_Scenario2_EmptyPolygonRemoved(t *testing.T) {
	store := memstore.New()
	area := skiAreaPolygon(domain.ActivityDownhill)
	store.Put(area)

	report, err := RunP1(context.Background(), testDeps(store))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Empty(t, store.All())
}

// Scenario 3: site-dominated polygon (4 of 5 lifts in a site relation) → removed.
func TestP1_Scenario3_SiteDominatedPolygonRemoved(t *testing.T) {
	store := memstore.New()
	area := skiAreaPolygon(domain.ActivityDownhill)
	store.Put(area)

	for i := 0; i < 5; i++ {
		lift := runInside(uuid.NewString(), domain.ActivityDownhill)
		lift.Type = domain.ObjectTypeLift
		if i < 4 {
			lift.IsInSkiAreaSite = true
		}
		store.Put(lift)
	}

	report, err := RunP1(context.Background(), testDeps(store))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
}
