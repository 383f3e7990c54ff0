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

// Scenario 6 (P5 half): the generated ski area is re-shaped to a point
// centroid with isPolygon=false after augmentation.
func TestP5_Scenario6_ReshapesGeneratedAreaToCentroid(t *testing.T) {
	store := memstore.New()

	areaID := uuid.NewString()
	area := &domain.MapObject{
		ID: areaID, Key: "sa-1", Type: domain.ObjectTypeSkiArea, Source: domain.SourceCrowdsourced,
		Geometry: square(10, 10, 10.01, 10.01), IsPolygon: true,
		Activities: domain.NewActivitySet(domain.ActivityNordic),
		SkiAreas:   domain.NewStringSet(),
		Properties: &domain.SkiAreaProperties{Generated: true, Sources: []domain.Source{domain.SourceCrowdsourced}},
	}
	store.Put(area)

	run := &domain.MapObject{
		Key: "run-1", ID: "run-1", Type: domain.ObjectTypeRun,
		Geometry: orb.LineString{{10.002, 10.002}, {10.004, 10.004}},
		Activities: domain.NewActivitySet(domain.ActivityNordic),
		SkiAreas:   domain.NewStringSet(areaID),
	}
	store.Put(run)

	report, err := RunP5(context.Background(), testDeps(store))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Removed)

	saved := store.All()
	var reshaped *domain.MapObject
	for _, o := range saved {
		if o.Key == "sa-1" {
			reshaped = o
		}
	}
	require.NotNil(t, reshaped)
	assert.False(t, reshaped.IsPolygon)
	_, isPoint := reshaped.Geometry.(orb.Point)
	assert.True(t, isPoint, "geometry re-centred to a point centroid")
	assert.NotNil(t, reshaped.Properties.Statistics)
	assert.Equal(t, 1, reshaped.Properties.Statistics.RunCount)
}

// A ski area with no members and no registry provenance is dropped.
func TestP5_RemovesOrphanNonRegistryArea(t *testing.T) {
	store := memstore.New()
	area := &domain.MapObject{
		ID: uuid.NewString(), Key: "sa-2", Type: domain.ObjectTypeSkiArea, Source: domain.SourceCrowdsourced,
		Geometry: orb.Point{5, 5}, Activities: domain.NewActivitySet(domain.ActivityDownhill),
		SkiAreas:   domain.NewStringSet(),
		Properties: &domain.SkiAreaProperties{Sources: []domain.Source{domain.SourceCrowdsourced}},
	}
	store.Put(area)

	report, err := RunP5(context.Background(), testDeps(store))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Empty(t, store.All())
}

// A registry-sourced ski area is kept even with no members.
func TestP5_KeepsOrphanRegistryArea(t *testing.T) {
	store := memstore.New()
	area := &domain.MapObject{
		ID: uuid.NewString(), Key: "sa-3", Type: domain.ObjectTypeSkiArea, Source: domain.SourceRegistry,
		Geometry: orb.Point{5, 5}, Activities: domain.NewActivitySet(domain.ActivityDownhill),
		SkiAreas:   domain.NewStringSet(),
		Properties: &domain.SkiAreaProperties{Sources: []domain.Source{domain.SourceRegistry}},
	}
	store.Put(area)

	report, err := RunP5(context.Background(), testDeps(store))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Removed)
	assert.Len(t, store.All(), 1)
}
