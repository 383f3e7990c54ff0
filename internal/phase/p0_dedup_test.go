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

// Scenario 4: a crowdsourced polygon enclosing two registry point ski
// areas is an ambiguous shared-ticketing super-relation and is removed.
func TestP0_Scenario4_AmbiguousSuperRelationRemoved(t *testing.T) {
	store := memstore.New()

	super := &domain.MapObject{
		ID:         uuid.NewString(),
		Type:       domain.ObjectTypeSkiArea,
		Source:     domain.SourceCrowdsourced,
		Geometry:   square(10.0, 46.0, 10.4, 46.2),
		IsPolygon:  true,
		Activities: domain.NewActivitySet(domain.ActivityDownhill),
		SkiAreas:   domain.NewStringSet(),
	}
	store.Put(super)

	reg1 := &domain.MapObject{
		ID: uuid.NewString(), Type: domain.ObjectTypeSkiArea, Source: domain.SourceRegistry,
		Geometry: orb.Point{10.1, 46.1}, Activities: domain.NewActivitySet(domain.ActivityDownhill),
		SkiAreas: domain.NewStringSet(),
	}
	reg2 := &domain.MapObject{
		ID: uuid.NewString(), Type: domain.ObjectTypeSkiArea, Source: domain.SourceRegistry,
		Geometry: orb.Point{10.3, 46.1}, Activities: domain.NewActivitySet(domain.ActivityDownhill),
		SkiAreas: domain.NewStringSet(),
	}
	store.Put(reg1)
	store.Put(reg2)

	report, err := RunP0(context.Background(), testDeps(store))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)

	remaining := store.All()
	require.Len(t, remaining, 2)
	for _, o := range remaining {
		assert.NotEqual(t, super.Key, o.Key)
	}
}

func TestP0_SinglyContainedPolygonSurvives(t *testing.T) {
	store := memstore.New()

	area := &domain.MapObject{
		ID:         uuid.NewString(),
		Type:       domain.ObjectTypeSkiArea,
		Source:     domain.SourceCrowdsourced,
		Geometry:   square(10.0, 46.0, 10.4, 46.2),
		IsPolygon:  true,
		Activities: domain.NewActivitySet(domain.ActivityDownhill),
		SkiAreas:   domain.NewStringSet(),
	}
	store.Put(area)

	reg := &domain.MapObject{
		ID: uuid.NewString(), Type: domain.ObjectTypeSkiArea, Source: domain.SourceRegistry,
		Geometry: orb.Point{10.1, 46.1}, Activities: domain.NewActivitySet(domain.ActivityDownhill),
		SkiAreas: domain.NewStringSet(),
	}
	store.Put(reg)

	report, err := RunP0(context.Background(), testDeps(store))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Removed)
	assert.Len(t, store.All(), 2)
}
