package merge

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skicluster/engine/internal/domain"
)

func area(key string, source domain.Source, polygon bool, activities ...domain.Activity) *domain.MapObject {
	geom := orb.Geometry(orb.Point{10, 46})
	if polygon {
		geom = orb.Polygon{orb.Ring{{10, 46}, {10.1, 46}, {10.1, 46.1}, {10, 46.1}, {10, 46}}}
	}
	return &domain.MapObject{
		Key: key, ID: key, Type: domain.ObjectTypeSkiArea, Source: source,
		Geometry: geom, IsPolygon: polygon, Activities: domain.NewActivitySet(activities...),
		SkiAreas:   domain.NewStringSet(),
		Properties: &domain.SkiAreaProperties{Sources: []domain.Source{source}},
	}
}

func TestDefaultComposer_PrefersCrowdsourcedSurvivor(t *testing.T) {
	a := area("a", domain.SourceCrowdsourced, false, domain.ActivityDownhill)
	b := area("b", domain.SourceRegistry, false, domain.ActivityNordic)

	merged, ok := DefaultComposer(b, []*domain.MapObject{a})
	require.True(t, ok)
	assert.Equal(t, "a", merged.Key)
	assert.Contains(t, merged.Properties.Sources, domain.SourceCrowdsourced)
	assert.Contains(t, merged.Properties.Sources, domain.SourceRegistry)
	assert.True(t, merged.Activities.Has(domain.ActivityDownhill))
	assert.True(t, merged.Activities.Has(domain.ActivityNordic))
}

func TestDefaultComposer_TieBreaksByEarliestKey(t *testing.T) {
	a := area("zzz", domain.SourceCrowdsourced, false)
	b := area("aaa", domain.SourceCrowdsourced, false)

	merged, ok := DefaultComposer(a, []*domain.MapObject{b})
	require.True(t, ok)
	assert.Equal(t, "aaa", merged.Key)
}

func TestDefaultComposer_PrefersPolygonGeometry(t *testing.T) {
	point := area("point", domain.SourceCrowdsourced, false)
	polygon := area("poly", domain.SourceRegistry, true)

	merged, ok := DefaultComposer(point, []*domain.MapObject{polygon})
	require.True(t, ok)
	assert.True(t, merged.IsPolygon)
	_, isPoly := merged.Geometry.(orb.Polygon)
	assert.True(t, isPoly)
}

// Merge associativity: composing (A,B) then with C reaches the same
// union of sources/activities and the same surviving key as composing
// (B,C) then with A, regardless of grouping order.
func TestDefaultComposer_AssociativeAcrossGroupings(t *testing.T) {
	a := area("aaa-crowd", domain.SourceCrowdsourced, false, domain.ActivityDownhill)
	b := area("bbb-reg", domain.SourceRegistry, false, domain.ActivityNordic)
	c := area("ccc-gen", domain.SourceGenerated, true, domain.ActivitySnowboard)

	leftFirst, ok := DefaultComposer(a, []*domain.MapObject{b})
	require.True(t, ok)
	leftThenC, ok := DefaultComposer(leftFirst, []*domain.MapObject{c})
	require.True(t, ok)

	rightFirst, ok := DefaultComposer(b, []*domain.MapObject{c})
	require.True(t, ok)
	aThenRight, ok := DefaultComposer(a, []*domain.MapObject{rightFirst})
	require.True(t, ok)

	assert.Equal(t, leftThenC.Key, aThenRight.Key)
	assert.ElementsMatch(t, leftThenC.Properties.Sources, aThenRight.Properties.Sources)
	assert.ElementsMatch(t, leftThenC.Activities.Slice(), aThenRight.Activities.Slice())
	assert.Equal(t, leftThenC.IsPolygon, aThenRight.IsPolygon)
}
