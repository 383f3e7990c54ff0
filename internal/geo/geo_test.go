package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/skicluster/engine/internal/domain"
)

func TestBuffer_Degenerate(t *testing.T) {
	_, ok := Buffer(orb.LineString{}, 0.5)
	assert.False(t, ok)

	_, ok = Buffer(nil, 0.5)
	assert.False(t, ok)
}

func TestBuffer_ExpandsBound(t *testing.T) {
	line := orb.LineString{{10, 46}, {10.01, 46.01}}
	buffered, ok := Buffer(line, 0.5)
	assert.True(t, ok)

	poly, ok := buffered.(orb.Polygon)
	assert.True(t, ok)
	assert.Len(t, poly, 1)

	b := poly.Bound()
	inner := line.Bound()
	assert.Less(t, b.Min[0], inner.Min[0])
	assert.Less(t, b.Min[1], inner.Min[1])
	assert.Greater(t, b.Max[0], inner.Max[0])
	assert.Greater(t, b.Max[1], inner.Max[1])
}

func TestCentroid_Heterogeneous(t *testing.T) {
	geoms := []orb.Geometry{
		orb.Point{10, 46},
		orb.LineString{{10, 46}, {12, 48}},
	}
	c, ok := Centroid(geoms)
	assert.True(t, ok)
	assert.InDelta(t, 10.666, c[0], 0.01)
	assert.InDelta(t, 46.666, c[1], 0.01)
}

func TestCentroid_Empty(t *testing.T) {
	_, ok := Centroid(nil)
	assert.False(t, ok)
}

func TestRunConvention(t *testing.T) {
	assert.Equal(t, domain.RunConventionEuropean, RunConvention(orb.Point{10, 46}))
	assert.Equal(t, domain.RunConventionNorthAmerican, RunConvention(orb.Point{-106, 39}))
	assert.Equal(t, domain.RunConventionJapanese, RunConvention(orb.Point{138, 36}))
	assert.Equal(t, domain.RunConventionUnknown, RunConvention(orb.Point{0, 0}))
}
