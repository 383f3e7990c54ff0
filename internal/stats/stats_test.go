package stats

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skicluster/engine/internal/domain"
)

func TestBasicStatsComputer_CountsAndSumsRunLength(t *testing.T) {
	lift := &domain.MapObject{Key: "lift-1", Type: domain.ObjectTypeLift}
	runA := &domain.MapObject{Key: "run-1", Type: domain.ObjectTypeRun, Geometry: orb.LineString{{0, 0}, {0, 1}}}
	runB := &domain.MapObject{Key: "run-2", Type: domain.ObjectTypeRun, Geometry: orb.LineString{{0, 0}, {1, 0}}}

	out, err := BasicStatsComputer{}.Compute([]*domain.MapObject{lift, runA, runB})
	require.NoError(t, err)

	assert.Equal(t, 1, out.LiftCount)
	assert.Equal(t, 2, out.RunCount)
	assert.InDelta(t, 2*kmPerDegree, out.RunLengthKm, 0.001)
}

func TestBasicStatsComputer_IgnoresNonLineStringRunGeometry(t *testing.T) {
	run := &domain.MapObject{Key: "run-1", Type: domain.ObjectTypeRun, Geometry: orb.Point{0, 0}}

	out, err := BasicStatsComputer{}.Compute([]*domain.MapObject{run})
	require.NoError(t, err)

	assert.Equal(t, 1, out.RunCount)
	assert.Equal(t, 0.0, out.RunLengthKm)
}

func TestBasicStatsComputer_EmptyMembersReturnsZeroValue(t *testing.T) {
	out, err := BasicStatsComputer{}.Compute(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Statistics{}, out)
}
