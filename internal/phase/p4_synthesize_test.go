package phase

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/repository/memstore"
)

// Scenario 6 (P4 half): a lone orphan Nordic run with no lift nearby
// synthesizes a generated ski area, IsPolygon=true at synthesis time.
func TestP4_Scenario6_OrphanNordicRunSynthesizesSkiArea(t *testing.T) {
	store := memstore.New()

	run := &domain.MapObject{
		Key: "run-1", ID: "run-1", Type: domain.ObjectTypeRun,
		Geometry:             orb.LineString{{30, 30}, {30.001, 30.001}},
		Activities:           domain.NewActivitySet(domain.ActivityNordic),
		SkiAreas:             domain.NewStringSet(),
		IsBasisForNewSkiArea: true,
	}
	store.Put(run)

	report, err := RunP4(context.Background(), testDeps(store))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Processed)

	var generated *domain.MapObject
	for _, o := range store.All() {
		if o.IsSkiArea() {
			generated = o
		}
	}
	require.NotNil(t, generated)
	assert.True(t, generated.IsPolygon)
	assert.True(t, generated.Activities.Has(domain.ActivityNordic))
	assert.False(t, generated.Activities.Has(domain.ActivityDownhill))
	assert.Equal(t, domain.SourceCrowdsourced, generated.Source)
	assert.False(t, run.IsBasisForNewSkiArea)
	assert.True(t, run.SkiAreas.Has(generated.ID))
}

// Downhill without a reachable lift is demoted, and any member left
// without a surviving activity is dropped from the synthesized cluster.
func TestP4_DownhillWithoutLiftIsDemoted(t *testing.T) {
	store := memstore.New()

	run := &domain.MapObject{
		Key: "run-2", ID: "run-2", Type: domain.ObjectTypeRun,
		Geometry:             orb.LineString{{31, 31}, {31.001, 31.001}},
		Activities:           domain.NewActivitySet(domain.ActivityDownhill),
		SkiAreas:             domain.NewStringSet(),
		IsBasisForNewSkiArea: true,
	}
	store.Put(run)

	report, err := RunP4(context.Background(), testDeps(store))
	require.NoError(t, err)
	// Downhill-only run with no lift anywhere near it: activities empties
	// out entirely once Downhill is dropped, so it stays orphan.
	assert.Equal(t, 0, report.Created)
	assert.False(t, run.IsBasisForNewSkiArea)
}
