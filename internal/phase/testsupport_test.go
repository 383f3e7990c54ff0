package phase

import (
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
)

// fakeStats is a minimal StatsComputer double — the real computation
// lives in internal/stats and is exercised by its own tests.
type fakeStats struct{}

func (fakeStats) Compute(members []*domain.MapObject) (domain.Statistics, error) {
	var lifts, runs int
	for _, m := range members {
		if m.IsLift() {
			lifts++
		}
		if m.IsRun() {
			runs++
		}
	}
	return domain.Statistics{LiftCount: lifts, RunCount: runs}, nil
}

func testDeps(store repository.ClusterStore) Deps {
	logger, _ := zap.NewDevelopment()
	return Deps{
		Store:            store,
		Logger:           logger,
		StatsComputer:    fakeStats{},
		PolygonBufferKM:  0.5,
		MergeBufferKM:    0.25,
		SiteRemovalRatio: 0.5,
		BatchSize:        50,
	}
}

func square(minLon, minLat, maxLon, maxLat float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}
}
