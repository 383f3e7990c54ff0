// Package phase holds the six ordered phase drivers (P0 through P5) that
// make up the clustering pipeline. Each file owns one phase and exports a
// single Run function; internal/pipeline sequences them.
package phase

import (
	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/domain/repository"
	"github.com/skicluster/engine/internal/merge"
)

// Deps bundles every external collaborator a phase driver needs. It is
// passed by value (cheap: all fields are interfaces, a pointer or a
// float) so each phase can be tested with a fresh fake store without
// touching global state.
type Deps struct {
	Store         repository.ClusterStore
	Geocoder      repository.Geocoder
	StatsComputer repository.StatsComputer
	Logger        *zap.Logger
	Composer      merge.Composer

	PolygonBufferKM  float64
	MergeBufferKM    float64
	SiteRemovalRatio float64
	BatchSize        int
}

// batchConcurrency bounds how many ski areas a phase processes at once.
// It mirrors the store's own batch size so a phase pass never runs more
// concurrent traversals than the store would have handed back in one
// cursor page.
func batchConcurrency(deps Deps) int {
	if deps.BatchSize > 0 {
		return deps.BatchSize
	}
	return 50
}

// PhaseReport is the ambient per-phase counter summary the pipeline logs
// after each phase completes; it has no effect on phase behavior.
type PhaseReport struct {
	Processed int
	Removed   int
	Merged    int
	Created   int
}
