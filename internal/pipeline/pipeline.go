// Package pipeline sequences the six clustering phase drivers into one
// end-to-end run over a ClusterStore.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/phase"
)

// Report aggregates every phase's PhaseReport for one pipeline run.
type Report struct {
	P0, P1, P2, P3, P4, P5 phase.PhaseReport
}

// Pipeline runs P0 through P5, in order, against a single Deps.
type Pipeline struct {
	Deps phase.Deps
}

// New builds a Pipeline over the given dependencies.
func New(deps phase.Deps) *Pipeline {
	return &Pipeline{Deps: deps}
}

type step struct {
	name string
	run  func(context.Context, phase.Deps) (phase.PhaseReport, error)
	dst  func(*Report) *phase.PhaseReport
}

var steps = []step{
	{"p0_dedup", phase.RunP0, func(r *Report) *phase.PhaseReport { return &r.P0 }},
	{"p1_polygon", phase.RunP1, func(r *Report) *phase.PhaseReport { return &r.P1 }},
	{"p2_buffered", phase.RunP2, func(r *Report) *phase.PhaseReport { return &r.P2 }},
	{"p3_registry", phase.RunP3, func(r *Report) *phase.PhaseReport { return &r.P3 }},
	{"p4_synthesize", phase.RunP4, func(r *Report) *phase.PhaseReport { return &r.P4 }},
	{"p5_augment", phase.RunP5, func(r *Report) *phase.PhaseReport { return &r.P5 }},
}

// Run executes every phase in order, stopping at the first error. A
// phase failure leaves the store exactly as the failing phase left it;
// Run never rolls back earlier phases.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var report Report

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("pipeline: %s: %w", s.name, err)
		}

		r, err := s.run(ctx, p.Deps)
		if err != nil {
			return report, fmt.Errorf("pipeline: %s: %w", s.name, err)
		}
		*s.dst(&report) = r

		if p.Deps.Logger != nil {
			p.Deps.Logger.Info("pipeline: phase complete",
				zap.String("phase", s.name),
				zap.Int("processed", r.Processed),
				zap.Int("removed", r.Removed),
				zap.Int("merged", r.Merged),
				zap.Int("created", r.Created),
			)
		}
	}

	return report, nil
}
