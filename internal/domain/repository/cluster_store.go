package repository

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/skicluster/engine/internal/domain"
)

// SpatialPredicate selects how Nearby matches a candidate's geometry
// against the search area.
type SpatialPredicate string

const (
	PredicateIntersects SpatialPredicate = "intersects"
	PredicateContains   SpatialPredicate = "contains"
)

// SkiAreaFilter narrows a SkiAreas query. A nil/zero field means
// unfiltered on that dimension.
type SkiAreaFilter struct {
	Source        *domain.Source
	OnlyPolygons  bool
	WithinPolygon orb.Geometry
}

// SkiAreaCursor iterates over a ski-area query result. The postgis and
// memstore implementations load the whole result before the first Next;
// neither pages.
type SkiAreaCursor interface {
	Next(ctx context.Context) (*domain.MapObject, bool, error)
	Close() error
}

// ClusterStore is the narrow geospatial interface the clustering pipeline
// is built against; it never sees raw query language. Implementations
// must honor the three recoverable "invalid polygon" error strings by
// returning an empty result instead of an error.
type ClusterStore interface {
	// SkiAreas pages over ski areas matching filter.
	SkiAreas(ctx context.Context, filter SkiAreaFilter) (SkiAreaCursor, error)

	// SkiAreasByID resolves a set of ski-area ids, skipping any that no
	// longer exist.
	SkiAreasByID(ctx context.Context, ids []string) (SkiAreaCursor, error)

	// Nearby returns objects whose geometry satisfies predicate against
	// area, excluding vctx.AlreadyVisited, excluding objects already
	// claiming vctx.ID, optionally excluding objects with
	// IsInSkiAreaPolygon=true, and requiring at least one activity in
	// vctx.Activities.
	Nearby(ctx context.Context, area orb.Geometry, predicate SpatialPredicate, vctx *VisitContext) ([]*domain.MapObject, error)

	// MarkSkiArea appends id to every object's SkiAreas, clears
	// IsBasisForNewSkiArea, and ORs IsInSkiAreaPolygon with isInPolygon,
	// atomically per batch.
	MarkSkiArea(ctx context.Context, id string, isInPolygon bool, objects []*domain.MapObject) error

	// Remove deletes a single object by key.
	Remove(ctx context.Context, key string) error

	// RemoveBatch deletes several objects atomically.
	RemoveBatch(ctx context.Context, keys []string) error

	// RewriteSkiAreaRefs rewrites every object referencing any of oldIDs
	// in SkiAreas to instead reference newID uniquely. Runs under the
	// store's exclusive-lock option to serialize with concurrent markings.
	RewriteSkiAreaRefs(ctx context.Context, oldIDs []string, newID string) error

	// NextUnassignedRun returns one run with IsBasisForNewSkiArea=true,
	// or ok=false when none remain.
	NextUnassignedRun(ctx context.Context) (obj *domain.MapObject, ok bool, err error)

	// ClearBasisForNewSkiArea marks a run as no longer a synthesis
	// candidate without folding it into a ski area — used when P4 leaves
	// a run permanently orphan (empty activities/members, or a failed
	// synthesis attempt) so NextUnassignedRun does not hand it back.
	ClearBasisForNewSkiArea(ctx context.Context, key string) error

	// PersistGeneratedSkiArea inserts a freshly synthesized ski area
	// (P4) and returns once it is queryable by later phases.
	PersistGeneratedSkiArea(ctx context.Context, area *domain.MapObject) error

	// SaveSkiArea persists mutated ski-area fields (used by merge and P5).
	SaveSkiArea(ctx context.Context, area *domain.MapObject) error

	// MembersOf returns the lifts/runs referencing id in their SkiAreas,
	// excluding other ski areas (used by P5 augmentation).
	MembersOf(ctx context.Context, id string) ([]*domain.MapObject, error)
}

// VisitContext is the traversal's per-ski-area state, threaded through
// visitObject/visitPolygon and consumed by Nearby.
type VisitContext struct {
	ID                                     string
	Activities                             domain.ActivitySet
	SearchPolygon                          orb.Geometry // non-nil only in the polygon phases
	ExcludeObjectsAlreadyInSkiAreaPolygon  bool
	AlreadyVisited                         domain.StringSet
}
