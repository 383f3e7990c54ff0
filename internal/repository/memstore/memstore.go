// Package memstore is an in-process ClusterStore used by phase and
// pipeline tests to exercise real traversal/merge logic against small,
// deterministic scenarios instead of mocked call sequences, the way the
// teacher's usecase tests run against in-memory repository fakes rather
// than a live database.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
	"github.com/skicluster/engine/internal/geo"
)

// Store is a mutex-guarded map of MapObjects keyed by Key, satisfying
// repository.ClusterStore. It is not meant for production traffic: its
// spatial predicates are bounding-box/vertex approximations, not real
// GIS operators (those live in the postgis adapter).
type Store struct {
	mu      sync.Mutex
	objects map[string]*domain.MapObject
}

func New() *Store {
	return &Store{objects: make(map[string]*domain.MapObject)}
}

// Put inserts or replaces an object, assigning a Key if empty.
func (s *Store) Put(o *domain.MapObject) *domain.MapObject {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Key == "" {
		o.Key = uuid.NewString()
	}
	s.objects[o.Key] = o
	return o
}

// All returns every object currently stored, sorted by Key for
// deterministic test assertions.
func (s *Store) All() []*domain.MapObject {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.MapObject, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *Store) SkiAreas(ctx context.Context, filter repository.SkiAreaFilter) (repository.SkiAreaCursor, error) {
	s.mu.Lock()
	var matched []*domain.MapObject
	for _, o := range s.objects {
		if !o.IsSkiArea() {
			continue
		}
		if filter.Source != nil && o.Source != *filter.Source {
			continue
		}
		if filter.OnlyPolygons && !o.IsPolygon {
			continue
		}
		if filter.WithinPolygon != nil {
			poly, ok := filter.WithinPolygon.(orb.Polygon)
			if !ok || !anyVertexContained(poly, o.Geometry) {
				continue
			}
		}
		matched = append(matched, o)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Key < matched[j].Key })
	return &sliceCursor{items: matched}, nil
}

func (s *Store) SkiAreasByID(ctx context.Context, ids []string) (repository.SkiAreaCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := domain.NewStringSet(ids...)
	var matched []*domain.MapObject
	for _, o := range s.objects {
		if o.IsSkiArea() && want.Has(o.ID) {
			matched = append(matched, o)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Key < matched[j].Key })
	return &sliceCursor{items: matched}, nil
}

func (s *Store) Nearby(ctx context.Context, area orb.Geometry, predicate repository.SpatialPredicate, vctx *repository.VisitContext) ([]*domain.MapObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.MapObject
	for _, o := range s.objects {
		if vctx.AlreadyVisited.Has(o.Key) {
			continue
		}
		if o.SkiAreas.Has(vctx.ID) {
			continue
		}
		if vctx.ExcludeObjectsAlreadyInSkiAreaPolygon && o.IsInSkiAreaPolygon {
			continue
		}
		if !o.Activities.IntersectsAny(vctx.Activities) {
			continue
		}

		switch predicate {
		case repository.PredicateContains:
			poly, ok := area.(orb.Polygon)
			if !ok || !allVerticesContained(poly, o.Geometry) {
				continue
			}
		default: // PredicateIntersects
			if !geometriesIntersect(area, o.Geometry) {
				continue
			}
		}

		out = append(out, o)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) MarkSkiArea(ctx context.Context, id string, isInPolygon bool, objects []*domain.MapObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range objects {
		stored, ok := s.objects[o.Key]
		if !ok {
			continue
		}
		stored.SkiAreas.Add(id)
		stored.IsBasisForNewSkiArea = false
		stored.IsInSkiAreaPolygon = stored.IsInSkiAreaPolygon || isInPolygon
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *Store) RemoveBatch(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.objects, k)
	}
	return nil
}

func (s *Store) RewriteSkiAreaRefs(ctx context.Context, oldIDs []string, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := domain.NewStringSet(oldIDs...)
	for _, o := range s.objects {
		rewrote := false
		for _, id := range o.SkiAreas.Slice() {
			if old.Has(id) {
				o.SkiAreas.Remove(id)
				rewrote = true
			}
		}
		if rewrote {
			o.SkiAreas.Add(newID)
		}
	}
	return nil
}

func (s *Store) NextUnassignedRun(ctx context.Context) (*domain.MapObject, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k, o := range s.objects {
		if o.IsRun() && o.IsBasisForNewSkiArea {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false, nil
	}
	sort.Strings(keys)
	return s.objects[keys[0]], true, nil
}

func (s *Store) ClearBasisForNewSkiArea(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[key]; ok {
		o.IsBasisForNewSkiArea = false
	}
	return nil
}

func (s *Store) PersistGeneratedSkiArea(ctx context.Context, area *domain.MapObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if area.Key == "" {
		area.Key = uuid.NewString()
	}
	if area.ID == "" {
		area.ID = uuid.NewString()
	}
	s.objects[area.Key] = area
	return nil
}

func (s *Store) SaveSkiArea(ctx context.Context, area *domain.MapObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[area.Key] = area
	return nil
}

func (s *Store) MembersOf(ctx context.Context, id string) ([]*domain.MapObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.MapObject
	for _, o := range s.objects {
		if !o.IsSkiArea() && o.SkiAreas.Has(id) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type sliceCursor struct {
	items []*domain.MapObject
	pos   int
}

func (c *sliceCursor) Next(ctx context.Context) (*domain.MapObject, bool, error) {
	if c.pos >= len(c.items) {
		return nil, false, nil
	}
	o := c.items[c.pos]
	c.pos++
	return o, true, nil
}

func (c *sliceCursor) Close() error { return nil }

func allVerticesContained(poly orb.Polygon, g orb.Geometry) bool {
	verts := geo.Vertices(g)
	if len(verts) == 0 {
		return false
	}
	for _, v := range verts {
		if !planar.PolygonContains(poly, v) {
			return false
		}
	}
	return true
}

func anyVertexContained(poly orb.Polygon, g orb.Geometry) bool {
	for _, v := range geo.Vertices(g) {
		if planar.PolygonContains(poly, v) {
			return true
		}
	}
	return false
}

func geometriesIntersect(area, candidate orb.Geometry) bool {
	if !area.Bound().Intersects(candidate.Bound()) {
		return false
	}
	poly, ok := area.(orb.Polygon)
	if !ok {
		return true
	}
	for _, v := range geo.Vertices(candidate) {
		if planar.PolygonContains(poly, v) {
			return true
		}
	}
	// Candidate's bound overlaps the polygon's bound but no vertex falls
	// inside (e.g. a line merely clipping a corner) — bound overlap is
	// treated as intersecting in this approximation.
	return true
}
