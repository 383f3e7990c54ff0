package postgis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/geojson"
	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
)

const (
	defaultBatchSize      = 50
	defaultTraversalTTL   = 120 * time.Second
	defaultEnumerationTTL = 3600 * time.Second
)

// Store is the PostGIS-backed repository.ClusterStore.
type Store struct {
	db        *sqlx.DB
	logger    *zap.Logger
	batchSize int

	// traversalTTL bounds Nearby (the per-hop flood-fill query);
	// enumerationTTL bounds SkiAreas/SkiAreasByID (the cursor queries
	// that can scan the whole table).
	traversalTTL   time.Duration
	enumerationTTL time.Duration
}

var _ repository.ClusterStore = (*Store)(nil)

// NewStore builds a Store over an open connection pool. batchSize is kept
// on the Store (0 falls back to 50) but no query reads it: SkiAreas and
// SkiAreasByID fetch their whole result in one query, without paging.
func NewStore(db *DB, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Store{
		db:             db.DB,
		logger:         db.logger,
		batchSize:      batchSize,
		traversalTTL:   defaultTraversalTTL,
		enumerationTTL: defaultEnumerationTTL,
	}
}

// WithTTLs overrides the default per-query timeouts (internal/config's
// ClusterConfig.TraversalTTL/EnumerationTTL).
func (s *Store) WithTTLs(traversal, enumeration time.Duration) *Store {
	if traversal > 0 {
		s.traversalTTL = traversal
	}
	if enumeration > 0 {
		s.enumerationTTL = enumeration
	}
	return s
}

// row mirrors one map_objects record for sqlx scanning.
type row struct {
	Key                  string         `db:"key"`
	ID                   string         `db:"id"`
	Type                 string         `db:"type"`
	Source               string         `db:"source"`
	GeometryGeoJSON      sql.NullString `db:"geometry_json"`
	Activities           pq.StringArray `db:"activities"`
	SkiAreas             pq.StringArray `db:"ski_areas"`
	IsInSkiAreaPolygon   bool           `db:"is_in_ski_area_polygon"`
	IsBasisForNewSkiArea bool           `db:"is_basis_for_new_ski_area"`
	IsInSkiAreaSite      bool           `db:"is_in_ski_area_site"`
	IsPolygon            bool           `db:"is_polygon"`
	Properties           []byte         `db:"properties"`
}

func (r row) toMapObject() (*domain.MapObject, error) {
	activities := make([]domain.Activity, len(r.Activities))
	for i, a := range r.Activities {
		activities[i] = domain.Activity(a)
	}

	obj := &domain.MapObject{
		Key:                  r.Key,
		ID:                   r.ID,
		Type:                 domain.ObjectType(r.Type),
		Source:               domain.Source(r.Source),
		Activities:           domain.NewActivitySet(activities...),
		SkiAreas:             domain.NewStringSet([]string(r.SkiAreas)...),
		IsInSkiAreaPolygon:   r.IsInSkiAreaPolygon,
		IsBasisForNewSkiArea: r.IsBasisForNewSkiArea,
		IsInSkiAreaSite:      r.IsInSkiAreaSite,
		IsPolygon:            r.IsPolygon,
	}

	if r.GeometryGeoJSON.Valid && r.GeometryGeoJSON.String != "" {
		g, err := decodeGeometry([]byte(r.GeometryGeoJSON.String))
		if err != nil {
			return nil, fmt.Errorf("decode geometry for %s: %w", r.Key, err)
		}
		obj.Geometry = g
	}

	if len(r.Properties) > 0 {
		var props domain.SkiAreaProperties
		if err := json.Unmarshal(r.Properties, &props); err != nil {
			return nil, fmt.Errorf("decode properties for %s: %w", r.Key, err)
		}
		obj.Properties = &props
	}

	return obj, nil
}

func encodeGeometry(g orb.Geometry) (string, error) {
	if g == nil {
		return "", nil
	}
	raw, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeGeometry(raw []byte) (orb.Geometry, error) {
	parsed, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, err
	}
	return parsed.Coordinates, nil
}

func activityStrings(s domain.ActivitySet) []string {
	slice := s.Slice()
	out := make([]string, len(slice))
	for i, a := range slice {
		out[i] = string(a)
	}
	return out
}

func encodeProperties(p *domain.SkiAreaProperties) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// sliceCursor adapts an in-memory slice (already fully fetched by one
// unpaged query) to the SkiAreaCursor contract.
type sliceCursor struct {
	items []*domain.MapObject
	pos   int
}

func (c *sliceCursor) Next(ctx context.Context) (*domain.MapObject, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	if c.pos >= len(c.items) {
		return nil, false, nil
	}
	item := c.items[c.pos]
	c.pos++
	return item, true, nil
}

func (c *sliceCursor) Close() error { return nil }

func (s *Store) SkiAreas(ctx context.Context, filter repository.SkiAreaFilter) (repository.SkiAreaCursor, error) {
	query := `
		SELECT key, id, type, source, ST_AsGeoJSON(geometry) AS geometry_json,
		       activities, ski_areas, is_in_ski_area_polygon,
		       is_basis_for_new_ski_area, is_in_ski_area_site, is_polygon, properties
		FROM map_objects
		WHERE type = 'ski_area'
	`
	args := []interface{}{}
	argIndex := 1

	if filter.Source != nil {
		query += fmt.Sprintf(" AND source = $%d", argIndex)
		args = append(args, string(*filter.Source))
		argIndex++
	}
	if filter.OnlyPolygons {
		query += " AND is_polygon = true"
	}
	if filter.WithinPolygon != nil {
		geomJSON, err := encodeGeometry(filter.WithinPolygon)
		if err != nil {
			return nil, fmt.Errorf("postgis: encode filter geometry: %w", err)
		}
		query += fmt.Sprintf(" AND ST_Contains(ST_GeomFromGeoJSON($%d), geometry)", argIndex)
		args = append(args, geomJSON)
		argIndex++
	}
	query += " ORDER BY key"

	return s.fetchAll(ctx, query, args...)
}

func (s *Store) SkiAreasByID(ctx context.Context, ids []string) (repository.SkiAreaCursor, error) {
	if len(ids) == 0 {
		return &sliceCursor{}, nil
	}
	query := `
		SELECT key, id, type, source, ST_AsGeoJSON(geometry) AS geometry_json,
		       activities, ski_areas, is_in_ski_area_polygon,
		       is_basis_for_new_ski_area, is_in_ski_area_site, is_polygon, properties
		FROM map_objects
		WHERE type = 'ski_area' AND id = ANY($1)
		ORDER BY key
	`
	return s.fetchAll(ctx, query, pq.Array(ids))
}

func (s *Store) fetchAll(ctx context.Context, query string, args ...interface{}) (repository.SkiAreaCursor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.enumerationTTL)
	defer cancel()

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		if isRecoverableGeometryError(err) {
			s.logger.Warn("postgis: recovered invalid geometry in query", zap.Error(err))
			return &sliceCursor{}, nil
		}
		return nil, fmt.Errorf("postgis: query ski areas: %w", err)
	}

	items := make([]*domain.MapObject, 0, len(rows))
	for _, r := range rows {
		obj, err := r.toMapObject()
		if err != nil {
			return nil, err
		}
		items = append(items, obj)
	}
	return &sliceCursor{items: items}, nil
}

func (s *Store) Nearby(ctx context.Context, area orb.Geometry, predicate repository.SpatialPredicate, vctx *repository.VisitContext) ([]*domain.MapObject, error) {
	ctx, cancel := context.WithTimeout(ctx, s.traversalTTL)
	defer cancel()

	geomJSON, err := encodeGeometry(area)
	if err != nil {
		return nil, fmt.Errorf("postgis: encode search area: %w", err)
	}

	spatialFn := "ST_Intersects"
	if predicate == repository.PredicateContains {
		spatialFn = "ST_Contains"
	}

	activitySet := vctx.Activities.Slice()
	if len(activitySet) == 0 {
		return nil, nil
	}
	activities := make([]string, len(activitySet))
	for i, a := range activitySet {
		activities[i] = string(a)
	}

	visited := vctx.AlreadyVisited.Slice()
	if len(visited) == 0 {
		visited = []string{""}
	}

	query := fmt.Sprintf(`
		SELECT key, id, type, source, ST_AsGeoJSON(geometry) AS geometry_json,
		       activities, ski_areas, is_in_ski_area_polygon,
		       is_basis_for_new_ski_area, is_in_ski_area_site, is_polygon, properties
		FROM map_objects
		WHERE %s(geometry, ST_GeomFromGeoJSON($1))
		  AND NOT (key = ANY($2))
		  AND NOT ($3 = ANY(ski_areas))
		  AND activities && $4
	`, spatialFn)
	args := []interface{}{geomJSON, pq.Array(visited), vctx.ID, pq.Array(activities)}

	if vctx.ExcludeObjectsAlreadyInSkiAreaPolygon {
		query += " AND is_in_ski_area_polygon = false"
	}

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		if isRecoverableGeometryError(err) {
			s.logger.Warn("postgis: recovered invalid geometry in nearby query",
				zap.Error(err), zap.String("geometry", geomJSON))
			return nil, nil
		}
		return nil, fmt.Errorf("postgis: nearby query: %w", err)
	}

	out := make([]*domain.MapObject, 0, len(rows))
	for _, r := range rows {
		obj, err := r.toMapObject()
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (s *Store) MarkSkiArea(ctx context.Context, id string, isInPolygon bool, objects []*domain.MapObject) error {
	if len(objects) == 0 {
		return nil
	}
	keys := make([]string, len(objects))
	for i, o := range objects {
		keys[i] = o.Key
	}

	query := `
		UPDATE map_objects
		SET ski_areas = (
		      SELECT array_agg(DISTINCT x) FROM unnest(ski_areas || ARRAY[$1::text]) x
		    ),
		    is_basis_for_new_ski_area = false,
		    is_in_ski_area_polygon = is_in_ski_area_polygon OR $2,
		    updated_at = now()
		WHERE key = ANY($3)
	`
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), id, isInPolygon, pq.Array(keys)); err != nil {
		return fmt.Errorf("postgis: mark ski area %s: %w", id, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM map_objects WHERE key = $1`), key); err != nil {
		return fmt.Errorf("postgis: remove %s: %w", key, err)
	}
	return nil
}

func (s *Store) RemoveBatch(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM map_objects WHERE key = ANY($1)`), pq.Array(keys)); err != nil {
		return fmt.Errorf("postgis: remove batch: %w", err)
	}
	return nil
}

func (s *Store) RewriteSkiAreaRefs(ctx context.Context, oldIDs []string, newID string) error {
	if len(oldIDs) == 0 {
		return nil
	}
	query := `
		UPDATE map_objects
		SET ski_areas = array_append(
		      (SELECT COALESCE(array_agg(x), ARRAY[]::text[]) FROM unnest(ski_areas) x WHERE x <> ALL($1) AND x <> $2),
		      $2
		    ),
		    updated_at = now()
		WHERE ski_areas && $1
	`
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgis: rewrite ski area refs onto %s: begin: %w", newID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE map_objects IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("postgis: rewrite ski area refs onto %s: lock: %w", newID, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), pq.Array(oldIDs), newID); err != nil {
		return fmt.Errorf("postgis: rewrite ski area refs onto %s: %w", newID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgis: rewrite ski area refs onto %s: commit: %w", newID, err)
	}
	return nil
}

func (s *Store) NextUnassignedRun(ctx context.Context) (*domain.MapObject, bool, error) {
	query := `
		SELECT key, id, type, source, ST_AsGeoJSON(geometry) AS geometry_json,
		       activities, ski_areas, is_in_ski_area_polygon,
		       is_basis_for_new_ski_area, is_in_ski_area_site, is_polygon, properties
		FROM map_objects
		WHERE type = 'run' AND is_basis_for_new_ski_area = true
		ORDER BY key
		LIMIT 1
	`
	var r row
	if err := s.db.GetContext(ctx, &r, s.db.Rebind(query)); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgis: next unassigned run: %w", err)
	}
	obj, err := r.toMapObject()
	if err != nil {
		return nil, false, err
	}
	return obj, true, nil
}

func (s *Store) ClearBasisForNewSkiArea(ctx context.Context, key string) error {
	query := `UPDATE map_objects SET is_basis_for_new_ski_area = false, updated_at = now() WHERE key = $1`
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), key); err != nil {
		return fmt.Errorf("postgis: clear basis for %s: %w", key, err)
	}
	return nil
}

func (s *Store) PersistGeneratedSkiArea(ctx context.Context, area *domain.MapObject) error {
	return s.upsert(ctx, area)
}

func (s *Store) SaveSkiArea(ctx context.Context, area *domain.MapObject) error {
	return s.upsert(ctx, area)
}

func (s *Store) upsert(ctx context.Context, area *domain.MapObject) error {
	geomJSON, err := encodeGeometry(area.Geometry)
	if err != nil {
		return fmt.Errorf("postgis: encode geometry for %s: %w", area.Key, err)
	}
	props, err := encodeProperties(area.Properties)
	if err != nil {
		return fmt.Errorf("postgis: encode properties for %s: %w", area.Key, err)
	}

	var geomExpr interface{}
	if geomJSON != "" {
		geomExpr = sql.NullString{String: geomJSON, Valid: true}
	}

	query := `
		INSERT INTO map_objects
			(key, id, type, source, geometry, activities, ski_areas,
			 is_in_ski_area_polygon, is_basis_for_new_ski_area, is_in_ski_area_site,
			 is_polygon, properties, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, ST_GeomFromGeoJSON($5), $6, $7, $8, $9, $10, $11, $12, now(), now())
		ON CONFLICT (key) DO UPDATE SET
			id = EXCLUDED.id,
			source = EXCLUDED.source,
			geometry = EXCLUDED.geometry,
			activities = EXCLUDED.activities,
			ski_areas = EXCLUDED.ski_areas,
			is_in_ski_area_polygon = EXCLUDED.is_in_ski_area_polygon,
			is_basis_for_new_ski_area = EXCLUDED.is_basis_for_new_ski_area,
			is_in_ski_area_site = EXCLUDED.is_in_ski_area_site,
			is_polygon = EXCLUDED.is_polygon,
			properties = EXCLUDED.properties,
			updated_at = now()
	`
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query),
		area.Key, area.ID, string(area.Type), string(area.Source), geomExpr,
		pq.Array(activityStrings(area.Activities)), pq.Array(area.SkiAreas.Slice()),
		area.IsInSkiAreaPolygon, area.IsBasisForNewSkiArea, area.IsInSkiAreaSite,
		area.IsPolygon, props,
	)
	if err != nil {
		return fmt.Errorf("postgis: upsert %s: %w", area.Key, err)
	}
	return nil
}

func (s *Store) MembersOf(ctx context.Context, id string) ([]*domain.MapObject, error) {
	query := `
		SELECT key, id, type, source, ST_AsGeoJSON(geometry) AS geometry_json,
		       activities, ski_areas, is_in_ski_area_polygon,
		       is_basis_for_new_ski_area, is_in_ski_area_site, is_polygon, properties
		FROM map_objects
		WHERE type != 'ski_area' AND ski_areas @> ARRAY[$1::text]
		ORDER BY key
	`
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), id); err != nil {
		return nil, fmt.Errorf("postgis: members of %s: %w", id, err)
	}
	out := make([]*domain.MapObject, 0, len(rows))
	for _, r := range rows {
		obj, err := r.toMapObject()
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}
