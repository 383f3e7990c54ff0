package postgis

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// recoverableInvalidPolygonMessages lists the PostGIS error messages that
// a geometry query must survive by returning an empty result rather than
// failing the pipeline.
var recoverableInvalidPolygonMessages = map[string]struct{}{
	"Polygon is not valid":  {},
	"Invalid loop in polygon": {},
	"Loop not closed":       {},
}

// isRecoverableGeometryError reports whether err is one of the three
// PostGIS invalid-polygon errors a spatial query must recover from.
func isRecoverableGeometryError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	_, ok := recoverableInvalidPolygonMessages[pgErr.Message]
	return ok
}
