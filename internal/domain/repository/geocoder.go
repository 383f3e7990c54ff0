package repository

import (
	"context"
	"time"

	"github.com/paulmach/orb"

	"github.com/skicluster/engine/internal/domain"
)

// Geocoder reverse-geocodes a point into a Location record. It is an
// external best-effort collaborator: a nil Geocoder, or one that always
// errors, must never block pipeline correctness (P5 leaves Location
// unset and logs once per phase instead).
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p orb.Point) (*domain.Location, error)
}

// StatsComputer turns a ski area's member set into a Statistics summary.
// It is an external collaborator; the pipeline only persists its result.
type StatsComputer interface {
	Compute(members []*domain.MapObject) (domain.Statistics, error)
}

// CacheRepository is a narrow key/value cache used to avoid repeated
// reverse-geocoder calls for nearby centroids across pipeline runs.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
