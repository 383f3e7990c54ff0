// Package mapbox adapts Mapbox's reverse-geocoding API to the pipeline's
// Geocoder seam.
package mapbox

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/config"
	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
)

const geocodeTTL = 7 * 24 * time.Hour

type geocoder struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	cache       repository.CacheRepository
	logger      *zap.Logger
}

// NewMapboxGeocoder builds a Geocoder backed by Mapbox's v5 reverse
// geocoding endpoint. cache is optional; pass nil to skip caching.
func NewMapboxGeocoder(cfg *config.MapboxConfig, cache repository.CacheRepository, logger *zap.Logger) repository.Geocoder {
	return &geocoder{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		cache:       cache,
		logger:      logger,
	}
}

type geocodingFeature struct {
	PlaceName string `json:"place_name"`
	Text      string `json:"text"`
	Context   []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"context"`
}

type geocodingResponse struct {
	Features []geocodingFeature `json:"features"`
}

func (g *geocoder) ReverseGeocode(ctx context.Context, p orb.Point) (*domain.Location, error) {
	cacheKey := cacheKeyFor(p)
	if g.cache != nil {
		if raw, err := g.cache.Get(ctx, cacheKey); err == nil && raw != nil {
			var loc domain.Location
			if err := json.Unmarshal(raw, &loc); err == nil {
				return &loc, nil
			}
		}
	}

	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json?access_token=%s&types=region,place,locality",
		g.baseURL, p.Lon(), p.Lat(), url.QueryEscape(g.accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("mapbox geocoder: build request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox geocoder: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mapbox geocoder: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed geocodingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("mapbox geocoder: decode response: %w", err)
	}
	if len(parsed.Features) == 0 {
		return nil, fmt.Errorf("mapbox geocoder: no features for %f,%f", p.Lon(), p.Lat())
	}

	loc := locationFromFeature(parsed.Features[0])

	if g.cache != nil {
		if raw, err := json.Marshal(loc); err == nil {
			if err := g.cache.Set(ctx, cacheKey, raw, geocodeTTL); err != nil {
				g.logger.Warn("mapbox geocoder: cache write failed", zap.Error(err))
			}
		}
	}

	return loc, nil
}

func locationFromFeature(f geocodingFeature) *domain.Location {
	loc := &domain.Location{LocalName: f.Text}
	for _, c := range f.Context {
		switch {
		case len(c.ID) >= 7 && c.ID[:7] == "country":
			loc.Country = c.Text
		case len(c.ID) >= 6 && c.ID[:6] == "region":
			loc.Region = c.Text
		}
	}
	return loc
}

func cacheKeyFor(p orb.Point) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("geocode:%.4f,%.4f", p.Lon(), p.Lat())))
	return "geocode:" + hex.EncodeToString(sum[:])
}

// NopGeocoder is the zero-configuration Geocoder: every call fails, so P5
// always leaves Location unset. Used when no Mapbox access token is
// configured.
type NopGeocoder struct{}

func (NopGeocoder) ReverseGeocode(ctx context.Context, p orb.Point) (*domain.Location, error) {
	return nil, fmt.Errorf("mapbox geocoder: disabled (no access token configured)")
}
