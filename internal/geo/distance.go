package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/cache"
	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	earthRadiusKm     = 6371.0
	fallbackSpeedKmph = 40.0
	statusOK          = "OK"
)

// DistanceResolver resolves driving distance and time between two coordinates.
// It calls a distance-matrix provider and falls back to great-circle distance.
type DistanceResolver struct {
	client   *http.Client
	endpoint string
	apiKey   string
	cache    Cache
	ttl      time.Duration
	metrics  *metrics.Metrics
}

// NewDistanceResolver creates a new distance resolver
func NewDistanceResolver(cfg config.DistanceProviderConfig, client *http.Client, c Cache, ttl time.Duration, m *metrics.Metrics) *DistanceResolver {
	if cfg.APIKey == "" {
		log.Warn().Msg("Distance provider API key not set, routes will use great-circle estimates")
	}
	return &DistanceResolver{
		client:   client,
		endpoint: cfg.URL,
		apiKey:   cfg.APIKey,
		cache:    c,
		ttl:      ttl,
		metrics:  m,
	}
}

// Resolve returns the route from origin to dest. It never fails: any provider error
// yields a haversine estimate with source FALLBACK.
func (r *DistanceResolver) Resolve(ctx context.Context, origin, dest models.Coordinate) models.Route {
	route, err := r.primary(ctx, origin, dest)
	if err != nil {
		if r.apiKey != "" {
			log.Warn().Err(err).
				Float64("origin_lat", origin.Lat).Float64("origin_lon", origin.Lon).
				Float64("dest_lat", dest.Lat).Float64("dest_lon", dest.Lon).
				Msg("Distance provider failed, using haversine fallback")
		}
		route = Haversine(origin, dest)
	}
	r.metrics.RecordDistanceSource(string(route.Source))
	return route
}

func (r *DistanceResolver) primary(ctx context.Context, origin, dest models.Coordinate) (models.Route, error) {
	if r.apiKey == "" {
		return models.Route{}, errors.New("no API key")
	}

	key := cache.RouteKey(origin, dest)
	var cached models.Route
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	start := time.Now()
	route, err := r.fetch(ctx, origin, dest)
	r.metrics.RecordProviderCall("distance", err == nil, time.Since(start))
	if err != nil {
		return models.Route{}, err
	}

	if err := r.cache.Set(ctx, key, route, r.ttl); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Route not cached")
	}
	return route, nil
}

type distanceMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance *struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration *struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (r *DistanceResolver) fetch(ctx context.Context, origin, dest models.Coordinate) (models.Route, error) {
	params := url.Values{}
	params.Set("origins", fmt.Sprintf("%f,%f", origin.Lat, origin.Lon))
	params.Set("destinations", fmt.Sprintf("%f,%f", dest.Lat, dest.Lon))
	params.Set("mode", "driving")
	params.Set("key", r.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return models.Route{}, errors.Wrap(err, "failed to build distance request")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return models.Route{}, errors.Wrap(err, "distance request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Route{}, errors.Errorf("distance provider returned HTTP %d", resp.StatusCode)
	}

	var body distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Route{}, errors.Wrap(err, "failed to decode distance response")
	}

	if body.Status != statusOK {
		return models.Route{}, errors.Errorf("distance provider status %q", body.Status)
	}
	if len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 {
		return models.Route{}, errors.New("distance response has no elements")
	}
	el := body.Rows[0].Elements[0]
	if el.Status != statusOK {
		return models.Route{}, errors.Errorf("distance element status %q", el.Status)
	}
	if el.Distance == nil || el.Duration == nil {
		return models.Route{}, errors.New("distance response missing distance or duration")
	}

	return models.Route{
		DistanceKm: round2(el.Distance.Value / 1000),
		TimeMins:   int(math.RoundToEven(el.Duration.Value / 60)),
		Source:     models.DistanceSourcePrimary,
	}, nil
}

// Haversine estimates a route from great-circle distance at 40 km/h
func Haversine(origin, dest models.Coordinate) models.Route {
	dLat := radians(dest.Lat - origin.Lat)
	dLon := radians(dest.Lon - origin.Lon)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(origin.Lat))*math.Cos(radians(dest.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	dist := round2(earthRadiusKm * c)
	return models.Route{
		DistanceKm: dist,
		TimeMins:   int(dist / fallbackSpeedKmph * 60),
		Source:     models.DistanceSourceFallback,
	}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
