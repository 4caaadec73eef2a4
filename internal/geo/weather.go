package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/cache"
	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const heatwaveCelsius = 40.0

// WMO weather interpretation codes
var (
	monsoonCodes = map[int]bool{51: true, 53: true, 55: true, 61: true, 63: true, 65: true, 80: true, 81: true, 82: true, 95: true, 96: true, 99: true}
	snowCodes    = map[int]bool{71: true, 73: true, 75: true, 77: true}
)

// WeatherResolver classifies the current weather at a coordinate
type WeatherResolver struct {
	client   *http.Client
	endpoint string
	cache    Cache
	ttl      time.Duration
	metrics  *metrics.Metrics
}

// NewWeatherResolver creates a new weather resolver
func NewWeatherResolver(cfg config.WeatherProviderConfig, client *http.Client, c Cache, ttl time.Duration, m *metrics.Metrics) *WeatherResolver {
	return &WeatherResolver{
		client:   client,
		endpoint: cfg.URL,
		cache:    c,
		ttl:      ttl,
		metrics:  m,
	}
}

// Resolve returns the weather class at coord, NORMAL when the provider cannot be used
func (r *WeatherResolver) Resolve(ctx context.Context, coord models.Coordinate) models.WeatherClass {
	key := cache.WeatherKey(coord)

	var class models.WeatherClass
	if err := r.cache.Get(ctx, key, &class); err == nil {
		r.metrics.RecordWeather(string(class))
		return class
	}

	start := time.Now()
	class, err := r.fetch(ctx, coord)
	r.metrics.RecordProviderCall("weather", err == nil, time.Since(start))
	if err != nil {
		log.Warn().Err(err).
			Float64("lat", coord.Lat).Float64("lon", coord.Lon).
			Msg("Weather provider failed, assuming NORMAL")
		r.metrics.RecordWeather(string(models.WeatherNormal))
		return models.WeatherNormal
	}

	if err := r.cache.Set(ctx, key, class, r.ttl); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Weather not cached")
	}
	r.metrics.RecordWeather(string(class))
	return class
}

type forecastResponse struct {
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
		WeatherCode *int     `json:"weathercode"`
	} `json:"current_weather"`
}

func (r *WeatherResolver) fetch(ctx context.Context, coord models.Coordinate) (models.WeatherClass, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	params.Set("current_weather", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build weather request")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "weather request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("weather provider returned HTTP %d", resp.StatusCode)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "failed to decode weather response")
	}
	cw := body.CurrentWeather
	if cw == nil || cw.Temperature == nil || cw.WeatherCode == nil {
		return "", errors.New("weather response missing current_weather fields")
	}

	return Classify(*cw.Temperature, *cw.WeatherCode), nil
}

// Classify maps a temperature in Celsius and a WMO weather code to a weather class.
// Heat takes precedence over precipitation.
func Classify(temperature float64, code int) models.WeatherClass {
	switch {
	case temperature > heatwaveCelsius:
		return models.WeatherHeatwave
	case monsoonCodes[code]:
		return models.WeatherMonsoon
	case snowCodes[code]:
		return models.WeatherSnow
	default:
		return models.WeatherNormal
	}
}
