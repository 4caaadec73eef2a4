package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/cache"
	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/stretchr/testify/assert"
)

func newWeatherServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "18.5204", r.URL.Query().Get("latitude"))
		assert.Equal(t, "73.8567", r.URL.Query().Get("longitude"))
		assert.Equal(t, "true", r.URL.Query().Get("current_weather"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestWeatherResolver(url string, c Cache) *WeatherResolver {
	return NewWeatherResolver(
		config.WeatherProviderConfig{URL: url},
		NewHTTPClient(time.Second),
		c,
		15*time.Minute,
		metrics.NewMetrics(),
	)
}

func TestWeatherResolve(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.WeatherClass
	}{
		{"heat overrides rain", `{"current_weather": {"temperature": 41, "weathercode": 63}}`, models.WeatherHeatwave},
		{"rain", `{"current_weather": {"temperature": 27.5, "weathercode": 81}}`, models.WeatherMonsoon},
		{"thunderstorm", `{"current_weather": {"temperature": 30, "weathercode": 95}}`, models.WeatherMonsoon},
		{"snow", `{"current_weather": {"temperature": -2, "weathercode": 73}}`, models.WeatherSnow},
		{"clear", `{"current_weather": {"temperature": 25, "weathercode": 0}}`, models.WeatherNormal},
		{"exactly 40 is not a heatwave", `{"current_weather": {"temperature": 40, "weathercode": 1}}`, models.WeatherNormal},
		{"missing current_weather", `{"latitude": 18.5}`, models.WeatherNormal},
		{"missing weathercode", `{"current_weather": {"temperature": 45}}`, models.WeatherNormal},
		{"malformed body", `<html>`, models.WeatherNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := newWeatherServer(t, http.StatusOK, tt.body, &calls)
			r := newTestWeatherResolver(srv.URL, cache.Disabled())

			assert.Equal(t, tt.want, r.Resolve(context.Background(), pune))
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestWeatherProviderErrorIsNormal(t *testing.T) {
	var calls int32
	srv := newWeatherServer(t, http.StatusServiceUnavailable, `{"current_weather": {"temperature": 45, "weathercode": 0}}`, &calls)
	r := newTestWeatherResolver(srv.URL, cache.Disabled())
	assert.Equal(t, models.WeatherNormal, r.Resolve(context.Background(), pune))

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	r = newTestWeatherResolver(url, cache.Disabled())
	assert.Equal(t, models.WeatherNormal, r.Resolve(context.Background(), pune))
}

func TestWeatherCached(t *testing.T) {
	var calls int32
	srv := newWeatherServer(t, http.StatusOK, `{"current_weather": {"temperature": 22, "weathercode": 61}}`, &calls)
	c := newMemCache()
	r := newTestWeatherResolver(srv.URL, c)

	assert.Equal(t, models.WeatherMonsoon, r.Resolve(context.Background(), pune))
	assert.Equal(t, models.WeatherMonsoon, r.Resolve(context.Background(), pune))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWeatherFailureNotCached(t *testing.T) {
	var calls int32
	srv := newWeatherServer(t, http.StatusInternalServerError, ``, &calls)
	c := newMemCache()
	r := newTestWeatherResolver(srv.URL, c)

	r.Resolve(context.Background(), pune)
	r.Resolve(context.Background(), pune)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, models.WeatherHeatwave, Classify(40.1, 75))
	assert.Equal(t, models.WeatherSnow, Classify(0, 77))
	assert.Equal(t, models.WeatherMonsoon, Classify(12, 51))
	assert.Equal(t, models.WeatherNormal, Classify(12, 45))
}
