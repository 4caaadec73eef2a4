package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/api/handlers"
	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/models"
	"example.com/arogyayaan/replenishment/internal/services"
	"example.com/arogyayaan/replenishment/internal/tracing"

	"github.com/stretchr/testify/assert"
)

type stubTransfers struct{}

func (stubTransfers) FindDonors(context.Context, services.FindDonorsRequest) ([]models.DonorCandidate, error) {
	return []models.DonorCandidate{}, nil
}

func (stubTransfers) PlanLogistics(context.Context, services.PlanRequest) (models.LogisticsPlan, error) {
	return models.LogisticsPlan{Weather: models.WeatherNormal, Constraints: []string{}}, nil
}

func (stubTransfers) CreateSolutionCard(context.Context, services.SaveCardRequest) (*models.SolutionCard, error) {
	return &models.SolutionCard{}, nil
}

func (stubTransfers) ScanForRisk(context.Context, int) ([]models.StockAlert, error) {
	return []models.StockAlert{}, nil
}

func (stubTransfers) SearchSolutionCards(context.Context, string, int) ([]models.SolutionCard, error) {
	return []models.SolutionCard{}, nil
}

func TestServerRoutes(t *testing.T) {
	cfg := config.Config{Environment: "test", Server: config.ServerConfig{Address: "127.0.0.1:0"}}
	checks := map[string]handlers.HealthCheck{"database": func(context.Context) error { return nil }}
	server := NewServer(cfg, stubTransfers{}, checks, metrics.NewMetrics(), tracing.Noop())

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/alerts", http.StatusOK},
		{http.MethodGet, "/api/v1/solution-cards?facility_id=PHC-A", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, tt.path)
	}

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "arogyayaan_component_up")
}
