package services

import (
	"context"

	"example.com/arogyayaan/replenishment/internal/models"
	"example.com/arogyayaan/replenishment/internal/repositories"

	"github.com/pkg/errors"
)

// ErrInvalidRequest is returned for malformed inbound calls
var ErrInvalidRequest = errors.New("invalid request")

// InventoryReader is the read side of the inventory repository
type InventoryReader interface {
	FindItemIDs(ctx context.Context, name string) ([]string, error)
	QueryCandidateDonors(ctx context.Context, itemIDs []string, excludeFacility string, minQuantity int) ([]models.InventoryJoin, error)
	QueryAtRiskInventory(ctx context.Context, forecastDays int) ([]models.InventoryJoin, error)
	GetCoordinates(ctx context.Context, facilityID string) (models.Coordinate, error)
	LookupConstraints(ctx context.Context, entityValue, ruleType string) ([]string, error)
}

// RouteResolver resolves travel distance and time between coordinates
type RouteResolver interface {
	Resolve(ctx context.Context, origin, dest models.Coordinate) models.Route
}

// WeatherSource classifies the current weather at a coordinate
type WeatherSource interface {
	Resolve(ctx context.Context, coord models.Coordinate) models.WeatherClass
}

// CardStore persists and lists solution cards
type CardStore interface {
	Save(ctx context.Context, in repositories.SaveCardInput) (*models.SolutionCard, error)
	ListByFacility(ctx context.Context, facilityID string, limit int) ([]models.SolutionCard, error)
}

// CardIndexer makes saved cards searchable
type CardIndexer interface {
	Enabled() bool
	IndexSolutionCard(ctx context.Context, card *models.SolutionCard) error
	SearchSolutionCards(ctx context.Context, facilityID string, limit int) ([]models.SolutionCard, error)
}

// CardPublisher notifies downstream systems of new cards
type CardPublisher interface {
	PublishCardCreated(ctx context.Context, card *models.SolutionCard) error
}
