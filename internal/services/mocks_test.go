package services

import (
	"context"

	"example.com/arogyayaan/replenishment/internal/models"
	"example.com/arogyayaan/replenishment/internal/repositories"

	"github.com/stretchr/testify/mock"
)

// Mock inventory repository for testing
type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) FindItemIDs(ctx context.Context, name string) ([]string, error) {
	args := m.Called(ctx, name)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockInventoryRepository) QueryCandidateDonors(ctx context.Context, itemIDs []string, excludeFacility string, minQuantity int) ([]models.InventoryJoin, error) {
	args := m.Called(ctx, itemIDs, excludeFacility, minQuantity)
	rows, _ := args.Get(0).([]models.InventoryJoin)
	return rows, args.Error(1)
}

func (m *MockInventoryRepository) QueryAtRiskInventory(ctx context.Context, forecastDays int) ([]models.InventoryJoin, error) {
	args := m.Called(ctx, forecastDays)
	rows, _ := args.Get(0).([]models.InventoryJoin)
	return rows, args.Error(1)
}

func (m *MockInventoryRepository) GetCoordinates(ctx context.Context, facilityID string) (models.Coordinate, error) {
	args := m.Called(ctx, facilityID)
	return args.Get(0).(models.Coordinate), args.Error(1)
}

func (m *MockInventoryRepository) LookupConstraints(ctx context.Context, entityValue, ruleType string) ([]string, error) {
	args := m.Called(ctx, entityValue, ruleType)
	rules, _ := args.Get(0).([]string)
	return rules, args.Error(1)
}

// Mock distance resolver for testing
type MockRouteResolver struct {
	mock.Mock
}

func (m *MockRouteResolver) Resolve(ctx context.Context, origin, dest models.Coordinate) models.Route {
	args := m.Called(ctx, origin, dest)
	return args.Get(0).(models.Route)
}

// Mock weather resolver for testing
type MockWeatherSource struct {
	mock.Mock
}

func (m *MockWeatherSource) Resolve(ctx context.Context, coord models.Coordinate) models.WeatherClass {
	args := m.Called(ctx, coord)
	return args.Get(0).(models.WeatherClass)
}

// Mock card store for testing
type MockCardStore struct {
	mock.Mock
}

func (m *MockCardStore) Save(ctx context.Context, in repositories.SaveCardInput) (*models.SolutionCard, error) {
	args := m.Called(ctx, in)
	card, _ := args.Get(0).(*models.SolutionCard)
	return card, args.Error(1)
}

func (m *MockCardStore) ListByFacility(ctx context.Context, facilityID string, limit int) ([]models.SolutionCard, error) {
	args := m.Called(ctx, facilityID, limit)
	cards, _ := args.Get(0).([]models.SolutionCard)
	return cards, args.Error(1)
}

// Mock card indexer for testing
type MockCardIndexer struct {
	mock.Mock
}

func (m *MockCardIndexer) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockCardIndexer) IndexSolutionCard(ctx context.Context, card *models.SolutionCard) error {
	return m.Called(ctx, card).Error(0)
}

func (m *MockCardIndexer) SearchSolutionCards(ctx context.Context, facilityID string, limit int) ([]models.SolutionCard, error) {
	args := m.Called(ctx, facilityID, limit)
	cards, _ := args.Get(0).([]models.SolutionCard)
	return cards, args.Error(1)
}

// Mock card publisher for testing
type MockCardPublisher struct {
	mock.Mock
}

func (m *MockCardPublisher) PublishCardCreated(ctx context.Context, card *models.SolutionCard) error {
	return m.Called(ctx, card).Error(0)
}

// Mock transfer operations for testing the replenishment cycle
type MockTransferOperations struct {
	mock.Mock
}

func (m *MockTransferOperations) ScanForRisk(ctx context.Context, forecastDays int) ([]models.StockAlert, error) {
	args := m.Called(ctx, forecastDays)
	alerts, _ := args.Get(0).([]models.StockAlert)
	return alerts, args.Error(1)
}

func (m *MockTransferOperations) FindDonors(ctx context.Context, req FindDonorsRequest) ([]models.DonorCandidate, error) {
	args := m.Called(ctx, req)
	donors, _ := args.Get(0).([]models.DonorCandidate)
	return donors, args.Error(1)
}

func (m *MockTransferOperations) PlanTransfers(ctx context.Context, item, requestorID string, donors []models.DonorCandidate) ([]models.PlannedTransfer, error) {
	args := m.Called(ctx, item, requestorID, donors)
	planned, _ := args.Get(0).([]models.PlannedTransfer)
	return planned, args.Error(1)
}

func (m *MockTransferOperations) CreateSolutionCard(ctx context.Context, req SaveCardRequest) (*models.SolutionCard, error) {
	args := m.Called(ctx, req)
	card, _ := args.Get(0).(*models.SolutionCard)
	return card, args.Error(1)
}
