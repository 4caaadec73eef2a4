package services

import (
	"context"
	"errors"
	"testing"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func planned(id string, surplus, mins int) models.PlannedTransfer {
	return models.PlannedTransfer{
		Donor: models.DonorCandidate{FacilityID: id, Name: id + " PHC", AvailableSurplus: surplus},
		Plan:  models.LogisticsPlan{DistanceKm: float64(mins) / 2, EstTimeMins: mins, Weather: models.WeatherNormal, Constraints: []string{}},
	}
}

func TestReplenishmentCycleRun(t *testing.T) {
	ops := new(MockTransferOperations)
	cycle := NewReplenishmentCycle(ops, config.ReplenishmentConfig{ForecastDays: 3, TopK: 2}, metrics.NewMetrics())

	alerts := []models.StockAlert{
		{RequestorPHC: "PHC-A", PHCName: "Aundh", Medicine: "Insulin", Quantity: 45},
		{RequestorPHC: "PHC-B", PHCName: "Baner", Medicine: "ORS", Quantity: 4},
		{RequestorPHC: "PHC-C", PHCName: "Chakan", Medicine: "Paracetamol", Quantity: 10},
		{RequestorPHC: "PHC-A", PHCName: "Aundh", Medicine: "insulin", Quantity: 45},
	}
	ops.On("ScanForRisk", mock.Anything, 3).Return(alerts, nil)

	// PHC-A: three donors, only the top two are planned; the second is faster
	donorsA := []models.DonorCandidate{
		{FacilityID: "D1", Name: "D1 PHC", AvailableSurplus: 90},
		{FacilityID: "D2", Name: "D2 PHC", AvailableSurplus: 70},
		{FacilityID: "D3", Name: "D3 PHC", AvailableSurplus: 60},
	}
	ops.On("FindDonors", mock.Anything, FindDonorsRequest{Item: "Insulin", Quantity: 45, RequestorID: "PHC-A"}).Return(donorsA, nil)
	ops.On("PlanTransfers", mock.Anything, "Insulin", "PHC-A", donorsA[:2]).
		Return([]models.PlannedTransfer{planned("D1", 90, 120), planned("D2", 70, 45)}, nil)
	ops.On("CreateSolutionCard", mock.Anything, mock.MatchedBy(func(req SaveCardRequest) bool {
		return req.RequestorID == "PHC-A" && req.DonorID == "D2" && req.Quantity == 45 &&
			req.Source == models.CardSourceReplenishment && req.Plan.EstTimeMins == 45 && req.Rationale != ""
	})).Return(&models.SolutionCard{ID: uuid.New()}, nil)

	// PHC-B: nobody can spare stock
	ops.On("FindDonors", mock.Anything, FindDonorsRequest{Item: "ORS", Quantity: 4, RequestorID: "PHC-B"}).
		Return([]models.DonorCandidate{}, nil)

	// PHC-C: the search fails but the cycle carries on
	ops.On("FindDonors", mock.Anything, FindDonorsRequest{Item: "Paracetamol", Quantity: 10, RequestorID: "PHC-C"}).
		Return(nil, errors.New("connection reset"))

	report, err := cycle.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CycleReport{Alerts: 4, CardsCreated: 1, NoDonor: 1, Failed: 1, Skipped: 1}, report)
	ops.AssertExpectations(t)
	ops.AssertNumberOfCalls(t, "CreateSolutionCard", 1)
}

func TestReplenishmentCycleSaveFailureContinues(t *testing.T) {
	ops := new(MockTransferOperations)
	cycle := NewReplenishmentCycle(ops, config.ReplenishmentConfig{ForecastDays: 3, TopK: 3}, metrics.NewMetrics())

	alerts := []models.StockAlert{
		{RequestorPHC: "PHC-A", Medicine: "Insulin", Quantity: 10},
		{RequestorPHC: "PHC-B", Medicine: "Insulin", Quantity: 10},
	}
	donors := []models.DonorCandidate{{FacilityID: "D1", AvailableSurplus: 50}}
	ops.On("ScanForRisk", mock.Anything, 3).Return(alerts, nil)
	ops.On("FindDonors", mock.Anything, mock.Anything).Return(donors, nil)
	ops.On("PlanTransfers", mock.Anything, "Insulin", mock.Anything, donors).
		Return([]models.PlannedTransfer{planned("D1", 50, 30)}, nil)
	ops.On("CreateSolutionCard", mock.Anything, mock.MatchedBy(func(req SaveCardRequest) bool {
		return req.RequestorID == "PHC-A"
	})).Return(nil, errors.New("rolled back"))
	ops.On("CreateSolutionCard", mock.Anything, mock.MatchedBy(func(req SaveCardRequest) bool {
		return req.RequestorID == "PHC-B"
	})).Return(&models.SolutionCard{ID: uuid.New()}, nil)

	report, err := cycle.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleReport{Alerts: 2, CardsCreated: 1, Failed: 1}, report)
}

func TestReplenishmentCycleScanFailure(t *testing.T) {
	ops := new(MockTransferOperations)
	cycle := NewReplenishmentCycle(ops, config.ReplenishmentConfig{}, metrics.NewMetrics())

	scanErr := errors.New("database unavailable")
	ops.On("ScanForRisk", mock.Anything, DefaultForecastDays).Return(nil, scanErr)

	_, err := cycle.Run(context.Background())
	assert.ErrorIs(t, err, scanErr)
}

func TestReplenishmentCycleCancelled(t *testing.T) {
	ops := new(MockTransferOperations)
	cycle := NewReplenishmentCycle(ops, config.ReplenishmentConfig{ForecastDays: 3}, metrics.NewMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	ops.On("ScanForRisk", mock.Anything, 3).
		Run(func(mock.Arguments) { cancel() }).
		Return([]models.StockAlert{{RequestorPHC: "PHC-A", Medicine: "Insulin", Quantity: 1}}, nil)

	report, err := cycle.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Alerts)
	ops.AssertNotCalled(t, "FindDonors", mock.Anything, mock.Anything)
}

func TestSelectBestTransfer(t *testing.T) {
	_, ok := SelectBestTransfer(nil)
	assert.False(t, ok)

	best, ok := SelectBestTransfer([]models.PlannedTransfer{
		planned("A", 90, 60),
		planned("B", 80, 40),
		planned("C", 70, 40),
	})
	require.True(t, ok)
	assert.Equal(t, "B", best.Donor.FacilityID)
}

func TestRationale(t *testing.T) {
	alert := models.StockAlert{RequestorPHC: "PHC-A", PHCName: "Aundh PHC", Medicine: "Insulin", Quantity: 45}
	p := planned("D2", 70, 45)
	p.Plan.Constraints = []string{"Item: Cold chain 2-8C"}

	got := Rationale(alert, p)
	assert.Contains(t, got, "Aundh PHC")
	assert.Contains(t, got, "45 units")
	assert.Contains(t, got, "D2 PHC can spare 70 units")
	assert.Contains(t, got, "22.50 km, about 45 min with NORMAL weather")
	assert.Contains(t, got, "Constraints: Item: Cold chain 2-8C.")
}
