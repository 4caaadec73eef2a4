package services

import (
	"context"

	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultForecastDays is the lookahead used by the daily scan
const DefaultForecastDays = 3

// StockRiskScanner finds facilities that will fall below safety stock
type StockRiskScanner struct {
	repo InventoryReader
}

// NewStockRiskScanner creates a new stock risk scanner
func NewStockRiskScanner(repo InventoryReader) *StockRiskScanner {
	return &StockRiskScanner{repo: repo}
}

// ScanForRisk returns an alert for every inventory row projected below safety stock within
// forecastDays. The alert quantity tops the facility up to safety stock plus seven days of use.
func (s *StockRiskScanner) ScanForRisk(ctx context.Context, forecastDays int) ([]models.StockAlert, error) {
	if forecastDays < 0 {
		return nil, errors.Wrapf(ErrInvalidRequest, "forecast days must not be negative, got %d", forecastDays)
	}

	rows, err := s.repo.QueryAtRiskInventory(ctx, forecastDays)
	if err != nil {
		return nil, err
	}

	alerts := []models.StockAlert{}
	days := decimal.NewFromInt(int64(forecastDays))
	for _, row := range rows {
		qty := decimal.NewFromInt(int64(row.Quantity))
		rate := decimal.NewFromFloat(row.ConsumptionRate)
		safety := decimal.NewFromInt(int64(row.SafetyStockLevel))

		if !qty.Sub(rate.Mul(days)).LessThan(safety) {
			continue
		}

		target := safety.Add(rate.Mul(decimal.NewFromInt(surplusWindowDays)))
		deficit := target.Sub(qty)
		if !deficit.IsPositive() {
			continue
		}

		alerts = append(alerts, models.StockAlert{
			RequestorPHC: row.FacilityID,
			PHCName:      row.FacilityName,
			Medicine:     row.ItemName,
			Quantity:     int(deficit.Ceil().IntPart()),
		})
	}

	log.Info().
		Int("forecast_days", forecastDays).
		Int("at_risk_rows", len(rows)).
		Int("alerts", len(alerts)).
		Msg("Stock risk scan complete")

	return alerts, nil
}
