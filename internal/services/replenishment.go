package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TransferOperations are the steps a replenishment cycle drives for each alert
type TransferOperations interface {
	ScanForRisk(ctx context.Context, forecastDays int) ([]models.StockAlert, error)
	FindDonors(ctx context.Context, req FindDonorsRequest) ([]models.DonorCandidate, error)
	PlanTransfers(ctx context.Context, item, requestorID string, donors []models.DonorCandidate) ([]models.PlannedTransfer, error)
	CreateSolutionCard(ctx context.Context, req SaveCardRequest) (*models.SolutionCard, error)
}

// CycleReport summarises one replenishment cycle
type CycleReport struct {
	Alerts       int `json:"alerts"`
	CardsCreated int `json:"cards_created"`
	NoDonor      int `json:"no_donor"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
}

// ReplenishmentCycle turns forecast deficits into solution cards
type ReplenishmentCycle struct {
	ops          TransferOperations
	forecastDays int
	topK         int
	metrics      *metrics.Metrics
}

// NewReplenishmentCycle creates a new replenishment cycle
func NewReplenishmentCycle(ops TransferOperations, cfg config.ReplenishmentConfig, m *metrics.Metrics) *ReplenishmentCycle {
	forecastDays := cfg.ForecastDays
	if forecastDays <= 0 {
		forecastDays = DefaultForecastDays
	}
	topK := cfg.TopK
	if topK <= 0 || topK > maxDonors {
		topK = maxDonors
	}
	return &ReplenishmentCycle{
		ops:          ops,
		forecastDays: forecastDays,
		topK:         topK,
		metrics:      m,
	}
}

// Run scans for at-risk stock and saves one card per alert that has a donor.
// A failed alert is logged and counted; only a failed scan fails the run.
func (c *ReplenishmentCycle) Run(ctx context.Context) (CycleReport, error) {
	start := time.Now()
	var report CycleReport

	alerts, err := c.ops.ScanForRisk(ctx, c.forecastDays)
	if err != nil {
		return report, errors.Wrap(err, "failed to scan for risk")
	}
	report.Alerts = len(alerts)

	seen := make(map[string]bool, len(alerts))
	for _, alert := range alerts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		key := alert.RequestorPHC + "\x00" + strings.ToLower(alert.Medicine)
		if seen[key] {
			report.Skipped++
			c.metrics.RecordAlert(metrics.OutcomeSkipped)
			continue
		}
		seen[key] = true

		outcome, err := c.handle(ctx, alert)
		switch {
		case err != nil:
			report.Failed++
			log.Error().Err(err).
				Str("requestor", alert.RequestorPHC).
				Str("item", alert.Medicine).
				Int("quantity", alert.Quantity).
				Msg("Replenishment alert failed")
		case outcome == metrics.OutcomeNoDonor:
			report.NoDonor++
		default:
			report.CardsCreated++
		}
		c.metrics.RecordAlert(outcome)
	}

	elapsed := time.Since(start)
	c.metrics.RecordCycle(elapsed)
	log.Info().
		Int("alerts", report.Alerts).
		Int("cards_created", report.CardsCreated).
		Int("no_donor", report.NoDonor).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Dur("elapsed", elapsed).
		Msg("Replenishment cycle complete")

	return report, nil
}

func (c *ReplenishmentCycle) handle(ctx context.Context, alert models.StockAlert) (string, error) {
	donors, err := c.ops.FindDonors(ctx, FindDonorsRequest{
		Item:        alert.Medicine,
		Quantity:    alert.Quantity,
		RequestorID: alert.RequestorPHC,
	})
	if err != nil {
		return metrics.OutcomeFailed, err
	}
	if len(donors) == 0 {
		log.Info().
			Str("requestor", alert.RequestorPHC).
			Str("item", alert.Medicine).
			Int("quantity", alert.Quantity).
			Msg("No donor can cover deficit")
		return metrics.OutcomeNoDonor, nil
	}
	if len(donors) > c.topK {
		donors = donors[:c.topK]
	}

	planned, err := c.ops.PlanTransfers(ctx, alert.Medicine, alert.RequestorPHC, donors)
	if err != nil {
		return metrics.OutcomeFailed, err
	}
	best, ok := SelectBestTransfer(planned)
	if !ok {
		return metrics.OutcomeNoDonor, nil
	}

	_, err = c.ops.CreateSolutionCard(ctx, SaveCardRequest{
		RequestorID: alert.RequestorPHC,
		DonorID:     best.Donor.FacilityID,
		Item:        alert.Medicine,
		Quantity:    alert.Quantity,
		Rationale:   Rationale(alert, best),
		Plan:        best.Plan,
		Source:      models.CardSourceReplenishment,
	})
	if err != nil {
		return metrics.OutcomeFailed, err
	}
	return metrics.OutcomeCreated, nil
}

// SelectBestTransfer picks the plan with the shortest estimated time.
// Ties keep the earlier, higher-surplus donor.
func SelectBestTransfer(planned []models.PlannedTransfer) (models.PlannedTransfer, bool) {
	if len(planned) == 0 {
		return models.PlannedTransfer{}, false
	}
	best := planned[0]
	for _, p := range planned[1:] {
		if p.Plan.EstTimeMins < best.Plan.EstTimeMins {
			best = p
		}
	}
	return best, true
}

// Rationale describes an automatic transfer decision
func Rationale(alert models.StockAlert, t models.PlannedTransfer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is forecast to run short of %s and needs %d units to restore a 7-day buffer. ",
		alert.PHCName, alert.Medicine, alert.Quantity)
	fmt.Fprintf(&b, "%s can spare %d units while keeping its own safety stock. ",
		t.Donor.Name, t.Donor.AvailableSurplus)
	fmt.Fprintf(&b, "Route is %.2f km, about %d min with %s weather.",
		t.Plan.DistanceKm, t.Plan.EstTimeMins, t.Plan.Weather)
	if len(t.Plan.Constraints) > 0 {
		fmt.Fprintf(&b, " Constraints: %s.", strings.Join(t.Plan.Constraints, "; "))
	}
	return b.String()
}
