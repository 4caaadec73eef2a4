package services

import (
	"context"
	"sort"

	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/models"
	"example.com/arogyayaan/replenishment/internal/repositories"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	// surplusWindowDays is the consumption buffer a donor keeps on top of safety stock
	surplusWindowDays = 7
	maxDonors         = 5
)

// DonorMatcher ranks facilities that can give stock away without breaching their safety floor
type DonorMatcher struct {
	repo    InventoryReader
	metrics *metrics.Metrics
}

// NewDonorMatcher creates a new donor matcher
func NewDonorMatcher(repo InventoryReader, m *metrics.Metrics) *DonorMatcher {
	return &DonorMatcher{repo: repo, metrics: m}
}

// FindDonors returns up to five donors for quantityNeeded units of itemName, highest surplus first.
// An unknown item or no qualifying donor yields an empty list.
func (d *DonorMatcher) FindDonors(ctx context.Context, itemName string, quantityNeeded int, requestorID string) ([]models.DonorCandidate, error) {
	donors := []models.DonorCandidate{}

	itemIDs, err := d.repo.FindItemIDs(ctx, itemName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Info().Str("item", itemName).Msg("No item matches name, no donors")
			d.metrics.RecordDonorSearch(metrics.OutcomeNotFound)
			return donors, nil
		}
		d.metrics.RecordDonorSearch(metrics.OutcomeError)
		return nil, err
	}

	rows, err := d.repo.QueryCandidateDonors(ctx, itemIDs, requestorID, quantityNeeded)
	if err != nil {
		d.metrics.RecordDonorSearch(metrics.OutcomeError)
		return nil, err
	}

	need := decimal.NewFromInt(int64(quantityNeeded))
	for _, row := range rows {
		surplus := TrueSurplus(row)
		if surplus.LessThan(need) {
			continue
		}
		donors = append(donors, models.DonorCandidate{
			FacilityID:       row.FacilityID,
			Name:             row.FacilityName,
			AvailableSurplus: int(surplus.IntPart()),
		})
	}

	sort.SliceStable(donors, func(i, j int) bool {
		return donors[i].AvailableSurplus > donors[j].AvailableSurplus
	})
	if len(donors) > maxDonors {
		donors = donors[:maxDonors]
	}

	log.Debug().
		Str("item", itemName).
		Int("quantity", quantityNeeded).
		Int("candidates", len(rows)).
		Int("donors", len(donors)).
		Msg("Donor search complete")

	if len(donors) == 0 {
		d.metrics.RecordDonorSearch(metrics.OutcomeEmpty)
	} else {
		d.metrics.RecordDonorSearch(metrics.OutcomeFound)
	}
	return donors, nil
}

// TrueSurplus is stock left after the safety floor and seven days of consumption
func TrueSurplus(row models.InventoryJoin) decimal.Decimal {
	buffer := decimal.NewFromFloat(row.ConsumptionRate).Mul(decimal.NewFromInt(surplusWindowDays))
	floor := decimal.NewFromInt(int64(row.SafetyStockLevel)).Add(buffer)
	return decimal.NewFromInt(int64(row.Quantity)).Sub(floor)
}
