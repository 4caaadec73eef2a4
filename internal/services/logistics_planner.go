package services

import (
	"context"

	"example.com/arogyayaan/replenishment/internal/models"
	"example.com/arogyayaan/replenishment/internal/repositories"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Severe weather slows transport by 30%
const (
	weatherDelayNum = 13
	weatherDelayDen = 10
)

// Constraint labels prefixed to knowledge-base rules
const (
	labelItem     = "Item: "
	labelLocation = "Loc: "
	labelWeather  = "Weather: "
)

// LogisticsPlanner builds routing plans for a donor to requestor transfer
type LogisticsPlanner struct {
	repo     InventoryReader
	distance RouteResolver
	weather  WeatherSource
	workers  int
}

// NewLogisticsPlanner creates a new logistics planner. workers bounds PlanAll concurrency.
func NewLogisticsPlanner(repo InventoryReader, distance RouteResolver, weather WeatherSource, workers int) *LogisticsPlanner {
	if workers < 1 {
		workers = 1
	}
	return &LogisticsPlanner{
		repo:     repo,
		distance: distance,
		weather:  weather,
		workers:  workers,
	}
}

// Plan composes constraints, route and weather into a plan for moving itemName from donor to requestor.
// A facility without a location yields a zero-distance plan with NORMAL weather.
func (p *LogisticsPlanner) Plan(ctx context.Context, itemName, donorID, requestorID string) (models.LogisticsPlan, error) {
	plan := models.LogisticsPlan{
		Weather:     models.WeatherNormal,
		Constraints: []string{},
	}

	if err := p.appendConstraints(ctx, &plan, labelItem, itemName, models.RuleTypeStorage); err != nil {
		return models.LogisticsPlan{}, err
	}
	if err := p.appendConstraints(ctx, &plan, labelLocation, donorID, models.RuleTypeLogistics); err != nil {
		return models.LogisticsPlan{}, err
	}

	origin, err := p.repo.GetCoordinates(ctx, donorID)
	if err != nil {
		return p.unlocated(plan, donorID, err)
	}
	dest, err := p.repo.GetCoordinates(ctx, requestorID)
	if err != nil {
		return p.unlocated(plan, requestorID, err)
	}

	route := p.distance.Resolve(ctx, origin, dest)
	plan.DistanceKm = route.DistanceKm
	plan.DistanceSource = route.Source
	plan.Weather = p.weather.Resolve(ctx, origin)

	plan.EstTimeMins = route.TimeMins
	if plan.Weather.Severe() {
		plan.EstTimeMins = route.TimeMins * weatherDelayNum / weatherDelayDen
		if err := p.appendConstraints(ctx, &plan, labelWeather, string(plan.Weather), models.RuleTypeWeather); err != nil {
			return models.LogisticsPlan{}, err
		}
	}

	log.Debug().
		Str("item", itemName).
		Str("donor", donorID).
		Str("requestor", requestorID).
		Float64("distance_km", plan.DistanceKm).
		Int("est_time_mins", plan.EstTimeMins).
		Str("weather", string(plan.Weather)).
		Str("distance_source", string(plan.DistanceSource)).
		Msg("Logistics plan resolved")

	return plan, nil
}

func (p *LogisticsPlanner) appendConstraints(ctx context.Context, plan *models.LogisticsPlan, label, entity, ruleType string) error {
	rules, err := p.repo.LookupConstraints(ctx, entity, ruleType)
	if err != nil {
		return err
	}
	for _, r := range rules {
		plan.Constraints = append(plan.Constraints, label+r)
	}
	return nil
}

func (p *LogisticsPlanner) unlocated(plan models.LogisticsPlan, facilityID string, err error) (models.LogisticsPlan, error) {
	if !errors.Is(err, repositories.ErrNotFound) {
		return models.LogisticsPlan{}, err
	}
	log.Warn().Str("facility", facilityID).Msg("Facility has no location, returning empty route")
	return plan, nil
}

// PlanAll plans every donor concurrently. Results keep the donor order.
// A donor whose plan fails is logged and left out; an error is returned only when no donor could be planned.
func (p *LogisticsPlanner) PlanAll(ctx context.Context, itemName, requestorID string, donors []models.DonorCandidate) ([]models.PlannedTransfer, error) {
	results := make([]models.PlannedTransfer, len(donors))
	errs := make([]error, len(donors))

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, donor := range donors {
		i, donor := i, donor
		g.Go(func() error {
			plan, err := p.Plan(ctx, itemName, donor.FacilityID, requestorID)
			if err != nil {
				errs[i] = errors.Wrapf(err, "failed to plan transfer from %s", donor.FacilityID)
				log.Warn().Err(err).
					Str("item", itemName).
					Str("donor", donor.FacilityID).
					Str("requestor", requestorID).
					Msg("Skipping donor, logistics plan failed")
				return nil
			}
			results[i] = models.PlannedTransfer{Donor: donor, Plan: plan}
			return nil
		})
	}
	_ = g.Wait()

	planned := make([]models.PlannedTransfer, 0, len(donors))
	var firstErr error
	for i := range donors {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		planned = append(planned, results[i])
	}

	if len(planned) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return planned, nil
}
