package services

import (
	"context"
	"strings"

	"example.com/arogyayaan/replenishment/internal/metrics"
	"example.com/arogyayaan/replenishment/internal/models"
	"example.com/arogyayaan/replenishment/internal/repositories"
	"example.com/arogyayaan/replenishment/internal/tracing"

	"github.com/go-playground/validator/v10"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultSearchLimit = 50

// FindDonorsRequest asks for donors able to cover a deficit
type FindDonorsRequest struct {
	Item        string `json:"item" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
	RequestorID string `json:"requestor_id" validate:"required"`
}

// PlanRequest asks for a routing plan from a donor to a requestor
type PlanRequest struct {
	Item        string `json:"item" validate:"required"`
	DonorID     string `json:"donor_id" validate:"required"`
	RequestorID string `json:"requestor_id" validate:"required,nefield=DonorID"`
}

// SaveCardRequest records an accepted transfer decision
type SaveCardRequest struct {
	RequestorID string               `json:"requestor_id" validate:"required"`
	DonorID     string               `json:"donor_id" validate:"required,nefield=RequestorID"`
	Item        string               `json:"item" validate:"required"`
	Quantity    int                  `json:"quantity" validate:"gt=0"`
	Rationale   string               `json:"rationale"`
	Plan        models.LogisticsPlan `json:"logistics"`
	Source      string               `json:"source,omitempty"`
}

// TransferService exposes donor matching, logistics planning, risk scanning and card
// persistence as typed operations
type TransferService struct {
	matcher   *DonorMatcher
	scanner   *StockRiskScanner
	planner   *LogisticsPlanner
	store     CardStore
	indexer   CardIndexer
	publisher CardPublisher
	tracer    tracing.Tracer
	metrics   *metrics.Metrics
	validate  *validator.Validate
}

// NewTransferService creates a new transfer service
func NewTransferService(
	matcher *DonorMatcher,
	scanner *StockRiskScanner,
	planner *LogisticsPlanner,
	store CardStore,
	indexer CardIndexer,
	publisher CardPublisher,
	tracer tracing.Tracer,
	m *metrics.Metrics,
) *TransferService {
	return &TransferService{
		matcher:   matcher,
		scanner:   scanner,
		planner:   planner,
		store:     store,
		indexer:   indexer,
		publisher: publisher,
		tracer:    tracer,
		metrics:   m,
		validate:  validator.New(),
	}
}

// trace joins the transaction already carried by ctx or starts a new one
func (s *TransferService) trace(ctx context.Context, name string) (context.Context, *newrelic.Transaction, func()) {
	if txn := newrelic.FromContext(ctx); txn != nil {
		seg := s.tracer.StartSpan(name, txn)
		return ctx, txn, seg.End
	}
	txn := s.tracer.StartTransaction(name)
	if txn == nil {
		return ctx, nil, func() {}
	}
	return newrelic.NewContext(ctx, txn), txn, func() { s.tracer.EndTransaction(txn) }
}

func (s *TransferService) check(req interface{}) error {
	if err := s.validate.Struct(req); err != nil {
		return errors.Wrap(ErrInvalidRequest, err.Error())
	}
	return nil
}

// FindDonors returns up to five donors for the request, highest surplus first
func (s *TransferService) FindDonors(ctx context.Context, req FindDonorsRequest) ([]models.DonorCandidate, error) {
	req.Item = strings.TrimSpace(req.Item)
	req.RequestorID = strings.TrimSpace(req.RequestorID)
	if err := s.check(req); err != nil {
		return nil, err
	}

	ctx, txn, end := s.trace(ctx, "find-donors")
	defer end()
	s.tracer.AddAttribute(txn, "item", req.Item)

	donors, err := s.matcher.FindDonors(ctx, req.Item, req.Quantity, req.RequestorID)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to find donors")
	}
	return donors, nil
}

// PlanLogistics returns the routing plan for one donor
func (s *TransferService) PlanLogistics(ctx context.Context, req PlanRequest) (models.LogisticsPlan, error) {
	req.Item = strings.TrimSpace(req.Item)
	req.DonorID = strings.TrimSpace(req.DonorID)
	req.RequestorID = strings.TrimSpace(req.RequestorID)
	if err := s.check(req); err != nil {
		return models.LogisticsPlan{}, err
	}

	ctx, txn, end := s.trace(ctx, "plan-logistics")
	defer end()

	plan, err := s.planner.Plan(ctx, req.Item, req.DonorID, req.RequestorID)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return models.LogisticsPlan{}, errors.Wrap(err, "failed to plan logistics")
	}
	return plan, nil
}

// PlanTransfers plans every donor concurrently and returns the plans in donor order
func (s *TransferService) PlanTransfers(ctx context.Context, item, requestorID string, donors []models.DonorCandidate) ([]models.PlannedTransfer, error) {
	ctx, txn, end := s.trace(ctx, "plan-transfers")
	defer end()

	planned, err := s.planner.PlanAll(ctx, item, requestorID, donors)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}
	return planned, nil
}

// CreateSolutionCard persists the decision, then indexes and announces it.
// Indexing and publishing failures are logged and do not fail the call.
func (s *TransferService) CreateSolutionCard(ctx context.Context, req SaveCardRequest) (*models.SolutionCard, error) {
	req.RequestorID = strings.TrimSpace(req.RequestorID)
	req.DonorID = strings.TrimSpace(req.DonorID)
	req.Item = strings.TrimSpace(req.Item)
	if err := s.check(req); err != nil {
		return nil, err
	}
	if req.Plan.Constraints == nil {
		req.Plan.Constraints = []string{}
	}

	ctx, txn, end := s.trace(ctx, "create-solution-card")
	defer end()

	card, err := s.store.Save(ctx, repositories.SaveCardInput{
		RequestorID: req.RequestorID,
		DonorID:     req.DonorID,
		Item:        req.Item,
		Quantity:    req.Quantity,
		Rationale:   req.Rationale,
		Plan:        req.Plan,
		Source:      req.Source,
	})
	if err != nil {
		s.metrics.RecordCardFailure()
		s.tracer.RecordError(txn, err)
		log.Error().Err(err).
			Str("requestor", req.RequestorID).
			Str("donor", req.DonorID).
			Str("item", req.Item).
			Msg("Failed to save solution card")
		return nil, err
	}
	s.metrics.RecordCardSaved()

	log.Info().
		Str("card_id", card.ID.String()).
		Str("requestor", req.RequestorID).
		Str("donor", req.DonorID).
		Str("item", req.Item).
		Int("quantity", req.Quantity).
		Str("source", card.Source).
		Msg("Solution card saved")

	if err := s.indexer.IndexSolutionCard(ctx, card); err != nil {
		log.Warn().Err(err).Str("card_id", card.ID.String()).Msg("Failed to index solution card")
	}
	if err := s.publisher.PublishCardCreated(ctx, card); err != nil {
		log.Warn().Err(err).Str("card_id", card.ID.String()).Msg("Failed to publish solution card event")
	}

	return card, nil
}

// ScanForRisk returns the forecast deficits for the next forecastDays
func (s *TransferService) ScanForRisk(ctx context.Context, forecastDays int) ([]models.StockAlert, error) {
	ctx, txn, end := s.trace(ctx, "scan-for-risk")
	defer end()

	alerts, err := s.scanner.ScanForRisk(ctx, forecastDays)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}
	return alerts, nil
}

// SearchSolutionCards returns recent cards involving a facility, from the search index when
// enabled and from the database otherwise
func (s *TransferService) SearchSolutionCards(ctx context.Context, facilityID string, limit int) ([]models.SolutionCard, error) {
	facilityID = strings.TrimSpace(facilityID)
	if facilityID == "" {
		return nil, errors.Wrap(ErrInvalidRequest, "facility_id is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if s.indexer.Enabled() {
		cards, err := s.indexer.SearchSolutionCards(ctx, facilityID, limit)
		if err == nil {
			return cards, nil
		}
		log.Warn().Err(err).Str("facility", facilityID).Msg("Card search failed, reading from database")
	}
	return s.store.ListByFacility(ctx, facilityID, limit)
}
