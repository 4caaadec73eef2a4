package repositories

import (
	"context"

	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SaveCardInput is the decision recorded by a solution card
type SaveCardInput struct {
	RequestorID string
	DonorID     string
	Item        string
	Quantity    int
	Rationale   string
	Plan        models.LogisticsPlan
	Source      string
}

// SolutionCardStore persists transfer decisions
type SolutionCardStore struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewSolutionCardStore creates a new solution card store
func NewSolutionCardStore(db *gorm.DB, readOnlyDB *gorm.DB) *SolutionCardStore {
	return &SolutionCardStore{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Save writes a pending solution card inside a transaction and returns it with its generated id.
// Each call gets a fresh idempotency token, so identical inputs produce distinct cards.
func (s *SolutionCardStore) Save(ctx context.Context, in SaveCardInput) (*models.SolutionCard, error) {
	source := in.Source
	if source == "" {
		source = models.CardSourceAgent
	}

	card := &models.SolutionCard{
		ID:     uuid.New(),
		Status: models.CardStatusPending,
		Payload: datatypes.NewJSONType(models.CardPayload{
			RequestDetails: models.RequestDetails{
				RequestorPHC:   in.RequestorID,
				Item:           in.Item,
				QuantityNeeded: in.Quantity,
			},
			Recommendation: models.Recommendation{
				Quantity:  in.Quantity,
				Logistics: in.Plan,
			},
		}),
		PriorityScore:    models.CardPriorityScore,
		Rationale:        in.Rationale,
		FromFacilityID:   in.DonorID,
		ToFacilityID:     in.RequestorID,
		IdempotencyToken: uuid.New(),
		Source:           source,
		ConfidenceScore:  models.CardConfidenceScore,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(card).Error
	})
	if err != nil {
		return nil, &PersistenceError{Op: "save solution card", Cause: err}
	}
	return card, nil
}

// GetByID gets a solution card by ID
func (s *SolutionCardStore) GetByID(ctx context.Context, id uuid.UUID) (*models.SolutionCard, error) {
	var card models.SolutionCard
	err := s.readOnlyDB.WithContext(ctx).Where("id = ?", id).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "solution card %s", id)
		}
		return nil, errors.Wrap(err, "failed to get solution card by ID")
	}
	return &card, nil
}

// ListByFacility returns the newest cards where the facility is donor or requestor
func (s *SolutionCardStore) ListByFacility(ctx context.Context, facilityID string, limit int) ([]models.SolutionCard, error) {
	var cards []models.SolutionCard
	err := s.readOnlyDB.WithContext(ctx).
		Where("from_facilityid = ? OR to_facilityid = ?", facilityID, facilityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&cards).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list solution cards")
	}
	return cards, nil
}
