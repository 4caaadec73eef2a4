package repositories

import (
	"context"
	"strings"

	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// InventoryRepository provides read access to facility, item, inventory and knowledge-base data
type InventoryRepository struct {
	readOnlyDB *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(readOnlyDB *gorm.DB) *InventoryRepository {
	return &InventoryRepository{readOnlyDB: readOnlyDB}
}

// FindItemIDs returns every item whose name, generic name or alias contains name, ignoring case.
// Ambiguous names return all matching ids.
func (r *InventoryRepository) FindItemIDs(ctx context.Context, name string) ([]string, error) {
	term := strings.ToLower(strings.TrimSpace(name))
	if term == "" {
		return nil, errors.Wrap(ErrNotFound, "empty item name")
	}
	pattern := "%" + likeEscaper.Replace(term) + "%"

	var ids []string
	err := r.readOnlyDB.WithContext(ctx).
		Table("items").
		Joins("LEFT JOIN item_aliases ON item_aliases.item_id = items.id").
		Where(`LOWER(items.name) LIKE ? ESCAPE '\' OR LOWER(items.generic_name) LIKE ? ESCAPE '\' OR LOWER(item_aliases.alias) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern).
		Distinct().
		Order("items.id").
		Pluck("items.id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to search items by name")
	}
	if len(ids) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "no item matches %q", name)
	}
	return ids, nil
}

// QueryCandidateDonors returns inventory rows for the given items held by any facility other than
// excludeFacility with more than minQuantity units on hand
func (r *InventoryRepository) QueryCandidateDonors(ctx context.Context, itemIDs []string, excludeFacility string, minQuantity int) ([]models.InventoryJoin, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	var rows []models.InventoryJoin
	err := r.joined(ctx).
		Where("inv.item_id IN ? AND inv.facility_id <> ? AND inv.quantity > ?", itemIDs, excludeFacility, minQuantity).
		Order("inv.facility_id, inv.item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query candidate donors")
	}
	return rows, nil
}

// QueryAtRiskInventory returns inventory rows that will fall below safety stock within forecastDays
func (r *InventoryRepository) QueryAtRiskInventory(ctx context.Context, forecastDays int) ([]models.InventoryJoin, error) {
	var rows []models.InventoryJoin
	err := r.joined(ctx).
		Where("(inv.quantity - inv.consumption_rate * ?) < inv.safety_stock_level", forecastDays).
		Order("inv.facility_id, inv.item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query at-risk inventory")
	}
	return rows, nil
}

func (r *InventoryRepository) joined(ctx context.Context) *gorm.DB {
	return r.readOnlyDB.WithContext(ctx).
		Table("inventories AS inv").
		Select(`inv.facility_id, f.name AS facility_name, inv.item_id, i.name AS item_name,
			inv.quantity, inv.safety_stock_level, inv.consumption_rate`).
		Joins("JOIN facilities f ON f.id = inv.facility_id").
		Joins("JOIN items i ON i.id = inv.item_id")
}

// GetCoordinates returns the location of a facility
func (r *InventoryRepository) GetCoordinates(ctx context.Context, facilityID string) (models.Coordinate, error) {
	var facility models.Facility
	err := r.readOnlyDB.WithContext(ctx).Where("id = ?", facilityID).First(&facility).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Coordinate{}, errors.Wrapf(ErrNotFound, "facility %s", facilityID)
		}
		return models.Coordinate{}, errors.Wrap(err, "failed to get facility coordinates")
	}
	if facility.Latitude == nil || facility.Longitude == nil {
		return models.Coordinate{}, errors.Wrapf(ErrNotFound, "facility %s has no location", facilityID)
	}
	return models.Coordinate{Lat: *facility.Latitude, Lon: *facility.Longitude}, nil
}

// LookupConstraints returns the knowledge-base constraints tagged to an entity for a rule type
func (r *InventoryRepository) LookupConstraints(ctx context.Context, entityValue, ruleType string) ([]string, error) {
	var constraints []string
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.KnowledgeRule{}).
		Where("entity_value = ? AND rule_type = ?", entityValue, ruleType).
		Order("id").
		Pluck("constraint_value", &constraints).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up constraints")
	}
	return constraints, nil
}
