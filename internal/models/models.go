package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Solution card defaults written at creation time
const (
	CardStatusPending       = "pending"
	CardPriorityScore       = 7
	CardConfidenceScore     = 95
	CardSourceAgent         = "AI"
	CardSourceReplenishment = "AUTO"
)

// Knowledge-base rule types
const (
	RuleTypeStorage   = "STORAGE"
	RuleTypeLogistics = "LOGISTICS"
	RuleTypeWeather   = "WEATHER"
)

// Facility represents a health facility holding stock
type Facility struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Name      string    `gorm:"not null" json:"name"`
	District  string    `json:"district"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
}

// Item represents a medicine
type Item struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	Name        string      `gorm:"not null" json:"name"`
	GenericName string      `json:"generic_name"`
	Aliases     []ItemAlias `gorm:"foreignKey:ItemID" json:"aliases,omitempty"`
}

// ItemAlias is an alternate name used when looking an item up by name
type ItemAlias struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	ItemID string `gorm:"type:text;not null;index" json:"item_id"`
	Alias  string `gorm:"not null" json:"alias"`
}

// Inventory is the stock of one item at one facility
type Inventory struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	FacilityID       string    `gorm:"type:text;not null;uniqueIndex:idx_inventory_facility_item" json:"facility_id"`
	ItemID           string    `gorm:"type:text;not null;uniqueIndex:idx_inventory_facility_item" json:"item_id"`
	Quantity         int       `gorm:"not null;default:0" json:"quantity"`
	SafetyStockLevel int       `gorm:"not null;default:0" json:"safety_stock_level"`
	ConsumptionRate  float64   `gorm:"not null;default:0" json:"consumption_rate"`
	Facility         Facility  `gorm:"foreignKey:FacilityID" json:"-"`
	Item             Item      `gorm:"foreignKey:ItemID" json:"-"`
}

// KnowledgeRule is a constraint tagged to an entity (item name, facility id or weather class)
type KnowledgeRule struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	EntityValue     string `gorm:"not null;index:idx_knowledge_entity_rule" json:"entity_value"`
	RuleType        string `gorm:"not null;index:idx_knowledge_entity_rule" json:"rule_type"`
	ConstraintValue string `gorm:"not null" json:"constraint_value"`
}

// TableName keeps the knowledge base table name used by the operational systems
func (KnowledgeRule) TableName() string {
	return "knowledge_base"
}

// RequestDetails is the requesting side of a solution card payload
type RequestDetails struct {
	RequestorPHC   string `json:"requestor_phc"`
	Item           string `json:"item"`
	QuantityNeeded int    `json:"quantity_needed"`
}

// Recommendation is the proposed transfer of a solution card payload
type Recommendation struct {
	Quantity  int           `json:"quantity"`
	Logistics LogisticsPlan `json:"logistics"`
}

// CardPayload is the structured payload embedded in a solution card
type CardPayload struct {
	RequestDetails RequestDetails `json:"request_details"`
	Recommendation Recommendation `json:"recommendation"`
}

// SolutionCard is the persisted transfer decision
type SolutionCard struct {
	ID               uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time                       `gorm:"autoCreateTime" json:"created_at"`
	Status           string                          `gorm:"not null" json:"status"`
	Payload          datatypes.JSONType[CardPayload] `json:"payload"`
	PriorityScore    int                             `gorm:"not null" json:"priority_score"`
	Rationale        string                          `gorm:"column:ai_rationale_summary" json:"rationale"`
	FromFacilityID   string                          `gorm:"column:from_facilityid;type:text;not null" json:"from_facility"`
	ToFacilityID     string                          `gorm:"column:to_facilityid;type:text;not null" json:"to_facility"`
	IdempotencyToken uuid.UUID                       `gorm:"type:uuid;not null;uniqueIndex" json:"idempotency_token"`
	Source           string                          `gorm:"not null" json:"source"`
	ConfidenceScore  float64                         `gorm:"not null" json:"confidence_score"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Facility{},
		&Item{},
		&ItemAlias{},
		&Inventory{},
		&KnowledgeRule{},
		&SolutionCard{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
