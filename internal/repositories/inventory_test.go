package repositories

import (
	"context"
	"fmt"
	"testing"

	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.SetupModels(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func ptr(v float64) *float64 { return &v }

func seedInventory(t *testing.T, db *gorm.DB) {
	t.Helper()

	facilities := []models.Facility{
		{ID: "PHC-A", Name: "Aundh PHC", District: "Pune", Latitude: ptr(18.5590), Longitude: ptr(73.8070)},
		{ID: "PHC-B", Name: "Baner PHC", District: "Pune", Latitude: ptr(18.5600), Longitude: ptr(73.7860)},
		{ID: "PHC-C", Name: "Chakan PHC", District: "Pune", Latitude: ptr(18.7600), Longitude: ptr(73.8600)},
		{ID: "PHC-D", Name: "Daund PHC", District: "Pune"},
	}
	require.NoError(t, db.Create(&facilities).Error)

	items := []models.Item{
		{ID: "ITM-INS", Name: "Insulin Glargine", GenericName: "insulin", Aliases: []models.ItemAlias{{Alias: "Lantus"}}},
		{ID: "ITM-INH", Name: "Insulin Human", GenericName: "insulin"},
		{ID: "ITM-PCM", Name: "Paracetamol 500mg", GenericName: "acetaminophen"},
		{ID: "ITM-ORS", Name: "ORS_100% Sachet", GenericName: "oral rehydration salts"},
	}
	require.NoError(t, db.Create(&items).Error)

	inventory := []models.Inventory{
		{ID: uuid.New(), FacilityID: "PHC-A", ItemID: "ITM-INS", Quantity: 10, SafetyStockLevel: 20, ConsumptionRate: 5},
		{ID: uuid.New(), FacilityID: "PHC-B", ItemID: "ITM-INS", Quantity: 200, SafetyStockLevel: 50, ConsumptionRate: 10},
		{ID: uuid.New(), FacilityID: "PHC-C", ItemID: "ITM-INS", Quantity: 60, SafetyStockLevel: 20, ConsumptionRate: 1},
		{ID: uuid.New(), FacilityID: "PHC-C", ItemID: "ITM-PCM", Quantity: 500, SafetyStockLevel: 100, ConsumptionRate: 20},
		{ID: uuid.New(), FacilityID: "PHC-D", ItemID: "ITM-PCM", Quantity: 30, SafetyStockLevel: 40, ConsumptionRate: 0},
	}
	require.NoError(t, db.Create(&inventory).Error)

	rules := []models.KnowledgeRule{
		{EntityValue: "Insulin Glargine", RuleType: models.RuleTypeStorage, ConstraintValue: "Cold chain 2-8C"},
		{EntityValue: "Insulin Glargine", RuleType: models.RuleTypeStorage, ConstraintValue: "Do not freeze"},
		{EntityValue: "PHC-B", RuleType: models.RuleTypeLogistics, ConstraintValue: "Ghat road after 6pm"},
		{EntityValue: "MONSOON", RuleType: models.RuleTypeWeather, ConstraintValue: "Waterproof packaging"},
	}
	require.NoError(t, db.Create(&rules).Error)
}

func TestFindItemIDs(t *testing.T) {
	db := newTestDB(t)
	seedInventory(t, db)
	repo := NewInventoryRepository(db)
	ctx := context.Background()

	t.Run("substring match is case insensitive and returns every match", func(t *testing.T) {
		ids, err := repo.FindItemIDs(ctx, "INSULIN")
		require.NoError(t, err)
		assert.Equal(t, []string{"ITM-INH", "ITM-INS"}, ids)
	})

	t.Run("matches generic names", func(t *testing.T) {
		ids, err := repo.FindItemIDs(ctx, "acetamin")
		require.NoError(t, err)
		assert.Equal(t, []string{"ITM-PCM"}, ids)
	})

	t.Run("matches aliases", func(t *testing.T) {
		ids, err := repo.FindItemIDs(ctx, "lantus")
		require.NoError(t, err)
		assert.Equal(t, []string{"ITM-INS"}, ids)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		ids, err := repo.FindItemIDs(ctx, "_100%")
		require.NoError(t, err)
		assert.Equal(t, []string{"ITM-ORS"}, ids)

		_, err = repo.FindItemIDs(ctx, "ins_lin")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := repo.FindItemIDs(ctx, "Amoxicillin")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := repo.FindItemIDs(ctx, "  ")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestQueryCandidateDonors(t *testing.T) {
	db := newTestDB(t)
	seedInventory(t, db)
	repo := NewInventoryRepository(db)

	rows, err := repo.QueryCandidateDonors(context.Background(), []string{"ITM-INS", "ITM-INH"}, "PHC-A", 50)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, models.InventoryJoin{
		FacilityID:       "PHC-B",
		FacilityName:     "Baner PHC",
		ItemID:           "ITM-INS",
		ItemName:         "Insulin Glargine",
		Quantity:         200,
		SafetyStockLevel: 50,
		ConsumptionRate:  10,
	}, rows[0])
	assert.Equal(t, "PHC-C", rows[1].FacilityID)

	t.Run("requestor is excluded", func(t *testing.T) {
		rows, err := repo.QueryCandidateDonors(context.Background(), []string{"ITM-INS"}, "PHC-B", 5)
		require.NoError(t, err)
		for _, r := range rows {
			assert.NotEqual(t, "PHC-B", r.FacilityID)
		}
	})

	t.Run("quantity must exceed the need", func(t *testing.T) {
		rows, err := repo.QueryCandidateDonors(context.Background(), []string{"ITM-INS"}, "PHC-A", 60)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "PHC-B", rows[0].FacilityID)
	})

	t.Run("no items", func(t *testing.T) {
		rows, err := repo.QueryCandidateDonors(context.Background(), nil, "PHC-A", 1)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestQueryAtRiskInventory(t *testing.T) {
	db := newTestDB(t)
	seedInventory(t, db)
	repo := NewInventoryRepository(db)

	rows, err := repo.QueryAtRiskInventory(context.Background(), 3)
	require.NoError(t, err)

	var keys []string
	for _, r := range rows {
		keys = append(keys, r.FacilityID+"/"+r.ItemID)
	}
	// PHC-A: 10-15 < 20, PHC-D: 30-0 < 40, PHC-C insulin: 60-3 >= 20
	assert.Equal(t, []string{"PHC-A/ITM-INS", "PHC-D/ITM-PCM"}, keys)
}

func TestGetCoordinates(t *testing.T) {
	db := newTestDB(t)
	seedInventory(t, db)
	repo := NewInventoryRepository(db)
	ctx := context.Background()

	coord, err := repo.GetCoordinates(ctx, "PHC-B")
	require.NoError(t, err)
	assert.Equal(t, models.Coordinate{Lat: 18.5600, Lon: 73.7860}, coord)

	_, err = repo.GetCoordinates(ctx, "PHC-D")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetCoordinates(ctx, "PHC-Z")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupConstraints(t *testing.T) {
	db := newTestDB(t)
	seedInventory(t, db)
	repo := NewInventoryRepository(db)
	ctx := context.Background()

	got, err := repo.LookupConstraints(ctx, "Insulin Glargine", models.RuleTypeStorage)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cold chain 2-8C", "Do not freeze"}, got)

	got, err = repo.LookupConstraints(ctx, "PHC-B", models.RuleTypeStorage)
	require.NoError(t, err)
	assert.Empty(t, got)
}
