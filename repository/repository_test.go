package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-orders/apperrors"
	"github.com/yeremiapane/restaurant-orders/database"
	"github.com/yeremiapane/restaurant-orders/models"
)

// setupTestDB -> sqlite in-memory on a single connection + migrate
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedTable(t *testing.T, db *gorm.DB, merchantID uint, label string) models.Table {
	t.Helper()
	table := models.Table{MerchantID: merchantID, TableNumber: label, Status: "available"}
	require.NoError(t, db.Create(&table).Error)
	return table
}

func newOrder(merchantID uint, tableID *uint, total string) *models.Order {
	return &models.Order{
		MerchantID: merchantID,
		TableID:    tableID,
		Status:     models.OrderStatusPending,
		TotalPrice: decimal.RequireFromString(total),
	}
}

func TestFindTableByLabel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	seedTable(t, db, 1, "12")
	seedTable(t, db, 2, "12")

	table, err := repo.FindTableByLabel(context.Background(), 2, "12")
	require.NoError(t, err)
	assert.Equal(t, uint(2), table.MerchantID)

	_, err = repo.FindTableByLabel(context.Background(), 1, "99")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateOrderWithItems_WritesOrderItemsAndChanges(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	table := seedTable(t, db, 1, "12")

	order := newOrder(1, &table.ID, "28.25")
	items := []models.OrderItem{
		{MenuID: 1, Name: "Burger", Quantity: 2, Price: decimal.RequireFromString("12.50")},
		{MenuID: 2, Name: "Fries", Quantity: 1, Price: decimal.RequireFromString("3.25")},
	}
	require.NoError(t, repo.CreateOrderWithItems(context.Background(), order, items))
	require.NotZero(t, order.ID)
	require.Len(t, order.OrderItems, 2)

	got, err := repo.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, got.Status)
	assert.True(t, decimal.RequireFromString("28.25").Equal(got.TotalPrice))
	assert.Equal(t, "12", got.TableLabel())
	require.Len(t, got.OrderItems, 2)
	assert.True(t, decimal.RequireFromString("12.50").Equal(got.OrderItems[0].Price))

	changes, err := repo.UnprocessedChanges(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, changes, 3)
	assert.Equal(t, models.ChangeTableOrders, changes[0].TableName)
	assert.Equal(t, models.ActionInsert, changes[0].ActionType)
	assert.Equal(t, order.ID, changes[0].RecordID)
	assert.Equal(t, models.ChangeTableOrderItems, changes[1].TableName)
	assert.Equal(t, uint(1), changes[2].MerchantID)
}

func TestCreateOrderWithItems_RollsBackOnItemFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	require.NoError(t, db.Migrator().DropTable(&models.OrderItem{}))

	order := newOrder(1, nil, "12.50")
	items := []models.OrderItem{{MenuID: 1, Name: "Burger", Quantity: 1, Price: decimal.RequireFromString("12.50")}}
	err := repo.CreateOrderWithItems(context.Background(), order, items)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.DBChange{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListOrders_NewestFirstScopedToMerchant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	first := newOrder(1, nil, "1.00")
	first.CreatedAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.CreateOrderWithItems(ctx, first, nil))
	second := newOrder(1, nil, "2.00")
	require.NoError(t, repo.CreateOrderWithItems(ctx, second, nil))
	require.NoError(t, repo.CreateOrderWithItems(ctx, newOrder(2, nil, "3.00"), nil))

	orders, err := repo.ListOrders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
	assert.Nil(t, orders[0].Table)
}

func TestUpdateOrderStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	order := newOrder(4, nil, "5.00")
	require.NoError(t, repo.CreateOrderWithItems(ctx, order, nil))

	require.NoError(t, repo.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPreparing))

	got, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, got.Status)

	changes, err := repo.UnprocessedChanges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, models.ActionUpdate, changes[1].ActionType)
	assert.Equal(t, uint(4), changes[1].MerchantID)

	err = repo.UpdateOrderStatus(ctx, 999, models.OrderStatusServed)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarkChangesProcessed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.CreateOrderWithItems(ctx, newOrder(1, nil, "1.00"), nil))
	require.NoError(t, repo.CreateOrderWithItems(ctx, newOrder(1, nil, "1.00"), nil))

	changes, err := repo.UnprocessedChanges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.NoError(t, repo.MarkChangesProcessed(ctx, []uint{changes[0].ID}))

	rest, err := repo.UnprocessedChanges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.NotEqual(t, changes[0].ID, rest[0].ID)
}

func TestMenus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	menu := models.Menu{MerchantID: 3, Name: "Burger", Price: decimal.RequireFromString("12.50")}
	require.NoError(t, db.Create(&menu).Error)

	menus, err := repo.MenusByMerchant(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, menus, 1)

	got, err := repo.GetMenu(context.Background(), 3, menu.ID)
	require.NoError(t, err)
	assert.Equal(t, "Burger", got.Name)

	_, err = repo.GetMenu(context.Background(), 4, menu.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
