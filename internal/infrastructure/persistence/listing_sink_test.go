package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/infrastructure/persistence/models"
)

// setupListingTestDB creates an in-memory SQLite database for testing
func setupListingTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE marketplace_orders (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			provider_order_id TEXT NOT NULL,
			status TEXT,
			total NUMERIC,
			currency TEXT,
			placed_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(tenant_id, provider_order_id)
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE marketplace_listings (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			provider_product_id TEXT NOT NULL,
			sku TEXT,
			title TEXT,
			price NUMERIC,
			quantity INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(tenant_id, provider_product_id)
		)
	`).Error
	require.NoError(t, err)

	return db
}

func orderSummary(id, status string, total string) integration.OrderSummary {
	return integration.OrderSummary{
		ProviderOrderID: id,
		Status:          status,
		Total:           decimal.RequireFromString(total),
		Currency:        "BRL",
		PlacedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGormListingSink_ConsumeOrders(t *testing.T) {
	db := setupListingTestDB(t)
	sink := NewGormListingSink(db, nil)
	tenantID := uuid.New()

	inserted, updated, err := sink.ConsumeOrders(context.Background(), tenantID, []integration.OrderSummary{
		orderSummary("ord-1", "paid", "120.50"),
		orderSummary("ord-2", "pending", "33.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, updated)

	// Re-syncing one order plus a new one splits the counts
	inserted, updated, err = sink.ConsumeOrders(context.Background(), tenantID, []integration.OrderSummary{
		orderSummary("ord-2", "paid", "33.00"),
		orderSummary("ord-3", "paid", "75.25"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, updated)

	var row models.MarketplaceOrderModel
	require.NoError(t, db.Where("tenant_id = ? AND provider_order_id = ?", tenantID, "ord-2").First(&row).Error)
	assert.Equal(t, "paid", row.Status)

	var count int64
	require.NoError(t, db.Model(&models.MarketplaceOrderModel{}).Where("tenant_id = ?", tenantID).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestGormListingSink_ConsumeOrders_TenantsIsolated(t *testing.T) {
	db := setupListingTestDB(t)
	sink := NewGormListingSink(db, nil)

	tenantA := uuid.New()
	tenantB := uuid.New()

	_, _, err := sink.ConsumeOrders(context.Background(), tenantA, []integration.OrderSummary{
		orderSummary("ord-1", "paid", "10.00"),
	})
	require.NoError(t, err)

	// Same provider order id under another tenant is a fresh insert
	inserted, updated, err := sink.ConsumeOrders(context.Background(), tenantB, []integration.OrderSummary{
		orderSummary("ord-1", "pending", "10.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, updated)
}

func TestGormListingSink_ConsumeOrders_EmptyPage(t *testing.T) {
	db := setupListingTestDB(t)
	sink := NewGormListingSink(db, nil)

	inserted, updated, err := sink.ConsumeOrders(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Zero(t, updated)
}

func TestGormListingSink_ConsumeProducts(t *testing.T) {
	db := setupListingTestDB(t)
	sink := NewGormListingSink(db, nil)
	tenantID := uuid.New()

	products := []integration.ProductSummary{
		{ProviderProductID: "MLB-1", SKU: "SKU-1", Title: "Cable", Price: decimal.RequireFromString("19.90"), Quantity: 10},
		{ProviderProductID: "MLB-2", SKU: "SKU-2", Title: "Charger", Price: decimal.RequireFromString("49.90"), Quantity: 4},
	}

	inserted, updated, err := sink.ConsumeProducts(context.Background(), tenantID, products)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, updated)

	// Overwrite with a new quantity
	products[0].Quantity = 7
	inserted, updated, err = sink.ConsumeProducts(context.Background(), tenantID, products[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, updated)

	var row models.MarketplaceListingModel
	require.NoError(t, db.Where("tenant_id = ? AND provider_product_id = ?", tenantID, "MLB-1").First(&row).Error)
	assert.Equal(t, int64(7), row.Quantity)
	assert.Equal(t, "SKU-1", row.SKU)
}
