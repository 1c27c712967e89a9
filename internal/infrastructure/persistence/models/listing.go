package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/commercehub/backend/internal/domain/integration"
)

// MarketplaceOrderModel is the landing table for synced provider orders.
// Rows are keyed by (tenant, provider order id) and overwritten on re-sync.
type MarketplaceOrderModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_marketplace_orders_tenant_order,priority:1"`
	ProviderOrderID string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_marketplace_orders_tenant_order,priority:2"`
	Status          string          `gorm:"type:varchar(32)"`
	Total           decimal.Decimal `gorm:"type:numeric(14,2)"`
	Currency        string          `gorm:"type:varchar(3)"`
	PlacedAt        time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MarketplaceOrderModel) TableName() string {
	return "marketplace_orders"
}

// FromSummary populates the model from a normalized provider order row
func (m *MarketplaceOrderModel) FromSummary(tenantID uuid.UUID, o integration.OrderSummary) {
	m.TenantID = tenantID
	m.ProviderOrderID = o.ProviderOrderID
	m.Status = o.Status
	m.Total = o.Total
	m.Currency = o.Currency
	m.PlacedAt = o.PlacedAt
}

// MarketplaceListingModel is the landing table for synced provider products
type MarketplaceListingModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_marketplace_listings_tenant_product,priority:1"`
	ProviderProductID string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_marketplace_listings_tenant_product,priority:2"`
	SKU               string          `gorm:"type:varchar(64)"`
	Title             string          `gorm:"type:varchar(255)"`
	Price             decimal.Decimal `gorm:"type:numeric(14,2)"`
	Quantity          int64           `gorm:"not null;default:0"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MarketplaceListingModel) TableName() string {
	return "marketplace_listings"
}

// FromSummary populates the model from a normalized provider product row
func (m *MarketplaceListingModel) FromSummary(tenantID uuid.UUID, p integration.ProductSummary) {
	m.TenantID = tenantID
	m.ProviderProductID = p.ProviderProductID
	m.SKU = p.SKU
	m.Title = p.Title
	m.Price = p.Price
	m.Quantity = p.Quantity
}
