package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commercehub/backend/internal/application/integrationapp"
	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/infrastructure/persistence/models"
)

// GormListingSink lands synced order and product pages in the marketplace
// staging tables. Re-synced rows are overwritten in place, so the tables
// always reflect the provider's latest view.
type GormListingSink struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormListingSink creates a new GormListingSink
func NewGormListingSink(db *gorm.DB, logger *zap.Logger) *GormListingSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormListingSink{db: db, logger: logger}
}

var _ integrationapp.PageSink = (*GormListingSink)(nil)

// ConsumeOrders upserts one page of orders and reports how many rows were
// new versus overwritten.
func (s *GormListingSink) ConsumeOrders(ctx context.Context, tenantID uuid.UUID, orders []integration.OrderSummary) (int, int, error) {
	if len(orders) == 0 {
		return 0, 0, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ProviderOrderID
	}

	var existing []string
	if err := s.db.WithContext(ctx).
		Model(&models.MarketplaceOrderModel{}).
		Where("tenant_id = ? AND provider_order_id IN ?", tenantID, ids).
		Pluck("provider_order_id", &existing).Error; err != nil {
		return 0, 0, err
	}

	now := time.Now().UTC()
	rows := make([]models.MarketplaceOrderModel, len(orders))
	for i, o := range orders {
		rows[i].FromSummary(tenantID, o)
		rows[i].ID = uuid.New()
		rows[i].CreatedAt = now
		rows[i].UpdatedAt = now
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "provider_order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "total", "currency", "placed_at", "updated_at",
			}),
		}).
		Create(&rows).Error; err != nil {
		return 0, 0, err
	}

	updated := len(existing)
	return len(orders) - updated, updated, nil
}

// ConsumeProducts upserts one page of product listings
func (s *GormListingSink) ConsumeProducts(ctx context.Context, tenantID uuid.UUID, products []integration.ProductSummary) (int, int, error) {
	if len(products) == 0 {
		return 0, 0, nil
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ProviderProductID
	}

	var existing []string
	if err := s.db.WithContext(ctx).
		Model(&models.MarketplaceListingModel{}).
		Where("tenant_id = ? AND provider_product_id IN ?", tenantID, ids).
		Pluck("provider_product_id", &existing).Error; err != nil {
		return 0, 0, err
	}

	now := time.Now().UTC()
	rows := make([]models.MarketplaceListingModel, len(products))
	for i, p := range products {
		rows[i].FromSummary(tenantID, p)
		rows[i].ID = uuid.New()
		rows[i].CreatedAt = now
		rows[i].UpdatedAt = now
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "provider_product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sku", "title", "price", "quantity", "updated_at",
			}),
		}).
		Create(&rows).Error; err != nil {
		return 0, 0, err
	}

	updated := len(existing)
	return len(products) - updated, updated, nil
}
