package integrationapp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercehub/backend/internal/domain/integration"
)

// maxETLPages bounds a single run so a provider reporting an absurd total
// cannot keep a run open indefinitely.
const maxETLPages = 200

// ListingETL is the default ResourceETL: it pages through the provider's
// listings and hands each page to a PageSink. Finance data has no listing
// endpoint on any of the connected providers yet, so that resource is a
// zero-count no-op.
type ListingETL struct {
	sink     PageSink
	pageSize int
	logger   *zap.Logger
}

// PageSink consumes normalized pages and reports how many records were new
// versus updated locally.
type PageSink interface {
	ConsumeOrders(ctx context.Context, tenantID uuid.UUID, orders []integration.OrderSummary) (inserted, updated int, err error)
	ConsumeProducts(ctx context.Context, tenantID uuid.UUID, products []integration.ProductSummary) (inserted, updated int, err error)
}

var _ ResourceETL = (*ListingETL)(nil)

// NewListingETL creates a new ListingETL
func NewListingETL(sink PageSink, pageSize int, logger *zap.Logger) *ListingETL {
	if pageSize <= 0 {
		pageSize = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingETL{sink: sink, pageSize: pageSize, logger: logger}
}

// Run pulls every page of one resource and feeds it to the sink
func (e *ListingETL) Run(ctx context.Context, provider integration.MarketplaceProvider, tenantID uuid.UUID, resource integration.SyncResource, filters map[string]any) (integration.ResourceResult, error) {
	result := integration.ResourceResult{Resource: resource}

	switch resource {
	case integration.SyncResourceOrders:
		for pageNo := 0; pageNo < maxETLPages; pageNo++ {
			page, err := provider.ListOrders(ctx, integration.ListPage{Offset: pageNo * e.pageSize, Limit: e.pageSize})
			if err != nil {
				return result, err
			}
			inserted, updated, err := e.sink.ConsumeOrders(ctx, tenantID, page.Orders)
			if err != nil {
				return result, err
			}
			result.Processed += len(page.Orders)
			result.Inserted += inserted
			result.Updated += updated
			if !page.HasNextPage {
				break
			}
		}
	case integration.SyncResourceProducts:
		for pageNo := 0; pageNo < maxETLPages; pageNo++ {
			page, err := provider.ListProducts(ctx, integration.ListPage{Offset: pageNo * e.pageSize, Limit: e.pageSize})
			if err != nil {
				return result, err
			}
			inserted, updated, err := e.sink.ConsumeProducts(ctx, tenantID, page.Products)
			if err != nil {
				return result, err
			}
			result.Processed += len(page.Products)
			result.Inserted += inserted
			result.Updated += updated
			if !page.HasNextPage {
				break
			}
		}
	case integration.SyncResourceFinance:
		e.logger.Debug("finance sync is a no-op for listing providers",
			zap.String("provider", provider.Code().String()))
	default:
		return result, fmt.Errorf("%w: %s", integration.ErrInvalidResource, resource)
	}

	return result, nil
}
