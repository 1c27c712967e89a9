package integrationapp

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercehub/backend/internal/domain/integration"
)

type fakePageSink struct {
	orderBatches   [][]integration.OrderSummary
	productBatches [][]integration.ProductSummary
	ordersErr      error
	productsErr    error
}

func (s *fakePageSink) ConsumeOrders(ctx context.Context, tenantID uuid.UUID, orders []integration.OrderSummary) (int, int, error) {
	if s.ordersErr != nil {
		return 0, 0, s.ordersErr
	}
	s.orderBatches = append(s.orderBatches, orders)
	// first batch counts as inserts, later ones as updates
	if len(s.orderBatches) == 1 {
		return len(orders), 0, nil
	}
	return 0, len(orders), nil
}

func (s *fakePageSink) ConsumeProducts(ctx context.Context, tenantID uuid.UUID, products []integration.ProductSummary) (int, int, error) {
	if s.productsErr != nil {
		return 0, 0, s.productsErr
	}
	s.productBatches = append(s.productBatches, products)
	return len(products), 0, nil
}

func orderPage(count int, hasNext bool) *integration.OrderPage {
	orders := make([]integration.OrderSummary, count)
	return &integration.OrderPage{Orders: orders, TotalCount: int64(count), HasNextPage: hasNext}
}

func productPage(count int, hasNext bool) *integration.ProductPage {
	products := make([]integration.ProductSummary, count)
	return &integration.ProductPage{Products: products, TotalCount: int64(count), HasNextPage: hasNext}
}

func TestListingETL_Orders_PagesUntilExhausted(t *testing.T) {
	provider := &fakeProvider{
		code: integration.ProviderCodeMercadoLivre,
		orderPages: []*integration.OrderPage{
			orderPage(50, true),
			orderPage(50, true),
			orderPage(20, false),
		},
	}
	sink := &fakePageSink{}
	etl := NewListingETL(sink, 50, nil)

	result, err := etl.Run(context.Background(), provider, uuid.New(), integration.SyncResourceOrders, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, provider.orderCalls)
	assert.Equal(t, 120, result.Processed)
	assert.Equal(t, 50, result.Inserted)
	assert.Equal(t, 70, result.Updated)
	assert.Len(t, sink.orderBatches, 3)
}

func TestListingETL_Orders_SinglePage(t *testing.T) {
	provider := &fakeProvider{
		code:       integration.ProviderCodeBling,
		orderPages: []*integration.OrderPage{orderPage(7, false)},
	}
	sink := &fakePageSink{}
	etl := NewListingETL(sink, 50, nil)

	result, err := etl.Run(context.Background(), provider, uuid.New(), integration.SyncResourceOrders, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.orderCalls)
	assert.Equal(t, 7, result.Processed)
}

func TestListingETL_Orders_ProviderError(t *testing.T) {
	providerErr := errors.New("listing pull failed")
	provider := &fakeProvider{
		code:      integration.ProviderCodeShopee,
		ordersErr: providerErr,
	}
	etl := NewListingETL(&fakePageSink{}, 50, nil)

	_, err := etl.Run(context.Background(), provider, uuid.New(), integration.SyncResourceOrders, nil)
	assert.ErrorIs(t, err, providerErr)
}

func TestListingETL_Orders_SinkError(t *testing.T) {
	sinkErr := errors.New("write failed")
	provider := &fakeProvider{
		code:       integration.ProviderCodeBling,
		orderPages: []*integration.OrderPage{orderPage(50, true)},
	}
	etl := NewListingETL(&fakePageSink{ordersErr: sinkErr}, 50, nil)

	result, err := etl.Run(context.Background(), provider, uuid.New(), integration.SyncResourceOrders, nil)
	assert.ErrorIs(t, err, sinkErr)
	// Nothing was consumed, so nothing is counted
	assert.Equal(t, 0, result.Processed)
}

func TestListingETL_Products(t *testing.T) {
	provider := &fakeProvider{
		code: integration.ProviderCodeAmazon,
		productPgs: []*integration.ProductPage{
			productPage(50, true),
			productPage(30, false),
		},
	}
	sink := &fakePageSink{}
	etl := NewListingETL(sink, 50, nil)

	result, err := etl.Run(context.Background(), provider, uuid.New(), integration.SyncResourceProducts, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.productCalls)
	assert.Equal(t, 80, result.Processed)
	assert.Equal(t, 80, result.Inserted)
}

func TestListingETL_Finance_NoOp(t *testing.T) {
	provider := &fakeProvider{code: integration.ProviderCodeBling}
	etl := NewListingETL(&fakePageSink{}, 50, nil)

	result, err := etl.Run(context.Background(), provider, uuid.New(), integration.SyncResourceFinance, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 0, provider.orderCalls)
	assert.Equal(t, 0, provider.productCalls)
}

func TestListingETL_InvalidResource(t *testing.T) {
	provider := &fakeProvider{code: integration.ProviderCodeBling}
	etl := NewListingETL(&fakePageSink{}, 50, nil)

	_, err := etl.Run(context.Background(), provider, uuid.New(), "all", nil)
	assert.ErrorIs(t, err, integration.ErrInvalidResource)
}
