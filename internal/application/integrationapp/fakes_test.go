package integrationapp

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/infrastructure/crypto"
	"github.com/commercehub/backend/internal/infrastructure/oauthstate"
)

const (
	testCipherSecret = "cipher0secret0for0service0tests0000"
	testStateSecret  = "state0secret0for0service0tests00000"
)

func newTestCipher(t interface{ Fatalf(string, ...any) }) *crypto.TokenCipher {
	cipher, err := crypto.NewTokenCipher(testCipherSecret)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	return cipher
}

func newTestCodec(t interface{ Fatalf(string, ...any) }) *oauthstate.Codec {
	codec, err := oauthstate.NewCodec(testStateSecret, 10*time.Minute)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return codec
}

// ---------------------------------------------------------------------------
// Provider / registry fakes
// ---------------------------------------------------------------------------

type fakeProvider struct {
	code integration.ProviderCode

	authURL  string
	authErr  error
	grant    *integration.TokenGrant
	grantErr error

	refreshGrant *integration.TokenGrant
	refreshErr   error

	health      integration.HealthCheckResult
	orderPages  []*integration.OrderPage
	ordersErr   error
	productPgs  []*integration.ProductPage
	productsErr error

	tokens integration.TokenSet

	exchangeCalls int
	refreshCalls  int
	healthCalls   int
	orderCalls    int
	productCalls  int
}

var _ integration.MarketplaceProvider = (*fakeProvider)(nil)

func (p *fakeProvider) Code() integration.ProviderCode { return p.code }

func (p *fakeProvider) BuildAuthorizationURL(params integration.AuthorizeParams) (string, error) {
	if p.authErr != nil {
		return "", p.authErr
	}
	return p.authURL + "?state=" + params.State, nil
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, params integration.ExchangeParams) (*integration.TokenGrant, error) {
	p.exchangeCalls++
	if p.grantErr != nil {
		return nil, p.grantErr
	}
	return p.grant, nil
}

func (p *fakeProvider) RefreshTokens(ctx context.Context, refreshToken string) (*integration.TokenGrant, error) {
	p.refreshCalls++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	return p.refreshGrant, nil
}

func (p *fakeProvider) SetTokens(tokens integration.TokenSet) { p.tokens = tokens }

func (p *fakeProvider) HealthCheck(ctx context.Context) integration.HealthCheckResult {
	p.healthCalls++
	return p.health
}

func (p *fakeProvider) ListOrders(ctx context.Context, page integration.ListPage) (*integration.OrderPage, error) {
	p.orderCalls++
	if p.ordersErr != nil {
		return nil, p.ordersErr
	}
	if len(p.orderPages) == 0 {
		return &integration.OrderPage{}, nil
	}
	idx := p.orderCalls - 1
	if idx >= len(p.orderPages) {
		idx = len(p.orderPages) - 1
	}
	return p.orderPages[idx], nil
}

func (p *fakeProvider) ListProducts(ctx context.Context, page integration.ListPage) (*integration.ProductPage, error) {
	p.productCalls++
	if p.productsErr != nil {
		return nil, p.productsErr
	}
	if len(p.productPgs) == 0 {
		return &integration.ProductPage{}, nil
	}
	idx := p.productCalls - 1
	if idx >= len(p.productPgs) {
		idx = len(p.productPgs) - 1
	}
	return p.productPgs[idx], nil
}

type fakeRegistry struct {
	providers map[integration.ProviderCode]*fakeProvider
}

var _ integration.ProviderRegistry = (*fakeRegistry)(nil)

func (r *fakeRegistry) Provider(code integration.ProviderCode) (integration.MarketplaceProvider, error) {
	if !code.IsValid() {
		return nil, integration.ErrInvalidProvider
	}
	provider, ok := r.providers[code]
	if !ok {
		return nil, integration.ErrNotConfigured
	}
	return provider, nil
}

func (r *fakeRegistry) Codes() []integration.ProviderCode {
	codes := make([]integration.ProviderCode, 0, len(r.providers))
	for code := range r.providers {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// ---------------------------------------------------------------------------
// Repository fakes
// ---------------------------------------------------------------------------

type credentialKey struct {
	tenant   uuid.UUID
	provider integration.ProviderCode
}

type fakeCredentialRepo struct {
	records map[credentialKey]*integration.Credential

	upsertCalls int
	saveCalls   int
	findErr     error
	saveErr     error
}

var _ integration.CredentialRepository = (*fakeCredentialRepo)(nil)

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{records: make(map[credentialKey]*integration.Credential)}
}

func (r *fakeCredentialRepo) FindByTenantAndProvider(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderCode) (*integration.Credential, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	record, ok := r.records[credentialKey{tenantID, provider}]
	if !ok {
		return nil, integration.ErrCredentialNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *fakeCredentialRepo) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]integration.Credential, error) {
	var out []integration.Credential
	for key, record := range r.records {
		if key.tenant == tenantID {
			out = append(out, *record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (r *fakeCredentialRepo) Upsert(ctx context.Context, credential *integration.Credential) error {
	r.upsertCalls++
	if r.saveErr != nil {
		return r.saveErr
	}
	clone := *credential
	r.records[credentialKey{credential.TenantID, credential.Provider}] = &clone
	return nil
}

func (r *fakeCredentialRepo) Save(ctx context.Context, credential *integration.Credential) error {
	r.saveCalls++
	if r.saveErr != nil {
		return r.saveErr
	}
	clone := *credential
	r.records[credentialKey{credential.TenantID, credential.Provider}] = &clone
	return nil
}

func (r *fakeCredentialRepo) stored(tenantID uuid.UUID, provider integration.ProviderCode) *integration.Credential {
	return r.records[credentialKey{tenantID, provider}]
}

type fakeSyncRunRepo struct {
	runs map[uuid.UUID]*integration.SyncRun

	createCalls int
	createErr   error
}

var _ integration.SyncRunRepository = (*fakeSyncRunRepo)(nil)

func newFakeSyncRunRepo() *fakeSyncRunRepo {
	return &fakeSyncRunRepo{runs: make(map[uuid.UUID]*integration.SyncRun)}
}

func (r *fakeSyncRunRepo) Create(ctx context.Context, run *integration.SyncRun) error {
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	clone := *run
	r.runs[run.ID] = &clone
	return nil
}

func (r *fakeSyncRunRepo) Save(ctx context.Context, run *integration.SyncRun) error {
	clone := *run
	r.runs[run.ID] = &clone
	return nil
}

func (r *fakeSyncRunRepo) FindByID(ctx context.Context, tenantID uuid.UUID, runID uuid.UUID) (*integration.SyncRun, error) {
	run, ok := r.runs[runID]
	if !ok || run.TenantID != tenantID {
		return nil, integration.ErrRunNotFound
	}
	clone := *run
	return &clone, nil
}

func (r *fakeSyncRunRepo) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter integration.SyncRunFilter) ([]integration.SyncRun, int64, error) {
	var out []integration.SyncRun
	for _, run := range r.runs {
		if run.TenantID != tenantID {
			continue
		}
		if filter.Provider != nil && run.Provider != *filter.Provider {
			continue
		}
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		out = append(out, *run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, int64(len(out)), nil
}

// ---------------------------------------------------------------------------
// ETL fake
// ---------------------------------------------------------------------------

type fakeETL struct {
	results map[integration.SyncResource]integration.ResourceResult
	errs    map[integration.SyncResource]error
	calls   []integration.SyncResource
}

var _ ResourceETL = (*fakeETL)(nil)

func (e *fakeETL) Run(ctx context.Context, provider integration.MarketplaceProvider, tenantID uuid.UUID, resource integration.SyncResource, filters map[string]any) (integration.ResourceResult, error) {
	e.calls = append(e.calls, resource)
	if err := e.errs[resource]; err != nil {
		return integration.ResourceResult{Resource: resource}, err
	}
	if result, ok := e.results[resource]; ok {
		return result, nil
	}
	return integration.ResourceResult{Resource: resource}, nil
}
