package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/infrastructure/persistence/models"
)

// recentOverwriteWindow is the window within which an upsert that replaces an
// existing row is logged as a possible concurrent-callback race.
const recentOverwriteWindow = 30 * time.Second

// GormCredentialRepository implements CredentialRepository using GORM
type GormCredentialRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB, logger *zap.Logger) *GormCredentialRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormCredentialRepository{db: db, logger: logger}
}

var _ integration.CredentialRepository = (*GormCredentialRepository)(nil)

// FindByTenantAndProvider finds the record for a tenant/provider pair
func (r *GormCredentialRepository) FindByTenantAndProvider(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderCode) (*integration.Credential, error) {
	var model models.MerchantIntegrationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ?", tenantID, provider).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrCredentialNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds every credential record for a tenant
func (r *GormCredentialRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]integration.Credential, error) {
	var credentialModels []models.MerchantIntegrationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("provider ASC").
		Find(&credentialModels).Error; err != nil {
		return nil, err
	}

	credentials := make([]integration.Credential, len(credentialModels))
	for i, model := range credentialModels {
		credentials[i] = *model.ToDomain()
	}
	return credentials, nil
}

// Upsert inserts the record or overwrites the existing row for the same
// (tenant, provider) pair. Concurrent callbacks resolve last-writer-wins;
// an overwrite of a row updated within the last 30 seconds is logged as the
// only detection surface for that race.
func (r *GormCredentialRepository) Upsert(ctx context.Context, credential *integration.Credential) error {
	var existing models.MerchantIntegrationModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ?", credential.TenantID, credential.Provider).
		First(&existing).Error
	switch {
	case err == nil:
		if time.Since(existing.UpdatedAt) < recentOverwriteWindow {
			r.logger.Warn("overwriting recently updated integration credential",
				zap.String("tenant_id", credential.TenantID.String()),
				zap.String("provider", credential.Provider.String()),
				zap.Time("previous_update", existing.UpdatedAt))
		}
		// Keep the original row identity and creation time
		credential.ID = existing.ID
		credential.CreatedAt = existing.CreatedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fresh insert
	default:
		return err
	}

	model := models.MerchantIntegrationModelFromDomain(credential)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "provider"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// Save updates an existing record
func (r *GormCredentialRepository) Save(ctx context.Context, credential *integration.Credential) error {
	model := models.MerchantIntegrationModelFromDomain(credential)
	return r.db.WithContext(ctx).Save(model).Error
}
