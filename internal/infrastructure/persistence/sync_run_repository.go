package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/infrastructure/persistence/models"
)

// GormSyncRunRepository implements SyncRunRepository using GORM
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

var _ integration.SyncRunRepository = (*GormSyncRunRepository)(nil)

// Create appends a new run row
func (r *GormSyncRunRepository) Create(ctx context.Context, run *integration.SyncRun) error {
	model := models.SyncRunModelFromDomain(run)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save updates an existing run row
func (r *GormSyncRunRepository) Save(ctx context.Context, run *integration.SyncRun) error {
	model := models.SyncRunModelFromDomain(run)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a run by its identifier within a tenant
func (r *GormSyncRunRepository) FindByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*integration.SyncRun, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrRunNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds runs matching the filter, newest first
func (r *GormSyncRunRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter integration.SyncRunFilter) ([]integration.SyncRun, int64, error) {
	var total int64
	countQuery := r.applyFilter(r.db.WithContext(ctx).Model(&models.SyncRunModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.SyncRunModel{}).Where("tenant_id = ?", tenantID), filter).
		Order("started_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var runModels []models.SyncRunModel
	if err := query.Find(&runModels).Error; err != nil {
		return nil, 0, err
	}

	runs := make([]integration.SyncRun, len(runModels))
	for i, model := range runModels {
		runs[i] = *model.ToDomain()
	}
	return runs, total, nil
}

func (r *GormSyncRunRepository) applyFilter(query *gorm.DB, filter integration.SyncRunFilter) *gorm.DB {
	if filter.Provider != nil && filter.Provider.IsValid() {
		query = query.Where("provider = ?", *filter.Provider)
	}
	if filter.Status != nil && filter.Status.IsValid() {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}
