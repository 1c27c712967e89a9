package models

import (
	"encoding/json"
	"time"

	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/google/uuid"
)

// MerchantIntegrationModel is the persistence model for the Credential domain
// entity. Token columns hold ciphertext only.
type MerchantIntegrationModel struct {
	ID                     uuid.UUID                `gorm:"type:uuid;primary_key"`
	TenantID               uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:ux_merchant_integrations_tenant_provider,priority:1"`
	Provider               integration.ProviderCode `gorm:"type:varchar(20);not null;uniqueIndex:ux_merchant_integrations_tenant_provider,priority:2"`
	AccessTokenCiphertext  string                   `gorm:"type:text"`
	RefreshTokenCiphertext string                   `gorm:"type:text"`
	ScopesJSON             string                   `gorm:"type:jsonb;column:scopes"`
	ProviderAccountID      string                   `gorm:"type:varchar(100)"`
	SiteID                 string                   `gorm:"type:varchar(20)"`
	SyncEnabled            bool                     `gorm:"not null;default:true"`
	WebhookEnabled         bool                     `gorm:"not null;default:false"`
	ErrorCount             int                      `gorm:"not null;default:0"`
	LastError              string                   `gorm:"type:text"`
	LastErrorAt            *time.Time
	LastSyncProductsAt     *time.Time
	LastSyncOrdersAt       *time.Time
	LastSyncFinanceAt      *time.Time
	CreatedAt              time.Time `gorm:"not null"`
	UpdatedAt              time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MerchantIntegrationModel) TableName() string {
	return "merchant_integrations"
}

// ToDomain converts the persistence model to a domain Credential entity.
func (m *MerchantIntegrationModel) ToDomain() *integration.Credential {
	cred := &integration.Credential{
		ID:                     m.ID,
		TenantID:               m.TenantID,
		Provider:               m.Provider,
		AccessTokenCiphertext:  m.AccessTokenCiphertext,
		RefreshTokenCiphertext: m.RefreshTokenCiphertext,
		ProviderAccountID:      m.ProviderAccountID,
		SiteID:                 m.SiteID,
		SyncEnabled:            m.SyncEnabled,
		WebhookEnabled:         m.WebhookEnabled,
		ErrorCount:             m.ErrorCount,
		LastError:              m.LastError,
		LastErrorAt:            m.LastErrorAt,
		LastSyncProductsAt:     m.LastSyncProductsAt,
		LastSyncOrdersAt:       m.LastSyncOrdersAt,
		LastSyncFinanceAt:      m.LastSyncFinanceAt,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}

	if m.ScopesJSON != "" {
		var scopes []string
		if err := json.Unmarshal([]byte(m.ScopesJSON), &scopes); err == nil {
			cred.Scopes = scopes
		}
	}

	return cred
}

// FromDomain populates the persistence model from a domain Credential entity.
func (m *MerchantIntegrationModel) FromDomain(c *integration.Credential) {
	m.ID = c.ID
	m.TenantID = c.TenantID
	m.Provider = c.Provider
	m.AccessTokenCiphertext = c.AccessTokenCiphertext
	m.RefreshTokenCiphertext = c.RefreshTokenCiphertext
	m.ProviderAccountID = c.ProviderAccountID
	m.SiteID = c.SiteID
	m.SyncEnabled = c.SyncEnabled
	m.WebhookEnabled = c.WebhookEnabled
	m.ErrorCount = c.ErrorCount
	m.LastError = c.LastError
	m.LastErrorAt = c.LastErrorAt
	m.LastSyncProductsAt = c.LastSyncProductsAt
	m.LastSyncOrdersAt = c.LastSyncOrdersAt
	m.LastSyncFinanceAt = c.LastSyncFinanceAt
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt

	if len(c.Scopes) > 0 {
		if jsonBytes, err := json.Marshal(c.Scopes); err == nil {
			m.ScopesJSON = string(jsonBytes)
		}
	} else {
		m.ScopesJSON = "[]"
	}
}

// MerchantIntegrationModelFromDomain creates a new persistence model from a
// domain Credential entity.
func MerchantIntegrationModelFromDomain(c *integration.Credential) *MerchantIntegrationModel {
	m := &MerchantIntegrationModel{}
	m.FromDomain(c)
	return m
}

// SyncRunModel is the persistence model for the SyncRun domain entity.
// Rows are created in running state and updated once with a terminal status.
type SyncRunModel struct {
	ID               uuid.UUID                 `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID                 `gorm:"type:uuid;not null;index:idx_sync_runs_tenant,priority:1"`
	Provider         integration.ProviderCode  `gorm:"type:varchar(20);not null;index:idx_sync_runs_tenant,priority:2"`
	Resource         integration.SyncResource  `gorm:"type:varchar(20);not null"`
	Status           integration.SyncRunStatus `gorm:"type:varchar(20);not null;default:'running'"`
	StartedAt        time.Time                 `gorm:"not null;index"`
	CompletedAt      *time.Time
	RecordsProcessed int       `gorm:"not null;default:0"`
	RecordsInserted  int       `gorm:"not null;default:0"`
	RecordsUpdated   int       `gorm:"not null;default:0"`
	ErrorMessage     string    `gorm:"type:text"`
	ResultsJSON      string    `gorm:"type:jsonb;column:results"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain SyncRun entity.
func (m *SyncRunModel) ToDomain() *integration.SyncRun {
	run := &integration.SyncRun{
		ID:               m.ID,
		TenantID:         m.TenantID,
		Provider:         m.Provider,
		Resource:         m.Resource,
		Status:           m.Status,
		StartedAt:        m.StartedAt,
		CompletedAt:      m.CompletedAt,
		RecordsProcessed: m.RecordsProcessed,
		RecordsInserted:  m.RecordsInserted,
		RecordsUpdated:   m.RecordsUpdated,
		ErrorMessage:     m.ErrorMessage,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}

	if m.ResultsJSON != "" {
		var results []integration.ResourceResult
		if err := json.Unmarshal([]byte(m.ResultsJSON), &results); err == nil {
			run.Results = results
		}
	}

	return run
}

// FromDomain populates the persistence model from a domain SyncRun entity.
func (m *SyncRunModel) FromDomain(r *integration.SyncRun) {
	m.ID = r.ID
	m.TenantID = r.TenantID
	m.Provider = r.Provider
	m.Resource = r.Resource
	m.Status = r.Status
	m.StartedAt = r.StartedAt
	m.CompletedAt = r.CompletedAt
	m.RecordsProcessed = r.RecordsProcessed
	m.RecordsInserted = r.RecordsInserted
	m.RecordsUpdated = r.RecordsUpdated
	m.ErrorMessage = r.ErrorMessage
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt

	if len(r.Results) > 0 {
		if jsonBytes, err := json.Marshal(r.Results); err == nil {
			m.ResultsJSON = string(jsonBytes)
		}
	} else {
		m.ResultsJSON = "[]"
	}
}

// SyncRunModelFromDomain creates a new persistence model from a domain
// SyncRun entity.
func SyncRunModelFromDomain(r *integration.SyncRun) *SyncRunModel {
	m := &SyncRunModel{}
	m.FromDomain(r)
	return m
}
