package handler

import (
	"time"

	"github.com/commercehub/backend/internal/application/integrationapp"
	"github.com/commercehub/backend/internal/domain/integration"
)

// ConnectRequest carries the query parameters for starting an OAuth connect flow
type ConnectRequest struct {
	// SiteID selects the Mercado Livre national site (MLB, MLA, MLM, MLC, MCO)
	SiteID string `form:"site_id" binding:"omitempty,oneof=MLB MLA MLM MLC MCO"`
	// Region selects the Amazon selling region (NA, EU, FE)
	Region string `form:"region" binding:"omitempty,oneof=NA EU FE"`
	// CustomState is caller data echoed back through the callback
	CustomState string `form:"custom_state" binding:"omitempty,max=512"`
	// SuccessURL is the post-connect browser redirect target
	SuccessURL string `form:"success_url" binding:"omitempty,url"`
	// ErrorURL is the failure browser redirect target
	ErrorURL string `form:"error_url" binding:"omitempty,url"`
}

// ConnectResponse carries the provider consent URL and the signed state token
type ConnectResponse struct {
	Provider string `json:"provider"`
	AuthURL  string `json:"auth_url"`
	State    string `json:"state"`
}

// CallbackResponse is the JSON fallback when the state carried no return URL
type CallbackResponse struct {
	Provider          string   `json:"provider"`
	Connected         bool     `json:"connected"`
	ProviderAccountID string   `json:"provider_account_id,omitempty"`
	Scopes            []string `json:"scopes,omitempty"`
}

// IntegrationSummaryResponse is one row of the integration listing
type IntegrationSummaryResponse struct {
	Provider          string     `json:"provider"`
	DisplayName       string     `json:"display_name"`
	Configured        bool       `json:"configured"`
	SyncEnabled       bool       `json:"sync_enabled"`
	WebhookEnabled    bool       `json:"webhook_enabled"`
	ProviderAccountID string     `json:"provider_account_id,omitempty"`
	SiteID            string     `json:"site_id,omitempty"`
	ErrorCount        int        `json:"error_count"`
	LastError         string     `json:"last_error,omitempty"`
	LastErrorAt       *time.Time `json:"last_error_at,omitempty"`
}

func toIntegrationSummaryResponse(s integrationapp.IntegrationSummary) IntegrationSummaryResponse {
	return IntegrationSummaryResponse{
		Provider:          s.Provider.String(),
		DisplayName:       s.DisplayName,
		Configured:        s.Configured,
		SyncEnabled:       s.SyncEnabled,
		WebhookEnabled:    s.WebhookEnabled,
		ProviderAccountID: s.ProviderAccountID,
		SiteID:            s.SiteID,
		ErrorCount:        s.ErrorCount,
		LastError:         s.LastError,
		LastErrorAt:       s.LastErrorAt,
	}
}

// HealthResponse is the integration health report
type HealthResponse struct {
	Provider   string                `json:"provider"`
	Status     string                `json:"status"`
	Connected  bool                  `json:"connected"`
	TokenValid bool                  `json:"token_valid"`
	Message    string                `json:"message,omitempty"`
	CheckedAt  time.Time             `json:"checked_at"`
	Errors     *HealthErrorsResponse `json:"errors,omitempty"`
	LastSync   map[string]*time.Time `json:"last_sync,omitempty"`
	Config     HealthConfigResponse  `json:"config"`
}

// HealthErrorsResponse condenses the stored failure bookkeeping
type HealthErrorsResponse struct {
	Message      string    `json:"message"`
	Count        int       `json:"count"`
	LastOccurred time.Time `json:"last_occurred"`
}

// HealthConfigResponse echoes the non-secret configuration flags
type HealthConfigResponse struct {
	SyncEnabled    bool     `json:"sync_enabled"`
	WebhookEnabled bool     `json:"webhook_enabled"`
	Scopes         []string `json:"scopes,omitempty"`
	SiteID         string   `json:"site_id,omitempty"`
}

func toHealthResponse(report *integrationapp.HealthReport) HealthResponse {
	resp := HealthResponse{
		Provider:   report.Provider.String(),
		Status:     string(report.Status),
		Connected:  report.Connected,
		TokenValid: report.TokenValid,
		Message:    report.Message,
		CheckedAt:  report.CheckedAt,
		Config: HealthConfigResponse{
			SyncEnabled:    report.Config.SyncEnabled,
			WebhookEnabled: report.Config.WebhookEnabled,
			Scopes:         report.Config.Scopes,
			SiteID:         report.Config.SiteID,
		},
	}
	if report.Errors != nil {
		resp.Errors = &HealthErrorsResponse{
			Message:      report.Errors.Message,
			Count:        report.Errors.Count,
			LastOccurred: report.Errors.LastOccurred,
		}
	}
	if len(report.LastSync) > 0 {
		resp.LastSync = make(map[string]*time.Time, len(report.LastSync))
		for resource, at := range report.LastSync {
			resp.LastSync[resource.String()] = at
		}
	}
	return resp
}

// SyncTriggerRequest is the body for a manual sync trigger
type SyncTriggerRequest struct {
	// Resource selects what to pull: products, orders, finance or all
	Resource string `json:"resource" binding:"required,oneof=products orders finance all"`
	// Force runs the sync even when it is disabled for the integration
	Force bool `json:"force"`
	// Filters are provider-specific listing filters passed through untouched
	Filters map[string]any `json:"filters" binding:"omitempty"`
}

// SyncTriggerResponse reports the opened run and its outcome
type SyncTriggerResponse struct {
	RunID   string                   `json:"run_id"`
	Status  string                   `json:"status"`
	Results []ResourceResultResponse `json:"results"`
}

// ResourceResultResponse is the per-resource record counts of a run
type ResourceResultResponse struct {
	Resource  string `json:"resource"`
	Processed int    `json:"processed"`
	Inserted  int    `json:"inserted"`
	Updated   int    `json:"updated"`
}

func toResourceResults(results []integration.ResourceResult) []ResourceResultResponse {
	out := make([]ResourceResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, ResourceResultResponse{
			Resource:  r.Resource.String(),
			Processed: r.Processed,
			Inserted:  r.Inserted,
			Updated:   r.Updated,
		})
	}
	return out
}

// SyncRunResponse is one row of the sync run ledger
type SyncRunResponse struct {
	ID               string                   `json:"id"`
	Provider         string                   `json:"provider"`
	Resource         string                   `json:"resource"`
	Status           string                   `json:"status"`
	StartedAt        time.Time                `json:"started_at"`
	CompletedAt      *time.Time               `json:"completed_at,omitempty"`
	RecordsProcessed int                      `json:"records_processed"`
	RecordsInserted  int                      `json:"records_inserted"`
	RecordsUpdated   int                      `json:"records_updated"`
	ErrorMessage     string                   `json:"error_message,omitempty"`
	Results          []ResourceResultResponse `json:"results,omitempty"`
}

func toSyncRunResponse(run *integration.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:               run.ID.String(),
		Provider:         run.Provider.String(),
		Resource:         run.Resource.String(),
		Status:           run.Status.String(),
		StartedAt:        run.StartedAt,
		CompletedAt:      run.CompletedAt,
		RecordsProcessed: run.RecordsProcessed,
		RecordsInserted:  run.RecordsInserted,
		RecordsUpdated:   run.RecordsUpdated,
		ErrorMessage:     run.ErrorMessage,
		Results:          toResourceResults(run.Results),
	}
}

// SyncRunListRequest filters the sync run history
type SyncRunListRequest struct {
	Provider string `form:"provider" binding:"omitempty,oneof=BLING MERCADO_LIVRE SHOPEE AMAZON"`
	Status   string `form:"status" binding:"omitempty,oneof=running completed failed"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}
