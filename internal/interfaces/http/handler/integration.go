package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/commercehub/backend/internal/application/integrationapp"
	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/interfaces/http/dto"
)

// IntegrationHandler exposes the provider integration lifecycle endpoints
type IntegrationHandler struct {
	BaseHandler
	connect *integrationapp.ConnectService
	health  *integrationapp.HealthService
	sync    *integrationapp.SyncService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(
	connect *integrationapp.ConnectService,
	health *integrationapp.HealthService,
	sync *integrationapp.SyncService,
) *IntegrationHandler {
	return &IntegrationHandler{
		connect: connect,
		health:  health,
		sync:    sync,
	}
}

// RegisterRoutes registers the integration routes. The callback route is
// public: the browser arrives there from the provider's consent screen and
// the signed state token carries the tenant binding.
func (h *IntegrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	integrations := rg.Group("/integrations")
	{
		integrations.GET("", h.List)
		integrations.GET("/callback/:provider", h.Callback)
		integrations.GET("/:provider/connect", h.Connect)
		integrations.GET("/:provider/health", h.Health)
		integrations.POST("/:provider/sync", h.TriggerSync)
		integrations.POST("/:provider/refresh", h.Refresh)
		integrations.DELETE("/:provider", h.Disconnect)
		integrations.GET("/:provider/runs", h.ListRuns)
		integrations.GET("/:provider/runs/:id", h.GetRun)
	}
}

// parseProvider validates the provider path parameter
func (h *IntegrationHandler) parseProvider(c *gin.Context) (integration.ProviderCode, bool) {
	provider := integration.ProviderCode(c.Param("provider"))
	if !provider.IsValid() {
		h.HandleError(c, integration.ErrInvalidProvider)
		return "", false
	}
	return provider, true
}

// List godoc
//
//	@Summary	List integrations
//	@Tags		integrations
//	@Produce	json
//	@Success	200	{object}	dto.Response{data=[]IntegrationSummaryResponse}
//	@Router		/integrations [get]
func (h *IntegrationHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	summaries, err := h.connect.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]IntegrationSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toIntegrationSummaryResponse(s))
	}
	h.Success(c, out)
}

// Connect godoc
//
//	@Summary	Start an OAuth connect flow
//	@Tags		integrations
//	@Produce	json
//	@Param		provider		path		string	true	"Provider code"
//	@Param		site_id			query		string	false	"Mercado Livre site"
//	@Param		region			query		string	false	"Amazon selling region"
//	@Param		custom_state	query		string	false	"Caller data echoed through the callback"
//	@Param		success_url		query		string	false	"Post-connect redirect target"
//	@Param		error_url		query		string	false	"Failure redirect target"
//	@Success	200				{object}	dto.Response{data=ConnectResponse}
//	@Router		/integrations/{provider}/connect [get]
func (h *IntegrationHandler) Connect(c *gin.Context) {
	provider, ok := h.parseProvider(c)
	if !ok {
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user context")
		return
	}

	var req ConnectRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	result, err := h.connect.Initiate(c.Request.Context(), integrationapp.InitiateInput{
		TenantID:    tenantID,
		UserID:      userID,
		Provider:    provider,
		SiteID:      req.SiteID,
		Region:      req.Region,
		CustomState: req.CustomState,
		SuccessURL:  req.SuccessURL,
		ErrorURL:    req.ErrorURL,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ConnectResponse{
		Provider: result.Provider.String(),
		AuthURL:  result.AuthURL,
		State:    result.State,
	})
}

// Callback godoc
//
//	@Summary		Complete an OAuth connect flow
//	@Description	Public endpoint hit by the provider redirect; authenticated by the signed state token
//	@Tags			integrations
//	@Produce		json
//	@Param			provider	path	string	true	"Provider code"
//	@Param			code		query	string	false	"Authorization code"
//	@Param			state		query	string	true	"Signed state token"
//	@Success		200	{object}	dto.Response{data=CallbackResponse}
//	@Router			/integrations/callback/{provider} [get]
func (h *IntegrationHandler) Callback(c *gin.Context) {
	provider, ok := h.parseProvider(c)
	if !ok {
		return
	}

	result, err := h.connect.HandleCallback(c.Request.Context(), integrationapp.CallbackInput{
		Provider:         provider,
		Code:             c.Query("code"),
		State:            c.Query("state"),
		ShopID:           c.Query("shop_id"),
		ErrorParam:       c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	})

	// A browser return URL from the state payload wins over JSON, on both
	// success and failure paths.
	if result != nil && result.RedirectURL != "" {
		c.Redirect(http.StatusFound, result.RedirectURL)
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CallbackResponse{
		Provider:          result.Provider.String(),
		Connected:         true,
		ProviderAccountID: result.ProviderAccountID,
		Scopes:            result.Scopes,
	})
}

// Health godoc
//
//	@Summary	Report integration health
//	@Tags		integrations
//	@Produce	json
//	@Param		provider	path		string	true	"Provider code"
//	@Success	200			{object}	dto.Response{data=HealthResponse}
//	@Router		/integrations/{provider}/health [get]
func (h *IntegrationHandler) Health(c *gin.Context) {
	provider, ok := h.parseProvider(c)
	if !ok {
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	report, err := h.health.Check(c.Request.Context(), tenantID, provider)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toHealthResponse(report))
}

// TriggerSync godoc
//
//	@Summary	Trigger a sync run
//	@Tags		integrations
//	@Accept		json
//	@Produce	json
//	@Param		provider	path		string				true	"Provider code"
//	@Param		request		body		SyncTriggerRequest	true	"Sync options"
//	@Success	200			{object}	dto.Response{data=SyncTriggerResponse}
//	@Router		/integrations/{provider}/sync [post]
func (h *IntegrationHandler) TriggerSync(c *gin.Context) {
	provider, ok := h.parseProvider(c)
	if !ok {
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	var req SyncTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.sync.Trigger(c.Request.Context(), integrationapp.TriggerInput{
		TenantID: tenantID,
		Provider: provider,
		Resource: integration.SyncResource(req.Resource),
		Force:    req.Force,
		Filters:  req.Filters,
	})
	if err != nil {
		// A failed run still reports its ledger row and partial results so
		// the caller can find out what happened
		if result != nil && result.RunID != uuid.Nil {
			resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeSyncFailed, err.Error(), getRequestID(c))
			resp.Data = SyncTriggerResponse{
				RunID:   result.RunID.String(),
				Status:  result.Status.String(),
				Results: toResourceResults(result.Results),
			}
			c.JSON(http.StatusInternalServerError, resp)
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, SyncTriggerResponse{
		RunID:   result.RunID.String(),
		Status:  result.Status.String(),
		Results: toResourceResults(result.Results),
	})
}

// Refresh godoc
//
//	@Summary	Rotate stored tokens
//	@Tags		integrations
//	@Produce	json
//	@Param		provider	path		string	true	"Provider code"
//	@Success	200			{object}	dto.Response
//	@Router		/integrations/{provider}/refresh [post]
func (h *IntegrationHandler) Refresh(c *gin.Context) {
	provider, ok := h.parseProvider(c)
	if !ok {
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	if err := h.connect.RefreshTokens(c.Request.Context(), tenantID, provider); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"provider": provider.String(), "refreshed": true})
}

// Disconnect godoc
//
//	@Summary	Disconnect an integration
//	@Tags		integrations
//	@Produce	json
//	@Param		provider	path	string	true	"Provider code"
//	@Success	204
//	@Router		/integrations/{provider} [delete]
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	provider, ok := h.parseProvider(c)
	if !ok {
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	if err := h.connect.Disconnect(c.Request.Context(), tenantID, provider); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListRuns godoc
//
//	@Summary	List sync runs
//	@Tags		integrations
//	@Produce	json
//	@Param		provider	path		string	true	"Provider code"
//	@Param		status		query		string	false	"Filter by status"
//	@Param		page		query		int		false	"Page number"
//	@Param		page_size	query		int		false	"Page size"
//	@Success	200			{object}	dto.Response{data=[]SyncRunResponse}
//	@Router		/integrations/{provider}/runs [get]
func (h *IntegrationHandler) ListRuns(c *gin.Context) {
	provider, ok := h.parseProvider(c)
	if !ok {
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}

	var req SyncRunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	filter := integration.SyncRunFilter{
		Provider: &provider,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Status != "" {
		status := integration.SyncRunStatus(req.Status)
		filter.Status = &status
	}

	runs, total, err := h.sync.Runs(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]SyncRunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, toSyncRunResponse(&runs[i]))
	}
	h.SuccessWithMeta(c, out, total, req.Page, req.PageSize)
}

// GetRun godoc
//
//	@Summary	Get one sync run
//	@Tags		integrations
//	@Produce	json
//	@Param		provider	path		string	true	"Provider code"
//	@Param		id			path		string	true	"Run ID"
//	@Success	200			{object}	dto.Response{data=SyncRunResponse}
//	@Router		/integrations/{provider}/runs/{id} [get]
func (h *IntegrationHandler) GetRun(c *gin.Context) {
	if _, ok := h.parseProvider(c); !ok {
		return
	}
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant context")
		return
	}
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run id")
		return
	}

	run, err := h.sync.Run(c.Request.Context(), tenantID, runID)
	if err != nil {
		if errors.Is(err, integration.ErrRunNotFound) {
			h.NotFound(c, "Sync run not found")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSyncRunResponse(run))
}
