package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/commercehub/backend/internal/domain/integration"
	"github.com/commercehub/backend/internal/infrastructure/oauthstate"
	"github.com/commercehub/backend/internal/interfaces/http/dto"
	"github.com/commercehub/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// getUserID extracts the user ID from JWT claims
func getUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr := middleware.GetJWTUserID(c)
	if userIDStr == "" {
		return uuid.Nil, errors.New("user ID not found in context")
	}
	return uuid.Parse(userIDStr)
}

// getTenantID extracts the tenant ID from JWT claims.
// The tenant binding always comes from the token, never from request input.
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantIDStr := middleware.GetJWTTenantID(c)
	if tenantIDStr == "" {
		return uuid.Nil, errors.New("tenant ID not found in context")
	}
	return uuid.Parse(tenantIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving the status code from the error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// integrationErrorCodes maps domain sentinels to API error codes
var integrationErrorCodes = []struct {
	sentinel error
	code     string
}{
	{integration.ErrInvalidProvider, dto.ErrCodeProviderInvalid},
	{integration.ErrInvalidSite, dto.ErrCodeInvalidInput},
	{integration.ErrInvalidRegion, dto.ErrCodeInvalidInput},
	{integration.ErrInvalidResource, dto.ErrCodeInvalidInput},
	{integration.ErrMissingShopID, dto.ErrCodeInvalidInput},
	{integration.ErrNotConfigured, dto.ErrCodeProviderNotConfigured},
	{integration.ErrCredentialNotFound, dto.ErrCodeNotFound},
	{integration.ErrRunNotFound, dto.ErrCodeNotFound},
	{integration.ErrSyncDisabled, dto.ErrCodeSyncDisabled},
	{integration.ErrAuthorizationDenied, dto.ErrCodeOAuthDenied},
	{integration.ErrExchangeRejected, dto.ErrCodeOAuthExchange},
	{integration.ErrRefreshRejected, dto.ErrCodeOAuthExchange},
	{integration.ErrProviderAuthFailed, dto.ErrCodeUnauthorized},
	{integration.ErrProviderUnavailable, dto.ErrCodeProviderUnavailable},
	{integration.ErrProviderRequestFailed, dto.ErrCodeProviderUnavailable},
	{integration.ErrProviderInvalidResponse, dto.ErrCodeProviderUnavailable},
	{oauthstate.ErrStateExpired, dto.ErrCodeStateExpired},
	{oauthstate.ErrStateMalformed, dto.ErrCodeStateMalformed},
}

// HandleError converts integration errors to HTTP responses. Unknown error
// types surface a generic internal error; details stay in the logs.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	for _, mapping := range integrationErrorCodes {
		if errors.Is(err, mapping.sentinel) {
			h.ErrorWithCode(c, mapping.code, mapping.sentinel.Error())
			return
		}
	}
	h.InternalError(c, "An unexpected error occurred")
}
