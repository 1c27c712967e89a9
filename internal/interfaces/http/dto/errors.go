package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Integration error codes
const (
	// ErrCodeProviderInvalid is used for unknown provider codes
	ErrCodeProviderInvalid = "ERR_PROVIDER_INVALID"
	// ErrCodeProviderNotConfigured is used when the provider has no stored connection
	ErrCodeProviderNotConfigured = "ERR_PROVIDER_NOT_CONFIGURED"
	// ErrCodeProviderUnavailable is used when the provider cannot be reached
	ErrCodeProviderUnavailable = "ERR_PROVIDER_UNAVAILABLE"
	// ErrCodeOAuthDenied is used when the user declined the consent screen
	ErrCodeOAuthDenied = "ERR_OAUTH_DENIED"
	// ErrCodeOAuthExchange is used when the code-for-token exchange is rejected
	ErrCodeOAuthExchange = "ERR_OAUTH_EXCHANGE"
	// ErrCodeStateMalformed is used for state tokens that fail verification
	ErrCodeStateMalformed = "ERR_STATE_MALFORMED"
	// ErrCodeStateExpired is used for state tokens past their max age
	ErrCodeStateExpired = "ERR_STATE_EXPIRED"
	// ErrCodeSyncDisabled is used when a sync trigger hits a disabled integration
	ErrCodeSyncDisabled = "ERR_SYNC_DISABLED"
	// ErrCodeSyncFailed is used when a triggered sync run ends in failure
	ErrCodeSyncFailed = "ERR_SYNC_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	ErrCodeProviderInvalid:       http.StatusBadRequest,
	ErrCodeProviderNotConfigured: http.StatusUnprocessableEntity,
	ErrCodeProviderUnavailable:   http.StatusBadGateway,
	ErrCodeOAuthDenied:           http.StatusBadRequest,
	ErrCodeOAuthExchange:         http.StatusBadGateway,
	ErrCodeStateMalformed:        http.StatusBadRequest,
	ErrCodeStateExpired:          http.StatusBadRequest,
	ErrCodeSyncDisabled:          http.StatusUnprocessableEntity,
	ErrCodeSyncFailed:            http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
