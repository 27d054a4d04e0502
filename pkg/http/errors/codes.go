package errors

// Error codes for standardized error responses
const (
	// Session errors
	ErrCodeSessionNotFound  = "session_not_found"
	ErrCodeAlreadyStarted   = "already_started"
	ErrCodeNotStarted       = "not_started"
	ErrCodeTokenUnavailable = "token_unavailable"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeInvalidPhase     = "invalid_phase"
	ErrCodeUnknownAction    = "unknown_action"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError = "internal_error"
	ErrCodeUpstreamError = "upstream_error"
)
