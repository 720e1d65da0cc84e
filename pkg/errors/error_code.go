package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidSymbol        ErrorCode = 103
	ErrCodeQuantityTooSmall     ErrorCode = 104

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound     ErrorCode = 200
	ErrCodePriceUnavailable ErrorCode = 201
	ErrCodeNoOpenPosition   ErrorCode = 203

	// Resilience errors (300-399)
	ErrCodeThrottled   ErrorCode = 300
	ErrCodeBreakerOpen ErrorCode = 301

	// Exchange errors (400-499)
	ErrCodeExchangeTransient  ErrorCode = 400
	ErrCodeExchangeRejected   ErrorCode = 401
	ErrCodeOrderFailed        ErrorCode = 402
	ErrCodeInsufficientMargin ErrorCode = 403
	ErrCodeAuthFailed         ErrorCode = 404

	// Stream errors (500-599)
	ErrCodeStreamClosed      ErrorCode = 500
	ErrCodeListenKeyFailed   ErrorCode = 501
	ErrCodeStreamParseFailed ErrorCode = 502
)
