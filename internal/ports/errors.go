package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market Data Errors
	ErrProviderUnavailable  = errors.New("market data provider is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the provider")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("provider authentication failed (check API keys)")
	ErrUnsupported          = errors.New("operation not supported by this provider")

	// Data availability (expected, non-fatal outcomes)
	ErrInsufficientData = errors.New("insufficient data for indicator calculation")
	ErrNoExpirations    = errors.New("no option expirations available")
	ErrEmptyChain       = errors.New("option chain is empty")

	// Calculation Errors
	ErrDivisionUndefined = errors.New("division undefined: zero denominator")

	// Delivery Errors
	ErrTransportFailure = errors.New("notification delivery failed")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)

// IsDataUnavailable reports whether err describes an expected "no data" outcome
// rather than a genuine fault.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrNoExpirations) ||
		errors.Is(err, ErrEmptyChain)
}

// IsPermanent reports whether retrying err cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrAuthenticationFailed) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnsupported) ||
		errors.Is(err, ErrConfigurationError) ||
		errors.Is(err, ErrContextCanceled)
}
