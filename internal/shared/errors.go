package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authorization errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrForbidden        = fmt.Errorf("permission denied")
	ErrTokenExpired     = fmt.Errorf("access token expired")

	// Engine errors
	ErrEngineNotFound     = fmt.Errorf("engine not found")
	ErrDuplicateEngine    = fmt.Errorf("engine name already registered")
	ErrUnsupportedDialect = fmt.Errorf("unsupported dialect")
	ErrInvalidDSN         = fmt.Errorf("invalid DSN")
	ErrReadOnlyEngine     = fmt.Errorf("engine is declared in the configuration file")
	ErrConnectionFailed   = fmt.Errorf("connection failed")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
