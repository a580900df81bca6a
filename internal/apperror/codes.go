package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Venue errors
const (
	// A venue call failed. Isolated to the edge or step that made it.
	CodeConnectorError Code = "CONNECTOR_ERROR"
	// The venue does not offer the requested capability.
	CodeUnsupported            Code = "UNSUPPORTED"
	CodeInvalidPair            Code = "INVALID_PAIR"
	CodeVenueNotFound          Code = "VENUE_NOT_FOUND"
	CodeVenueAlreadyRegistered Code = "VENUE_ALREADY_REGISTERED"
	CodeInsufficientBalance    Code = "INSUFFICIENT_BALANCE"
)

// Engine errors
const (
	// An edge referenced by a cycle is gone. Fatal for that opportunity only.
	CodeGraphInconsistency Code = "GRAPH_INCONSISTENCY"
	// A step's venue call reported failure. Halts the remaining steps.
	CodeExecutionStepFailed Code = "EXECUTION_STEP_FAILED"
	// Malformed cycle or steps, rejected before execution.
	CodeInvalidOpportunity Code = "INVALID_OPPORTUNITY"
	CodeInvalidTradeSize   Code = "INVALID_TRADE_SIZE"
)

// Circuit breaker errors
const (
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
