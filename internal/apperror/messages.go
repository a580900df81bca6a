package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeConnectorError:         "Venue call failed",
	CodeUnsupported:            "Capability not supported by venue",
	CodeInvalidPair:            "Invalid trading pair",
	CodeVenueNotFound:          "Venue not registered",
	CodeVenueAlreadyRegistered: "Venue already registered",
	CodeInsufficientBalance:    "Insufficient balance",

	CodeGraphInconsistency:  "Graph no longer contains a referenced edge",
	CodeExecutionStepFailed: "Execution step failed",
	CodeInvalidOpportunity:  "Invalid opportunity",
	CodeInvalidTradeSize:    "Invalid trade size",

	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
