package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// System errors
	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Wallet/session
	CodeWalletUnavailable: "No wallet provider is available",
	CodeUserRejected:      "User rejected the request",
	CodeNetworkMismatch:   "Active network does not match the expected network",
	CodeSessionClosed:     "Wallet session is closed",
	CodeSigningFailed:     "Transaction signing failed",

	// Exchange operations
	CodeInvalidRequest:        "Request failed local validation",
	CodeInvalidAmount:         "Amount is not a valid token quantity",
	CodeInsufficientAllowance: "Spender allowance is below the required amount",
	CodeRemoteRejected:        "The exchange rejected the operation",
	CodeTransportError:        "The call could not be completed",
	CodeUnknownOutcome:        "Operation was submitted but confirmation was never observed",

	// Chain access
	CodeChainConnectionFailed: "Failed to connect to the chain endpoint",
	CodeContractCallFailed:    "Smart contract call failed",
	CodeQuoteFailed:           "Failed to get a swap quote",
	CodePoolNotFound:          "Liquidity pool not found",
	CodeGasEstimationFailed:   "Gas estimation failed",

	// Circuit breaker
	CodeCircuitOpen: "Circuit breaker is open",
}
