package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Wallet/session error codes
const (
	CodeWalletUnavailable Code = "WALLET_UNAVAILABLE"
	CodeUserRejected      Code = "USER_REJECTED"
	CodeNetworkMismatch   Code = "NETWORK_MISMATCH"
	CodeSessionClosed     Code = "SESSION_CLOSED"
	CodeSigningFailed     Code = "SIGNING_FAILED"
)

// Exchange operation error codes
const (
	// Local precondition violations - no network call was made
	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodeInvalidAmount  Code = "INVALID_AMOUNT"

	// Allowance protocol
	CodeInsufficientAllowance Code = "INSUFFICIENT_ALLOWANCE"

	// Submission outcomes
	CodeRemoteRejected Code = "REMOTE_REJECTED"
	CodeTransportError Code = "TRANSPORT_ERROR"
	CodeUnknownOutcome Code = "UNKNOWN_OUTCOME"

	// Chain access
	CodeChainConnectionFailed Code = "CHAIN_CONNECTION_FAILED"
	CodeContractCallFailed    Code = "CONTRACT_CALL_FAILED"
	CodeQuoteFailed           Code = "QUOTE_FAILED"
	CodePoolNotFound          Code = "POOL_NOT_FOUND"
	CodeGasEstimationFailed   Code = "GAS_ESTIMATION_FAILED"

	// Circuit breaker
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
