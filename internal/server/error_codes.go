package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidQuery    = 1003
	ErrCodeInvalidKey      = 1004
	ErrCodeInvalidField    = 1005
	ErrCodeInvalidFilter   = 1006
	ErrCodeInvalidLayout   = 1007
	ErrCodeInvalidPayload  = 1008
	ErrCodeMissingRequired = 1009

	// Domain state (2xxx)
	ErrCodeNotFound          = 2001
	ErrCodeOperationNotFound = 2002
	ErrCodeSessionClosed     = 2101
	ErrCodeConflict          = 2102

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal          = 4001
	ErrCodeStoreFailure      = 4002
	ErrCodeRenderFailed      = 4003
	ErrCodeJournalDisabled   = 4004
	ErrCodeNotImplemented    = 4005
	ErrCodeSnapshotsDisabled = 4006
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeNotFound
	case 409:
		return ErrCodeConflict
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 501:
		return ErrCodeNotImplemented
	default:
		return 0
	}
}
