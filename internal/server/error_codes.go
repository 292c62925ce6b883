package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeRequestTooLarge  = 1001
	ErrCodeInvalidQuery     = 1002
	ErrCodeInvalidID        = 1003
	ErrCodeMissingRequired  = 1004
	ErrCodeInvalidMediaType = 1005

	// Upload policy (12xx)
	ErrCodeUnsupportedMediaType = 1201
	ErrCodeFileTooLarge         = 1202

	// Domain state (2xxx)
	ErrCodeFileNotFound = 2001
	ErrCodeBlobNotFound = 2002

	// Limits (3xxx)
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 404:
		return ErrCodeFileNotFound
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
