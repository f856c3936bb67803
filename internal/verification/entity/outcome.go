package entity

// Stable machine-readable reasons returned to clients. Storefront frontends
// key retry/resend behavior off these strings, so they never change.
const (
	ReasonMissingIdentifier = "MISSING_IDENTIFIER"
	ReasonInvalidCode       = "INVALID_CODE"
	ReasonInvalidIdentifier = "INVALID_IDENTIFIER"
	ReasonUserNotFound      = "USER_NOT_FOUND"
	ReasonNotFoundOrExpired = "OTP_NOT_FOUND_OR_EXPIRED"
	ReasonMismatch          = "OTP_MISMATCH"
	ReasonMaxAttempts       = "OTP_MAX_ATTEMPTS"
	ReasonVerifyFailed      = "OTP_VERIFY_FAILED"
)
