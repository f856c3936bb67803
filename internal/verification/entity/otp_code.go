package entity

import "time"

// OtpCode is one issued verification code row.
type OtpCode struct {
	ID           int64
	UserID       int64
	CodeHash     string
	Purpose      string
	AttemptCount int32
	MaxAttempts  int32
	ExpiresAt    time.Time
	CreatedAt    time.Time
	ConsumedAt   *time.Time
}

// Active reports whether the code can still be matched at the given instant.
func (c OtpCode) Active(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt) && !c.Exhausted()
}

// Exhausted reports whether the attempt ceiling has been reached.
func (c OtpCode) Exhausted() bool {
	return c.MaxAttempts > 0 && c.AttemptCount >= c.MaxAttempts
}

// Remaining returns the time left before expiry, never negative.
func (c OtpCode) Remaining(now time.Time) time.Duration {
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// User is the account a verification code belongs to.
type User struct {
	ID              int64
	Email           string
	Phone           string
	EmailVerifiedAt *time.Time
	PhoneVerifiedAt *time.Time
}

// OtpConsumption carries everything the consumption transaction needs to run
// atomically: the matched row, its still-active siblings to expire, and the
// verified-at side effect.
type OtpConsumption struct {
	CodeID           int64
	UserID           int64
	EffectivePurpose string
	IdentifierType   IdentifierType
	SiblingIDs       []int64
	Now              time.Time
}
