package event

import "time"

// OtpVerifiedDestination is the topic/subject for successful verifications.
const OtpVerifiedDestination = "verification.otp.verified"

// OtpVerified announces that a user completed a one-time-code verification.
// It deliberately carries no code or session material.
type OtpVerified struct {
	EventID        string    `json:"eventId"`
	UserID         int64     `json:"userId"`
	Purpose        string    `json:"purpose"`
	IdentifierType string    `json:"identifierType"`
	VerifiedAt     time.Time `json:"verifiedAt"`
}
