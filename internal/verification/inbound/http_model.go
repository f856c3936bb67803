package inbound

import "net/http"

// VerifyOtpRequest accepts both current and legacy field names; older app
// builds still submit "to" and "otp".
type VerifyOtpRequest struct {
	Identifier string `json:"identifier"`
	To         string `json:"to"`
	Code       string `json:"code"`
	Otp        string `json:"otp"`
	Purpose    string `json:"purpose"`
}

func (r VerifyOtpRequest) identifier() string {
	if r.Identifier != "" {
		return r.Identifier
	}
	return r.To
}

func (r VerifyOtpRequest) code() string {
	if r.Code != "" {
		return r.Code
	}
	return r.Otp
}

// VerifyOtpResponse is the flat success payload.
type VerifyOtpResponse struct {
	OK               bool   `json:"ok"`
	TTLSeconds       int64  `json:"ttlSeconds"`
	UserID           int64  `json:"userId"`
	Purpose          string `json:"purpose"`
	PhoneVerified    *bool  `json:"phoneVerified,omitempty"`
	EmailVerified    *bool  `json:"emailVerified,omitempty"`
	Idempotent       bool   `json:"idempotent,omitempty"`
	OtpSession       string `json:"otpSession"`
	OtpSessionExp    int64  `json:"otpSessionExp"`
	ClearResendTimer bool   `json:"clearResendTimer"`
	ResendAllowedNow bool   `json:"resendAllowedNow"`
	Debug            any    `json:"debug,omitempty"`

	cookie *http.Cookie
}

// Cookie implements router.CookieCarrier.
func (r VerifyOtpResponse) Cookie() *http.Cookie {
	return r.cookie
}
