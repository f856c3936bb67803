package inbound

import (
	"time"

	"github.com/dhakamart/verifyd/internal/pkg/router"
	"github.com/dhakamart/verifyd/internal/verification/entity"
	"github.com/dhakamart/verifyd/internal/verification/usecase"
)

// HTTPEndpoint exposes the HTTP handlers for one-time-code verification.
type HTTPEndpoint struct {
	uc uc
}

// VerifyOtp matches a submitted code against the user's issued codes and, on
// success, sets the session cookie alongside the flat JSON payload.
func (h *HTTPEndpoint) VerifyOtp(r *router.Request) (any, error) {
	var req VerifyOtpRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		Identifier: req.identifier(),
		Code:       req.code(),
		Purpose:    req.Purpose,
	})
	if err != nil {
		return nil, err
	}

	ttlSeconds := int64(out.TokenTTL / time.Second)

	resp := VerifyOtpResponse{
		OK:               true,
		TTLSeconds:       ttlSeconds,
		UserID:           out.UserID,
		Purpose:          out.Purpose,
		Idempotent:       out.Idempotent,
		OtpSession:       out.Token,
		OtpSessionExp:    ttlSeconds,
		ClearResendTimer: true,
		ResendAllowedNow: true,
		cookie:           out.Cookie,
	}

	verified := true
	switch out.IdentifierType {
	case entity.IdentifierEmail:
		resp.EmailVerified = &verified
	case entity.IdentifierPhone:
		resp.PhoneVerified = &verified
	}

	if out.Debug != nil {
		resp.Debug = out.Debug
	}

	return resp, nil
}
