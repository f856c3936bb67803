package inbound

import (
	"context"

	"github.com/dhakamart/verifyd/internal/pkg/router"
	"github.com/dhakamart/verifyd/internal/verification/usecase"
)

type uc interface {
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/verification/otp/verify", end.VerifyOtp)
}
