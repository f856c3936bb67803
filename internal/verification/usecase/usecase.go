package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dhakamart/verifyd/internal/pkg/clock"
	"github.com/dhakamart/verifyd/internal/pkg/goroutine"
	"github.com/dhakamart/verifyd/internal/pkg/hash"
	"github.com/dhakamart/verifyd/internal/pkg/instrument"
	"github.com/dhakamart/verifyd/internal/pkg/sessiontoken"
	"github.com/dhakamart/verifyd/internal/pkg/uid"
	"github.com/dhakamart/verifyd/internal/pkg/validator"
	"github.com/dhakamart/verifyd/internal/shared/event"
	"github.com/dhakamart/verifyd/internal/verification/entity"
)

type repoDB interface {
	GetUserByIdentifier(ctx context.Context, idType entity.IdentifierType, variants []string) (entity.User, error)
	ListActiveOtpCodes(ctx context.Context, userID int64, now time.Time) ([]entity.OtpCode, error)
	ListConsumedOtpCodesSince(ctx context.Context, userID int64, since time.Time) ([]entity.OtpCode, error)
	IncrementOtpAttempt(ctx context.Context, codeID int64) (int32, error)
	ConsumeOtpCode(ctx context.Context, c entity.OtpConsumption) error
}

type repoCache interface {
	ClearResendCooldown(ctx context.Context, purpose string, identifiers []string) error
}

type repoMessaging interface {
	PublishOtpVerified(ctx context.Context, ev event.OtpVerified) error
}

// Config tunes the verification flow.
type Config struct {
	// Secret is the HMAC key historical issuance hashed codes with.
	Secret string
	// SessionMaxTTL caps the session token lifetime.
	SessionMaxTTL time.Duration
	// IdempotencyWindow is how long after consumption a resubmit of the same
	// code is treated as a repeat of the original success.
	IdempotencyWindow time.Duration
	// Debug includes match diagnostics in successful responses.
	Debug bool
}

// Dependency lists everything the verification usecase needs.
type Dependency struct {
	Config    Config
	Validator validator.Validator
	DB        repoDB
	Cache     repoCache
	Messaging repoMessaging
	Clock     clock.Clocker
	Session   *sessiontoken.Issuer
	EventID   uid.NumberID
	Goroutine *goroutine.Manager
	Telemetry instrument.Instrumentation
}

// Usecase implements one-time-code verification.
type Usecase struct {
	cfg       Config
	validator validator.Validator
	db        repoDB
	cache     repoCache
	messaging repoMessaging
	clock     clock.Clocker
	session   *sessiontoken.Issuer
	eventID   uid.NumberID
	goroutine *goroutine.Manager
	schemes   []hash.Scheme
	tracer    trace.Tracer
}

// New constructs the verification usecase.
func New(dep Dependency) *Usecase {
	return &Usecase{
		cfg:       dep.Config,
		validator: dep.Validator,
		db:        dep.DB,
		cache:     dep.Cache,
		messaging: dep.Messaging,
		clock:     dep.Clock,
		session:   dep.Session,
		eventID:   dep.EventID,
		goroutine: dep.Goroutine,
		schemes:   hash.Schemes(dep.Config.Secret),
		tracer:    dep.Telemetry.Tracer("verification.usecase"),
	}
}

func (u *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return u.tracer.Start(ctx, name)
}
