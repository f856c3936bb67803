package verification

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dhakamart/verifyd/internal/pkg/clock"
	"github.com/dhakamart/verifyd/internal/pkg/config"
	"github.com/dhakamart/verifyd/internal/pkg/goroutine"
	"github.com/dhakamart/verifyd/internal/pkg/instrument"
	"github.com/dhakamart/verifyd/internal/pkg/messaging"
	"github.com/dhakamart/verifyd/internal/pkg/router"
	"github.com/dhakamart/verifyd/internal/pkg/sessiontoken"
	"github.com/dhakamart/verifyd/internal/pkg/uid"
	"github.com/dhakamart/verifyd/internal/pkg/validator"
	"github.com/dhakamart/verifyd/internal/verification/inbound"
	"github.com/dhakamart/verifyd/internal/verification/outbound/cache"
	"github.com/dhakamart/verifyd/internal/verification/outbound/db"
	"github.com/dhakamart/verifyd/internal/verification/outbound/mq"
	"github.com/dhakamart/verifyd/internal/verification/usecase"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	CacheConn  *redis.Client              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	Session    *sessiontoken.Issuer       `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	repoCache := cache.NewCache(dep.CacheConn, dep.Instrument)
	repoMsg := mq.NewMQ(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		Config: usecase.Config{
			Secret:            dep.Config.GetString("verification.secret"),
			SessionMaxTTL:     dep.Config.GetSecond("verification.session_max_ttl_seconds"),
			IdempotencyWindow: dep.Config.GetSecond("verification.idempotency_window_seconds"),
			Debug:             dep.Config.GetBool("verification.debug"),
		},
		Validator: dep.Validator,
		DB:        repoDB,
		Cache:     repoCache,
		Messaging: repoMsg,
		Clock:     dep.Clock,
		Session:   dep.Session,
		EventID:   dep.UID,
		Goroutine: dep.Goroutine,
		Telemetry: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
