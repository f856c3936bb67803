package app

import (
	"context"
	"net/http"

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
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uid       uid.NumberID
	uuid      uid.StringID
	session   *sessiontoken.Issuer

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	messaging messaging.Messaging

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initSessionToken()
	app.initDatabase()
	app.initCache()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
