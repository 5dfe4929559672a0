package app

import (
	"context"
	"net/http"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/config"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goroutine"
	"github.com/shandysiswandi/stockmaster/internal/pkg/hash"
	"github.com/shandysiswandi/stockmaster/internal/pkg/idempotency"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/jwt"
	"github.com/shandysiswandi/stockmaster/internal/pkg/mail"
	"github.com/shandysiswandi/stockmaster/internal/pkg/messaging"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
	"github.com/shandysiswandi/stockmaster/internal/pkg/uid"
	"github.com/shandysiswandi/stockmaster/internal/pkg/validator"
	"go.mongodb.org/mongo-driver/mongo"
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
	hmac      hash.Hash
	password  hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT

	// resources
	dbConn      *pgxpool.Pool
	cacheConn   *redis.Client
	mongoClient *mongo.Client
	mongoDB     *mongo.Database
	idemp       idempotency.Idempotency
	mail        mail.Mail
	messaging   messaging.Messaging
	casbin      *casbin.Enforcer

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// Option replaces a resource before it is built from configuration.
type Option func(*App)

// WithConfig skips reading the config file.
func WithConfig(cfg config.Config) Option {
	return func(a *App) { a.config = cfg }
}

// WithMail replaces the transport selected by mail.driver.
func WithMail(m mail.Mail) Option {
	return func(a *App) { a.mail = m }
}

// New initializes the application with default wiring and returns an App instance.
func New(opts ...Option) *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(app)
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMongo()
	app.initMail()
	app.initMessaging()
	app.initCasbin()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
