package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/bazaar-chain/bazaar-auth/internal/auth"
	"github.com/bazaar-chain/bazaar-auth/internal/config"
	"github.com/bazaar-chain/bazaar-auth/internal/identity"
	"github.com/bazaar-chain/bazaar-auth/internal/metrics"
	"github.com/bazaar-chain/bazaar-auth/internal/middleware"
	"github.com/bazaar-chain/bazaar-auth/internal/notification"
	"github.com/bazaar-chain/bazaar-auth/internal/profile"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app, d.Registry)

	// Services and handlers
	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		d.Logger.Warn("no database configured, identities are kept in memory")
		identityRepo = identity.NewMemoryRepository()
	}
	m := metrics.New(d.Registry)
	notifier := notification.NewLoggerNotifier(d.Logger)
	authSvc := auth.NewService(identityRepo, d.Cfg.ChallengeLabel, m, d.Logger)
	profileSvc := profile.NewService(identityRepo, authSvc, notifier, m, d.Logger)

	// Replay applies to challenge issuance only. Verify and profile update
	// consume a nonce and must run every time.
	var replay, throttle fiber.Handler
	if d.Cache != nil {
		replay = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
		throttle = middleware.VerifyThrottle(d.Cache, d.Cfg.VerifyAttemptsPerMinute)
	} else {
		replay = passThrough
		throttle = middleware.VerifyThrottle(nil, 0)
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.GetRequestID(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAuthRoutes(api, auth.NewHandler(authSvc), replay, throttle)
	RegisterProfileRoutes(api, profile.NewHandler(profileSvc), throttle)

	return nil
}

func passThrough(c *fiber.Ctx) error { return c.Next() }
