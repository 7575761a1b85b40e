package routes

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/coinharbor/coinharbor/internal/account"
	"github.com/coinharbor/coinharbor/internal/admin"
	"github.com/coinharbor/coinharbor/internal/config"
	"github.com/coinharbor/coinharbor/internal/funds"
	"github.com/coinharbor/coinharbor/internal/ledger"
	"github.com/coinharbor/coinharbor/internal/membership"
	"github.com/coinharbor/coinharbor/internal/middleware"
	"github.com/coinharbor/coinharbor/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	// Repositories, with in-memory fallbacks for dev mode
	var accountRepo account.Repository
	var ledgerRepo ledger.Repository
	var membershipRepo membership.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
		ledgerRepo = ledger.NewPostgresRepository(d.DB)
		membershipRepo = membership.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
		ledgerRepo = ledger.NewMemoryRepository()
		membershipRepo = membership.NewMemoryRepository()
	}

	var sessions session.Store
	if d.Cache != nil {
		sessions = session.NewRedisStore(d.Cache, d.Cfg.SessionTTL)
	} else {
		sessions = session.NewMemoryStore(d.Cfg.SessionTTL)
	}

	// Services and handlers
	accountSvc := account.NewService(accountRepo)
	fundsSvc := funds.NewService(accountRepo, ledgerRepo)
	scheduler := membership.NewScheduler(membershipRepo, accountRepo, ledgerRepo, d.Logger)
	adminSvc := admin.NewService(accountRepo, ledgerRepo, membershipRepo, scheduler, d.Logger)

	accountHandler := account.NewHandler(accountSvc, sessions, d.Cfg.SessionTTL)
	fundsHandler := funds.NewHandler(fundsSvc)
	adminHandler := admin.NewHandler(adminSvc)

	api := app.Group("/api")

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAccountRoutes(api, accountHandler, rateLimiter)
	api.Post("/verify-payment", fundsHandler.Verify)

	// Session-protected routes
	sessionMW := middleware.SessionAuth(sessions)
	protected := api.Group("", sessionMW)
	RegisterProfileRoutes(protected, accountSvc, accountHandler, membershipRepo, ledgerRepo)
	RegisterFundsRoutes(protected, fundsHandler)

	// Admin gate
	adminMW := middleware.AdminKey(d.Cfg.AdminKey)
	RegisterAdminRoutes(api, adminHandler, adminMW)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
