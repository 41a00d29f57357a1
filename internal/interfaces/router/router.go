package router

import (
	"piefolio-backend/internal/application/ibkr"
	"piefolio-backend/internal/application/pies"
	"piefolio-backend/internal/application/portfolios"
	"piefolio-backend/internal/application/slices"
	usersvc "piefolio-backend/internal/application/user"
	"piefolio-backend/internal/auth"
	"piefolio-backend/internal/config"
	"piefolio-backend/internal/infrastructure/database"
	healthhandlers "piefolio-backend/internal/interfaces/handlers/health"
	ibkrhandlers "piefolio-backend/internal/interfaces/handlers/ibkr"
	piehandlers "piefolio-backend/internal/interfaces/handlers/pies"
	portfoliohandlers "piefolio-backend/internal/interfaces/handlers/portfolios"
	slicehandlers "piefolio-backend/internal/interfaces/handlers/slices"
	userhandlers "piefolio-backend/internal/interfaces/handlers/user"
	"piefolio-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. DB and Redis handles are returned for startup pings and
// shutdown.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins}))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opt)
	}
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	// Health (no auth)
	healthH := &healthhandlers.Handlers{Rdb: rdb, Env: cfg.Env}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			healthH.DB = dbPinger(sqlDB.Ping)
		}
	}
	healthGroup := app.Group("/api/health")
	healthGroup.Get("/", healthH.Basic)
	healthGroup.Get("/ready", healthH.Ready)
	healthGroup.Get("/live", healthH.Live)
	healthGroup.Get("/json", healthH.JSON)

	if db != nil {
		verifier := &auth.Verifier{Secret: cfg.JWTSecret}
		requireAuth := middleware.RequireAuth(verifier)

		portfolioService := &portfolios.Service{DB: db}
		pieService := &pies.Service{DB: db}
		sliceService := &slices.Service{DB: db}
		userService := &usersvc.Service{DB: db}
		ibkrService := &ibkr.Service{
			Client: ibkr.NewClient(cfg.IBKRGatewayHost, cfg.IBKRGatewayPort, cfg.IBKRClientTimeout),
		}

		portfolioH := &portfoliohandlers.Handlers{Service: portfolioService}
		portfolioGroup := app.Group("/api/portfolios", requireAuth)
		portfolioGroup.Get("/", portfolioH.List)
		portfolioGroup.Post("/", portfolioH.Create)
		portfolioGroup.Get("/:portfolio_id", portfolioH.Get)
		portfolioGroup.Put("/:portfolio_id", portfolioH.Update)
		portfolioGroup.Delete("/:portfolio_id", portfolioH.Delete)

		pieH := &piehandlers.Handlers{Service: pieService, Portfolios: portfolioService}
		pieGroup := app.Group("/api/pies", requireAuth)
		pieGroup.Get("/", pieH.List)
		pieGroup.Post("/", pieH.Create)
		pieGroup.Post("/reorder", pieH.Reorder)

		sliceH := &slicehandlers.Handlers{Service: sliceService, Portfolios: portfolioService}
		pieGroup.Get("/:pie_id/slices", sliceH.List)
		pieGroup.Post("/:pie_id/slices", sliceH.Create)
		pieGroup.Post("/:pie_id/slices/reorder", sliceH.Reorder)
		pieGroup.Get("/:pie_id/slices/:slice_id", sliceH.Get)
		pieGroup.Patch("/:pie_id/slices/:slice_id", sliceH.Update)
		pieGroup.Delete("/:pie_id/slices/:slice_id", sliceH.Delete)

		// Registered after the slice routes so "/:pie_id" does not shadow them.
		pieGroup.Get("/:pie_id", pieH.Get)
		pieGroup.Patch("/:pie_id", pieH.Update)
		pieGroup.Delete("/:pie_id", pieH.Delete)

		userH := &userhandlers.Handlers{Service: userService}
		userGroup := app.Group("/api/users", requireAuth)
		userGroup.Get("/me", userH.Me)
		userGroup.Patch("/me", userH.UpdateMe)

		ibkrH := &ibkrhandlers.Handlers{Service: ibkrService, Users: userService}
		ibkrGroup := app.Group("/api/ibkr", requireAuth)
		ibkrGroup.Get("/status", ibkrH.Status)
		ibkrGroup.Get("/accounts", ibkrH.Accounts)
	}

	return app, db, rdb, nil
}

type dbPinger func() error

func (p dbPinger) Ping() error { return p() }
