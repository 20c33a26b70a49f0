package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"required-backend/internal/admin"
	"required-backend/internal/auth"
	"required-backend/internal/config"
	"required-backend/internal/dsl"
	"required-backend/internal/engine"
	"required-backend/internal/expression"
	"required-backend/internal/instrument"
	"required-backend/internal/logging"
	"required-backend/internal/metadata"
)

// Server is the assembled HTTP service.
type Server struct {
	App      *fiber.App
	Registry *metadata.Registry
	cfg      *config.Config
}

// New wires the service from cfg. Rule files in cfg.Rules.Dir are loaded
// before any route is registered.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	log := logging.FromContext(ctx)

	// 1. Compiler with the default whitelist
	compiler := dsl.NewCompiler(expression.DefaultCallables())

	// 2. Registry and rule files
	reg := metadata.NewRegistry()
	if cfg.Rules.Dir != "" {
		if _, err := metadata.LoadDir(ctx, cfg.Rules.Dir, compiler, reg); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
			log.Warn("rules directory not found, starting empty", "dir", cfg.Rules.Dir)
		}
	}

	// 3. Instrumentation
	var inst instrument.Instrumenter = &instrument.NoopInstrumenter{}
	var metrics *prometheus.Registry
	if cfg.Metrics.Enabled {
		metrics = prometheus.NewRegistry()
		metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		inst = instrument.NewPrometheus(metrics)
	}

	// 4. Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          engine.ErrorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(logging.WithLogger(c.UserContext(), log))
		return c.Next()
	})
	app.Use(instrument.Middleware(inst))
	if log.Enabled(ctx, slog.LevelDebug) {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
		}))
	}

	// 5. Health and metrics
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "rulesets": reg.Len()})
	})
	if metrics != nil {
		app.Get("/metrics", instrument.MetricsHandler(metrics))
	}

	// 6. Auth routes (no auth required)
	var accounts []auth.Account
	if cfg.Auth.AdminEnabled() {
		accounts = append(accounts, auth.Account{
			Username:     cfg.Auth.AdminUser,
			PasswordHash: cfg.Auth.AdminPasswordHash,
			Roles:        []string{"admin"},
		})
	} else {
		log.Warn("admin login disabled: auth.admin_password_hash is not set")
	}
	authHandler := auth.NewAuthHandler(cfg.Auth.JWTSecret, auth.NewTokenStore(auth.RefreshTokenTTL), accounts...)
	auth.RegisterAuthRoutes(app, authHandler)

	// 7. Admin routes (auth + admin required)
	adminHandler := admin.NewHandler(reg, compiler, cfg.Rules.Dir)
	admin.RegisterAdminRoutes(app, adminHandler, auth.AuthMiddleware(cfg.Auth.JWTSecret), auth.RequireAdmin())

	// 8. Validation routes
	engine.RegisterValidateRoutes(app, engine.NewHandler(reg, compiler))

	return &Server{App: app, Registry: reg, cfg: cfg}, nil
}

// Run listens on the configured port until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	logging.FromContext(ctx).Info("starting server", "addr", addr, "rulesets", s.Registry.Len())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.App.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.App.Shutdown()
	}
}
