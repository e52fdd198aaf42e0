package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/telemetry"
)

func main() {
	lg := applog.Logger()
	cfg, err := config.Load()
	if err != nil {
		lg.Fatal("config", zap.Error(err))
	}

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			lg.Warn("could not open log file", zap.String("path", cfg.LogFile), zap.Error(err))
		} else {
			defer f.Close()
			applog.SetOutput(io.MultiWriter(os.Stdout, f))
			lg = applog.Logger()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Options{Exporter: cfg.TraceExporter, Endpoint: cfg.OTLPEndpoint})
	if err != nil {
		lg.Fatal("telemetry", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			lg.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		lg.Fatal("database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer db.Close()

	var guard services.CheckoutGuard = services.NewMemoryGuard()
	if cfg.RedisURL != "" {
		rg, err := services.NewRedisGuardFromURL(ctx, cfg.RedisURL, 0)
		if err != nil {
			lg.Fatal("redis checkout guard", zap.Error(err))
		}
		defer rg.Close()
		guard = rg
		lg.Info("checkout guard: redis")
	}

	// Templates & app
	engine := html.New(cfg.TemplatesDir, ".html")
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: handlers.ErrorHandler,
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	deps := handlers.NewDeps(db, cfg, guard, tel)

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(handlers.Attach(deps.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/")
		},
	}))
	app.Use(csrf.New(handlers.CSRFConfig(cfg.SecureCookies)))
	app.Use(handlers.ExposeCSRF)

	// ---------- Static assets ----------
	mediaDir := cfg.MediaDir
	if !filepath.IsAbs(mediaDir) {
		if abs, err := filepath.Abs(mediaDir); err == nil {
			mediaDir = abs
		}
	}
	lg.Info("static", zap.String("media", mediaDir))

	app.Static("/static", "./web/static")
	// Guarded media to avoid traversal
	app.Get("/media/*", func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.Clean(path)
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendFile(filepath.Join(mediaDir, clean), true)
	})

	handlers.Register(app, deps)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			lg.Warn("shutdown", zap.Error(err))
		}
	}()

	lg.Info("listening", zap.String("port", cfg.Port), zap.String("db", cfg.DBDriver))
	if err := app.Listen(":" + cfg.Port); err != nil {
		lg.Error("listen", zap.Error(err))
	}
}
