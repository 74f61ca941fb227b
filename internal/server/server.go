package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/qolzam/feed/internal/middleware/requestid"
	"github.com/qolzam/feed/internal/pkg/log"
	platformconfig "github.com/qolzam/feed/internal/platform/config"
)

const shutdownTimeout = 15 * time.Second

// New builds the fiber app with the shared middleware and the health check.
// Domain routes are registered on the returned app by the caller.
func New(cfg platformconfig.ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "feed",
		ReadTimeout:           cfg.RequestTimeout,
		WriteTimeout:          cfg.RequestTimeout,
		DisableStartupMessage: !cfg.Debug,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	app.Get("/health", Health)
	return app
}

func corsConfig(origins string) cors.Config {
	origins = strings.TrimSpace(origins)
	if origins == "" || hasWildcardOrigin(origins) {
		origins = "*"
	}
	cfg := cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + requestid.HeaderRequestID,
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}
	// credentials may not be combined with a wildcard origin
	if origins != "*" {
		cfg.AllowCredentials = true
	}
	return cfg
}

func hasWildcardOrigin(origins string) bool {
	for _, origin := range strings.Split(origins, ",") {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}

// Health answers the liveness check
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	if code >= fiber.StatusInternalServerError {
		log.ErrorWithContext(c.UserContext(), "%s %s: %v", c.Method(), c.Path(), err)
	}

	// If response already set by handler, don't override it
	if len(c.Response().Body()) > 0 {
		return nil
	}

	return c.Status(code).JSON(fiber.Map{
		"code":    errorCode(code),
		"message": err.Error(),
	})
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusBadRequest:
		return "INVALID_REQUEST"
	default:
		return "INTERNAL_ERROR"
	}
}

// Run listens on addr and serves app until ctx is cancelled
func Run(ctx context.Context, app *fiber.App, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, app, ln)
}

// Serve serves app on ln until ctx is cancelled, then drains in-flight
// requests before returning.
func Serve(ctx context.Context, app *fiber.App, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening on %s", ln.Addr())
		if err := app.Listener(ln); err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}
