package handlers

import (
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"katalog/internal/middleware"
	"katalog/internal/services"
)

// AppOptions collects what NewApp wires into the router.
type AppOptions struct {
	Products  *services.ProductService
	Auth      *services.AuthService
	Logger    *slog.Logger
	ShowStack bool
	// CORSOrigins is a comma separated list, "*" allows any origin.
	CORSOrigins string
	// AccessLog receives one line per request. Nil disables it.
	AccessLog io.Writer
}

// NewApp builds the Fiber application with every route registered.
func NewApp(opts AppOptions) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CORSOrigins == "" {
		opts.CORSOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:      "katalog",
		ErrorHandler: ErrorHandler(opts.Logger, opts.ShowStack),
	})

	// --- Middleware ---
	app.Use(recover.New(recover.Config{EnableStackTrace: opts.ShowStack}))
	app.Use(requestid.New())
	if opts.AccessLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${method} ${path} ${latency}\n",
			Output: opts.AccessLog,
		}))
	}
	app.Use(cors.New(cors.Config{AllowOrigins: opts.CORSOrigins}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Product CRUD API is live 🚀"})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- API Routes ---
	api := app.Group("/api")
	NewAuthHandler(opts.Auth).RegisterRoutes(api)
	NewProductHandler(opts.Products, middleware.AuthRequired(opts.Auth)).RegisterRoutes(api)

	app.Use(notFoundRoute)
	return app
}
