package router

import (
	"strings"

	"letter-log-system/internal/handler"
	"letter-log-system/internal/middleware"
	"letter-log-system/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Deps struct {
	DB             *gorm.DB
	Auth           *service.AuthService
	Users          *service.UserService
	Letters        *service.LetterService
	Audit          *service.AuditService
	AllowedOrigins string
	Log            zerolog.Logger
}

func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "letter-log",
		ErrorHandler:          handler.ErrorHandler(d.Log),
		DisableStartupMessage: true,
	})

	origins := strings.TrimSpace(d.AllowedOrigins)
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.Logging(d.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization,X-Requested-With",
	}))

	app.Get("/health", handler.Health(d.DB))

	authRequired := middleware.Auth(d.Auth)
	api := app.Group("/api/v1")

	authHandler := handler.NewAuthHandler(d.Auth)
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authRequired, authHandler.Logout)
	auth.Get("/me", authRequired, authHandler.Me)
	auth.Put("/password", authRequired, authHandler.ChangePassword)
	auth.Get("/login-logs", authRequired, authHandler.LoginLogs)

	logHandler := handler.NewLogHandler(d.Audit)
	auth.Get("/logs", authRequired, logHandler.Mine)

	letterHandler := handler.NewLetterHandler(d.Letters)
	letters := api.Group("/letters", authRequired)
	letters.Get("/", letterHandler.List)
	letters.Post("/", letterHandler.Create)
	letters.Get("/stats", letterHandler.Stats)
	letters.Get("/:id", letterHandler.Get)
	letters.Put("/:id", letterHandler.Update)
	letters.Delete("/:id", letterHandler.Delete)

	userHandler := handler.NewUserHandler(d.Users)
	users := api.Group("/users", authRequired, middleware.AdminOnly())
	users.Get("/", userHandler.List)
	users.Post("/", userHandler.Create)
	users.Put("/:id", userHandler.Update)
	users.Delete("/:id", userHandler.Delete)

	api.Get("/logs", authRequired, middleware.AdminOnly(), logHandler.List)

	return app
}
