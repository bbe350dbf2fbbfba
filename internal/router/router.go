package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/scriptgrade/scriptgrade-api/internal/config"
	"github.com/scriptgrade/scriptgrade-api/internal/handler"
	"github.com/scriptgrade/scriptgrade-api/internal/middleware"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
	"github.com/scriptgrade/scriptgrade-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	SubjectHandler     *handler.SubjectHandler
	QuestionHandler    *handler.QuestionHandler
	QuestionSetHandler *handler.QuestionSetHandler
	EvaluationHandler  *handler.EvaluationHandler
	RecheckHandler     *handler.RecheckHandler
	ReportHandler      *handler.ReportHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	teacherOnly := middleware.RequireRole(models.RoleTeacher, models.RoleModerator, models.RoleAdmin)
	moderatorOnly := middleware.RequireRole(models.RoleModerator, models.RoleAdmin)

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute)))
		deps.AuthHandler.RegisterClasses(api)
	}

	if deps.SubjectHandler != nil {
		subjects := api.Group("/subjects", jwtMiddleware)
		// Reads are open to any authenticated user; writes need a teacher.
		subjects.Use(methodGuard(teacherOnly))
		deps.SubjectHandler.Register(subjects)
	}

	if deps.QuestionHandler != nil {
		questions := api.Group("/questions", jwtMiddleware)
		questions.Use(methodGuard(teacherOnly))
		deps.QuestionHandler.Register(questions)
	}

	if deps.QuestionSetHandler != nil {
		sets := api.Group("/question-sets", jwtMiddleware)
		sets.Use(methodGuard(teacherOnly))
		deps.QuestionSetHandler.Register(sets)
	}

	if deps.EvaluationHandler != nil {
		evaluations := api.Group("/evaluations", jwtMiddleware, middleware.RateLimit("evaluations", 30, time.Minute))
		deps.EvaluationHandler.Register(evaluations)

		batch := api.Group("/evaluations", jwtMiddleware, teacherOnly)
		deps.EvaluationHandler.RegisterBatch(batch)
	}

	if deps.RecheckHandler != nil {
		rechecks := api.Group("/rechecks", jwtMiddleware)
		deps.RecheckHandler.Register(rechecks)

		moderation := api.Group("/rechecks", jwtMiddleware, moderatorOnly)
		deps.RecheckHandler.RegisterModeration(moderation)
	}

	if deps.ReportHandler != nil {
		reports := api.Group("/reports", jwtMiddleware, teacherOnly)
		deps.ReportHandler.Register(reports)
	}
}

// methodGuard applies the wrapped middleware to mutating requests only.
func methodGuard(guard fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead:
			return c.Next()
		default:
			return guard(c)
		}
	}
}
