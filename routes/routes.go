package routes

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/nhsfuk/dharmic-games/handlers"
	"github.com/nhsfuk/dharmic-games/middleware"
	"github.com/nhsfuk/dharmic-games/models"
)

const (
	loginRateLimit   = 10
	requestRateLimit = 5
	rateLimitWindow  = time.Minute
)

type Options struct {
	JWTSecret      string
	Accounts       middleware.AccountResolver
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Handlers struct {
	Auth       *handlers.AuthHandler
	Admin      *handlers.AdminHandler
	University *handlers.UniversityHandler
	Player     *handlers.PlayerHandler
	Match      *handlers.MatchHandler
	Standings  *handlers.StandingsHandler
	Dashboard  *handlers.DashboardHandler
	Reference  *handlers.ReferenceHandler
	WebSocket  *handlers.WebSocketHandler
	Health     *handlers.HealthHandler
}

func SetupRoutes(router chi.Router, opts Options, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(middleware.CORS(opts.AllowedOrigins))

	authenticate := middleware.Authenticate([]byte(opts.JWTSecret), opts.Accounts, opts.Logger)
	anyAdmin := middleware.Authorize(models.RoleSuperAdmin, models.RoleAdmin, models.RoleUniversityAdmin)
	fullAdmin := middleware.Authorize(models.RoleSuperAdmin, models.RoleAdmin)
	superAdmin := middleware.Authorize(models.RoleSuperAdmin)

	router.Get("/healthz", h.Health.Healthz)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/swagger/doc.json", h.Health.OpenAPI)
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
	))
	router.Get("/ws", h.WebSocket.ServeWs)

	router.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimitByIP(loginRateLimit, rateLimitWindow)).Post("/auth/login", h.Auth.Login)
		r.With(middleware.RateLimitByIP(requestRateLimit, rateLimitWindow)).Post("/admin-requests", h.Admin.SubmitRequest)

		r.Get("/sports", h.Reference.Sports)
		r.Get("/zones", h.Reference.Zones)
		r.Get("/standings", h.Standings.Leaderboard)
		r.Get("/standings/{id}", h.Standings.ForUniversity)
		r.Get("/live-scores", h.Match.LiveScores)

		r.Route("/universities", func(r chi.Router) {
			r.Get("/", h.University.List)
			r.Get("/{id}", h.University.Get)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, fullAdmin)
				r.Post("/", h.University.Create)
				r.Put("/{id}", h.University.Update)
				r.Delete("/{id}", h.University.Delete)
				r.Post("/{id}/logo", h.University.UploadLogo)
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", h.Match.List)
			r.Get("/{id}", h.Match.Get)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, fullAdmin)
				r.Post("/", h.Match.Create)
				r.Put("/{id}", h.Match.Update)
				r.Delete("/{id}", h.Match.Delete)
				r.Post("/{id}/start", h.Match.Start)
				r.Put("/{id}/score", h.Match.UpdateScore)
				r.Post("/{id}/complete", h.Match.Complete)
				r.Post("/{id}/cancel", h.Match.Cancel)
				r.Put("/{id}/correct", h.Match.CorrectScore)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, anyAdmin)

			r.Get("/dashboard", h.Dashboard.Stats)

			r.Route("/players", func(r chi.Router) {
				r.Get("/", h.Player.List)
				r.Post("/", h.Player.Register)
				r.Get("/{id}", h.Player.Get)
				r.Put("/{id}", h.Player.Update)
				r.Delete("/{id}", h.Player.Delete)
				r.Post("/{id}/check-in", h.Player.CheckIn)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(authenticate, anyAdmin).Get("/role", h.Admin.Role)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, fullAdmin)
				r.Post("/reconcile", h.Admin.Reconcile)
				r.Get("/reconcile", h.Admin.LastReconcile)
			})

			r.Group(func(r chi.Router) {
				r.Use(authenticate, superAdmin)
				r.Get("/requests", h.Admin.ListRequests)
				r.Post("/requests/{id}/approve", h.Admin.ApproveRequest)
				r.Post("/requests/{id}/reject", h.Admin.RejectRequest)

				r.Get("/accounts", h.Admin.ListAccounts)
				r.Post("/accounts", h.Admin.CreateAccount)
				r.Put("/accounts/{id}", h.Admin.UpdateAccount)
				r.Delete("/accounts/{id}", h.Admin.DeleteAccount)

				r.Post("/seed", h.Admin.Seed)
			})
		})
	})
}
