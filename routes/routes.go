package routes

import (
	"net/http"
	"time"

	"github.com/Blukstak/OxideExpo-sub000/app"
	"github.com/Blukstak/OxideExpo-sub000/handlers"
	appmw "github.com/Blukstak/OxideExpo-sub000/middleware"
	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/Blukstak/OxideExpo-sub000/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	requestTimeout := deps.Config.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Instrument)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.DB.DB, deps.Revocations, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Logger)
	roleHandler := handlers.NewRoleHandler(deps.Logger)

	var presigner handlers.Presigner
	if deps.Storage != nil {
		presigner = deps.Storage
	}
	uploadHandler := handlers.NewUploadHandler(presigner, deps.Logger)

	gate := deps.AuthMiddleware
	roles := deps.RoleMiddleware

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if deps.LoginLimiter != nil {
					r.Use(deps.LoginLimiter.Middleware)
				}
				r.Post("/register", authHandler.HandleRegister)
				r.Post("/login", authHandler.HandleLogin)
				r.Post("/refresh", authHandler.HandleRefresh)
			})

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireAuth)
				r.Post("/logout", authHandler.HandleLogout)
				r.Get("/me", authHandler.HandleMe)
			})
		})

		r.Route("/uploads", func(r chi.Router) {
			r.Use(gate.RequireAuth)
			r.With(gate.RequireRoleClass(models.RoleClassJobSeeker)).
				Post("/cv", uploadHandler.HandleCV)
			r.With(roles.RequireCompany(models.CompanyRoleRecruiter)).
				Post("/logo", uploadHandler.HandleLogo)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(gate.RequireAuth)
			r.With(roles.RequireAnyAdmin()).Get("/me", roleHandler.HandleAdminMe)
			r.With(roles.RequireSuperAdmin()).Get("/super/me", roleHandler.HandleAdminMe)
		})

		r.Route("/omil", func(r chi.Router) {
			r.Use(gate.RequireAuth)
			r.With(roles.RequireOMILMember()).Get("/me", roleHandler.HandleOMILMe)
			r.With(roles.RequireOMILCoordinator()).Get("/coordination/me", roleHandler.HandleOMILMe)
			r.With(roles.RequireOMILDirector()).Get("/direction/me", roleHandler.HandleOMILMe)
		})

		r.Route("/company", func(r chi.Router) {
			r.Use(gate.RequireAuth)
			r.With(roles.RequireCompany(models.CompanyRoleMember)).Get("/me", roleHandler.HandleCompanyMe)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}

// requestLogger logs one line per request with zap
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote_ip", r.RemoteAddr),
					zap.String("request_id", appmw.GetRequestIDFromContext(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
