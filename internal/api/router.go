package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/handlers"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/cache"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/config"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/events"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/metrics"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/middleware"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ratelimit"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/service"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/workflow"
)

// Deps are the long-lived collaborators the router wires together.
// Redis, Google and AuthLimiter are optional.
type Deps struct {
	Config    *config.Config
	Log       zerolog.Logger
	Store     repository.Store
	Redis     *cache.Redis
	OTPs      cache.OTPStore
	Locker    cache.Locker
	Backend   workflow.Backend
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Google    auth.OAuthProvider

	// AuthLimiter throttles the unauthenticated auth endpoints per IP
	AuthLimiter *middleware.RateLimiter
}

// NewRouter creates and configures the main router
func NewRouter(d Deps) *chi.Mux {
	cfg := d.Config
	r := chi.NewRouter()

	cookies := auth.CookieConfig{
		Domain: cfg.CookieDomain,
		Secure: cfg.IsProduction(),
		MaxAge: cfg.JWTExpiresIn,
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiresIn)
	authMiddleware := auth.NewAuthMiddleware(jwtService, d.Store.Users(), cookies)

	accountService := service.NewAccountService(d.Store, d.OTPs, jwtService, d.Publisher, d.Metrics, cfg.OTPTTL)
	planService := service.NewPlanService(d.Store, d.Publisher, d.Metrics)
	generationService := service.NewGenerationService(d.Store, d.Backend, d.Locker, d.Publisher, d.Metrics)
	adminService := service.NewAdminService(d.Store, d.Publisher, d.Metrics)

	// Generation is rate limited per user only when Redis is available
	var generationLimiter *ratelimit.RateLimiter
	if d.Redis != nil {
		generationLimiter = ratelimit.NewRateLimiter(d.Redis, d.Log)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthChecker(d.Store, d.Redis)
	statusHandler := handlers.NewStatusHandler(d.Store, d.Redis, cfg)
	authHandler := handlers.NewAuthHandler(accountService, cookies)
	googleHandler := handlers.NewGoogleHandler(accountService, d.Google, cookies, cfg.FrontendURL)
	planHandler := handlers.NewPlanHandler(planService)
	generationHandler := handlers.NewGenerationHandler(generationService)
	userHandler := handlers.NewUserHandler(accountService, cookies)
	limitsHandler := handlers.NewLimitsHandler(generationLimiter)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.Metrics(d.Metrics))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", handlers.LivenessProbe)
	r.Get("/health/ready", healthHandler.ReadinessProbe)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			if d.AuthLimiter != nil {
				r.Use(middleware.RateLimit(d.AuthLimiter))
			}
			r.Post("/signup", authHandler.Signup)
			r.Post("/verify-otp", authHandler.VerifyOTP)
			r.Post("/resend-otp", authHandler.ResendOTP)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/google", googleHandler.Start)
			r.Get("/google/callback", googleHandler.Callback)
		})

		r.With(authMiddleware.OptionalAuth).Get("/plans", planHandler.List)

		// Everything below requires a usable account
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/plans/current", planHandler.Current)
			r.With(auth.RequireCapability(models.CapSelectPlan)).Post("/plans/select", planHandler.Select)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireCapability(models.CapGenerate))
				if generationLimiter != nil {
					r.Use(generationLimiter.Middleware)
				}
				r.Post("/image-edit", generationHandler.Generate(workflow.ModeImageEdit))
				r.Post("/video-edit/text-to-video", generationHandler.Generate(workflow.ModeTextToVideo))
				r.Post("/video-edit/image-to-video", generationHandler.Generate(workflow.ModeImageToVideo))
				r.Post("/video-edit/audio-to-video", generationHandler.Generate(workflow.ModeAudioToVideo))
			})

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", userHandler.Me)
				r.Delete("/", userHandler.Delete)
				r.Get("/history", userHandler.History)
				r.Post("/terms", userHandler.Terms)
				r.Get("/limits", limitsHandler.Me)
			})
			r.Get("/payments", userHandler.Payments)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleAdmin))
				r.Get("/status", statusHandler.GetStatus)
				r.Get("/users", adminHandler.ListUsers)
				r.Get("/users/{id}", adminHandler.GetUser)
				r.With(auth.RequireCapability(models.CapManageUsers)).Patch("/users/{id}/credits", adminHandler.UpdateCredits)
				r.With(auth.RequireCapability(models.CapManageUsers)).Patch("/users/{id}/plan", adminHandler.UpdatePlan)
				r.With(auth.RequireCapability(models.CapManageUsers)).Patch("/users/{id}/status", adminHandler.UpdateStatus)
				r.With(auth.RequireCapability(models.CapManagePayments)).Patch("/payments/{id}/status", adminHandler.UpdatePaymentStatus)
			})
		})
	})

	return r
}
