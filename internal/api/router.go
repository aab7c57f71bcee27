package api

import (
	"net/http"
	"time"
	"scholarstream/internal/api/handler"
	"scholarstream/internal/api/middleware"
	"scholarstream/internal/app/service"
	"scholarstream/internal/platform/identity"
	"scholarstream/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

type Services struct {
	Users        *service.UserService
	Scholarships *service.ScholarshipService
	Applications *service.ApplicationService
	Payments     *service.PaymentService
	Reviews      *service.ReviewService
	Policy       *service.AccessPolicy
}

type Options struct {
	Verifier       identity.Verifier
	Metrics        *metrics.Metrics
	Limiter        *middleware.RateLimiter
	AllowedOrigins []string
	RequestTimeout time.Duration
	Log            logrus.FieldLogger
}

func NewRouter(svc Services, opts Options) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(opts.Metrics.Instrument)

	guards := handler.Guards{
		Authenticate: middleware.Authenticator(opts.Verifier, opts.Log),
		Admin:        middleware.RequireAdmin(svc.Policy),
		Staff:        middleware.RequireStaff(svc.Policy),
	}
	if opts.Limiter != nil {
		guards.Throttle = opts.Limiter.Handler
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ScholarStream API Running"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", opts.Metrics.Handler())

	r.Route("/users", handler.NewUserHandler(svc.Users, guards).RegisterRoutes)
	r.Route("/scholarships", handler.NewScholarshipHandler(svc.Scholarships, guards).RegisterRoutes)
	r.Route("/applications", handler.NewApplicationHandler(svc.Applications, guards).RegisterRoutes)
	r.Route("/reviews", handler.NewReviewHandler(svc.Reviews, guards).RegisterRoutes)
	handler.NewPaymentHandler(svc.Payments, guards).RegisterRoutes(r)

	return r
}
