package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"scholarstream/internal/api"
	"scholarstream/internal/api/middleware"
	"scholarstream/internal/app/service"
	"scholarstream/internal/common/security"
	"scholarstream/internal/domain/repository"
	"scholarstream/internal/domain/repository/memory"
	"scholarstream/internal/platform/cache"
	"scholarstream/internal/platform/config"
	"scholarstream/internal/platform/database"
	"scholarstream/internal/platform/identity"
	"scholarstream/internal/platform/logger"
	"scholarstream/internal/platform/metrics"
	"scholarstream/internal/platform/payment"

	"github.com/sirupsen/logrus"
)

type repositories struct {
	users        repository.UserRepository
	scholarships repository.ScholarshipRepository
	applications repository.ApplicationRepository
	reviews      repository.ReviewRepository
}

const shutdownTimeout = 15 * time.Second

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.WithField("storage", cfg.StorageDriver).Info("configuration loaded")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("server exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logrus.FieldLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Storage
	repos, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("storage init failed: %w", err)
	}
	defer closeStorage()

	// 3. Initialize Redis (optional)
	var reviewCache cache.ReviewCache = cache.NopReviewCache{}
	if rdb, err := cache.Connect(ctx, cfg, log); err != nil {
		log.WithError(err).Warn("redis unavailable, public reviews served uncached")
	} else {
		defer cache.Close(rdb, log)
		reviewCache = cache.NewRedisReviewCache(rdb, cfg.ReviewCacheTTL)
	}

	// 4. Identity provider
	verifier, err := newVerifier(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("identity verifier init failed: %w", err)
	}

	// 5. Initialize Services
	m := metrics.New()
	policy := service.NewAccessPolicy(repos.users)
	processor := payment.NewStripeProcessor(cfg.StripeSecret, cfg.StripeAPIURL, cfg.UpstreamTimeout, log)
	services := api.Services{
		Users:        service.NewUserService(repos.users, policy, log),
		Scholarships: service.NewScholarshipService(repos.scholarships, policy, log),
		Applications: service.NewApplicationService(repos.applications, policy, m, log),
		Payments: service.NewPaymentService(processor, repos.applications, policy, service.CheckoutURLs{
			Success:  cfg.PaymentSuccessURL(),
			Cancel:   cfg.PaymentCancelURL(),
			Currency: cfg.CheckoutCurrency,
		}, m, log),
		Reviews: service.NewReviewService(repos.reviews, policy, reviewCache, log),
		Policy:  policy,
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(10*time.Minute, ctx.Done())

	// 6. Initialize Router & HTTP Server
	router := api.NewRouter(services, api.Options{
		Verifier:       verifier,
		Metrics:        m,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Log:            log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 7. Serve until a signal, then shut down gracefully
	return serve(ctx, server, log)
}

// serve runs server until ctx is done or the listener fails. A listen error
// is returned rather than exiting, so the caller's deferred cleanup runs.
func serve(ctx context.Context, server *http.Server, log logrus.FieldLogger) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("could not listen on %s: %w", server.Addr, err)
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server stopped gracefully")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*repositories, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		store := memory.New()
		return &repositories{
			users:        store.Users(),
			scholarships: store.Scholarships(),
			applications: store.Applications(),
			reviews:      store.Reviews(),
		}, func() {}, nil
	}

	db, err := database.Connect(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(db, log); err != nil {
			database.Close(db, log)
			return nil, nil, err
		}
	}
	return &repositories{
		users:        repository.NewPgUserRepository(db),
		scholarships: repository.NewPgScholarshipRepository(db),
		applications: repository.NewPgApplicationRepository(db),
		reviews:      repository.NewPgReviewRepository(db),
	}, func() { database.Close(db, log) }, nil
}

func newVerifier(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (identity.Verifier, error) {
	if cfg.IdentityJWKSURL != "" {
		log.WithField("jwks", cfg.IdentityJWKSURL).Info("verifying identity tokens against JWKS")
		v, err := identity.NewJWKSVerifier(ctx, cfg.IdentityJWKSURL, cfg.IdentityIssuer, cfg.IdentityAudience, cfg.UpstreamTimeout)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	log.Warn("IDENTITY_JWKS_URL not set; accepting HS256 tokens signed with JWT_SECRET")
	return identity.NewHMACVerifier(security.NewTokenAuth(cfg.JWTKey)), nil
}
