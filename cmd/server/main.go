package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"peopleops/internal/db"
	"peopleops/internal/domain/audit"
	"peopleops/internal/domain/auth"
	"peopleops/internal/domain/core"
	"peopleops/internal/domain/leave"
	"peopleops/internal/domain/letters"
	"peopleops/internal/domain/payroll"
	"peopleops/internal/domain/recruiting"
	"peopleops/internal/domain/vendors"
	"peopleops/internal/platform/config"
	cryptoutil "peopleops/internal/platform/crypto"
	"peopleops/internal/platform/email"
	"peopleops/internal/platform/jobs"
	"peopleops/internal/platform/metrics"
	"peopleops/internal/tenant"
	adminhandler "peopleops/internal/transport/http/handlers/admin"
	audithandler "peopleops/internal/transport/http/handlers/audit"
	authhandler "peopleops/internal/transport/http/handlers/auth"
	careerhandler "peopleops/internal/transport/http/handlers/career"
	corehandler "peopleops/internal/transport/http/handlers/core"
	leavehandler "peopleops/internal/transport/http/handlers/leave"
	lettershandler "peopleops/internal/transport/http/handlers/letters"
	payrollhandler "peopleops/internal/transport/http/handlers/payroll"
	recruitinghandler "peopleops/internal/transport/http/handlers/recruiting"
	vendorshandler "peopleops/internal/transport/http/handlers/vendors"
	"peopleops/internal/transport/http/middleware"
)

const (
	sharedMigrationsDir = "migrations/shared"
	tenantMigrationsDir = "migrations/tenant"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.MigrateShared(ctx, pool, sharedMigrationsDir); err != nil {
			logger.Error("shared migrations failed", "err", err)
			os.Exit(1)
		}
	}

	registry := tenant.NewStore(pool)
	provisioner := tenant.NewProvisioner(pool, registry, tenantMigrationsDir)
	if cfg.RunMigrations {
		if err := provisioner.UpgradeAll(ctx); err != nil {
			logger.Error("tenant migrations failed", "err", err)
			os.Exit(1)
		}
	}

	resolver := tenant.NewResolver(registry, cfg.DatabaseURL)
	defer resolver.Close()

	cryptoSvc, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		logger.Error("encryption key invalid", "err", err)
		os.Exit(1)
	}

	collector := metrics.New()
	mailer := email.New(cfg)
	userStore := auth.NewStore(pool)
	auditSvc := audit.New(pool)

	coreSvc := core.NewService()
	leaveSvc := leave.NewService(collector)
	payrollSvc := payroll.NewService(cryptoSvc, collector, logger)
	renderer := letters.NewChromiumRenderer(cfg.RenderServiceURL, cfg.RenderTimeout)
	lettersSvc := letters.NewService(renderer, cryptoSvc, collector, logger)
	recruitingSvc := recruiting.NewService(mailer, cfg.EmailFrom, logger)
	vendorsSvc := vendors.NewService()

	if cfg.RunSeed {
		if err := seed(ctx, cfg, provisioner, userStore); err != nil {
			logger.Error("seed failed", "err", err)
			os.Exit(1)
		}
	}

	admin := &adminhandler.Handler{
		Provisioner: provisioner,
		Registry:    registry,
		Users:       userStore,
		Metrics:     collector,
		Leave:       leaveSvc,
		Audit:       auditSvc,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics(collector))
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := pool.Ping(req.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		// Public surface: login, tenant signup, careers.
		authhandler.NewHandler(userStore, cfg.JWTSecret).RegisterRoutes(r)
		admin.RegisterPublicRoutes(r)
		careerhandler.NewHandler(recruitingSvc, resolver).RegisterRoutes(r)

		// Everything below needs a resolved tenant partition.
		r.Group(func(r chi.Router) {
			r.Use(middleware.ResolveTenant(resolver))
			corehandler.NewHandler(coreSvc, auditSvc).RegisterRoutes(r)
			leavehandler.NewHandler(leaveSvc, auditSvc).RegisterRoutes(r)
			payrollhandler.NewHandler(payrollSvc, auditSvc).RegisterRoutes(r)
			lettershandler.NewHandler(lettersSvc, auditSvc).RegisterRoutes(r)
			recruitinghandler.NewHandler(recruitingSvc, auditSvc).RegisterRoutes(r)
			vendorshandler.NewHandler(vendorsSvc, auditSvc).RegisterRoutes(r)
			audithandler.NewHandler(auditSvc).RegisterRoutes(r)
			admin.RegisterRoutes(r)
		})
	})

	runner := &jobs.Runner{
		Registry: registry,
		Resolver: resolver,
		Leave:    leaveSvc,
		Interval: cfg.BalanceSyncInterval,
		Logger:   logger,
	}
	runner.Start(ctx)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	logger.Info("listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

// seed provisions the bootstrap tenant and its first admin user. It is
// idempotent: an existing tenant is reused and the admin is only created
// while the tenant has no users at all.
func seed(ctx context.Context, cfg config.Config, provisioner *tenant.Provisioner, users *auth.Store) error {
	if cfg.SeedTenantCode == "" {
		return nil
	}

	t, err := provisioner.Provision(ctx, cfg.SeedTenantCode, cfg.SeedTenantName)
	if errors.Is(err, tenant.ErrCodeTaken) {
		t, err = provisioner.Registry.ByCode(ctx, cfg.SeedTenantCode)
	}
	if err != nil {
		return err
	}

	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return nil
	}
	count, err := users.UserCountForTenant(ctx, t.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	userID, err := users.CreateUser(ctx, t.ID, nil, cfg.SeedAdminEmail, hash, auth.RoleAdmin)
	if err != nil {
		return err
	}
	slog.Info("seeded admin user", "tenant", t.Code, "userId", userID)
	return nil
}
