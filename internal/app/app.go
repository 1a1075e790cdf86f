// Package app wires configuration, stores, the lifecycle engine, and the
// HTTP server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"rslab/internal/assets"
	"rslab/internal/auth"
	"rslab/internal/config"
	"rslab/internal/infrastructure"
	"rslab/internal/license"
	"rslab/internal/middleware"
	"rslab/internal/store"
	transport "rslab/internal/transport/http"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App is the assembled service.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	logCloser io.Closer
	stores    io.Closer
	otelStop  func(context.Context) error
}

// New assembles the application from configuration.
func New(cfg *config.Config) (*App, error) {
	logger, logCloser, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	otelStop, err := infrastructure.InitTracing("rslab-licensed", Version)
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}

	if cfg.Security.AuthSecret == "" {
		return nil, fmt.Errorf("security.auth_secret is required")
	}

	licStore, userStore, auditStore, storeCloser, err := buildStores(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine := license.NewEngine(licStore, userStore, auditStore, license.EngineConfig{
		Signer:              license.NewSigner(cfg.License.SigningSecret),
		Logger:              logger,
		RequireRevokeReason: cfg.License.RequireRevokeReason,
	})

	verifier := auth.NewJWTVerifier(cfg.Security.AuthSecret)

	router := buildRouter(cfg, logger, engine, verifier)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		server:    server,
		logCloser: logCloser,
		stores:    storeCloser,
		otelStop:  otelStop,
	}, nil
}

// buildStores picks the Firestore adapter when a project is configured and
// the in-memory store otherwise (local development).
func buildStores(cfg *config.Config, logger *slog.Logger) (license.LicenseStore, license.UserStore, license.AuditStore, io.Closer, error) {
	if cfg.Firestore.ProjectID == "" {
		logger.Warn("no firestore project configured, using in-memory store")
		mem := store.NewMemory()
		return mem, mem.Users(), mem, nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	fs, err := store.NewFirestore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect store: %w", err)
	}
	return fs, fs.Users(), fs, fs, nil
}

func buildRouter(cfg *config.Config, logger *slog.Logger, engine *license.Engine, verifier auth.Verifier) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.TraceContext)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthHandler := transport.NewHealthHandler(Version)
	verifyHandler := transport.NewVerifyHandler(engine, logger)
	licenseHandler := transport.NewLicenseHandler(engine, logger)
	auditHandler := transport.NewAuditHandler(engine, logger)

	r.Get("/metrics", transport.Metrics().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/meta", healthHandler.Meta)

		r.Group(func(r chi.Router) {
			if cfg.Security.RateLimit.Enabled {
				limiter := middleware.NewRateLimiter(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst)
				r.Use(limiter.Handler)
			}
			r.Get("/verify-license", verifyHandler.Verify)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(verifier, engine, logger))
			r.Mount("/licenses", licenseHandler.Routes())
			r.Get("/logs", auditHandler.List)

			if cfg.Assets.Endpoint != "" {
				storage, err := assets.NewBucketStorage(cfg.Assets)
				if err != nil {
					logger.Error("asset storage unavailable, download disabled",
						slog.String("error", err.Error()))
				} else {
					downloadHandler := transport.NewDownloadHandler(storage, cfg.Assets.PluginKey, logger)
					r.Get("/download", downloadHandler.Download)
				}
			}
		})
	})

	return r
}

// Run starts the HTTP server and blocks until the context is cancelled or
// SIGINT/SIGTERM arrives, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening",
			slog.String("addr", a.server.Addr),
			slog.String("version", Version),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.close(shutdownCtx)
	return nil
}

func (a *App) close(ctx context.Context) {
	if a.otelStop != nil {
		if err := a.otelStop(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}
	if a.stores != nil {
		if err := a.stores.Close(); err != nil {
			a.logger.Warn("store close failed", slog.String("error", err.Error()))
		}
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}
