package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/levantcargo/shipdesk/internal/admin"
	"github.com/levantcargo/shipdesk/internal/auth"
	"github.com/levantcargo/shipdesk/internal/catalog"
	"github.com/levantcargo/shipdesk/internal/config"
	"github.com/levantcargo/shipdesk/internal/database"
	"github.com/levantcargo/shipdesk/internal/label"
	"github.com/levantcargo/shipdesk/internal/metrics"
	"github.com/levantcargo/shipdesk/internal/middleware"
	"github.com/levantcargo/shipdesk/internal/payment"
	"github.com/levantcargo/shipdesk/internal/pricing"
	"github.com/levantcargo/shipdesk/internal/rates"
	"github.com/levantcargo/shipdesk/internal/uploads"
	"github.com/levantcargo/shipdesk/internal/wizard"
)

// catalogRefreshInterval keeps the local price list mirror close to the
// backend's without hammering it.
const catalogRefreshInterval = 15 * time.Minute

const sessionSweepInterval = time.Hour

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"backend_url", cfg.Backend.BaseURL,
		"storage_type", cfg.Storage.Type,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}

	// baseCtx bounds all background work; cancelled on shutdown.
	baseCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Backend API client
	client := pricing.NewClient(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout)

	// Catalog mirror: load persisted state, then refresh from the backend.
	cat, err := catalog.New(db)
	if err != nil {
		log.Fatalf("failed to initialize catalog: %v", err)
	}
	if err := cat.Refresh(baseCtx, client); err != nil {
		slog.Warn("initial catalog refresh failed, serving persisted mirror", "error", err)
	}
	go refreshCatalogPeriodically(baseCtx, cat, client)

	// Syria province rate table
	provinceStore, err := rates.NewStore(db)
	if err != nil {
		log.Fatalf("failed to initialize province rates: %v", err)
	}

	// Upload storage for parcel photos and transfer slips
	storageDriver, err := uploads.NewStorageFromConfig(baseCtx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize upload storage: %v", err)
	}
	uploadService, err := uploads.NewService(storageDriver, db)
	if err != nil {
		log.Fatalf("failed to initialize upload service: %v", err)
	}
	uploadHandler := uploads.NewHTTPHandler(uploadService)

	// Wizard session store (local sqlite, like a browser-side draft but
	// surviving restarts)
	sessionStore, err := wizard.NewSessionStore(cfg.Wizard.SessionDBPath)
	if err != nil {
		log.Fatalf("failed to initialize session store: %v", err)
	}
	go sweepSessionsPeriodically(baseCtx, sessionStore, cfg.Wizard.SessionTTL)

	rules := &wizard.Rules{Categories: cat, Provinces: provinceStore}
	submitter := wizard.NewSubmitter(client, uploadService, rules)
	poller := label.New(client, cfg.Wizard.LabelPollInterval, cfg.Wizard.LabelPollMaxAttempts)
	wizardRouter := wizard.NewRouter(baseCtx, sessionStore, rules, client, cat, provinceStore, submitter, poller)

	paymentHandler := payment.NewHTTPHandler(payment.NewService(client, cfg.Payment.RecaptchaSecretKey))
	adminHandler := admin.NewHTTPHandler(provinceStore, cat)

	// Set up HTTP routes
	mux := http.NewServeMux()
	wizardRouter.Register(mux)
	mux.HandleFunc("POST /api/uploads", uploadHandler.Upload)
	mux.HandleFunc("GET /api/uploads/", uploadHandler.Download)
	mux.Handle("POST /api/payments/checkout", auth.RequireAuth(http.HandlerFunc(paymentHandler.StartCheckout)))
	mux.Handle("POST /api/payments/confirm", auth.RequireAuth(http.HandlerFunc(paymentHandler.Confirm)))
	mux.Handle("PUT /api/admin/provinces/{code}", auth.RequireAuth(http.HandlerFunc(adminHandler.UpsertProvince)))
	mux.Handle("DELETE /api/admin/provinces/{code}", auth.RequireAuth(http.HandlerFunc(adminHandler.DeleteProvince)))
	mux.Handle("PATCH /api/admin/catalog/{entryID}", auth.RequireAuth(http.HandlerFunc(adminHandler.SetCatalogVisibility)))
	mux.Handle("GET /metrics", metrics.Handler())

	// Wrap handler with auth and CORS middleware
	handler := middleware.CORS(&cfg.CORS)(auth.Middleware()(mux))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	// Stop background polling and refresh loops first so they do not race
	// the closing database.
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	slog.Info("server stopped")
}

func refreshCatalogPeriodically(ctx context.Context, cat *catalog.Catalog, client *pricing.Client) {
	ticker := time.NewTicker(catalogRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cat.Refresh(ctx, client); err != nil {
				slog.Warn("catalog refresh failed", "error", err)
			}
		}
	}
}

func sweepSessionsPeriodically(ctx context.Context, store *wizard.SessionStore, ttl time.Duration) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.SweepExpired(ctx, ttl)
			if err != nil {
				slog.Warn("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired wizard sessions removed", "count", removed)
			}
		}
	}
}
