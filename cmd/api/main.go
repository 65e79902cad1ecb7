package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"prolar/cmd/app"
	"prolar/internal/config"
	handlers "prolar/internal/handler"
	"prolar/internal/logger"
	"prolar/internal/metrics"
	"prolar/internal/middleware"
)

const draftSweepInterval = time.Minute

func main() {
	cfg := config.LoadConfig()

	if cfg.JWTSecretKey == "" {
		log.Fatal("JWT_SECRET_KEY is not set")
	}

	zl := logger.New(cfg.Log)
	defer func() { _ = zl.Sync() }()

	application, err := app.App(cfg, zl)
	if err != nil {
		zl.Fatal("startup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go application.Services.Drafts.Run(ctx, draftSweepInterval, func(n int) {
		zl.Info("expired drafts dropped", zap.Int("count", n))
	})

	h := handlers.NewHandlers(application.Services, application.Sessions, cfg, zl.Named("http"))
	router := newRouter(h, application, application.Metrics, zl)

	handlerChain := middleware.Chain(
		router,
		middleware.CORSMiddleware(cfg.AllowedOrigins),
		middleware.RecoveryMiddleware(zl),
	)

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handlerChain,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server started", zap.String("addr", addr), zap.String("postgres", cfg.DB.DbNAME), zap.String("mongo", cfg.Mongo.Database))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
	application.Close(shutdownCtx)
}

func newRouter(h *handlers.Handlers, a *app.Application, m *metrics.Metrics, zl *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(middleware.MetricsMiddleware(m)))
	r.Use(mux.MiddlewareFunc(middleware.LoggingMiddleware(zl.Named("access"))))

	r.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// public
	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh-token", h.RefreshToken).Methods(http.MethodPost)
	api.HandleFunc("/listings", h.GetListings).Methods(http.MethodGet)
	api.HandleFunc("/listings/validate", h.ValidateListing).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id}", h.GetListing).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(mux.MiddlewareFunc(middleware.AuthMiddleware(a.Services.Auth, a.Sessions)))

	protected.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/me", h.GetCurrentUser).Methods(http.MethodGet)
	protected.HandleFunc("/me/name", h.UpdateName).Methods(http.MethodPut)

	protected.HandleFunc("/listings/{id}", h.DeleteListing).Methods(http.MethodDelete)
	protected.HandleFunc("/dashboard/listings", h.GetDashboard).Methods(http.MethodGet)

	protected.HandleFunc("/drafts", h.OpenDraft).Methods(http.MethodPost)
	protected.HandleFunc("/drafts/{id}", h.GetDraft).Methods(http.MethodGet)
	protected.HandleFunc("/drafts/{id}", h.AbandonDraft).Methods(http.MethodDelete)
	protected.HandleFunc("/drafts/{id}/images", h.UploadImages).Methods(http.MethodPost)
	protected.HandleFunc("/drafts/{id}/images/{name}", h.RemoveDraftImage).Methods(http.MethodDelete)
	protected.HandleFunc("/drafts/{id}/images/{name}/preview", h.PreviewDraftImage).Methods(http.MethodGet)
	protected.HandleFunc("/drafts/{id}/submit", h.SubmitDraft).Methods(http.MethodPost)

	return r
}
