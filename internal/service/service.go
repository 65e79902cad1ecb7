package service

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"prolar/internal/config"
	"prolar/internal/events"
	"prolar/internal/metrics"
	"prolar/internal/repository"
	"prolar/internal/storage"
	"prolar/internal/validation"
)

var tracer = otel.Tracer("prolar/internal/service")

type Service struct {
	Auth     AuthService
	Uploads  UploadService
	Listings ListingService
	Deletion DeletionService
	Health   HealthService
	Drafts   *DraftStore
}

type Deps struct {
	Repo      *repository.Repository
	Storage   storage.Storage
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Schema    *validation.Schema
	Backends  map[string]Pinger
	Cfg       *config.Config
	Log       *zap.Logger
}

func NewService(d Deps) *Service {
	drafts := NewDraftStore(d.Cfg.Upload.DraftTTL)
	uploads := NewUploadService(drafts, d.Storage, d.Metrics, d.Cfg.Upload.Concurrency, d.Log.Named("uploads"))

	return &Service{
		Auth:     NewAuthService(d.Repo.User, d.Schema, d.Cfg, d.Log.Named("auth")),
		Uploads:  uploads,
		Listings: NewListingService(d.Repo.Listing, uploads, d.Schema, d.Publisher, d.Metrics, d.Log.Named("listings")),
		Deletion: NewDeletionService(d.Repo.Listing, d.Storage, d.Publisher, d.Metrics, d.Log.Named("deletion")),
		Health:   NewHealthService(d.Backends),
		Drafts:   drafts,
	}
}
