package handlers

import (
	"go.uber.org/zap"

	"prolar/internal/config"
	"prolar/internal/service"
	"prolar/internal/session"
)

type Handlers struct {
	AuthService     service.AuthService
	UploadService   service.UploadService
	ListingService  service.ListingService
	DeletionService service.DeletionService
	HealthService   service.HealthService
	Sessions        *session.Registry
	Cfg             *config.Config
	Log             *zap.Logger
}

func NewHandlers(services *service.Service, sessions *session.Registry, cfg *config.Config, log *zap.Logger) *Handlers {
	return &Handlers{
		AuthService:     services.Auth,
		UploadService:   services.Uploads,
		ListingService:  services.Listings,
		DeletionService: services.Deletion,
		HealthService:   services.Health,
		Sessions:        sessions,
		Cfg:             cfg,
		Log:             log,
	}
}
