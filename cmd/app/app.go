package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"prolar/internal/cache"
	"prolar/internal/config"
	"prolar/internal/database"
	"prolar/internal/events"
	"prolar/internal/metrics"
	"prolar/internal/repository"
	"prolar/internal/service"
	"prolar/internal/session"
	"prolar/internal/storage"
	"prolar/internal/tracer"
	"prolar/internal/validation"
)

// Application owns every backend connection and the session registry for
// the lifetime of the process.
type Application struct {
	DB        *database.DB
	Mongo     *database.Mongo
	Redis     *redis.Client
	Publisher events.Publisher
	Tracer    *sdktrace.TracerProvider
	Metrics   *metrics.Metrics
	Sessions  *session.Registry
	Repo      *repository.Repository
	Services  *service.Service
	log       *zap.Logger
}

func App(cfg *config.Config, log *zap.Logger) (*Application, error) {
	a := &Application{log: log}

	a.Tracer = tracer.Init(cfg.Tracing, log)
	a.Metrics = metrics.New("prolar")

	db, err := database.ConnectDB(cfg, log)
	if err != nil {
		return nil, err
	}
	a.DB = db

	mongo, err := database.ConnectMongo(cfg.Mongo, log)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	a.Mongo = mongo

	rdb, err := database.ConnectRedis(cfg.Redis, log)
	if err != nil {
		log.Warn("listing cache disabled", zap.Error(err))
	}
	a.Redis = rdb

	minioClient, err := storage.NewMinIOClient(cfg.MinIO, log)
	if err != nil {
		a.Close(context.Background())
		return nil, fmt.Errorf("init minio: %w", err)
	}

	publisher, err := events.NewPublisher(cfg.NATS, log)
	if err != nil {
		log.Warn("events disabled", zap.Error(err))
		publisher = events.NewNopPublisher(log)
	}
	a.Publisher = publisher

	var listings repository.ListingRepository = repository.NewListingRepository(mongo.DB, cfg.Mongo.Collection, log.Named("listings"))
	backends := map[string]service.Pinger{
		"postgres": db,
		"mongo":    mongo,
	}
	if rdb != nil {
		listings = repository.NewCachedListingRepository(listings, cache.NewRedis(rdb, log), cfg.Redis.CacheTTL, a.Metrics.CacheLookups, log.Named("cache"))
		backends["redis"] = database.RedisHealth{Client: rdb}
	}
	a.Repo = repository.NewRepository(db.DB, listings)

	a.Services = service.NewService(service.Deps{
		Repo:      a.Repo,
		Storage:   minioClient,
		Publisher: publisher,
		Metrics:   a.Metrics,
		Schema:    validation.MustNewSchema(),
		Backends:  backends,
		Cfg:       cfg,
		Log:       log,
	})

	a.Sessions = session.NewRegistry()
	if err := a.Sessions.Start(a.Services.Auth); err != nil {
		a.Close(context.Background())
		return nil, fmt.Errorf("start session registry: %w", err)
	}

	return a, nil
}

// Close releases everything App opened, in reverse order.
func (a *Application) Close(ctx context.Context) {
	if a.Sessions != nil {
		a.Sessions.Stop()
	}
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.log.Warn("close redis", zap.Error(err))
		}
	}
	if a.Mongo != nil {
		if err := a.Mongo.Close(ctx); err != nil {
			a.log.Warn("close mongo", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.CloseDB(); err != nil {
			a.log.Warn("close postgres", zap.Error(err))
		}
	}
	if a.Tracer != nil {
		if err := a.Tracer.Shutdown(ctx); err != nil {
			a.log.Warn("shutdown tracer", zap.Error(err))
		}
	}
}
