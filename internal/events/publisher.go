// Package events publishes listing lifecycle notifications on NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"prolar/internal/config"
)

const (
	ListingCreatedSubject    = "listings.created"
	ListingDeletedSubject    = "listings.deleted"
	ImageDeleteFailedSubject = "images.delete_failed"
)

type ListingCreated struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
	Images  int    `json:"images"`
}

type ListingDeleted struct {
	ID            string `json:"id"`
	OwnerID       string `json:"ownerId"`
	ImageFailures int    `json:"imageFailures"`
}

// ImageDeleteFailed reports an object left behind by a cascade delete.
type ImageDeleteFailed struct {
	ListingID string `json:"listingId"`
	Path      string `json:"path"`
	Error     string `json:"error"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close()
}

type natsPublisher struct {
	nc  *nats.Conn
	log *zap.Logger
}

// NewPublisher connects to NATS, or returns a publisher that only logs when
// no URL is configured.
func NewPublisher(cfg config.NATS, log *zap.Logger) (Publisher, error) {
	if cfg.URL == "" {
		log.Info("NATS_URL not set, events are logged only")
		return NopPublisher{log: log}, nil
	}

	opts := []nats.Option{
		nats.Name("prolar"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("nats connection closed")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	log.Info("connected to nats", zap.String("url", nc.ConnectedUrl()))

	return &natsPublisher{nc: nc, log: log}, nil
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Error("nats publish failed", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.log.Debug("event published", zap.String("subject", subject))
	return nil
}

func (p *natsPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

type NopPublisher struct {
	log *zap.Logger
}

func NewNopPublisher(log *zap.Logger) NopPublisher {
	return NopPublisher{log: log}
}

func (p NopPublisher) Publish(_ context.Context, subject string, _ any) error {
	if p.log != nil {
		p.log.Debug("event dropped, no broker", zap.String("subject", subject))
	}
	return nil
}

func (NopPublisher) Close() {}
