package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/presenca/discovery-audit/internal/audit"
	"github.com/presenca/discovery-audit/internal/delivery"
	"github.com/presenca/discovery-audit/internal/pipeline"
	"github.com/presenca/discovery-audit/internal/queue"
	"github.com/presenca/discovery-audit/internal/store"
	"github.com/presenca/discovery-audit/pkg/anthropic"
	"github.com/presenca/discovery-audit/pkg/evolution"
	"github.com/presenca/discovery-audit/pkg/places"
)

// engine bundles every wired dependency a command can need.
type engine struct {
	store     store.Store
	queue     queue.Queue
	places    places.Client
	anthropic anthropic.Client
	deliverer *delivery.Deliverer
	pipeline  *pipeline.Pipeline
	audits    *audit.Service
}

// newEngine wires the full dependency graph from config.
func newEngine(ctx context.Context) (*engine, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	q, err := openQueue(ctx)
	if err != nil {
		return nil, err
	}

	placesClient := places.NewClient(cfg.Places.Key,
		places.WithBaseURL(cfg.Places.BaseURL),
		places.WithLocale(cfg.Places.LanguageCode, cfg.Places.RegionCode),
		places.WithRateLimit(cfg.Places.RequestsPerSec),
		places.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Places.TimeoutSecs) * time.Second}),
	)

	aiClient := anthropic.NewClient(cfg.Anthropic.Key,
		anthropic.WithTimeout(time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second),
	)

	var deliverer *delivery.Deliverer
	if cfg.WhatsApp.BaseURL != "" {
		gateway := evolution.NewClient(cfg.WhatsApp.BaseURL, cfg.WhatsApp.Key, cfg.WhatsApp.Instance,
			evolution.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.WhatsApp.TimeoutSecs) * time.Second}),
		)
		deliverer = delivery.New(st, gateway, cfg.WhatsApp.OwnerNumber)
	}

	var dispatcher pipeline.Dispatcher
	if deliverer != nil {
		dispatcher = deliverer
	}
	pipe := pipeline.New(cfg, st, placesClient, aiClient, dispatcher)

	cacheTTL := time.Duration(cfg.Audit.CacheTTLHours) * time.Hour
	audits := audit.NewService(st, placesClient, q, cacheTTL)

	return &engine{
		store:     st,
		queue:     q,
		places:    placesClient,
		anthropic: aiClient,
		deliverer: deliverer,
		pipeline:  pipe,
		audits:    audits,
	}, nil
}

func (e *engine) close() {
	_ = e.queue.Close()
	_ = e.store.Close()
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool.MaxConns, cfg.Store.Pool.MinConns)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openQueue(ctx context.Context) (queue.Queue, error) {
	switch cfg.Queue.Driver {
	case "memory", "":
		return queue.NewMemory(cfg.Queue.Buffer), nil
	case "redis":
		return queue.NewRedis(ctx, cfg.Queue.RedisURL, cfg.Queue.RedisKey)
	default:
		return nil, eris.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}
