package audit

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/queue"
	"github.com/presenca/discovery-audit/internal/store"
	"github.com/presenca/discovery-audit/pkg/places"
)

// Request describes a new audit submission.
type Request struct {
	BusinessName string
	Location     string
	Contact      string
	DeliveryMode model.DeliveryMode
}

// Result is the submission outcome. Cached is true when a fresh completed
// audit for the same place was returned instead of starting a new run.
type Result struct {
	Audit  *model.Audit
	Cached bool
}

// Service is the audit creation path: resolve the business, honor the
// freshness cache, persist the pending audit and hand it to the queue.
type Service struct {
	store    store.Store
	places   places.Client
	queue    queue.Queue
	cacheTTL time.Duration
}

// NewService creates the audit creation service.
func NewService(st store.Store, placesClient places.Client, q queue.Queue, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &Service{store: st, places: placesClient, queue: q, cacheTTL: cacheTTL}
}

// Create resolves the business and either returns a cached completed audit
// for the same place or creates and enqueues a new pending one.
func (s *Service) Create(ctx context.Context, req Request) (*Result, error) {
	if req.BusinessName == "" || req.Location == "" {
		return nil, eris.New("audit: business name and location are required")
	}
	if req.DeliveryMode == "" {
		req.DeliveryMode = model.DeliveryModeStandalone
	}
	if req.DeliveryMode == model.DeliveryModeMessaging && req.Contact == "" {
		return nil, eris.New("audit: messaging mode requires a contact")
	}

	found, err := s.places.SearchBusiness(ctx, req.BusinessName, req.Location)
	if err != nil {
		return nil, err
	}

	if cached, err := s.store.FindRecentCompletedAudit(ctx, found.PlaceID, s.cacheTTL); err != nil {
		return nil, eris.Wrap(err, "audit: cache lookup")
	} else if cached != nil {
		zap.L().Info("audit: returning cached result",
			zap.String("audit_id", cached.ID),
			zap.String("place_id", found.PlaceID),
		)
		return &Result{Audit: cached, Cached: true}, nil
	}

	business, err := s.store.UpsertBusiness(ctx, *found)
	if err != nil {
		return nil, eris.Wrap(err, "audit: persist business")
	}

	created, err := s.store.CreateAudit(ctx, model.Audit{
		BusinessID:   business.ID,
		DeliveryMode: req.DeliveryMode,
		Contact:      req.Contact,
	})
	if err != nil {
		return nil, eris.Wrap(err, "audit: create")
	}

	if err := s.queue.Enqueue(ctx, created.ID); err != nil {
		// The pending row survives; a restart requeues it.
		zap.L().Error("audit: enqueue failed, audit stays pending",
			zap.String("audit_id", created.ID),
			zap.Error(err),
		)
	}

	zap.L().Info("audit: created",
		zap.String("audit_id", created.ID),
		zap.String("business", business.Name),
		zap.String("place_id", business.PlaceID),
	)
	return &Result{Audit: created}, nil
}
