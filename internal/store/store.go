package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/presenca/discovery-audit/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrInvalidTransition is returned when an audit status update would violate
// the monotonic lifecycle (pending → processing → completed|failed).
var ErrInvalidTransition = eris.New("store: invalid status transition")

// AuditFilter specifies criteria for listing audits.
type AuditFilter struct {
	Status model.AuditStatus `json:"status,omitempty"`
	Limit  int               `json:"limit,omitempty"`
	Offset int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for the audit engine. It is the
// single synchronization point between the API, the worker pool, and the
// delivery subsystem.
type Store interface {
	// Businesses
	UpsertBusiness(ctx context.Context, b model.Business) (*model.Business, error)
	GetBusiness(ctx context.Context, id string) (*model.Business, error)

	// Audits
	CreateAudit(ctx context.Context, a model.Audit) (*model.Audit, error)
	GetAudit(ctx context.Context, id string) (*model.Audit, error)
	ListAudits(ctx context.Context, filter AuditFilter) ([]model.Audit, error)
	// MarkProcessing moves a pending audit to processing; any other current
	// status yields ErrInvalidTransition. This is the orchestrator's
	// re-entrancy guard.
	MarkProcessing(ctx context.Context, id string) error
	// CompleteAudit atomically writes the full result and the completed
	// status; this is the single write visible to readers.
	CompleteAudit(ctx context.Context, id string, result *model.AuditResult) error
	// FailAudit moves a pending or processing audit to failed with a message.
	FailAudit(ctx context.Context, id string, message string) error
	// FindRecentCompletedAudit returns the newest completed audit for a place
	// created within the freshness window, or nil when none exists.
	FindRecentCompletedAudit(ctx context.Context, placeID string, window time.Duration) (*model.Audit, error)

	// Competitors
	CreateCompetitors(ctx context.Context, auditID string, competitors []model.Competitor) ([]model.Competitor, error)
	ListCompetitors(ctx context.Context, auditID string) ([]model.Competitor, error)

	// Reviews
	SaveReviews(ctx context.Context, businessID string, reviews []model.Review) error

	// Delivery attempts: one authoritative row per (audit, contact).
	GetDeliveryAttempt(ctx context.Context, auditID, contact string) (*model.DeliveryAttempt, error)
	CreateDeliveryAttempt(ctx context.Context, auditID, contact string) (*model.DeliveryAttempt, error)
	MarkDeliverySent(ctx context.Context, attemptID, messageID string) error
	MarkDeliveryFailed(ctx context.Context, attemptID, lastError string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
