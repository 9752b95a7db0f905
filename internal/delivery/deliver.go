package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/resilience"
	"github.com/presenca/discovery-audit/internal/store"
	"github.com/presenca/discovery-audit/pkg/evolution"
)

// Error is a delivery failure. Retryable failures may be resent manually;
// terminal ones (malformed destination, rejected payload) will fail the same
// way every time.
type Error struct {
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	kind := "terminal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("delivery: %s failure: %v", kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Deliverer sends completed audit reports over the messaging gateway and
// keeps the per-contact attempt record authoritative.
type Deliverer struct {
	store       store.Store
	gateway     evolution.Client
	ownerNumber string
	breaker     *resilience.CircuitBreaker
}

// New creates a Deliverer. ownerNumber, when set, receives a short internal
// notification after each successful delivery.
func New(st store.Store, gateway evolution.Client, ownerNumber string) *Deliverer {
	return &Deliverer{
		store:       st,
		gateway:     gateway,
		ownerNumber: ownerNumber,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     time.Minute,
			ShouldTrip:       resilience.IsTransient,
		}),
	}
}

// Deliver sends the audit report to the audit's contact. Idempotent per
// audit and contact: a prior successful send returns the existing attempt
// without calling the gateway, a prior failure is retried with its counter
// incremented. The audit status is never modified here.
func (d *Deliverer) Deliver(ctx context.Context, auditID string) (*model.DeliveryAttempt, error) {
	audit, err := d.store.GetAudit(ctx, auditID)
	if err != nil {
		return nil, eris.Wrap(err, "delivery: load audit")
	}
	if audit.Status != model.AuditStatusCompleted {
		return nil, &Error{Err: eris.Errorf("audit %s is %s, not completed", auditID, audit.Status), Retryable: false}
	}
	if audit.Contact == "" {
		return nil, &Error{Err: eris.New("audit has no delivery contact"), Retryable: false}
	}

	log := zap.L().With(zap.String("audit_id", auditID), zap.String("contact", audit.Contact))

	attempt, err := d.store.GetDeliveryAttempt(ctx, auditID, audit.Contact)
	if err != nil {
		return nil, eris.Wrap(err, "delivery: load attempt")
	}
	if attempt != nil && (attempt.Status == model.DeliveryStatusSent || attempt.Status == model.DeliveryStatusDelivered) {
		log.Info("delivery: already sent, skipping", zap.String("message_id", attempt.MessageID))
		return attempt, nil
	}
	if attempt == nil {
		attempt, err = d.store.CreateDeliveryAttempt(ctx, auditID, audit.Contact)
		if err != nil {
			return nil, eris.Wrap(err, "delivery: create attempt")
		}
	}

	number, normErr := NormalizePhone(audit.Contact)
	if normErr != nil {
		d.recordFailure(ctx, attempt, normErr, log)
		return attempt, &Error{Err: normErr, Retryable: false}
	}

	business, err := d.store.GetBusiness(ctx, audit.BusinessID)
	if err != nil {
		return nil, eris.Wrap(err, "delivery: load business")
	}
	competitors, err := d.store.ListCompetitors(ctx, auditID)
	if err != nil {
		return nil, eris.Wrap(err, "delivery: load competitors")
	}

	message := BuildReportMessage(business, audit, competitors)

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: 2 * time.Second,
		OnRetry:        resilience.RetryLogger("evolution", "send_text"),
	}
	var result *evolution.SendResult
	sendErr := d.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*evolution.SendResult, error) {
			return d.gateway.SendText(ctx, number, message)
		})
		return err
	})
	if sendErr != nil {
		// An open circuit is a gateway outage: retryable once it recovers.
		retryable := resilience.IsTransient(sendErr) || eris.Is(sendErr, resilience.ErrCircuitOpen)
		d.recordFailure(ctx, attempt, sendErr, log)
		return attempt, &Error{Err: sendErr, Retryable: retryable}
	}

	if err := d.store.MarkDeliverySent(ctx, attempt.ID, result.MessageID); err != nil {
		return nil, eris.Wrap(err, "delivery: mark sent")
	}
	now := time.Now().UTC()
	attempt.Status = model.DeliveryStatusSent
	attempt.MessageID = result.MessageID
	attempt.LastError = ""
	attempt.SentAt = &now
	log.Info("delivery: report sent", zap.String("message_id", result.MessageID))

	d.notifyOwner(ctx, business, audit, log)
	return attempt, nil
}

func (d *Deliverer) recordFailure(ctx context.Context, attempt *model.DeliveryAttempt, cause error, log *zap.Logger) {
	if err := d.store.MarkDeliveryFailed(ctx, attempt.ID, cause.Error()); err != nil {
		log.Error("delivery: failed to record failure", zap.Error(err))
		return
	}
	attempt.Status = model.DeliveryStatusFailed
	attempt.RetryCount++
	attempt.LastError = cause.Error()
	log.Warn("delivery: send failed",
		zap.Int("retry_count", attempt.RetryCount),
		zap.Error(cause),
	)
}

func (d *Deliverer) notifyOwner(ctx context.Context, b *model.Business, a *model.Audit, log *zap.Logger) {
	if d.ownerNumber == "" {
		return
	}
	number, err := NormalizePhone(d.ownerNumber)
	if err != nil {
		log.Warn("delivery: invalid owner number", zap.Error(err))
		return
	}
	if _, err := d.gateway.SendText(ctx, number, BuildOwnerNotification(b, a, a.Contact)); err != nil {
		log.Warn("delivery: owner notification failed", zap.Error(err))
	}
}
