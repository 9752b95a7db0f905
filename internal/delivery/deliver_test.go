package delivery

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/resilience"
	"github.com/presenca/discovery-audit/internal/store"
	"github.com/presenca/discovery-audit/pkg/evolution"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) SendText(ctx context.Context, number, text string) (*evolution.SendResult, error) {
	args := m.Called(ctx, number, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*evolution.SendResult), args.Error(1)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// seedCompletedAudit creates a business and a completed audit with the given
// contact.
func seedCompletedAudit(t *testing.T, st store.Store, contact string) *model.Audit {
	t.Helper()
	ctx := context.Background()

	business, err := st.UpsertBusiness(ctx, model.Business{
		PlaceID:      "place-1",
		Name:         "Padaria do Zé",
		Rating:       4.2,
		TotalReviews: 23,
		PhotosCount:  5,
	})
	require.NoError(t, err)

	a, err := st.CreateAudit(ctx, model.Audit{
		BusinessID:   business.ID,
		DeliveryMode: model.DeliveryModeMessaging,
		Contact:      contact,
	})
	require.NoError(t, err)
	require.NoError(t, st.MarkProcessing(ctx, a.ID))

	require.NoError(t, st.CompleteAudit(ctx, a.ID, &model.AuditResult{
		DiscoveryScore: 62,
		SentimentScore: 0.7,
		VisualScore:    0.25,
	}))

	got, err := st.GetAudit(ctx, a.ID)
	require.NoError(t, err)
	return got
}

func TestDeliverSendsAndRecords(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := seedCompletedAudit(t, st, "5511987654321")

	gw := new(mockGateway)
	gw.On("SendText", mock.Anything, "5511987654321", mock.Anything).
		Return(&evolution.SendResult{MessageID: "msg-1", Status: "PENDING"}, nil).Once()

	d := New(st, gw, "")
	attempt, err := d.Deliver(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryStatusSent, attempt.Status)
	assert.Equal(t, "msg-1", attempt.MessageID)
	assert.Equal(t, 0, attempt.RetryCount)
	assert.NotNil(t, attempt.SentAt)
}

// A gateway timeout fails the attempt with retry counter 1; the audit stays
// completed; a manual resend flips the attempt to sent without touching the
// audit.
func TestDeliverTimeoutThenManualResend(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := seedCompletedAudit(t, st, "5511987654321")

	timeout := resilience.NewTransientError(context.DeadlineExceeded, 0)
	gw := new(mockGateway)
	// In-call retry means the transient error surfaces twice before failing.
	gw.On("SendText", mock.Anything, "5511987654321", mock.Anything).Return(nil, timeout).Twice()

	d := New(st, gw, "")
	attempt, err := d.Deliver(ctx, a.ID)
	require.Error(t, err)

	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.True(t, dErr.Retryable)
	require.NotNil(t, attempt)
	assert.Equal(t, model.DeliveryStatusFailed, attempt.Status)
	assert.Equal(t, 1, attempt.RetryCount)

	audit, err := st.GetAudit(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuditStatusCompleted, audit.Status)

	// Manual resend succeeds.
	gw.On("SendText", mock.Anything, "5511987654321", mock.Anything).
		Return(&evolution.SendResult{MessageID: "msg-2"}, nil).Once()

	resent, err := d.Deliver(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryStatusSent, resent.Status)
	assert.Equal(t, "msg-2", resent.MessageID)

	audit, err = st.GetAudit(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuditStatusCompleted, audit.Status)
}

// A prior successful send short-circuits: no second gateway call.
func TestDeliverIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := seedCompletedAudit(t, st, "5511987654321")

	gw := new(mockGateway)
	gw.On("SendText", mock.Anything, "5511987654321", mock.Anything).
		Return(&evolution.SendResult{MessageID: "msg-1"}, nil).Once()

	d := New(st, gw, "")
	first, err := d.Deliver(ctx, a.ID)
	require.NoError(t, err)

	second, err := d.Deliver(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "msg-1", second.MessageID)
	gw.AssertNumberOfCalls(t, "SendText", 1)
}

func TestDeliverRefusesIncompleteAudit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	business, err := st.UpsertBusiness(ctx, model.Business{PlaceID: "p", Name: "B"})
	require.NoError(t, err)
	a, err := st.CreateAudit(ctx, model.Audit{
		BusinessID:   business.ID,
		DeliveryMode: model.DeliveryModeMessaging,
		Contact:      "5511987654321",
	})
	require.NoError(t, err)

	d := New(st, new(mockGateway), "")
	_, err = d.Deliver(ctx, a.ID)
	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.False(t, dErr.Retryable)
}

// An invalid phone is terminal: the failure is recorded but marked
// non-retryable.
func TestDeliverInvalidPhoneIsTerminal(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := seedCompletedAudit(t, st, "123")

	gw := new(mockGateway)
	d := New(st, gw, "")

	attempt, err := d.Deliver(ctx, a.ID)
	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.False(t, dErr.Retryable)
	require.NotNil(t, attempt)
	assert.Equal(t, model.DeliveryStatusFailed, attempt.Status)
	gw.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

// An open circuit rejects the send without calling the gateway but stays
// retryable for when the gateway recovers.
func TestDeliverOpenCircuitIsRetryable(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := seedCompletedAudit(t, st, "5511987654321")

	timeout := resilience.NewTransientError(context.DeadlineExceeded, 0)
	gw := new(mockGateway)
	gw.On("SendText", mock.Anything, "5511987654321", mock.Anything).Return(nil, timeout).Twice()

	d := New(st, gw, "")
	d.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
		ShouldTrip:       resilience.IsTransient,
	})

	_, err := d.Deliver(ctx, a.ID)
	require.Error(t, err)

	attempt, err := d.Deliver(ctx, a.ID)
	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.True(t, dErr.Retryable)
	assert.Equal(t, 2, attempt.RetryCount)
	gw.AssertNumberOfCalls(t, "SendText", 2)
}

func TestDeliverNotifiesOwner(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := seedCompletedAudit(t, st, "5511987654321")

	gw := new(mockGateway)
	gw.On("SendText", mock.Anything, "5511987654321", mock.Anything).
		Return(&evolution.SendResult{MessageID: "msg-1"}, nil).Once()
	gw.On("SendText", mock.Anything, "5511912345678", mock.Anything).
		Return(&evolution.SendResult{MessageID: "msg-owner"}, nil).Once()

	d := New(st, gw, "11912345678")
	_, err := d.Deliver(ctx, a.ID)
	require.NoError(t, err)
	gw.AssertNumberOfCalls(t, "SendText", 2)
}
