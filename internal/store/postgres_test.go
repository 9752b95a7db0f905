package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presenca/discovery-audit/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_GetAudit_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM audits WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAudit(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAudit_AppliesResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	result := model.AuditResult{
		DiscoveryScore: 62,
		SentimentScore: 0.7,
		VisualScore:    0.25,
		Perception:     model.AIPerception{Summary: "ok", Confidence: 0.8},
	}
	resultJSON, err := json.Marshal(result)
	require.NoError(t, err)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "business_id", "status", "delivery_mode", "contact", "result", "error_message", "created_at", "updated_at",
	}).AddRow("a-1", "b-1", model.AuditStatusCompleted, model.DeliveryModeStandalone, "", resultJSON, nil, now, now)

	mock.ExpectQuery(`SELECT .* FROM audits WHERE id = \$1`).
		WithArgs("a-1").
		WillReturnRows(rows)

	a, err := s.GetAudit(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, model.AuditStatusCompleted, a.Status)
	require.NotNil(t, a.DiscoveryScore)
	assert.Equal(t, 62, *a.DiscoveryScore)
	require.NotNil(t, a.Perception)
	assert.Equal(t, "ok", a.Perception.Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkProcessing_InvalidTransition(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE audits SET status = \$1`).
		WithArgs(string(model.AuditStatusProcessing), pgxmock.AnyArg(), "a-1", string(model.AuditStatusPending)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM audits WHERE id = \$1`).
		WithArgs("a-1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	err := s.MarkProcessing(context.Background(), "a-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkProcessing_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE audits SET status = \$1`).
		WithArgs(string(model.AuditStatusProcessing), pgxmock.AnyArg(), "missing", string(model.AuditStatusPending)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM audits WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	err := s.MarkProcessing(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkDeliveryFailed_IncrementsCounter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE delivery_attempts SET status = \$1, retry_count = retry_count \+ 1`).
		WithArgs(string(model.DeliveryStatusFailed), "timeout", pgxmock.AnyArg(), "att-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.MarkDeliveryFailed(context.Background(), "att-1", "timeout"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDeliveryAttempt_Miss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM delivery_attempts WHERE audit_id = \$1 AND contact = \$2`).
		WithArgs("a-1", "5511987654321").
		WillReturnError(pgx.ErrNoRows)

	attempt, err := s.GetDeliveryAttempt(context.Background(), "a-1", "5511987654321")
	require.NoError(t, err)
	assert.Nil(t, attempt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
