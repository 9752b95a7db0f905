package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/presenca/discovery-audit/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id         TEXT PRIMARY KEY,
	place_id   TEXT NOT NULL UNIQUE,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audits (
	id            TEXT PRIMARY KEY,
	business_id   TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	status        TEXT NOT NULL DEFAULT 'pending',
	delivery_mode TEXT NOT NULL DEFAULT 'standalone',
	contact       TEXT NOT NULL DEFAULT '',
	result        JSONB,
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS competitors (
	id         TEXT PRIMARY KEY,
	audit_id   TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
	rank       INTEGER NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(audit_id, rank)
);

CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY,
	business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS delivery_attempts (
	id          TEXT PRIMARY KEY,
	audit_id    TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
	contact     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	message_id  TEXT,
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_error  TEXT,
	sent_at     TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(audit_id, contact)
);

CREATE INDEX IF NOT EXISTS idx_audits_status ON audits(status);
CREATE INDEX IF NOT EXISTS idx_audits_business_id ON audits(business_id);
CREATE INDEX IF NOT EXISTS idx_audits_created_at ON audits(created_at);
CREATE INDEX IF NOT EXISTS idx_competitors_audit_id ON competitors(audit_id);
CREATE INDEX IF NOT EXISTS idx_reviews_business_id ON reviews(business_id);
CREATE INDEX IF NOT EXISTS idx_delivery_attempts_audit_id ON delivery_attempts(audit_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Businesses

func (s *PostgresStore) UpsertBusiness(ctx context.Context, b model.Business) (*model.Business, error) {
	now := time.Now().UTC()

	var existingID string
	var createdAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT id, created_at FROM businesses WHERE place_id = $1`, b.PlaceID,
	).Scan(&existingID, &createdAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		b.ID = uuid.New().String()
		b.CreatedAt = now
		b.UpdatedAt = now
		data, err := json.Marshal(b)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal business")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO businesses (id, place_id, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
			b.ID, b.PlaceID, data, now, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: insert business")
		}
		return &b, nil
	case err != nil:
		return nil, eris.Wrap(err, "postgres: lookup business")
	}

	b.ID = existingID
	b.CreatedAt = createdAt
	b.UpdatedAt = now
	data, err := json.Marshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal business")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE businesses SET data = $1, updated_at = $2 WHERE id = $3`,
		data, now, existingID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: update business")
	}
	return &b, nil
}

func (s *PostgresStore) GetBusiness(ctx context.Context, id string) (*model.Business, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM businesses WHERE id = $1`, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get business")
	}
	var b model.Business
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal business")
	}
	return &b, nil
}

// Audits

func (s *PostgresStore) CreateAudit(ctx context.Context, a model.Audit) (*model.Audit, error) {
	a.ID = uuid.New().String()
	a.Status = model.AuditStatusPending
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audits (id, business_id, status, delivery_mode, contact, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.BusinessID, string(a.Status), string(a.DeliveryMode), a.Contact, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert audit")
	}
	return &a, nil
}

const pgAuditColumns = `id, business_id, status, delivery_mode, contact, result, error_message, created_at, updated_at`

func (s *PostgresStore) GetAudit(ctx context.Context, id string) (*model.Audit, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgAuditColumns+` FROM audits WHERE id = $1`, id,
	)
	return scanPgAudit(row)
}

func (s *PostgresStore) ListAudits(ctx context.Context, filter AuditFilter) ([]model.Audit, error) {
	query := `SELECT ` + pgAuditColumns + ` FROM audits`
	var args []any

	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audits")
	}
	defer rows.Close()

	var audits []model.Audit
	for rows.Next() {
		a, err := scanPgAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, *a)
	}
	return audits, eris.Wrap(rows.Err(), "postgres: list audits iterate")
}

func (s *PostgresStore) MarkProcessing(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(model.AuditStatusProcessing), time.Now().UTC(), id, string(model.AuditStatusPending),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark processing %s", id)
	}
	return s.checkTransition(ctx, tag, id)
}

func (s *PostgresStore) CompleteAudit(ctx context.Context, id string, result *model.AuditResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, result = $2, error_message = NULL, updated_at = $3
		 WHERE id = $4 AND status = $5`,
		string(model.AuditStatusCompleted), resultJSON, time.Now().UTC(),
		id, string(model.AuditStatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete audit %s", id)
	}
	return s.checkTransition(ctx, tag, id)
}

func (s *PostgresStore) FailAudit(ctx context.Context, id string, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, error_message = $2, updated_at = $3
		 WHERE id = $4 AND status IN ($5, $6)`,
		string(model.AuditStatusFailed), message, time.Now().UTC(),
		id, string(model.AuditStatusPending), string(model.AuditStatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail audit %s", id)
	}
	return s.checkTransition(ctx, tag, id)
}

func (s *PostgresStore) FindRecentCompletedAudit(ctx context.Context, placeID string, window time.Duration) (*model.Audit, error) {
	cutoff := time.Now().UTC().Add(-window)
	row := s.pool.QueryRow(ctx,
		`SELECT a.id, a.business_id, a.status, a.delivery_mode, a.contact, a.result, a.error_message, a.created_at, a.updated_at
		 FROM audits a JOIN businesses b ON a.business_id = b.id
		 WHERE b.place_id = $1 AND a.status = $2 AND a.created_at >= $3
		 ORDER BY a.created_at DESC LIMIT 1`,
		placeID, string(model.AuditStatusCompleted), cutoff,
	)
	a, err := scanPgAudit(row)
	if eris.Is(err, ErrNotFound) {
		return nil, nil
	}
	return a, err
}

func (s *PostgresStore) checkTransition(ctx context.Context, tag pgconn.CommandTag, id string) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM audits WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrap(err, "postgres: check audit")
	}
	return ErrInvalidTransition
}

// Competitors

func (s *PostgresStore) CreateCompetitors(ctx context.Context, auditID string, competitors []model.Competitor) ([]model.Competitor, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.Competitor, 0, len(competitors))
	for i, c := range competitors {
		c.ID = uuid.New().String()
		c.AuditID = auditID
		c.Rank = i + 1
		c.CreatedAt = now

		data, err := json.Marshal(c)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal competitor")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO competitors (id, audit_id, rank, data, created_at) VALUES ($1, $2, $3, $4, $5)`,
			c.ID, auditID, c.Rank, data, now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: insert competitor rank %d", c.Rank)
		}
		out = append(out, c)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit competitors")
	}
	return out, nil
}

func (s *PostgresStore) ListCompetitors(ctx context.Context, auditID string) ([]model.Competitor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM competitors WHERE audit_id = $1 ORDER BY rank ASC`, auditID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list competitors")
	}
	defer rows.Close()

	var competitors []model.Competitor
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan competitor")
		}
		var c model.Competitor
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal competitor")
		}
		competitors = append(competitors, c)
	}
	return competitors, eris.Wrap(rows.Err(), "postgres: list competitors iterate")
}

// Reviews

func (s *PostgresStore) SaveReviews(ctx context.Context, businessID string, reviews []model.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	for _, r := range reviews {
		r.ID = uuid.New().String()
		r.BusinessID = businessID
		data, err := json.Marshal(r)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal review")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO reviews (id, business_id, data, created_at) VALUES ($1, $2, $3, $4)`,
			r.ID, businessID, data, now,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert review")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit reviews")
}

// Delivery attempts

func (s *PostgresStore) GetDeliveryAttempt(ctx context.Context, auditID, contact string) (*model.DeliveryAttempt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, audit_id, contact, status, message_id, retry_count, last_error, sent_at, created_at, updated_at
		 FROM delivery_attempts WHERE audit_id = $1 AND contact = $2`,
		auditID, contact,
	)
	var d model.DeliveryAttempt
	var messageID, lastError *string
	var sentAt *time.Time
	err := row.Scan(&d.ID, &d.AuditID, &d.Contact, &d.Status, &messageID, &d.RetryCount, &lastError, &sentAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get delivery attempt")
	}
	if messageID != nil {
		d.MessageID = *messageID
	}
	if lastError != nil {
		d.LastError = *lastError
	}
	d.SentAt = sentAt
	return &d, nil
}

func (s *PostgresStore) CreateDeliveryAttempt(ctx context.Context, auditID, contact string) (*model.DeliveryAttempt, error) {
	now := time.Now().UTC()
	d := model.DeliveryAttempt{
		ID:        uuid.New().String(),
		AuditID:   auditID,
		Contact:   contact,
		Status:    model.DeliveryStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO delivery_attempts (id, audit_id, contact, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, auditID, contact, string(d.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert delivery attempt")
	}
	return &d, nil
}

func (s *PostgresStore) MarkDeliverySent(ctx context.Context, attemptID, messageID string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE delivery_attempts SET status = $1, message_id = $2, last_error = NULL, sent_at = $3, updated_at = $4 WHERE id = $5`,
		string(model.DeliveryStatusSent), messageID, now, now, attemptID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark delivery sent %s", attemptID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "delivery attempt %s", attemptID)
	}
	return nil
}

func (s *PostgresStore) MarkDeliveryFailed(ctx context.Context, attemptID, lastError string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE delivery_attempts SET status = $1, retry_count = retry_count + 1, last_error = $2, updated_at = $3 WHERE id = $4`,
		string(model.DeliveryStatusFailed), lastError, time.Now().UTC(), attemptID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark delivery failed %s", attemptID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "delivery attempt %s", attemptID)
	}
	return nil
}

// helpers

func scanPgAudit(row pgx.Row) (*model.Audit, error) {
	var a model.Audit
	var resultJSON []byte
	var errorMessage *string

	err := row.Scan(&a.ID, &a.BusinessID, &a.Status, &a.DeliveryMode, &a.Contact, &resultJSON, &errorMessage, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan audit")
	}

	if errorMessage != nil {
		a.ErrorMessage = *errorMessage
	}
	if len(resultJSON) > 0 {
		var result model.AuditResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal audit result")
		}
		applyResult(&a, &result)
	}
	return &a, nil
}
