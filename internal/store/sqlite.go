package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/presenca/discovery-audit/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id         TEXT PRIMARY KEY,
	place_id   TEXT NOT NULL UNIQUE,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audits (
	id            TEXT PRIMARY KEY,
	business_id   TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	status        TEXT NOT NULL DEFAULT 'pending',
	delivery_mode TEXT NOT NULL DEFAULT 'standalone',
	contact       TEXT NOT NULL DEFAULT '',
	result        TEXT,
	error_message TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS competitors (
	id         TEXT PRIMARY KEY,
	audit_id   TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
	rank       INTEGER NOT NULL,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(audit_id, rank)
);

CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY,
	business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
	data        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS delivery_attempts (
	id          TEXT PRIMARY KEY,
	audit_id    TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
	contact     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	message_id  TEXT,
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_error  TEXT,
	sent_at     DATETIME,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(audit_id, contact)
);

CREATE INDEX IF NOT EXISTS idx_audits_status ON audits(status);
CREATE INDEX IF NOT EXISTS idx_audits_business_id ON audits(business_id);
CREATE INDEX IF NOT EXISTS idx_audits_created_at ON audits(created_at);
CREATE INDEX IF NOT EXISTS idx_competitors_audit_id ON competitors(audit_id);
CREATE INDEX IF NOT EXISTS idx_reviews_business_id ON reviews(business_id);
CREATE INDEX IF NOT EXISTS idx_delivery_attempts_audit_id ON delivery_attempts(audit_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Businesses

func (s *SQLiteStore) UpsertBusiness(ctx context.Context, b model.Business) (*model.Business, error) {
	now := time.Now().UTC()

	var existingID string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM businesses WHERE place_id = ?`, b.PlaceID,
	).Scan(&existingID, &createdAt)

	switch {
	case err == sql.ErrNoRows:
		b.ID = uuid.New().String()
		b.CreatedAt = now
		b.UpdatedAt = now
		data, err := json.Marshal(b)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal business")
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO businesses (id, place_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			b.ID, b.PlaceID, string(data), now, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert business")
		}
		return &b, nil
	case err != nil:
		return nil, eris.Wrap(err, "sqlite: lookup business")
	}

	b.ID = existingID
	b.CreatedAt = createdAt
	b.UpdatedAt = now
	data, err := json.Marshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal business")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE businesses SET data = ?, updated_at = ? WHERE id = ?`,
		string(data), now, existingID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: update business")
	}
	return &b, nil
}

func (s *SQLiteStore) GetBusiness(ctx context.Context, id string) (*model.Business, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM businesses WHERE id = ?`, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get business")
	}
	var b model.Business
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal business")
	}
	return &b, nil
}

// Audits

func (s *SQLiteStore) CreateAudit(ctx context.Context, a model.Audit) (*model.Audit, error) {
	a.ID = uuid.New().String()
	a.Status = model.AuditStatusPending
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audits (id, business_id, status, delivery_mode, contact, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.BusinessID, string(a.Status), string(a.DeliveryMode), a.Contact, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert audit")
	}
	return &a, nil
}

const sqliteAuditColumns = `id, business_id, status, delivery_mode, contact, result, error_message, created_at, updated_at`

func (s *SQLiteStore) GetAudit(ctx context.Context, id string) (*model.Audit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteAuditColumns+` FROM audits WHERE id = ?`, id,
	)
	return scanAudit(row)
}

func (s *SQLiteStore) ListAudits(ctx context.Context, filter AuditFilter) ([]model.Audit, error) {
	query := `SELECT ` + sqliteAuditColumns + ` FROM audits WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audits")
	}
	defer rows.Close()

	var audits []model.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, *a)
	}
	return audits, eris.Wrap(rows.Err(), "sqlite: list audits iterate")
}

func (s *SQLiteStore) MarkProcessing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(model.AuditStatusProcessing), time.Now().UTC(), id, string(model.AuditStatusPending),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark processing %s", id)
	}
	return s.checkTransition(ctx, res, id)
}

func (s *SQLiteStore) CompleteAudit(ctx context.Context, id string, result *model.AuditResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, result = ?, error_message = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(model.AuditStatusCompleted), string(resultJSON), time.Now().UTC(),
		id, string(model.AuditStatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete audit %s", id)
	}
	return s.checkTransition(ctx, res, id)
}

func (s *SQLiteStore) FailAudit(ctx context.Context, id string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, error_message = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		string(model.AuditStatusFailed), message, time.Now().UTC(),
		id, string(model.AuditStatusPending), string(model.AuditStatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail audit %s", id)
	}
	return s.checkTransition(ctx, res, id)
}

func (s *SQLiteStore) FindRecentCompletedAudit(ctx context.Context, placeID string, window time.Duration) (*model.Audit, error) {
	cutoff := time.Now().UTC().Add(-window)
	row := s.db.QueryRowContext(ctx,
		`SELECT a.id, a.business_id, a.status, a.delivery_mode, a.contact, a.result, a.error_message, a.created_at, a.updated_at
		 FROM audits a JOIN businesses b ON a.business_id = b.id
		 WHERE b.place_id = ? AND a.status = ? AND a.created_at >= ?
		 ORDER BY a.created_at DESC LIMIT 1`,
		placeID, string(model.AuditStatusCompleted), cutoff,
	)
	a, err := scanAudit(row)
	if eris.Is(err, ErrNotFound) {
		return nil, nil
	}
	return a, err
}

// checkTransition distinguishes a missing audit from a lifecycle violation
// when a conditional update matched no rows.
func (s *SQLiteStore) checkTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM audits WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrap(err, "sqlite: check audit")
	}
	return ErrInvalidTransition
}

// Competitors

func (s *SQLiteStore) CreateCompetitors(ctx context.Context, auditID string, competitors []model.Competitor) ([]model.Competitor, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.Competitor, 0, len(competitors))
	for i, c := range competitors {
		c.ID = uuid.New().String()
		c.AuditID = auditID
		c.Rank = i + 1
		c.CreatedAt = now

		data, err := json.Marshal(c)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal competitor")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO competitors (id, audit_id, rank, data, created_at) VALUES (?, ?, ?, ?, ?)`,
			c.ID, auditID, c.Rank, string(data), now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert competitor rank %d", c.Rank)
		}
		out = append(out, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit competitors")
	}
	return out, nil
}

func (s *SQLiteStore) ListCompetitors(ctx context.Context, auditID string) ([]model.Competitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM competitors WHERE audit_id = ? ORDER BY rank ASC`, auditID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list competitors")
	}
	defer rows.Close()

	var competitors []model.Competitor
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan competitor")
		}
		var c model.Competitor
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal competitor")
		}
		competitors = append(competitors, c)
	}
	return competitors, eris.Wrap(rows.Err(), "sqlite: list competitors iterate")
}

// Reviews

func (s *SQLiteStore) SaveReviews(ctx context.Context, businessID string, reviews []model.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, r := range reviews {
		r.ID = uuid.New().String()
		r.BusinessID = businessID
		data, err := json.Marshal(r)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal review")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO reviews (id, business_id, data, created_at) VALUES (?, ?, ?, ?)`,
			r.ID, businessID, string(data), now,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert review")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit reviews")
}

// Delivery attempts

func (s *SQLiteStore) GetDeliveryAttempt(ctx context.Context, auditID, contact string) (*model.DeliveryAttempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, audit_id, contact, status, message_id, retry_count, last_error, sent_at, created_at, updated_at
		 FROM delivery_attempts WHERE audit_id = ? AND contact = ?`,
		auditID, contact,
	)
	var d model.DeliveryAttempt
	var messageID, lastError sql.NullString
	var sentAt sql.NullTime
	err := row.Scan(&d.ID, &d.AuditID, &d.Contact, &d.Status, &messageID, &d.RetryCount, &lastError, &sentAt, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get delivery attempt")
	}
	d.MessageID = messageID.String
	d.LastError = lastError.String
	if sentAt.Valid {
		t := sentAt.Time
		d.SentAt = &t
	}
	return &d, nil
}

func (s *SQLiteStore) CreateDeliveryAttempt(ctx context.Context, auditID, contact string) (*model.DeliveryAttempt, error) {
	now := time.Now().UTC()
	d := model.DeliveryAttempt{
		ID:        uuid.New().String(),
		AuditID:   auditID,
		Contact:   contact,
		Status:    model.DeliveryStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO delivery_attempts (id, audit_id, contact, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, auditID, contact, string(d.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert delivery attempt")
	}
	return &d, nil
}

func (s *SQLiteStore) MarkDeliverySent(ctx context.Context, attemptID, messageID string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE delivery_attempts SET status = ?, message_id = ?, last_error = NULL, sent_at = ?, updated_at = ? WHERE id = ?`,
		string(model.DeliveryStatusSent), messageID, now, now, attemptID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark delivery sent %s", attemptID)
	}
	return checkRowsAffected(res, "delivery attempt", attemptID)
}

func (s *SQLiteStore) MarkDeliveryFailed(ctx context.Context, attemptID, lastError string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE delivery_attempts SET status = ?, retry_count = retry_count + 1, last_error = ?, updated_at = ? WHERE id = ?`,
		string(model.DeliveryStatusFailed), lastError, time.Now().UTC(), attemptID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark delivery failed %s", attemptID)
	}
	return checkRowsAffected(res, "delivery attempt", attemptID)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAudit(row scannable) (*model.Audit, error) {
	var a model.Audit
	var resultJSON, errorMessage sql.NullString

	err := row.Scan(&a.ID, &a.BusinessID, &a.Status, &a.DeliveryMode, &a.Contact, &resultJSON, &errorMessage, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan audit")
	}

	a.ErrorMessage = errorMessage.String
	if resultJSON.Valid {
		var result model.AuditResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, eris.Wrap(err, "unmarshal audit result")
		}
		applyResult(&a, &result)
	}
	return &a, nil
}
