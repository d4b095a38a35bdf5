package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avvvet/ticket-services/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const submissionSchema = `
CREATE TABLE IF NOT EXISTS submission_attempts (
	id              BIGSERIAL PRIMARY KEY,
	idempotency_key TEXT NOT NULL,
	mode            TEXT NOT NULL,
	ticket          JSONB NOT NULL,
	status          TEXT NOT NULL CHECK (status IN ('succeeded', 'failed')),
	error           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS submission_attempts_key_idx ON submission_attempts (idempotency_key);
`

// SubmissionStore is the ledger of calls made to the bets endpoint, keyed by
// the idempotency key of the submitted candidate.
type SubmissionStore struct {
	db *pgxpool.Pool
}

func NewSubmissionStore(db *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func (s *SubmissionStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, submissionSchema); err != nil {
		return fmt.Errorf("create submission schema: %w", err)
	}
	return nil
}

func (s *SubmissionStore) RecordAttempt(ctx context.Context, a models.SubmissionAttempt) error {
	ticket, err := json.Marshal(a.Ticket)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO submission_attempts (idempotency_key, mode, ticket, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.Exec(ctx, query, a.IdempotencyKey, string(a.Mode), ticket, a.Status, a.Error, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not record attempt: %w", err)
	}
	return nil
}

func (s *SubmissionStore) CountAttempts(ctx context.Context, key string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM submission_attempts WHERE idempotency_key = $1
	`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

// Attempts lists the attempts made for key, oldest first.
func (s *SubmissionStore) Attempts(ctx context.Context, key string) ([]models.SubmissionAttempt, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, idempotency_key, mode, ticket, status, error, created_at
		FROM submission_attempts
		WHERE idempotency_key = $1
		ORDER BY id
	`, key)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.SubmissionAttempt
	for rows.Next() {
		var a models.SubmissionAttempt
		var mode string
		var ticket []byte
		if err := rows.Scan(&a.ID, &a.IdempotencyKey, &mode, &ticket, &a.Status, &a.Error, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Mode = models.ScanMode(mode)
		if err := json.Unmarshal(ticket, &a.Ticket); err != nil {
			return nil, fmt.Errorf("decode ticket of attempt %d: %w", a.ID, err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
