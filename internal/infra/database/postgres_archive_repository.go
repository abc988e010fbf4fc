package database

import (
	"context"
	"database/sql"
	"fmt"

	"submission_bot/internal/domain/archive"
	"submission_bot/internal/domain/submission"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresArchiveRepository persists terminal review decisions for audit
// and statistics. Schema:
//
//	CREATE TABLE decision_archive (
//	    id                   BIGSERIAL PRIMARY KEY,
//	    submission_key       TEXT        NOT NULL,
//	    submitter_id         BIGINT      NOT NULL,
//	    submitter_name       TEXT        NOT NULL DEFAULT '',
//	    kind                 TEXT        NOT NULL,
//	    outcome              TEXT        NOT NULL,
//	    status_detail        TEXT        NOT NULL DEFAULT '',
//	    reviewer_id          BIGINT      NOT NULL,
//	    reviewer_name        TEXT        NOT NULL DEFAULT '',
//	    comment              TEXT        NOT NULL DEFAULT '',
//	    published_message_id INTEGER     NOT NULL DEFAULT 0,
//	    decided_at           TIMESTAMPTZ NOT NULL,
//	    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresArchiveRepository struct {
	db *sql.DB
}

func NewPostgresArchiveRepository(db *sql.DB) *PostgresArchiveRepository {
	return &PostgresArchiveRepository{db: db}
}

func (r *PostgresArchiveRepository) Record(ctx context.Context, e *archive.Entry) error {
	query := `INSERT INTO decision_archive
               (submission_key, submitter_id, submitter_name, kind, outcome,
                status_detail, reviewer_id, reviewer_name, comment,
                published_message_id, decided_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
               RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		string(e.SubmissionKey), e.SubmitterID, e.SubmitterName,
		string(e.Kind), string(e.Outcome), e.StatusDetail,
		e.ReviewerID, e.ReviewerName, e.Comment,
		e.PublishedMessageID, e.DecidedAt,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("error recording decision: %w", err)
	}
	return nil
}

func (r *PostgresArchiveRepository) CountByOutcome(ctx context.Context, outcome submission.Outcome) (int, error) {
	query := `SELECT COUNT(*) FROM decision_archive WHERE outcome = $1`
	var n int
	if err := r.db.QueryRowContext(ctx, query, string(outcome)).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting decisions by outcome: %w", err)
	}
	return n, nil
}
