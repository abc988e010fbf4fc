package archive

import (
	"context"
	"time"

	"submission_bot/internal/domain/submission"
)

// Entry is one terminal review decision, kept for audit and statistics.
type Entry struct {
	ID                 int64
	SubmissionKey      submission.Key
	SubmitterID        int64
	SubmitterName      string
	Kind               submission.Kind
	Outcome            submission.Outcome
	StatusDetail       string
	ReviewerID         int64
	ReviewerName       string
	Comment            string
	PublishedMessageID int
	DecidedAt          time.Time
	CreatedAt          time.Time
}

// Repository records decisions. The archive is optional; services hold a
// nil Repository when it is not configured and must treat writes as
// best-effort either way.
type Repository interface {
	Record(ctx context.Context, e *Entry) error
	CountByOutcome(ctx context.Context, outcome submission.Outcome) (int, error)
}
