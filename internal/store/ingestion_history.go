package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

type IngestionHistoryStore struct {
	db *sqlx.DB
}

const (
	TriggerTypeManual    = "manual"
	TriggerTypeScheduled = "scheduled"
)

const (
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailure    = "failure"
)

// InsertIngestionHistory records a stage start and fills in the generated
// id and processed_at.
func (ih *IngestionHistoryStore) InsertIngestionHistory(ctx context.Context, history *IngestionHistory) error {
	query := `INSERT INTO ingestion_history (
		run_id,
		window_start,
		window_end,
		stage,
		trigger_type,
		status,
		invoices_count,
		details_count
	) VALUES (
		:run_id,
		:window_start,
		:window_end,
		:stage,
		:trigger_type,
		:status,
		:invoices_count,
		:details_count
	) RETURNING id, processed_at`

	rows, err := ih.db.NamedQueryContext(ctx, query, history)
	if err != nil {
		return ierr.WithError(err).
			WithMessage("insert ingestion history").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&history.ID, &history.ProcessedAt); err != nil {
			return ierr.WithError(err).
				WithMessage("scan ingestion history id").
				Mark(ierr.ErrDatabase)
		}
	}
	return rows.Err()
}

func (ih *IngestionHistoryStore) UpdateIngestionStatus(ctx context.Context, id int64, outcome IngestionOutcome) error {
	query := `UPDATE ingestion_history
		SET status = $1,
			invoices_count = $2,
			details_count = $3,
			error_message = $4,
			finished_at = now()
		WHERE id = $5`

	res, err := ih.db.ExecContext(ctx, query, outcome.Status, outcome.InvoicesCount, outcome.DetailsCount, outcome.ErrorMessage, id)
	if err != nil {
		return ierr.WithError(err).
			WithMessagef("update ingestion history %d", id).
			Mark(ierr.ErrDatabase)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ierr.NewErrorf("ingestion history %d not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

const historyColumns = `id,
		run_id,
		window_start,
		window_end,
		stage,
		trigger_type,
		status,
		invoices_count,
		details_count,
		error_message,
		processed_at,
		finished_at`

// GetLatest returns the most recent rows, newest first.
func (ih *IngestionHistoryStore) GetLatest(ctx context.Context, limit int) ([]IngestionHistory, error) {
	query := `SELECT ` + historyColumns + `
	FROM ingestion_history
	ORDER BY processed_at DESC, id DESC
	LIMIT $1`

	history := []IngestionHistory{}
	if err := ih.db.SelectContext(ctx, &history, query, limit); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("get latest ingestion history").
			Mark(ierr.ErrDatabase)
	}
	return history, nil
}

// GetByRunID returns the stage rows of one run in execution order. A run id
// with no rows is ErrNotFound.
func (ih *IngestionHistoryStore) GetByRunID(ctx context.Context, runID uuid.UUID) ([]IngestionHistory, error) {
	query := `SELECT ` + historyColumns + `
	FROM ingestion_history
	WHERE run_id = $1
	ORDER BY id`

	history := []IngestionHistory{}
	if err := ih.db.SelectContext(ctx, &history, query, runID); err != nil {
		return nil, ierr.WithError(err).
			WithMessagef("get ingestion history for run %s", runID).
			Mark(ierr.ErrDatabase)
	}
	if len(history) == 0 {
		return nil, ierr.NewErrorf("run %s not found", runID).
			Mark(ierr.ErrNotFound)
	}
	return history, nil
}
