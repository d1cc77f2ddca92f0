package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/port"
)

// batchRow is the sqlx scan target for the batches table. Statuses and
// task order are stored as JSONB; entries live in their own table.
type batchRow struct {
	ID               uuid.UUID  `db:"id"`
	Label            string     `db:"label"`
	State            string     `db:"state"`
	Statuses         []byte     `db:"statuses"`
	TaskOrder        []byte     `db:"task_order"`
	PromptTokens     int        `db:"prompt_tokens"`
	CompletionTokens int        `db:"completion_tokens"`
	TotalTokens      int        `db:"total_tokens"`
	CostUSD          float64    `db:"cost_usd"`
	CreatedAt        time.Time  `db:"created_at"`
	CompletedAt      *time.Time `db:"completed_at"`
}

type entryRow struct {
	ID           uuid.UUID `db:"id"`
	BatchID      uuid.UUID `db:"batch_id"`
	Position     int       `db:"position"`
	SourceTaskID string    `db:"source_task_id"`
	Entry        []byte    `db:"entry"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type batchRepo struct {
	db *sqlx.DB
}

// NewBatchRepo creates a new PostgreSQL-backed BatchRepository.
func NewBatchRepo(db *sqlx.DB) port.BatchRepository {
	return &batchRepo{db: db}
}

func (r *batchRepo) Create(ctx context.Context, batch *domain.BatchResult) error {
	row, err := toBatchRow(batch)
	if err != nil {
		return fmt.Errorf("batchRepo.Create: %w", err)
	}

	query := `INSERT INTO batches (
		id, label, state, statuses, task_order,
		prompt_tokens, completion_tokens, total_tokens, cost_usd,
		created_at, completed_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11
	)`
	_, err = r.db.ExecContext(ctx, query,
		row.ID, row.Label, row.State, row.Statuses, row.TaskOrder,
		row.PromptTokens, row.CompletionTokens, row.TotalTokens, row.CostUSD,
		row.CreatedAt, row.CompletedAt)
	if err != nil {
		return fmt.Errorf("batchRepo.Create: %w", err)
	}
	return nil
}

func (r *batchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchResult, error) {
	var row batchRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM batches WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("batchRepo.GetByID: %w", err)
	}

	batch, err := fromBatchRow(&row)
	if err != nil {
		return nil, fmt.Errorf("batchRepo.GetByID: %w", err)
	}

	var entryRows []entryRow
	err = r.db.SelectContext(ctx, &entryRows,
		"SELECT * FROM batch_entries WHERE batch_id = $1 ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("batchRepo.GetByID entries: %w", err)
	}
	batch.Entries = make([]domain.OvertimeEntry, 0, len(entryRows))
	for i := range entryRows {
		var entry domain.OvertimeEntry
		if err := json.Unmarshal(entryRows[i].Entry, &entry); err != nil {
			return nil, fmt.Errorf("batchRepo.GetByID entry %s: %w", entryRows[i].ID, err)
		}
		batch.Entries = append(batch.Entries, entry)
	}
	return batch, nil
}

func (r *batchRepo) List(ctx context.Context, offset, limit int) ([]domain.BatchResult, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM batches"); err != nil {
		return nil, 0, fmt.Errorf("batchRepo.List count: %w", err)
	}

	var rows []batchRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM batches ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("batchRepo.List: %w", err)
	}

	// Listing returns batch summaries without entries; GetByID loads them.
	batches := make([]domain.BatchResult, 0, len(rows))
	for i := range rows {
		batch, err := fromBatchRow(&rows[i])
		if err != nil {
			return nil, 0, fmt.Errorf("batchRepo.List: %w", err)
		}
		batches = append(batches, *batch)
	}
	return batches, total, nil
}

func (r *batchRepo) UpdateState(ctx context.Context, id uuid.UUID, state domain.BatchState) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE batches SET state = $1 WHERE id = $2", state, id)
	if err != nil {
		return fmt.Errorf("batchRepo.UpdateState: %w", err)
	}
	return requireRow(res, "batchRepo.UpdateState")
}

// SaveResult persists a terminal batch: statuses, usage totals, and the
// full entry set. Entries are replaced wholesale so re-saving is safe.
func (r *batchRepo) SaveResult(ctx context.Context, batch *domain.BatchResult) error {
	row, err := toBatchRow(batch)
	if err != nil {
		return fmt.Errorf("batchRepo.SaveResult: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("batchRepo.SaveResult begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE batches SET
			state = $1, statuses = $2,
			prompt_tokens = $3, completion_tokens = $4, total_tokens = $5,
			cost_usd = $6, completed_at = $7
		 WHERE id = $8`,
		row.State, row.Statuses,
		row.PromptTokens, row.CompletionTokens, row.TotalTokens,
		row.CostUSD, row.CompletedAt, row.ID)
	if err != nil {
		return fmt.Errorf("batchRepo.SaveResult: %w", err)
	}
	if err := requireRow(res, "batchRepo.SaveResult"); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM batch_entries WHERE batch_id = $1", batch.ID); err != nil {
		return fmt.Errorf("batchRepo.SaveResult clear entries: %w", err)
	}

	now := time.Now().UTC()
	for i := range batch.Entries {
		entry := &batch.Entries[i]
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("batchRepo.SaveResult marshal entry %s: %w", entry.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO batch_entries (id, batch_id, position, source_task_id, entry, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			entry.ID, batch.ID, i, entry.SourceTaskID, payload, now)
		if err != nil {
			return fmt.Errorf("batchRepo.SaveResult entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("batchRepo.SaveResult commit: %w", err)
	}
	return nil
}

func (r *batchRepo) UpdateEntry(ctx context.Context, batchID uuid.UUID, entry *domain.OvertimeEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("batchRepo.UpdateEntry marshal: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE batch_entries SET entry = $1, updated_at = $2 WHERE id = $3 AND batch_id = $4",
		payload, time.Now().UTC(), entry.ID, batchID)
	if err != nil {
		return fmt.Errorf("batchRepo.UpdateEntry: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("batchRepo.UpdateEntry rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func toBatchRow(batch *domain.BatchResult) (*batchRow, error) {
	statuses, err := json.Marshal(batch.Statuses)
	if err != nil {
		return nil, fmt.Errorf("marshal statuses: %w", err)
	}
	order, err := json.Marshal(batch.TaskOrder)
	if err != nil {
		return nil, fmt.Errorf("marshal task order: %w", err)
	}
	return &batchRow{
		ID:               batch.ID,
		Label:            batch.Label,
		State:            string(batch.State),
		Statuses:         statuses,
		TaskOrder:        order,
		PromptTokens:     batch.Usage.PromptTokens,
		CompletionTokens: batch.Usage.CompletionTokens,
		TotalTokens:      batch.Usage.TotalTokens,
		CostUSD:          batch.CostUSD,
		CreatedAt:        batch.CreatedAt,
		CompletedAt:      batch.CompletedAt,
	}, nil
}

func fromBatchRow(row *batchRow) (*domain.BatchResult, error) {
	batch := &domain.BatchResult{
		ID:    row.ID,
		Label: row.Label,
		State: domain.BatchState(row.State),
		Usage: domain.TokenUsage{
			PromptTokens:     row.PromptTokens,
			CompletionTokens: row.CompletionTokens,
			TotalTokens:      row.TotalTokens,
		},
		CostUSD:     row.CostUSD,
		CreatedAt:   row.CreatedAt,
		CompletedAt: row.CompletedAt,
	}
	if err := json.Unmarshal(row.Statuses, &batch.Statuses); err != nil {
		return nil, fmt.Errorf("unmarshal statuses: %w", err)
	}
	if err := json.Unmarshal(row.TaskOrder, &batch.TaskOrder); err != nil {
		return nil, fmt.Errorf("unmarshal task order: %w", err)
	}
	return batch, nil
}

func requireRow(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return domain.ErrBatchNotFound
	}
	return nil
}
