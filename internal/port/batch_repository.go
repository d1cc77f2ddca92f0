package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/purrup/auto-overtime/internal/domain"
)

// BatchRepository defines the contract for batch result persistence. Raw
// image bytes are never stored; only statuses, entries, and usage totals.
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.BatchResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchResult, error)
	List(ctx context.Context, offset, limit int) ([]domain.BatchResult, int, error)
	UpdateState(ctx context.Context, id uuid.UUID, state domain.BatchState) error
	SaveResult(ctx context.Context, batch *domain.BatchResult) error
	UpdateEntry(ctx context.Context, batchID uuid.UUID, entry *domain.OvertimeEntry) error
}
