package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/purrup/auto-overtime/internal/domain"
)

// MockBatchRepo is a mock implementation of port.BatchRepository.
type MockBatchRepo struct {
	mock.Mock
}

func (m *MockBatchRepo) Create(ctx context.Context, batch *domain.BatchResult) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockBatchRepo) List(ctx context.Context, offset, limit int) ([]domain.BatchResult, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.BatchResult), args.Int(1), args.Error(2)
}

func (m *MockBatchRepo) UpdateState(ctx context.Context, id uuid.UUID, state domain.BatchState) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *MockBatchRepo) SaveResult(ctx context.Context, batch *domain.BatchResult) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepo) UpdateEntry(ctx context.Context, batchID uuid.UUID, entry *domain.OvertimeEntry) error {
	args := m.Called(ctx, batchID, entry)
	return args.Error(0)
}
