package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/intake"
	"github.com/purrup/auto-overtime/internal/merge"
	"github.com/purrup/auto-overtime/internal/service"
)

// MockBatchService is a mock implementation of service.BatchService.
type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) CreateBatch(ctx context.Context, label string, files []intake.UploadedFile) (*domain.BatchResult, error) {
	args := m.Called(ctx, label, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockBatchService) RunBatchSync(ctx context.Context, label string, files []intake.UploadedFile) (*domain.BatchResult, error) {
	args := m.Called(ctx, label, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockBatchService) GetBatch(ctx context.Context, id uuid.UUID) (*domain.BatchResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockBatchService) ListBatches(ctx context.Context, offset, limit int) ([]domain.BatchResult, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.BatchResult), args.Int(1), args.Error(2)
}

func (m *MockBatchService) ApplyCorrections(ctx context.Context, batchID, entryID uuid.UUID, corrections merge.Corrections) (*domain.OvertimeEntry, error) {
	args := m.Called(ctx, batchID, entryID, corrections)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OvertimeEntry), args.Error(1)
}

func (m *MockBatchService) Export(ctx context.Context, batchID uuid.UUID, format string) (*service.ExportOutput, error) {
	args := m.Called(ctx, batchID, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportOutput), args.Error(1)
}
