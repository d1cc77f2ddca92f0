package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/purrup/auto-overtime/internal/domain"
)

// MockVisionExtractor is a mock implementation of port.VisionExtractor.
type MockVisionExtractor struct {
	mock.Mock
}

func (m *MockVisionExtractor) Extract(ctx context.Context, task domain.RecognitionTask) (*domain.RawExtractionResponse, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RawExtractionResponse), args.Error(1)
}
