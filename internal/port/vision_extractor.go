package port

import (
	"context"

	"github.com/purrup/auto-overtime/internal/domain"
)

// VisionExtractor abstracts the external vision-capable extraction model.
// Implementations send the task's image with the fixed prompt contract and
// return the raw structured payload; they hold no cross-call state.
type VisionExtractor interface {
	Extract(ctx context.Context, task domain.RecognitionTask) (*domain.RawExtractionResponse, error)
}
