package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/purrup/auto-overtime/internal/batch"
	"github.com/purrup/auto-overtime/internal/csvexport"
	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/intake"
	"github.com/purrup/auto-overtime/internal/merge"
	"github.com/purrup/auto-overtime/internal/port"
	"github.com/purrup/auto-overtime/internal/xlsxexport"
)

// runTimeout bounds a full batch run: ten tasks, each with retries against
// a slow vision API, comfortably fit inside it.
const runTimeout = 30 * time.Minute

// Export output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnsupportedFormat is returned for export formats other than csv/xlsx.
var ErrUnsupportedFormat = fmt.Errorf("unsupported export format")

// ExportOutput carries a rendered export document plus the HTTP metadata
// the handler needs to serve it.
type ExportOutput struct {
	Data        []byte
	Filename    string
	ContentType string
}

// BatchService defines the batch recognition contract.
type BatchService interface {
	CreateBatch(ctx context.Context, label string, files []intake.UploadedFile) (*domain.BatchResult, error)
	RunBatchSync(ctx context.Context, label string, files []intake.UploadedFile) (*domain.BatchResult, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*domain.BatchResult, error)
	ListBatches(ctx context.Context, offset, limit int) ([]domain.BatchResult, int, error)
	ApplyCorrections(ctx context.Context, batchID, entryID uuid.UUID, corrections merge.Corrections) (*domain.OvertimeEntry, error)
	Export(ctx context.Context, batchID uuid.UUID, format string) (*ExportOutput, error)
}

type batchService struct {
	repo         port.BatchRepository
	orchestrator *batch.Orchestrator
	merger       *merge.Merger
}

// NewBatchService creates a new BatchService implementation.
func NewBatchService(repo port.BatchRepository, orchestrator *batch.Orchestrator, merger *merge.Merger) BatchService {
	return &batchService{
		repo:         repo,
		orchestrator: orchestrator,
		merger:       merger,
	}
}

// CreateBatch validates the uploaded images, persists a pending batch, and
// starts the run in the background. The returned batch is the pending
// snapshot; callers poll GetBatch for progress.
func (s *batchService) CreateBatch(ctx context.Context, label string, files []intake.UploadedFile) (*domain.BatchResult, error) {
	result, tasks, err := s.prepare(ctx, label, files)
	if err != nil {
		return nil, err
	}

	// Snapshot before the run starts: the orchestrator mutates result on
	// its own goroutines, and the caller must never share state with it.
	snapshot := result.Clone()

	// Run on a fresh context so the batch survives the HTTP request that
	// created it.
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		s.run(runCtx, result, tasks)
	}()

	return snapshot, nil
}

// RunBatchSync is CreateBatch without the background goroutine; the CLI
// uses it to run a batch to completion before exporting.
func (s *batchService) RunBatchSync(ctx context.Context, label string, files []intake.UploadedFile) (*domain.BatchResult, error) {
	result, tasks, err := s.prepare(ctx, label, files)
	if err != nil {
		return nil, err
	}
	s.run(ctx, result, tasks)
	return result, nil
}

func (s *batchService) prepare(ctx context.Context, label string, files []intake.UploadedFile) (*domain.BatchResult, []domain.RecognitionTask, error) {
	tasks, err := intake.BuildTasks(files)
	if err != nil {
		return nil, nil, err
	}
	result, err := batch.NewBatch(label, tasks)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.Create(ctx, result); err != nil {
		return nil, nil, err
	}
	log.Printf("batchService.prepare: created batch %s (%q, %d tasks)", result.ID, label, len(tasks))
	return result, tasks, nil
}

func (s *batchService) run(ctx context.Context, result *domain.BatchResult, tasks []domain.RecognitionTask) {
	if err := s.repo.UpdateState(ctx, result.ID, domain.BatchStateRunning); err != nil {
		log.Printf("batchService.run: batch %s mark running: %v", result.ID, err)
	}

	s.orchestrator.Run(ctx, result, tasks)

	// Persist with a context independent of the run context, which may
	// already be cancelled.
	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.repo.SaveResult(saveCtx, result); err != nil {
		log.Printf("batchService.run: batch %s save result: %v", result.ID, err)
	}
}

func (s *batchService) GetBatch(ctx context.Context, id uuid.UUID) (*domain.BatchResult, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *batchService) ListBatches(ctx context.Context, offset, limit int) ([]domain.BatchResult, int, error) {
	return s.repo.List(ctx, offset, limit)
}

// ApplyCorrections merges a correction set into one entry of a finished
// batch and persists the merged entry.
func (s *batchService) ApplyCorrections(ctx context.Context, batchID, entryID uuid.UUID, corrections merge.Corrections) (*domain.OvertimeEntry, error) {
	result, err := s.repo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !result.State.Terminal() {
		return nil, domain.ErrBatchNotTerminal
	}

	var target *domain.OvertimeEntry
	for i := range result.Entries {
		if result.Entries[i].ID == entryID {
			target = &result.Entries[i]
			break
		}
	}
	if target == nil {
		return nil, domain.ErrEntryNotFound
	}

	merged, err := s.merger.Apply(*target, corrections)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateEntry(ctx, batchID, &merged); err != nil {
		return nil, err
	}
	log.Printf("batchService.ApplyCorrections: batch %s entry %s: %d fields corrected",
		batchID, entryID, len(corrections))
	return &merged, nil
}

// Export renders a finished batch in the requested format.
func (s *batchService) Export(ctx context.Context, batchID uuid.UUID, format string) (*ExportOutput, error) {
	result, err := s.repo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !result.State.Terminal() {
		return nil, domain.ErrBatchNotTerminal
	}

	switch format {
	case FormatCSV:
		var buf bytes.Buffer
		if err := csvexport.ExportBatch(&buf, result); err != nil {
			return nil, err
		}
		return &ExportOutput{
			Data:        buf.Bytes(),
			Filename:    csvexport.BuildFilename(result.Label, "csv"),
			ContentType: "text/csv; charset=utf-8",
		}, nil
	case FormatXLSX:
		data, err := xlsxexport.ExportBatch(result)
		if err != nil {
			return nil, err
		}
		return &ExportOutput{
			Data:        data,
			Filename:    csvexport.BuildFilename(result.Label, "xlsx"),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
