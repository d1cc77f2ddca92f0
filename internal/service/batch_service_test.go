package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/purrup/auto-overtime/internal/batch"
	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/intake"
	"github.com/purrup/auto-overtime/internal/merge"
	"github.com/purrup/auto-overtime/internal/normalize"
	"github.com/purrup/auto-overtime/internal/port"
	"github.com/purrup/auto-overtime/internal/repository/memory"
	"github.com/purrup/auto-overtime/internal/service"
	"github.com/purrup/auto-overtime/mocks"
)

// pngBytes is a minimal payload http.DetectContentType reports as image/png.
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func newTestService(extractor *mocks.MockVisionExtractor) (service.BatchService, port.BatchRepository) {
	repo := memory.NewBatchRepo()
	opts := normalize.DefaultOptions
	orch := batch.NewOrchestrator(extractor, opts, 2)
	return service.NewBatchService(repo, orch, merge.NewMerger(opts)), repo
}

func extractionResponse(taskID, payload string) *domain.RawExtractionResponse {
	return &domain.RawExtractionResponse{
		TaskID:     taskID,
		RawPayload: []byte(payload),
		ModelName:  "gpt-5-mini",
		Usage:      domain.TokenUsage{PromptTokens: 500, CompletionTokens: 100, TotalTokens: 600},
		CostUSD:    0.001,
	}
}

func TestRunBatchSync_EndToEnd(t *testing.T) {
	payload := `{"entries":[{"employee_name":"王小明","date":"113年6月3日","sign_in_time":"18時00分","sign_out_time":"20:00","hours":"2"}]}`

	extractor := new(mocks.MockVisionExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).
		Return(extractionResponse("", payload), nil)

	svc, repo := newTestService(extractor)

	files := []intake.UploadedFile{{Filename: "slip.png", Data: pngBytes}}
	result, err := svc.RunBatchSync(context.Background(), "june", files)

	require.NoError(t, err)
	assert.Equal(t, domain.BatchStateCompleted, result.State)
	require.Len(t, result.Entries, 1)

	entry := result.Entries[0]
	assert.Equal(t, "王小明", entry.FieldString(domain.FieldEmployeeName))
	assert.Equal(t, "2024-06-03", entry.FieldString(domain.FieldDate))
	assert.Equal(t, "18:00", entry.FieldString(domain.FieldSignInTime))
	assert.Equal(t, "2", entry.FieldString(domain.FieldHours))
	assert.Equal(t, domain.UnresolvedMarker, entry.FieldString(domain.FieldReason))

	assert.Equal(t, 600, result.Usage.TotalTokens)
	assert.InDelta(t, 0.001, result.CostUSD, 1e-9)

	// the terminal result was persisted
	stored, err := repo.GetByID(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStateCompleted, stored.State)
	assert.Len(t, stored.Entries, 1)
}

func TestRunBatchSync_RejectsBadUpload(t *testing.T) {
	svc, _ := newTestService(new(mocks.MockVisionExtractor))

	_, err := svc.RunBatchSync(context.Background(), "june", []intake.UploadedFile{
		{Filename: "notes.txt", Data: []byte("plain text")},
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedImage)

	_, err = svc.RunBatchSync(context.Background(), "june", nil)
	assert.ErrorIs(t, err, domain.ErrBatchSizeOutOfRange)
}

func TestCreateBatch_SnapshotIsolatedFromRun(t *testing.T) {
	payload := `{"entries":[{"employee_name":"王小明","hours":"2"}]}`

	extractor := new(mocks.MockVisionExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(5 * time.Millisecond) }).
		Return(extractionResponse("", payload), nil)

	svc, repo := newTestService(extractor)

	files := []intake.UploadedFile{{Filename: "slip.png", Data: pngBytes}}
	snapshot, err := svc.CreateBatch(context.Background(), "june", files)
	require.NoError(t, err)

	// The returned snapshot must stay readable while the run mutates its
	// own copy on background goroutines. Serializing it repeatedly is how
	// the HTTP layer consumes it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := json.Marshal(snapshot)
		require.NoError(t, err)

		stored, err := repo.GetByID(context.Background(), snapshot.ID)
		require.NoError(t, err)
		if stored.State.Terminal() {
			break
		}
		require.True(t, time.Now().Before(deadline), "batch did not finish")
	}

	// The snapshot reflects the moment of creation, not the finished run.
	assert.Equal(t, domain.BatchStatePending, snapshot.State)
	assert.Equal(t, domain.TaskStateQueued, snapshot.Statuses[snapshot.TaskOrder[0]].State)
	assert.Empty(t, snapshot.Entries)
}

func TestApplyCorrections_BatchStillRunning(t *testing.T) {
	batchID := uuid.New()
	repo := new(mocks.MockBatchRepo)
	repo.On("GetByID", mock.Anything, batchID).
		Return(&domain.BatchResult{ID: batchID, State: domain.BatchStateRunning}, nil)

	svc := service.NewBatchService(repo, batch.NewOrchestrator(new(mocks.MockVisionExtractor), normalize.DefaultOptions, 1), merge.NewMerger(normalize.DefaultOptions))

	_, err := svc.ApplyCorrections(context.Background(), batchID, uuid.New(), merge.Corrections{"hours": "3"})
	assert.ErrorIs(t, err, domain.ErrBatchNotTerminal)
	repo.AssertExpectations(t)
}

func TestApplyCorrections_EntryNotFound(t *testing.T) {
	batchID := uuid.New()
	repo := new(mocks.MockBatchRepo)
	repo.On("GetByID", mock.Anything, batchID).
		Return(&domain.BatchResult{ID: batchID, State: domain.BatchStateCompleted}, nil)

	svc := service.NewBatchService(repo, batch.NewOrchestrator(new(mocks.MockVisionExtractor), normalize.DefaultOptions, 1), merge.NewMerger(normalize.DefaultOptions))

	_, err := svc.ApplyCorrections(context.Background(), batchID, uuid.New(), merge.Corrections{"hours": "3"})
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestApplyCorrections_MergesAndPersists(t *testing.T) {
	batchID := uuid.New()
	entry := domain.NewOvertimeEntry("t1")
	result := &domain.BatchResult{
		ID:      batchID,
		State:   domain.BatchStateCompleted,
		Entries: []domain.OvertimeEntry{entry},
	}

	repo := new(mocks.MockBatchRepo)
	repo.On("GetByID", mock.Anything, batchID).Return(result, nil)
	repo.On("UpdateEntry", mock.Anything, batchID, mock.Anything).Return(nil)

	svc := service.NewBatchService(repo, batch.NewOrchestrator(new(mocks.MockVisionExtractor), normalize.DefaultOptions, 1), merge.NewMerger(normalize.DefaultOptions))

	merged, err := svc.ApplyCorrections(context.Background(), batchID, entry.ID, merge.Corrections{
		"employee_name": "李小龍",
		"hours":         "2.5",
	})

	require.NoError(t, err)
	assert.Equal(t, "李小龍", merged.FieldString(domain.FieldEmployeeName))
	assert.Equal(t, "2.5", merged.FieldString(domain.FieldHours))
	assert.Equal(t, domain.OriginCorrected, merged.FieldOrigin[domain.FieldEmployeeName])
	assert.Equal(t, domain.OriginExtracted, merged.FieldOrigin[domain.FieldDate])
	repo.AssertExpectations(t)
}

func completedBatch() *domain.BatchResult {
	entry := domain.NewOvertimeEntry("t1")
	return &domain.BatchResult{
		ID:      uuid.New(),
		Label:   "june",
		State:   domain.BatchStateCompleted,
		Entries: []domain.OvertimeEntry{entry},
		Statuses: map[string]domain.TaskStatus{
			"t1": {TaskID: "t1", SourceFilename: "slip.png", State: domain.TaskStateDone, Result: domain.TaskResultSuccess, EntryCount: 1},
		},
		TaskOrder: []string{"t1"},
	}
}

func TestExport_CSV(t *testing.T) {
	result := completedBatch()
	repo := new(mocks.MockBatchRepo)
	repo.On("GetByID", mock.Anything, result.ID).Return(result, nil)

	svc := service.NewBatchService(repo, batch.NewOrchestrator(new(mocks.MockVisionExtractor), normalize.DefaultOptions, 1), merge.NewMerger(normalize.DefaultOptions))

	out, err := svc.Export(context.Background(), result.ID, service.FormatCSV)

	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", out.ContentType)
	assert.Contains(t, out.Filename, "june")
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, out.Data[:3])
}

func TestExport_XLSX(t *testing.T) {
	result := completedBatch()
	repo := new(mocks.MockBatchRepo)
	repo.On("GetByID", mock.Anything, result.ID).Return(result, nil)

	svc := service.NewBatchService(repo, batch.NewOrchestrator(new(mocks.MockVisionExtractor), normalize.DefaultOptions, 1), merge.NewMerger(normalize.DefaultOptions))

	out, err := svc.Export(context.Background(), result.ID, service.FormatXLSX)

	require.NoError(t, err)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", out.ContentType)
	assert.NotEmpty(t, out.Data)
}

func TestExport_RejectsUnknownFormatAndUnfinishedBatch(t *testing.T) {
	result := completedBatch()
	running := &domain.BatchResult{ID: uuid.New(), State: domain.BatchStateRunning}

	repo := new(mocks.MockBatchRepo)
	repo.On("GetByID", mock.Anything, result.ID).Return(result, nil)
	repo.On("GetByID", mock.Anything, running.ID).Return(running, nil)

	svc := service.NewBatchService(repo, batch.NewOrchestrator(new(mocks.MockVisionExtractor), normalize.DefaultOptions, 1), merge.NewMerger(normalize.DefaultOptions))

	_, err := svc.Export(context.Background(), result.ID, "pdf")
	assert.ErrorIs(t, err, service.ErrUnsupportedFormat)

	_, err = svc.Export(context.Background(), running.ID, service.FormatCSV)
	assert.ErrorIs(t, err, domain.ErrBatchNotTerminal)
}
