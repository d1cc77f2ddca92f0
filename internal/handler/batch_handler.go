package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/purrup/auto-overtime/internal/intake"
	"github.com/purrup/auto-overtime/internal/merge"
	"github.com/purrup/auto-overtime/internal/service"
)

// BatchHandler handles batch recognition endpoints.
type BatchHandler struct {
	batchService service.BatchService
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(batchService service.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

// Create handles POST /api/v1/batches
// Accepts a multipart form with 1-10 slip images under the "images" field
// and an optional "label". Returns 202 with the pending batch; recognition
// runs in the background.
func (h *BatchHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "multipart form is required")
		return
	}

	fileHeaders := form.File["images"]
	label := c.PostForm("label")

	files := make([]intake.UploadedFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "FILE_READ_ERROR", "failed to read uploaded file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "FILE_READ_ERROR", "failed to read uploaded file")
			return
		}
		files = append(files, intake.UploadedFile{Filename: fh.Filename, Data: data})
	}

	result, err := h.batchService.CreateBatch(c.Request.Context(), label, files)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, result)
}

// GetByID handles GET /api/v1/batches/:id
func (h *BatchHandler) GetByID(c *gin.Context) {
	id, ok := parseUUID(c, c.Param("id"))
	if !ok {
		return
	}
	result, err := h.batchService.GetBatch(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// List handles GET /api/v1/batches?offset=0&limit=20
func (h *BatchHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	batches, total, err := h.batchService.ListBatches(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, batches, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// ApplyCorrections handles PUT /api/v1/batches/:id/entries/:entryID/corrections
// The body is a JSON object of field name to raw corrected value. An empty
// string or the unresolved marker resets the field to unresolved.
func (h *BatchHandler) ApplyCorrections(c *gin.Context) {
	batchID, ok := parseUUID(c, c.Param("id"))
	if !ok {
		return
	}
	entryID, ok := parseUUID(c, c.Param("entryID"))
	if !ok {
		return
	}

	var corrections merge.Corrections
	if err := c.ShouldBindJSON(&corrections); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "body must be a JSON object of field name to value")
		return
	}
	if len(corrections) == 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "at least one correction is required")
		return
	}

	entry, err := h.batchService.ApplyCorrections(c.Request.Context(), batchID, entryID, corrections)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, entry)
}

// Export handles GET /api/v1/batches/:id/export?format=csv
func (h *BatchHandler) Export(c *gin.Context) {
	id, ok := parseUUID(c, c.Param("id"))
	if !ok {
		return
	}
	format := c.DefaultQuery("format", service.FormatCSV)

	out, err := h.batchService.Export(c.Request.Context(), id, format)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

func parseUUID(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid UUID in path")
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
