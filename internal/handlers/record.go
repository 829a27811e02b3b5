package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/yungbote/objectset-backend/internal/logger"
	"github.com/yungbote/objectset-backend/internal/services"
)

type RecordHandler struct {
	log           *logger.Logger
	recordService services.RecordService
}

func NewRecordHandler(log *logger.Logger, recordService services.RecordService) *RecordHandler {
	return &RecordHandler{
		log:           log.With("handler", "RecordHandler"),
		recordService: recordService,
	}
}

type recordRequest struct {
	Label    string         `json:"label"`
	Metadata datatypes.JSON `json:"metadata"`
}

// GET /api/records
func (h *RecordHandler) ListRecords(c *gin.Context) {
	records, err := h.recordService.ListRecords(c.Request.Context(), nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, records)
}

// POST /api/records
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_json", err)
		return
	}
	record, err := h.recordService.CreateRecord(c.Request.Context(), nil, req.Label, req.Metadata)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}
