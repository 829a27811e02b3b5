package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/objectset-backend/internal/apperrors"
	"github.com/yungbote/objectset-backend/internal/logger"
	"github.com/yungbote/objectset-backend/internal/middleware"
	"github.com/yungbote/objectset-backend/internal/objectset"
	"github.com/yungbote/objectset-backend/internal/services"
	"github.com/yungbote/objectset-backend/internal/types"
)

type ObjectSetHandler struct {
	log        *logger.Logger
	setService services.ObjectSetService
}

func NewObjectSetHandler(log *logger.Logger, setService services.ObjectSetService) *ObjectSetHandler {
	return &ObjectSetHandler{
		log:        log.With("handler", "ObjectSetHandler"),
		setService: setService,
	}
}

// operationPayload accepts {"set": "<uuid>"} or {"set": ["<uuid>", ...]}
// as the operand.
type operationPayload struct {
	Set      json.RawMessage `json:"set"`
	Operator string          `json:"operator"`
}

type setRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Objects     []uuid.UUID        `json:"objects"`
	Operations  []operationPayload `json:"operations"`
}

type setPayload struct {
	*types.RecordSet
	Objects []*types.Record `json:"objects,omitempty"`
}

func (p operationPayload) toOperation() (services.SetOperation, error) {
	op := services.SetOperation{Operator: p.Operator}
	if len(p.Set) == 0 {
		return op, fmt.Errorf("operation %q has no operand: %w", p.Operator, apperrors.ErrInvalidArgument)
	}
	var setID uuid.UUID
	if err := json.Unmarshal(p.Set, &setID); err == nil {
		op.SetID = &setID
		return op, nil
	}
	var recordIDs []uuid.UUID
	if err := json.Unmarshal(p.Set, &recordIDs); err != nil {
		return op, fmt.Errorf("operand must be a set id or a list of record ids: %w", apperrors.ErrInvalidArgument)
	}
	op.RecordIDs = recordIDs
	return op, nil
}

func toOperations(payloads []operationPayload) ([]services.SetOperation, error) {
	ops := make([]services.SetOperation, 0, len(payloads))
	for _, p := range payloads {
		op, err := p.toOperation()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func boolQuery(c *gin.Context, name string) bool {
	val, err := strconv.ParseBool(c.DefaultQuery(name, "false"))
	if err != nil {
		return false
	}
	return val
}

// visible hides session-scoped sets from callers holding a different
// key. Missing and forbidden look the same on purpose.
func visible(set *types.RecordSet, sessionKey string) bool {
	return set.SessionKey == "" || set.SessionKey == sessionKey
}

func (h *ObjectSetHandler) embedPayload(c *gin.Context, model *types.RecordSet) (*setPayload, error) {
	payload := &setPayload{RecordSet: model}
	if boolQuery(c, "embed") {
		records, err := h.setService.ListMembers(c.Request.Context(), nil, model.ID)
		if err != nil {
			return nil, err
		}
		payload.Objects = records
	}
	return payload, nil
}

// GET /api/sets
func (h *ObjectSetHandler) ListSets(c *gin.Context) {
	sets, err := h.setService.ListSets(c.Request.Context(), nil, middleware.SessionKey(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	payloads := make([]*setPayload, 0, len(sets))
	for _, set := range sets {
		payload, err := h.embedPayload(c, set)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		payloads = append(payloads, payload)
	}
	RespondOK(c, payloads)
}

// POST /api/sets
func (h *ObjectSetHandler) CreateSet(c *gin.Context) {
	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_json", err)
		return
	}
	ops, err := toOperations(req.Operations)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	set, err := h.setService.CreateSet(c.Request.Context(), nil, services.CreateSetInput{
		Name:        req.Name,
		Description: req.Description,
		RecordIDs:   req.Objects,
		Operations:  ops,
		SessionKey:  middleware.SessionKey(c),
		Persist:     true,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	payload, err := h.embedPayload(c, set.Model)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payload)
}

func (h *ObjectSetHandler) loadVisibleSet(c *gin.Context) (*objectset.Set, bool) {
	setID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_id", err)
		return nil, false
	}
	set, err := h.setService.GetSet(c.Request.Context(), nil, setID)
	if err != nil {
		RespondServiceError(c, err)
		return nil, false
	}
	if !visible(set.Model, middleware.SessionKey(c)) {
		RespondServiceError(c, apperrors.ErrNotFound)
		return nil, false
	}
	return set, true
}

// GET /api/sets/:id
func (h *ObjectSetHandler) GetSet(c *gin.Context) {
	set, ok := h.loadVisibleSet(c)
	if !ok {
		return
	}
	payload, err := h.embedPayload(c, set.Model)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, payload)
}

// PUT /api/sets/:id
//
// Replaces the membership with the given objects (or the current
// membership when objects is omitted), applies the operations, and
// reconciles. ?delete=1 hard-deletes departures instead of flagging
// them.
func (h *ObjectSetHandler) UpdateSet(c *gin.Context) {
	set, ok := h.loadVisibleSet(c)
	if !ok {
		return
	}
	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_json", err)
		return
	}
	ops, err := toOperations(req.Operations)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	if req.Objects != nil {
		set.SetMembers(req.Objects)
	}
	if err := h.setService.ApplyOperations(c.Request.Context(), nil, set, ops); err != nil {
		RespondServiceError(c, err)
		return
	}
	if _, _, err := h.setService.ReplaceMembers(c.Request.Context(), nil, set.Model.ID, set.MemberIDs(), boolQuery(c, "delete")); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/sets/:id
func (h *ObjectSetHandler) DeleteSet(c *gin.Context) {
	set, ok := h.loadVisibleSet(c)
	if !ok {
		return
	}
	if err := h.setService.DeleteSet(c.Request.Context(), nil, set.Model.ID); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/sets/:id/objects
func (h *ObjectSetHandler) ListSetObjects(c *gin.Context) {
	set, ok := h.loadVisibleSet(c)
	if !ok {
		return
	}
	records, err := h.setService.ListMembers(c.Request.Context(), nil, set.Model.ID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, records)
}

// POST /api/sets/:id/purge
func (h *ObjectSetHandler) PurgeSet(c *gin.Context) {
	set, ok := h.loadVisibleSet(c)
	if !ok {
		return
	}
	purged, err := h.setService.PurgeSet(c.Request.Context(), nil, set.Model.ID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"purged": purged})
}
