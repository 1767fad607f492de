// api/handlers/record_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-workspace/api/models"
	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/logger"
)

// RecordHandler serves record CRUD and the list/query endpoints.
type RecordHandler struct {
	Engine *core.Engine
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(engine *core.Engine) *RecordHandler {
	return &RecordHandler{Engine: engine}
}

// ListRecords answers GET /records with filters, sorts, search, paging and
// grouping taken from the query string.
func (h *RecordHandler) ListRecords(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), customLog)

	params := c.Request.URL.Query()
	for key := range params {
		if !core.IsReservedParam(key) {
			log.Debugf("Handler: Ignoring unknown query parameter '%s'", key)
		}
	}

	req, err := core.ParseQueryRequest(params)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondWithQuery(c, *req)
}

// QueryRecords answers POST /records/query, taking the same request as a JSON body.
func (h *RecordHandler) QueryRecords(c *gin.Context) {
	var req core.QueryRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	h.respondWithQuery(c, req)
}

func (h *RecordHandler) respondWithQuery(c *gin.Context, req core.QueryRequest) {
	result, err := h.Engine.ListRecords(c.Request.Context(), currentUser(c), c.Param("database_id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateRecord validates and stores a new record.
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	var req models.RecordRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.Engine.CreateRecord(c.Request.Context(), currentUser(c), c.Param("database_id"), req.Properties)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// GetRecord returns one record.
func (h *RecordHandler) GetRecord(c *gin.Context) {
	rec, err := h.Engine.GetRecord(c.Request.Context(), currentUser(c), c.Param("database_id"), c.Param("record_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpdateRecord merges the given properties into a record. A null value clears the property.
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	var req models.RecordRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.Engine.UpdateRecord(c.Request.Context(), currentUser(c), c.Param("database_id"), c.Param("record_id"), req.Properties)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteRecord removes a record from every query.
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	if err := h.Engine.DeleteRecord(c.Request.Context(), currentUser(c), c.Param("database_id"), c.Param("record_id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ValidateRecord reports the field errors a create with the same body would hit.
func (h *RecordHandler) ValidateRecord(c *gin.Context) {
	var req models.RecordRequest
	if !bindJSON(c, &req) {
		return
	}
	fieldErrs, err := h.Engine.ValidateRecord(c.Request.Context(), currentUser(c), c.Param("database_id"), req.Properties)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if fieldErrs == nil {
		fieldErrs = []core.FieldError{}
	}
	c.JSON(http.StatusOK, models.ValidateRecordResponse{Valid: len(fieldErrs) == 0, Errors: fieldErrs})
}
