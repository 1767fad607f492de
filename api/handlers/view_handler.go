package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-workspace/api/models"
	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/domain"
	"github.com/Annany2002/nebula-workspace/internal/storage"
)

// ViewHandler manages the saved views of a database.
type ViewHandler struct {
	DB     *sql.DB
	Engine *core.Engine
}

// NewViewHandler creates a new ViewHandler.
func NewViewHandler(db *sql.DB, engine *core.Engine) *ViewHandler {
	return &ViewHandler{DB: db, Engine: engine}
}

// ListViews returns a database's views in display order.
func (h *ViewHandler) ListViews(c *gin.Context) {
	schema, err := h.Engine.ReadSchema(c.Request.Context(), currentUser(c), c.Param("database_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": schema.Views})
}

// CreateView saves a new view after checking its references against the schema.
func (h *ViewHandler) CreateView(c *gin.Context) {
	view, ok := h.bindView(c)
	if !ok {
		return
	}
	saved, err := storage.CreateView(c.Request.Context(), h.DB, c.Param("database_id"), view)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// UpdateView replaces a view's settings.
func (h *ViewHandler) UpdateView(c *gin.Context) {
	view, ok := h.bindView(c)
	if !ok {
		return
	}
	view.ID = c.Param("view_id")
	saved, err := storage.UpdateView(c.Request.Context(), h.DB, c.Param("database_id"), view)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteView removes a view; a database always keeps at least one.
func (h *ViewHandler) DeleteView(c *gin.Context) {
	databaseID := c.Param("database_id")
	if _, err := h.Engine.WritableSchema(c.Request.Context(), currentUser(c), databaseID); err != nil {
		_ = c.Error(err)
		return
	}
	if err := storage.DeleteView(c.Request.Context(), h.DB, databaseID, c.Param("view_id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetDefaultView makes a view the database's default.
func (h *ViewHandler) SetDefaultView(c *gin.Context) {
	databaseID := c.Param("database_id")
	if _, err := h.Engine.WritableSchema(c.Request.Context(), currentUser(c), databaseID); err != nil {
		_ = c.Error(err)
		return
	}
	if err := storage.SetDefaultView(c.Request.Context(), h.DB, databaseID, c.Param("view_id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Default view updated", "view_id": c.Param("view_id")})
}

// bindView binds a view request and normalizes it against a writable schema.
func (h *ViewHandler) bindView(c *gin.Context) (domain.View, bool) {
	var req models.ViewRequest
	if !bindJSON(c, &req) {
		return domain.View{}, false
	}
	schema, err := h.Engine.WritableSchema(c.Request.Context(), currentUser(c), c.Param("database_id"))
	if err != nil {
		_ = c.Error(err)
		return domain.View{}, false
	}
	view, err := h.Engine.NormalizeView(schema, req.ToView())
	if err != nil {
		_ = c.Error(err)
		return domain.View{}, false
	}
	return view, true
}
