// api/handlers/database_handler.go
package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-workspace/api/models"
	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/domain"
	"github.com/Annany2002/nebula-workspace/internal/logger"
	"github.com/Annany2002/nebula-workspace/internal/storage"
)

// DatabaseHandler manages databases and their property schemas.
type DatabaseHandler struct {
	DB          *sql.DB
	Engine      *core.Engine
	Definitions *core.PropertyDefinitions
}

// NewDatabaseHandler creates a new DatabaseHandler.
func NewDatabaseHandler(db *sql.DB, engine *core.Engine, defs *core.PropertyDefinitions) *DatabaseHandler {
	return &DatabaseHandler{DB: db, Engine: engine, Definitions: defs}
}

// CreateDatabase registers a new database owned by the caller.
func (h *DatabaseHandler) CreateDatabase(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), customLog)
	userID := currentUser(c)

	var req models.CreateDatabaseRequest
	if !bindJSON(c, &req) {
		return
	}

	props, err := h.prepareAll(req.Properties)
	if err != nil {
		_ = c.Error(err)
		return
	}

	schema, err := storage.CreateDatabase(c.Request.Context(), h.DB, userID, strings.TrimSpace(req.Name), props)
	if err != nil {
		_ = c.Error(err)
		return
	}

	log.Infof("Handler: Created database %s for UserID %s", schema.ID, userID)
	c.JSON(http.StatusCreated, schema)
}

// prepareAll prepares each definition and rejects duplicate ids within the batch.
func (h *DatabaseHandler) prepareAll(defs []domain.Property) ([]domain.Property, error) {
	props := make([]domain.Property, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		p, err := h.Definitions.Prepare(def)
		if err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, &core.ValidationError{Errors: []core.FieldError{{
				PropertyID: p.ID, PropertyName: p.Name, Message: "duplicate property id",
			}}}
		}
		seen[p.ID] = true
		props = append(props, p)
	}
	return props, nil
}

// ListDatabases returns the caller's databases.
func (h *DatabaseHandler) ListDatabases(c *gin.Context) {
	dbs, err := storage.ListDatabases(c.Request.Context(), h.DB, currentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"databases": dbs})
}

// GetDatabase returns a database's full schema: ordered properties and views.
func (h *DatabaseHandler) GetDatabase(c *gin.Context) {
	schema, err := h.Engine.ReadSchema(c.Request.Context(), currentUser(c), c.Param("database_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

// RenameDatabase changes a database's name.
func (h *DatabaseHandler) RenameDatabase(c *gin.Context) {
	databaseID := c.Param("database_id")
	var req models.RenameDatabaseRequest
	if !bindJSON(c, &req) {
		return
	}
	if _, err := h.Engine.WritableSchema(c.Request.Context(), currentUser(c), databaseID); err != nil {
		_ = c.Error(err)
		return
	}
	if err := storage.RenameDatabase(c.Request.Context(), h.DB, databaseID, strings.TrimSpace(req.Name)); err != nil {
		_ = c.Error(err)
		return
	}
	h.GetDatabase(c)
}

// DeleteDatabase removes a database with all of its views and records.
func (h *DatabaseHandler) DeleteDatabase(c *gin.Context) {
	databaseID := c.Param("database_id")
	if _, err := h.Engine.WritableSchema(c.Request.Context(), currentUser(c), databaseID); err != nil {
		_ = c.Error(err)
		return
	}
	if err := storage.DeleteDatabase(c.Request.Context(), h.DB, databaseID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Properties ---

// AddProperty appends a property to a database.
func (h *DatabaseHandler) AddProperty(c *gin.Context) {
	databaseID := c.Param("database_id")
	var def domain.Property
	if !bindJSON(c, &def) {
		return
	}
	if _, err := h.Engine.WritableSchema(c.Request.Context(), currentUser(c), databaseID); err != nil {
		_ = c.Error(err)
		return
	}
	prop, err := h.Definitions.Prepare(def)
	if err != nil {
		_ = c.Error(err)
		return
	}
	saved, err := storage.AddProperty(c.Request.Context(), h.DB, databaseID, prop)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// UpdateProperty replaces a property's definition. Stored values are left as
// they are; values that no longer read as the new type simply stop matching.
// View filters and sorts the new type cannot serve are dropped.
func (h *DatabaseHandler) UpdateProperty(c *gin.Context) {
	databaseID, propertyID := c.Param("database_id"), c.Param("property_id")
	var def domain.Property
	if !bindJSON(c, &def) {
		return
	}
	schema, err := h.Engine.WritableSchema(c.Request.Context(), currentUser(c), databaseID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if _, ok := schema.Property(propertyID); !ok {
		_ = c.Error(core.NewNotFound("property", propertyID))
		return
	}
	def.ID = propertyID
	prop, err := h.Definitions.Prepare(def)
	if err != nil {
		_ = c.Error(err)
		return
	}
	saved, err := storage.UpdateProperty(c.Request.Context(), h.DB, databaseID, prop, h.Engine.PruneView)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteProperty removes a property and every reference to it.
func (h *DatabaseHandler) DeleteProperty(c *gin.Context) {
	databaseID, propertyID := c.Param("database_id"), c.Param("property_id")
	if _, err := h.Engine.WritableSchema(c.Request.Context(), currentUser(c), databaseID); err != nil {
		_ = c.Error(err)
		return
	}
	if err := storage.DeleteProperty(c.Request.Context(), h.DB, databaseID, propertyID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
