// api/models/database_models.go
package models

import (
	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// --- Database/Schema Request Structs ---

// CreateDatabaseRequest registers a new database with its initial properties.
type CreateDatabaseRequest struct {
	Name       string            `json:"name" binding:"required,min=1,max=128"`
	Properties []domain.Property `json:"properties"`
}

// RenameDatabaseRequest changes a database's display name.
type RenameDatabaseRequest struct {
	Name string `json:"name" binding:"required,min=1,max=128"`
}

// ViewRequest is the body of view create and update calls.
type ViewRequest struct {
	Name              string          `json:"name" binding:"required,min=1,max=128"`
	IsDefault         bool            `json:"isDefault"`
	Filters           []domain.Filter `json:"filters"`
	Sorts             []domain.Sort   `json:"sorts"`
	VisibleProperties []string        `json:"visibleProperties"`
	GroupBy           string          `json:"groupBy"`
}

// ToView converts the request into a view with non-nil lists.
func (r ViewRequest) ToView() domain.View {
	v := domain.View{
		Name:              r.Name,
		IsDefault:         r.IsDefault,
		Filters:           r.Filters,
		Sorts:             r.Sorts,
		VisibleProperties: r.VisibleProperties,
		GroupBy:           r.GroupBy,
	}
	if v.Filters == nil {
		v.Filters = []domain.Filter{}
	}
	if v.Sorts == nil {
		v.Sorts = []domain.Sort{}
	}
	if v.VisibleProperties == nil {
		v.VisibleProperties = []string{}
	}
	return v
}

// --- Record Request/Response Structs ---

// RecordRequest carries the property values of a record create, update or validate call.
type RecordRequest struct {
	Properties map[string]any `json:"properties" binding:"required"`
}

// ValidateRecordResponse reports every field failure of a dry-run validation.
type ValidateRecordResponse struct {
	Valid  bool              `json:"valid"`
	Errors []core.FieldError `json:"errors"`
}
