// internal/domain/models.go
package domain

import "time"

// PropertyType is the declared type of a user-defined property.
type PropertyType string

const (
	PropertyTypeText           PropertyType = "text"
	PropertyTypeNumber         PropertyType = "number"
	PropertyTypeDate           PropertyType = "date"
	PropertyTypeCheckbox       PropertyType = "checkbox"
	PropertyTypeSelect         PropertyType = "select"
	PropertyTypeMultiSelect    PropertyType = "multi_select"
	PropertyTypeEmail          PropertyType = "email"
	PropertyTypePhone          PropertyType = "phone"
	PropertyTypeURL            PropertyType = "url"
	PropertyTypeFile           PropertyType = "file"
	PropertyTypeRelation       PropertyType = "relation"
	PropertyTypeFormula        PropertyType = "formula"
	PropertyTypeRollup         PropertyType = "rollup"
	PropertyTypeCreatedTime    PropertyType = "created_time"
	PropertyTypeLastEditedTime PropertyType = "last_edited_time"
	PropertyTypeCreatedBy      PropertyType = "created_by"
	PropertyTypeLastEditedBy   PropertyType = "last_edited_by"
)

// SelectOption is one choice of a select or multi_select property. Records store the ID.
type SelectOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// RelationConfig points a relation property at another database.
type RelationConfig struct {
	RelatedDatabaseID string `json:"relatedDatabaseId"`
	RelationType      string `json:"relationType"` // one_to_one, one_to_many, many_to_many
}

// RollupConfig describes an aggregation over related records.
type RollupConfig struct {
	RelationPropertyID string `json:"relationPropertyId"`
	TargetPropertyID   string `json:"targetPropertyId"`
	Function           string `json:"function"`
}

// Property is one user-defined column on a database.
type Property struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      PropertyType    `json:"type"`
	Required  bool            `json:"required"`
	Options   []SelectOption  `json:"selectOptions,omitempty"`
	Relation  *RelationConfig `json:"relationConfig,omitempty"`
	Rollup    *RollupConfig   `json:"rollupConfig,omitempty"`
	Order     int             `json:"order"`
	IsVisible bool            `json:"isVisible"`
}

// HasOption reports whether id names one of the property's select options.
func (p Property) HasOption(id string) bool {
	for _, opt := range p.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// OptionName returns the display name of option id, or "" if unknown.
func (p Property) OptionName(id string) string {
	for _, opt := range p.Options {
		if opt.ID == id {
			return opt.Name
		}
	}
	return ""
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Filter is an abstract {propertyId, operator, value} condition.
type Filter struct {
	PropertyID string `json:"propertyId"`
	Operator   string `json:"operator"`
	Value      any    `json:"value,omitempty"`
}

// Sort is one key of a multi-key ordering.
type Sort struct {
	PropertyID string        `json:"propertyId"`
	Direction  SortDirection `json:"direction"`
}

// View is a named saved combination of filters, sorts, visible columns and grouping.
type View struct {
	ID                string    `json:"id"`
	DatabaseID        string    `json:"databaseId"`
	Name              string    `json:"name"`
	IsDefault         bool      `json:"isDefault"`
	Filters           []Filter  `json:"filters"`
	Sorts             []Sort    `json:"sorts"`
	VisibleProperties []string  `json:"visibleProperties"`
	GroupBy           string    `json:"groupBy,omitempty"`
	Position          int       `json:"position"`
	CreatedAt         time.Time `json:"createdAt"`
}

// DatabaseSchema is a user database: ordered properties plus named views.
type DatabaseSchema struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"ownerId"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
	Views      []View     `json:"views"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Property returns the schema property with the given id.
func (s *DatabaseSchema) Property(id string) (Property, bool) {
	for _, p := range s.Properties {
		if p.ID == id {
			return p, true
		}
	}
	return Property{}, false
}

// View returns the view with the given id.
func (s *DatabaseSchema) View(id string) (View, bool) {
	for _, v := range s.Views {
		if v.ID == id {
			return v, true
		}
	}
	return View{}, false
}

// Record is one row of a database. Properties is sparse: absent keys have no value.
type Record struct {
	ID           string         `json:"id"`
	DatabaseID   string         `json:"databaseId"`
	Properties   map[string]any `json:"properties"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	CreatedBy    string         `json:"createdBy"`
	LastEditedBy string         `json:"lastEditedBy"`
}

// UserMetadata is a registered account.
type UserMetadata struct {
	UserId       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
