package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// propertyDefinitionSchema describes the shape of a property definition as sent by clients.
const propertyDefinitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "type"],
  "properties": {
    "id": {"type": "string", "maxLength": 64},
    "name": {"type": "string", "minLength": 1, "maxLength": 100},
    "type": {"type": "string", "minLength": 1},
    "required": {"type": "boolean"},
    "order": {"type": "integer", "minimum": 0},
    "isVisible": {"type": "boolean"},
    "selectOptions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "id": {"type": "string", "maxLength": 64},
          "name": {"type": "string", "minLength": 1, "maxLength": 100},
          "color": {"type": "string"}
        }
      }
    },
    "relationConfig": {
      "type": "object",
      "required": ["relatedDatabaseId"],
      "properties": {
        "relatedDatabaseId": {"type": "string", "minLength": 1},
        "relationType": {"enum": ["", "one_to_one", "one_to_many", "many_to_many"]}
      }
    },
    "rollupConfig": {
      "type": "object",
      "required": ["relationPropertyId", "targetPropertyId", "function"],
      "properties": {
        "relationPropertyId": {"type": "string", "minLength": 1},
        "targetPropertyId": {"type": "string", "minLength": 1},
        "function": {"enum": ["count", "sum", "average", "min", "max", "show_original"]}
      }
    }
  }
}`

// PropertyDefinitions validates and completes property definitions before they
// are added to a schema.
type PropertyDefinitions struct {
	registry *Registry
	schema   *gojsonschema.Schema
}

// NewPropertyDefinitions compiles the definition schema.
func NewPropertyDefinitions(registry *Registry) (*PropertyDefinitions, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(propertyDefinitionSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling property definition schema: %w", err)
	}
	return &PropertyDefinitions{registry: registry, schema: schema}, nil
}

// Prepare checks a definition and fills in what the client may omit: the
// property id, option ids and the relation type. Failures come back as a
// *ValidationError.
func (d *PropertyDefinitions) Prepare(p domain.Property) (domain.Property, error) {
	result, err := d.schema.Validate(gojsonschema.NewGoLoader(p))
	if err != nil {
		return domain.Property{}, fmt.Errorf("validating property definition: %w", err)
	}

	var errs []FieldError
	fail := func(field, msg string) {
		errs = append(errs, FieldError{PropertyID: field, PropertyName: p.Name, Message: msg})
	}
	for _, re := range result.Errors() {
		fail(re.Field(), re.Description())
	}

	t, ok := d.registry.Normalize(string(p.Type))
	if !ok {
		fail("type", fmt.Sprintf("unknown property type '%s'", p.Type))
	}
	p.Type = t

	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if !IsValidIdentifier(p.ID) || IsSystemField(p.ID) {
		fail("id", fmt.Sprintf("'%s' is not a usable property id", p.ID))
	}

	switch p.Type {
	case domain.PropertyTypeSelect, domain.PropertyTypeMultiSelect:
		seen := make(map[string]bool, len(p.Options))
		for i := range p.Options {
			opt := &p.Options[i]
			if opt.ID == "" {
				opt.ID = uuid.NewString()
			}
			if seen[opt.ID] {
				fail("selectOptions", fmt.Sprintf("duplicate option id '%s'", opt.ID))
			}
			seen[opt.ID] = true
		}
	case domain.PropertyTypeRelation:
		if p.Relation == nil {
			fail("relationConfig", "relation properties need a related database")
		} else if p.Relation.RelationType == "" {
			p.Relation.RelationType = "many_to_many"
		}
	case domain.PropertyTypeRollup:
		if p.Rollup == nil {
			fail("rollupConfig", "rollup properties need a rollup configuration")
		}
	}
	if len(p.Options) > 0 && p.Type != domain.PropertyTypeSelect && p.Type != domain.PropertyTypeMultiSelect {
		fail("selectOptions", fmt.Sprintf("options are only allowed on select and multi_select, not %s", p.Type))
	}

	p.Name = strings.TrimSpace(p.Name)
	if len(errs) > 0 {
		return domain.Property{}, &ValidationError{Errors: errs}
	}
	return p, nil
}
