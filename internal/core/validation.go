// internal/core/validation.go
package core

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// Regular expression for caller-supplied ids (alphanumeric, underscore, hyphen)
var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidIdentifier checks if a string is usable as a property, option or view id.
func IsValidIdentifier(name string) bool {
	return len(name) > 0 && len(name) <= 64 && identifierRegex.MatchString(name)
}

// Validator checks a candidate property map against a database schema.
type Validator struct {
	registry *Registry
	lookup   RecordLookup
	fields   *validator.Validate
}

// NewValidator creates a Validator. lookup is used only for relation existence checks.
func NewValidator(registry *Registry, lookup RecordLookup) *Validator {
	return &Validator{
		registry: registry,
		lookup:   lookup,
		fields:   validator.New(),
	}
}

// Validate returns every field failure of props against schema, in schema order,
// followed by unknown keys in sorted order. An empty slice means valid. The error
// return is reserved for failures of the relation existence lookup. props is not modified.
func (v *Validator) Validate(ctx context.Context, schema *domain.DatabaseSchema, props map[string]any) ([]FieldError, error) {
	errs := []FieldError{}

	for _, p := range schema.Properties {
		if v.registry.IsReadOnly(p.Type) {
			continue
		}
		raw, present := props[p.ID]
		if !present || IsEmptyRaw(raw) {
			if p.Required {
				errs = append(errs, FieldError{PropertyID: p.ID, PropertyName: p.Name, Value: raw, Message: fmt.Sprintf("%s is required", p.Name)})
			}
			continue
		}
		msg, err := v.checkType(ctx, p, raw)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			errs = append(errs, FieldError{PropertyID: p.ID, PropertyName: p.Name, Value: raw, Message: msg})
		}
	}

	var unknown []string
	for key := range props {
		if _, ok := schema.Property(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, FieldError{PropertyID: key, PropertyName: key, Value: props[key], Message: fmt.Sprintf("property '%s' does not exist", key)})
	}

	return errs, nil
}

// checkType returns a user-facing message when raw is invalid for p, or "".
func (v *Validator) checkType(ctx context.Context, p domain.Property, raw any) (string, error) {
	switch p.Type {
	case domain.PropertyTypeNumber:
		if _, err := v.registry.Coerce(p.Type, raw); err != nil {
			return fmt.Sprintf("%s must be a valid number", p.Name), nil
		}

	case domain.PropertyTypeEmail:
		s, ok := raw.(string)
		if !ok || v.fields.Var(s, "email") != nil {
			return fmt.Sprintf("%s must be a valid email address", p.Name), nil
		}

	case domain.PropertyTypeURL:
		s, ok := raw.(string)
		if !ok || v.fields.Var(s, "url") != nil {
			return fmt.Sprintf("%s must be a valid URL", p.Name), nil
		}

	case domain.PropertyTypeSelect:
		s, ok := raw.(string)
		if !ok || !p.HasOption(s) {
			return fmt.Sprintf("%s must be one of the configured options, got '%v'", p.Name, raw), nil
		}

	case domain.PropertyTypeMultiSelect:
		items, ok := raw.([]any)
		if !ok {
			if strs, isStrs := raw.([]string); isStrs {
				for _, s := range strs {
					items = append(items, s)
				}
				ok = true
			}
		}
		if !ok {
			return fmt.Sprintf("%s must be an array of option ids", p.Name), nil
		}
		var invalid []string
		for _, item := range items {
			s, isStr := item.(string)
			if !isStr || !p.HasOption(s) {
				invalid = append(invalid, fmt.Sprint(item))
			}
		}
		if len(invalid) > 0 {
			return fmt.Sprintf("%s has invalid options: %s", p.Name, strings.Join(invalid, ", ")), nil
		}

	case domain.PropertyTypeRelation:
		return v.checkRelation(ctx, p, raw)

	case domain.PropertyTypeDate:
		if _, err := v.registry.Coerce(p.Type, raw); err != nil {
			return fmt.Sprintf("%s must be a valid date", p.Name), nil
		}

	case domain.PropertyTypeCheckbox:
		if _, err := v.registry.Coerce(p.Type, raw); err != nil {
			return fmt.Sprintf("%s must be true or false", p.Name), nil
		}

	case domain.PropertyTypeFile:
		if _, err := v.registry.Coerce(p.Type, raw); err != nil {
			return fmt.Sprintf("%s must be a file reference or an array of them", p.Name), nil
		}

	case domain.PropertyTypeFormula, domain.PropertyTypeRollup:
		if _, err := v.registry.Coerce(p.Type, raw); err != nil {
			return fmt.Sprintf("%s must be a text, number, boolean or list result", p.Name), nil
		}

	default:
		if _, ok := raw.(string); !ok {
			return fmt.Sprintf("%s must be text", p.Name), nil
		}
	}
	return "", nil
}

// checkRelation verifies every referenced record exists in the related database.
func (v *Validator) checkRelation(ctx context.Context, p domain.Property, raw any) (string, error) {
	if p.Relation == nil || p.Relation.RelatedDatabaseID == "" {
		return fmt.Sprintf("%s has no related database configured", p.Name), nil
	}
	val, err := v.registry.Coerce(p.Type, raw)
	if err != nil {
		return fmt.Sprintf("%s must be a record id or an array of record ids", p.Name), nil
	}
	ids := slices.Compact(slices.Sorted(slices.Values(val.(ListValue))))

	var missing []string
	for _, id := range ids {
		rec, err := v.lookup.FindOne(ctx, p.Relation.RelatedDatabaseID, id)
		if err != nil {
			return "", fmt.Errorf("relation lookup for %s: %w", p.Name, err)
		}
		if rec == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Sprintf("%s references records that do not exist: %s", p.Name, strings.Join(missing, ", ")), nil
	}
	return "", nil
}
