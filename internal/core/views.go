package core

import (
	"context"
	"fmt"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// ReadSchema loads a database schema for a user allowed to read it.
func (e *Engine) ReadSchema(ctx context.Context, userID, databaseID string) (*domain.DatabaseSchema, error) {
	if err := e.authz.CanRead(ctx, userID, databaseID); err != nil {
		return nil, err
	}
	return e.schemas.GetSchema(ctx, databaseID)
}

// WritableSchema loads a database schema for a user allowed to change it.
func (e *Engine) WritableSchema(ctx context.Context, userID, databaseID string) (*domain.DatabaseSchema, error) {
	if err := e.authz.CanWrite(ctx, userID, databaseID); err != nil {
		return nil, err
	}
	return e.schemas.GetSchema(ctx, databaseID)
}

// NormalizeView checks that every filter, sort, visible column and the grouping
// of v refer to known fields and compile, and returns v with sort directions
// normalized and nil lists replaced by empty ones.
func (e *Engine) NormalizeView(schema *domain.DatabaseSchema, v domain.View) (domain.View, error) {
	if v.Filters == nil {
		v.Filters = []domain.Filter{}
	}
	if _, err := e.compiler.Compile(schema, v.Filters); err != nil {
		return v, err
	}

	sorts := make([]domain.Sort, 0, len(v.Sorts))
	for _, s := range v.Sorts {
		dir, err := NormalizeDirection(s.Direction)
		if err != nil {
			return v, err
		}
		sorts = append(sorts, domain.Sort{PropertyID: s.PropertyID, Direction: dir})
	}
	if len(sorts) > 0 {
		if _, err := e.sorter.Build(schema, sorts); err != nil {
			return v, err
		}
	}
	v.Sorts = sorts

	seen := make(map[string]bool, len(v.VisibleProperties))
	visible := make([]string, 0, len(v.VisibleProperties))
	for _, id := range v.VisibleProperties {
		if _, err := resolveField(schema, id); err != nil {
			return v, err
		}
		if seen[id] {
			return v, fmt.Errorf("%w: property '%s' listed twice in visibleProperties", ErrInvalidQuery, id)
		}
		seen[id] = true
		visible = append(visible, id)
	}
	v.VisibleProperties = visible

	if v.GroupBy != "" {
		if _, err := resolveField(schema, v.GroupBy); err != nil {
			return v, err
		}
	}
	return v, nil
}

// PruneView drops the filters and sorts of v that no longer compile against
// schema, typically after a property changed type, and reports whether v changed.
func (e *Engine) PruneView(schema *domain.DatabaseSchema, v *domain.View) bool {
	changed := false
	filters := v.Filters[:0]
	for _, f := range v.Filters {
		if _, err := e.compiler.Compile(schema, []domain.Filter{f}); err != nil {
			changed = true
			continue
		}
		filters = append(filters, f)
	}
	v.Filters = filters

	sorts := v.Sorts[:0]
	for _, s := range v.Sorts {
		if _, err := e.sorter.Build(schema, []domain.Sort{s}); err != nil {
			changed = true
			continue
		}
		sorts = append(sorts, s)
	}
	v.Sorts = sorts
	return changed
}
