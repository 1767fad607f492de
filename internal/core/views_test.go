package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

func TestNormalizeView(t *testing.T) {
	engine, _ := newTestEngine(t)
	schema := tasksSchema()

	t.Run("valid view is normalized", func(t *testing.T) {
		v, err := engine.NormalizeView(schema, domain.View{
			Name:              "Open",
			Sorts:             []domain.Sort{{PropertyID: "points", Direction: "DESC"}, {PropertyID: FieldCreatedAt}},
			VisibleProperties: []string{"title", "status", FieldUpdatedAt},
			GroupBy:           "status",
		})
		require.NoError(t, err)
		assert.Equal(t, []domain.Filter{}, v.Filters)
		assert.Equal(t, []domain.Sort{
			{PropertyID: "points", Direction: domain.SortDesc},
			{PropertyID: FieldCreatedAt, Direction: domain.SortAsc},
		}, v.Sorts)
		assert.Equal(t, []string{"title", "status", FieldUpdatedAt}, v.VisibleProperties)
	})

	tests := []struct {
		name string
		view domain.View
		want error
	}{
		{"unknown filter property", domain.View{Filters: []domain.Filter{{PropertyID: "nope", Operator: "equals", Value: "x"}}}, ErrNotFound},
		{"unsupported operator", domain.View{Filters: []domain.Filter{{PropertyID: "flag", Operator: "contains", Value: "x"}}}, ErrUnsupportedOp},
		{"bad filter value", domain.View{Filters: []domain.Filter{{PropertyID: "points", Operator: "greater_than", Value: "many"}}}, ErrInvalidFilterValue},
		{"bad direction", domain.View{Sorts: []domain.Sort{{PropertyID: "points", Direction: "up"}}}, ErrInvalidQuery},
		{"unknown sort property", domain.View{Sorts: []domain.Sort{{PropertyID: "nope"}}}, ErrNotFound},
		{"unknown visible property", domain.View{VisibleProperties: []string{"title", "nope"}}, ErrNotFound},
		{"duplicate visible property", domain.View{VisibleProperties: []string{"title", "title"}}, ErrInvalidQuery},
		{"unknown groupBy", domain.View{GroupBy: "nope"}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.NormalizeView(schema, tt.view)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestSchemaAccess(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	schema, err := engine.ReadSchema(ctx, "u1", "db-tasks")
	require.NoError(t, err)
	assert.Equal(t, "db-tasks", schema.ID)

	_, err = engine.WritableSchema(ctx, "u1", "db-tasks")
	require.NoError(t, err)

	_, err = engine.ReadSchema(ctx, "intruder", "db-tasks")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = engine.WritableSchema(ctx, "u1", "db-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPruneView(t *testing.T) {
	engine, _ := newTestEngine(t)
	schema := tasksSchema()
	schema.Properties[0].Type = domain.PropertyTypeCheckbox

	v := domain.View{
		Filters: []domain.Filter{
			{PropertyID: "title", Operator: "starts_with", Value: "a"},
			{PropertyID: "status", Operator: "equals", Value: "done"},
		},
		Sorts: []domain.Sort{{PropertyID: "title", Direction: "sideways"}, {PropertyID: "points", Direction: domain.SortAsc}},
	}
	assert.True(t, engine.PruneView(schema, &v))
	assert.Equal(t, []domain.Filter{{PropertyID: "status", Operator: "equals", Value: "done"}}, v.Filters)
	assert.Equal(t, []domain.Sort{{PropertyID: "points", Direction: domain.SortAsc}}, v.Sorts)

	assert.False(t, engine.PruneView(schema, &v))
}
