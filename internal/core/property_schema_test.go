package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

func TestPropertyDefinitionsPrepare(t *testing.T) {
	defs, err := NewPropertyDefinitions(NewRegistry())
	require.NoError(t, err)

	t.Run("assigns ids and normalizes type", func(t *testing.T) {
		p, err := defs.Prepare(domain.Property{
			Name:    " Stage ",
			Type:    "Multi-Select",
			Options: []domain.SelectOption{{Name: "A"}, {ID: "b", Name: "B"}},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "Stage", p.Name)
		assert.Equal(t, domain.PropertyTypeMultiSelect, p.Type)
		assert.NotEmpty(t, p.Options[0].ID)
		assert.Equal(t, "b", p.Options[1].ID)
	})

	t.Run("relation gets a default relation type", func(t *testing.T) {
		p, err := defs.Prepare(domain.Property{Name: "Owner", Type: "relation", Relation: &domain.RelationConfig{RelatedDatabaseID: "db2"}})
		require.NoError(t, err)
		assert.Equal(t, "many_to_many", p.Relation.RelationType)
	})

	errorCases := []struct {
		name      string
		prop      domain.Property
		wantField string
	}{
		{"missing name", domain.Property{Type: "text"}, "name"},
		{"unknown type", domain.Property{Name: "x", Type: "varchar"}, "type"},
		{"relation without config", domain.Property{Name: "x", Type: "relation"}, "relationConfig"},
		{"bad relation type", domain.Property{Name: "x", Type: "relation", Relation: &domain.RelationConfig{RelatedDatabaseID: "d", RelationType: "some"}}, "relationConfig.relationType"},
		{"rollup without config", domain.Property{Name: "x", Type: "rollup"}, "rollupConfig"},
		{"options on text", domain.Property{Name: "x", Type: "text", Options: []domain.SelectOption{{Name: "a"}}}, "selectOptions"},
		{"duplicate option ids", domain.Property{Name: "x", Type: "select", Options: []domain.SelectOption{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}}, "selectOptions"},
		{"system field id", domain.Property{ID: FieldCreatedAt, Name: "x", Type: "text"}, "id"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := defs.Prepare(tc.prop)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			var fields []string
			for _, fe := range ve.Errors {
				fields = append(fields, fe.PropertyID)
			}
			assert.Contains(t, fields, tc.wantField)
		})
	}
}
