package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/domain"
)

type errorBody struct {
	Error   string            `json:"error"`
	Details []core.FieldError `json:"details"`
}

func titles(records []domain.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Properties["title"].(string))
	}
	return out
}

func TestWorkspaceFlow(t *testing.T) {
	server, _ := setupTestServer(t)
	_, alice := signupAndLogin(t, server, "alice", "alice@example.com")
	_, bob := signupAndLogin(t, server, "bob", "bob@example.com")

	var schema domain.DatabaseSchema
	status := doJSON(t, server, http.MethodPost, "/api/v1/databases", alice, map[string]any{
		"name": "Tasks",
		"properties": []map[string]any{
			{"id": "title", "name": "Title", "type": "text", "required": true, "isVisible": true},
			{"id": "status", "name": "Status", "type": "select", "isVisible": true, "selectOptions": []map[string]any{
				{"id": "todo", "name": "To Do"}, {"id": "done", "name": "Done"},
			}},
			{"id": "points", "name": "Points", "type": "number", "isVisible": true},
		},
	}, &schema)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, schema.Properties, 3)
	require.Len(t, schema.Views, 1)
	assert.True(t, schema.Views[0].IsDefault)
	base := "/api/v1/databases/" + schema.ID

	status = doJSON(t, server, http.MethodPost, "/api/v1/databases", alice, map[string]any{"name": "Tasks"}, nil)
	assert.Equal(t, http.StatusConflict, status)

	ids := map[string]string{}
	for _, props := range []map[string]any{
		{"title": "A", "status": "done", "points": 5},
		{"title": "B", "status": "todo", "points": 3},
		{"title": "C", "status": "done", "points": 1},
	} {
		var rec domain.Record
		status := doJSON(t, server, http.MethodPost, base+"/records", alice, map[string]any{"properties": props}, &rec)
		require.Equal(t, http.StatusCreated, status)
		ids[props["title"].(string)] = rec.ID
	}

	t.Run("invalid record reports every field", func(t *testing.T) {
		var body errorBody
		status := doJSON(t, server, http.MethodPost, base+"/records", alice,
			map[string]any{"properties": map[string]any{"status": "nope", "points": "many"}}, &body)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, core.ErrValidation.Error(), body.Error)
		assert.Len(t, body.Details, 3)

		var check struct {
			Valid  bool              `json:"valid"`
			Errors []core.FieldError `json:"errors"`
		}
		status = doJSON(t, server, http.MethodPost, base+"/records/validate", alice,
			map[string]any{"properties": map[string]any{"title": "ok"}}, &check)
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, check.Valid)
		assert.Empty(t, check.Errors)
	})

	t.Run("list with filters and sorts from the query string", func(t *testing.T) {
		q := url.Values{}
		q.Set("filters", `[{"propertyId":"status","operator":"equals","value":"done"}]`)
		q.Set("sorts", `[{"propertyId":"points","direction":"asc"}]`)
		var res core.QueryResult
		status := doJSON(t, server, http.MethodGet, base+"/records?"+q.Encode(), alice, nil, &res)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []string{"C", "A"}, titles(res.Records))
		assert.Equal(t, 2, res.Pagination.Total)
		assert.Equal(t, 1, res.Pagination.TotalPages)
	})

	t.Run("query body with grouping and paging", func(t *testing.T) {
		var res core.QueryResult
		status := doJSON(t, server, http.MethodPost, base+"/records/query", alice, map[string]any{
			"sorts":   []map[string]any{{"propertyId": "points", "direction": "desc"}},
			"groupBy": "status",
			"limit":   1,
			"page":    2,
		}, &res)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []string{"B"}, titles(res.Records))
		assert.Equal(t, core.Pagination{Page: 2, Limit: 1, Total: 3, TotalPages: 3}, res.Pagination)
		require.NotNil(t, res.Aggregations)
		assert.Len(t, res.Aggregations.GroupedData["done"], 2)
		assert.Len(t, res.Aggregations.GroupedData["todo"], 1)
	})

	t.Run("bad queries are rejected", func(t *testing.T) {
		q := url.Values{}
		q.Set("filters", `[{"propertyId":"points","operator":"contains","value":"1"}]`)
		status := doJSON(t, server, http.MethodGet, base+"/records?"+q.Encode(), alice, nil, nil)
		assert.Equal(t, http.StatusBadRequest, status)

		status = doJSON(t, server, http.MethodGet, base+"/records?page=0", alice, nil, nil)
		assert.Equal(t, http.StatusBadRequest, status)

		q = url.Values{}
		q.Set("sorts", `[{"propertyId":"missing","direction":"asc"}]`)
		status = doJSON(t, server, http.MethodGet, base+"/records?"+q.Encode(), alice, nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		status := doJSON(t, server, http.MethodGet, base+"/records", bob, nil, nil)
		assert.Equal(t, http.StatusForbidden, status)
		status = doJSON(t, server, http.MethodDelete, base, bob, nil, nil)
		assert.Equal(t, http.StatusForbidden, status)
		status = doJSON(t, server, http.MethodGet, "/api/v1/databases/no-such-db/records", bob, nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("views", func(t *testing.T) {
		var view domain.View
		status := doJSON(t, server, http.MethodPost, base+"/views", alice, map[string]any{
			"name":    "Done",
			"filters": []map[string]any{{"propertyId": "status", "operator": "equals", "value": "done"}},
			"sorts":   []map[string]any{{"propertyId": "points", "direction": "DESC"}},
		}, &view)
		require.Equal(t, http.StatusCreated, status)
		assert.False(t, view.IsDefault)
		assert.Equal(t, domain.SortDesc, view.Sorts[0].Direction)

		var res core.QueryResult
		status = doJSON(t, server, http.MethodGet, base+"/records?viewId="+view.ID, alice, nil, &res)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []string{"A", "C"}, titles(res.Records))

		status = doJSON(t, server, http.MethodPost, base+"/views", alice, map[string]any{
			"name": "Broken", "groupBy": "missing",
		}, nil)
		assert.Equal(t, http.StatusNotFound, status)

		status = doJSON(t, server, http.MethodDelete, base+"/views/"+schema.Views[0].ID, alice, nil, nil)
		require.Equal(t, http.StatusNoContent, status)

		var list struct {
			Views []domain.View `json:"views"`
		}
		status = doJSON(t, server, http.MethodGet, base+"/views", alice, nil, &list)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, list.Views, 1)
		assert.True(t, list.Views[0].IsDefault)

		status = doJSON(t, server, http.MethodDelete, base+"/views/"+view.ID, alice, nil, nil)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("record updates and deletes", func(t *testing.T) {
		var rec domain.Record
		status := doJSON(t, server, http.MethodPatch, base+"/records/"+ids["B"], alice,
			map[string]any{"properties": map[string]any{"points": nil, "status": "done"}}, &rec)
		require.Equal(t, http.StatusOK, status)
		assert.NotContains(t, rec.Properties, "points")
		assert.Equal(t, "done", rec.Properties["status"])

		status = doJSON(t, server, http.MethodDelete, base+"/records/"+ids["B"], alice, nil, nil)
		require.Equal(t, http.StatusNoContent, status)
		status = doJSON(t, server, http.MethodGet, base+"/records/"+ids["B"], alice, nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("deleting a property cascades", func(t *testing.T) {
		status := doJSON(t, server, http.MethodDelete, base+"/properties/status", alice, nil, nil)
		require.Equal(t, http.StatusNoContent, status)

		var rec domain.Record
		status = doJSON(t, server, http.MethodGet, base+"/records/"+ids["A"], alice, nil, &rec)
		require.Equal(t, http.StatusOK, status)
		assert.NotContains(t, rec.Properties, "status")

		var got domain.DatabaseSchema
		status = doJSON(t, server, http.MethodGet, base, alice, nil, &got)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, got.Properties, 2)
		for _, v := range got.Views {
			assert.Empty(t, v.Filters)
			assert.NotContains(t, v.VisibleProperties, "status")
		}
	})

	t.Run("add property then delete database", func(t *testing.T) {
		var prop domain.Property
		status := doJSON(t, server, http.MethodPost, base+"/properties", alice,
			map[string]any{"name": "Due", "type": "date"}, &prop)
		require.Equal(t, http.StatusCreated, status)
		assert.NotEmpty(t, prop.ID)
		assert.Equal(t, domain.PropertyTypeDate, prop.Type)

		status = doJSON(t, server, http.MethodPost, base+"/properties", alice,
			map[string]any{"name": "Bad", "type": "hologram"}, nil)
		assert.Equal(t, http.StatusBadRequest, status)

		status = doJSON(t, server, http.MethodDelete, base, alice, nil, nil)
		require.Equal(t, http.StatusNoContent, status)
		status = doJSON(t, server, http.MethodGet, base, alice, nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}
