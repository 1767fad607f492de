package core

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

func TestParseQueryRequest(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		req, err := ParseQueryRequest(url.Values{})
		require.NoError(t, err)
		assert.Equal(t, 0, req.Page)
		assert.Nil(t, req.Limit)
		assert.Nil(t, req.Filters)
		assert.Nil(t, req.Sorts)
	})

	t.Run("full", func(t *testing.T) {
		q := url.Values{}
		q.Set("page", "2")
		q.Set("limit", "0")
		q.Set("search", "milk")
		q.Set("searchProperties", "title, status,")
		q.Set("filters", `[{"propertyId":"points","operator":"greater_than","value":3}]`)
		q.Set("sorts", `[{"propertyId":"due","direction":"desc"}]`)
		q.Set("groupBy", "status")
		q.Set("viewId", "v1")

		req, err := ParseQueryRequest(q)
		require.NoError(t, err)
		assert.Equal(t, 2, req.Page)
		require.NotNil(t, req.Limit)
		assert.Equal(t, 0, *req.Limit)
		assert.Equal(t, "milk", req.Search)
		assert.Equal(t, []string{"title", "status"}, req.SearchProperties)
		require.Len(t, req.Filters, 1)
		assert.Equal(t, "points", req.Filters[0].PropertyID)
		assert.Equal(t, 3.0, req.Filters[0].Value)
		assert.Equal(t, []domain.Sort{{PropertyID: "due", Direction: domain.SortDesc}}, req.Sorts)
		assert.Equal(t, "status", req.GroupBy)
		assert.Equal(t, "v1", req.ViewID)
	})

	t.Run("empty filters array overrides view", func(t *testing.T) {
		req, err := ParseQueryRequest(url.Values{"filters": {"[]"}})
		require.NoError(t, err)
		assert.NotNil(t, req.Filters)
		assert.Empty(t, req.Filters)
	})

	t.Run("legacy sort and order", func(t *testing.T) {
		req, err := ParseQueryRequest(url.Values{"sort": {"title"}, "order": {"DESC"}})
		require.NoError(t, err)
		assert.Equal(t, []domain.Sort{{PropertyID: "title", Direction: domain.SortDesc}}, req.Sorts)
	})

	errorCases := []struct {
		name   string
		params url.Values
	}{
		{"page not int", url.Values{"page": {"x"}}},
		{"page zero", url.Values{"page": {"0"}}},
		{"limit negative", url.Values{"limit": {"-1"}}},
		{"bad filters json", url.Values{"filters": {"{nope"}}},
		{"bad sorts json", url.Values{"sorts": {`{"propertyId":"x"}`}}},
		{"bad order", url.Values{"sort": {"title"}, "order": {"up"}}},
		{"bad search property", url.Values{"searchProperties": {"ti tle"}}},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseQueryRequest(tc.params)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestIsReservedParam(t *testing.T) {
	assert.True(t, IsReservedParam("groupBy"))
	assert.True(t, IsReservedParam("LIMIT"))
	assert.False(t, IsReservedParam("status"))
}
