// internal/core/query_params.go
package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// Default and limit constants for pagination
const (
	DefaultLimit = 100
	MaxLimit     = 1000
	DefaultOrder = "asc"
)

// ReservedParams contains the query parameter names understood by ParseQueryRequest.
var ReservedParams = map[string]bool{
	"page":             true,
	"limit":            true,
	"search":           true,
	"searchproperties": true,
	"filters":          true,
	"sorts":            true,
	"sort":             true,
	"order":            true,
	"groupby":          true,
	"viewid":           true,
}

// ParseQueryRequest extracts the list contract from URL query parameters.
// filters and sorts are JSON arrays; sort+order is accepted as a single-key shorthand.
// Range checks on page and limit are left to the engine, which knows its configured maximum.
func ParseQueryRequest(queryParams url.Values) (*QueryRequest, error) {
	req := &QueryRequest{}

	// Parse page
	if pageStr := queryParams.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, fmt.Errorf("%w: 'page' must be an integer", ErrInvalidQuery)
		}
		if page < 1 {
			return nil, fmt.Errorf("%w: 'page' must be at least 1", ErrInvalidQuery)
		}
		req.Page = page
	}

	// Parse limit
	if limitStr := queryParams.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("%w: 'limit' must be an integer", ErrInvalidQuery)
		}
		if limit < 0 {
			return nil, fmt.Errorf("%w: 'limit' must be non-negative", ErrInvalidQuery)
		}
		req.Limit = &limit
	}

	req.Search = queryParams.Get("search")

	if props := queryParams.Get("searchProperties"); props != "" {
		for _, id := range strings.Split(props, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if !IsValidIdentifier(id) && !IsSystemField(id) {
				return nil, fmt.Errorf("%w: '%s' is not a valid property id", ErrInvalidQuery, id)
			}
			req.SearchProperties = append(req.SearchProperties, id)
		}
	}

	if raw := queryParams.Get("filters"); raw != "" {
		var filters []domain.Filter
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return nil, fmt.Errorf("%w: 'filters' must be a JSON array of {propertyId, operator, value}", ErrInvalidQuery)
		}
		req.Filters = filters
	}

	if raw := queryParams.Get("sorts"); raw != "" {
		var sorts []domain.Sort
		if err := json.Unmarshal([]byte(raw), &sorts); err != nil {
			return nil, fmt.Errorf("%w: 'sorts' must be a JSON array of {propertyId, direction}", ErrInvalidQuery)
		}
		req.Sorts = sorts
	} else if sortBy := queryParams.Get("sort"); sortBy != "" {
		order := queryParams.Get("order")
		if order == "" {
			order = DefaultOrder
		}
		dir, err := NormalizeDirection(domain.SortDirection(order))
		if err != nil {
			return nil, err
		}
		req.Sorts = []domain.Sort{{PropertyID: sortBy, Direction: dir}}
	}

	req.GroupBy = queryParams.Get("groupBy")
	req.ViewID = queryParams.Get("viewId")

	return req, nil
}

// IsReservedParam checks if a query parameter name belongs to the list contract.
func IsReservedParam(key string) bool {
	return ReservedParams[strings.ToLower(key)]
}
