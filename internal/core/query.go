package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Annany2002/nebula-workspace/internal/domain"
	"github.com/Annany2002/nebula-workspace/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// UngroupedKey is the group of records with no value for the groupBy property.
const UngroupedKey = "Ungrouped"

// QueryRequest is the caller-facing list contract. Nil Filters/Sorts mean "not
// given" and fall back to the view; a non-nil empty slice overrides the view. A nil
// Limit means the default page size.
type QueryRequest struct {
	Page             int             `json:"page,omitempty"`
	Limit            *int            `json:"limit,omitempty"`
	Search           string          `json:"search,omitempty"`
	SearchProperties []string        `json:"searchProperties,omitempty"`
	Filters          []domain.Filter `json:"filters,omitempty"`
	Sorts            []domain.Sort   `json:"sorts,omitempty"`
	GroupBy          string          `json:"groupBy,omitempty"`
	ViewID           string          `json:"viewId,omitempty"`
}

// Pagination describes the returned page.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Aggregations holds the grouped, unpaginated result when grouping was requested.
type Aggregations struct {
	GroupBy     string                     `json:"groupBy"`
	GroupedData map[string][]domain.Record `json:"groupedData"`
}

// QueryResult is the shaped response of ListRecords.
type QueryResult struct {
	Records      []domain.Record `json:"records"`
	Pagination   Pagination      `json:"pagination"`
	Aggregations *Aggregations   `json:"aggregations,omitempty"`
}

// Engine is the single entry point for listing, validating and writing records.
// It holds no mutable state; collaborators are injected at construction.
type Engine struct {
	registry  *Registry
	compiler  *Compiler
	sorter    *SortBuilder
	validator *Validator

	schemas SchemaProvider
	records RecordStore
	authz   Authorizer

	defaultLimit int
	maxLimit     int
	now          func() time.Time
	newID        func() string
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithPageLimits sets the default and maximum page size.
func WithPageLimits(defaultLimit, maxLimit int) EngineOption {
	return func(e *Engine) {
		e.defaultLimit = defaultLimit
		e.maxLimit = maxLimit
	}
}

// WithClock replaces the time source used for record timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the record id generator.
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine wires the engine to its collaborators.
func NewEngine(registry *Registry, schemas SchemaProvider, records RecordStore, authz Authorizer, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:     registry,
		compiler:     NewCompiler(registry),
		sorter:       NewSortBuilder(registry),
		validator:    NewValidator(registry, records),
		schemas:      schemas,
		records:      records,
		authz:        authz,
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ListRecords runs a query against one database and shapes the paginated,
// optionally grouped result. Read access is checked before anything is compiled.
func (e *Engine) ListRecords(ctx context.Context, userID, databaseID string, req QueryRequest) (*QueryResult, error) {
	log := logger.FromContext(ctx, customLog)

	if err := e.authz.CanRead(ctx, userID, databaseID); err != nil {
		return nil, err
	}
	schema, err := e.schemas.GetSchema(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	page, limit, err := e.pageAndLimit(req)
	if err != nil {
		return nil, err
	}

	filters, sorts, groupBy := req.Filters, req.Sorts, req.GroupBy
	if req.ViewID != "" {
		view, ok := schema.View(req.ViewID)
		if !ok {
			return nil, NewNotFound("view", req.ViewID)
		}
		if filters == nil {
			filters = view.Filters
		}
		if sorts == nil {
			sorts = view.Sorts
		}
		if groupBy == "" {
			groupBy = view.GroupBy
		}
	}

	match, err := e.compiler.Compile(schema, filters)
	if err != nil {
		return nil, err
	}
	search, err := e.compiler.CompileSearch(schema, req.Search, req.SearchProperties)
	if err != nil {
		return nil, err
	}
	match = And(match, search)

	order, err := e.sorter.Build(schema, sorts)
	if err != nil {
		return nil, err
	}

	var group field
	if groupBy != "" {
		if group, err = resolveField(schema, groupBy); err != nil {
			return nil, err
		}
	}

	q := RecordQuery{DatabaseID: databaseID, Match: match, Order: order}
	total, err := e.records.Count(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}

	result := &QueryResult{
		Records: []domain.Record{},
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages(total, limit),
		},
	}

	// pages whose offset would overflow are past the end by definition
	if limit > 0 && page-1 <= math.MaxInt/limit {
		q.Skip, q.Limit = (page-1)*limit, limit
		recs, err := e.records.Find(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("finding records: %w", err)
		}
		result.Records = recs
	}

	if groupBy != "" {
		q.Skip, q.Limit = 0, -1
		all, err := e.records.Find(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("finding records for grouping: %w", err)
		}
		result.Aggregations = &Aggregations{GroupBy: groupBy, GroupedData: e.groupRecords(group, all)}
	}

	log.WithField("databaseID", databaseID).Debugf("Engine: listed %d of %d records (page %d, limit %d, filters %d, grouped %t)",
		len(result.Records), total, page, limit, len(filters), groupBy != "")
	return result, nil
}

func (e *Engine) pageAndLimit(req QueryRequest) (int, int, error) {
	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be at least 1", ErrInvalidQuery)
	}
	limit := e.defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit < 0 {
		return 0, 0, fmt.Errorf("%w: limit must be non-negative", ErrInvalidQuery)
	}
	if limit > e.maxLimit {
		return 0, 0, fmt.Errorf("%w: limit maximum is %d", ErrInvalidQuery, e.maxLimit)
	}
	return page, limit, nil
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// groupRecords partitions records by the stringified value of f, keeping their order.
func (e *Engine) groupRecords(f field, records []domain.Record) map[string][]domain.Record {
	groups := make(map[string][]domain.Record)
	for _, rec := range records {
		key := UngroupedKey
		if raw, ok := f.raw(rec); ok && !IsEmptyRaw(raw) {
			if v, err := e.registry.Coerce(f.typ, raw); err == nil {
				key = Stringify(v)
			} else {
				key = fmt.Sprint(raw)
			}
		}
		groups[key] = append(groups[key], rec)
	}
	return groups
}
