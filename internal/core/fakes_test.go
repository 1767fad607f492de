package core

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// memoryStore is an in-memory SchemaProvider, RecordStore and Authorizer for engine tests.
type memoryStore struct {
	mu      sync.Mutex
	schemas map[string]*domain.DatabaseSchema
	records map[string][]domain.Record
	owners  map[string]string

	findCalls int
	failFind  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		schemas: map[string]*domain.DatabaseSchema{},
		records: map[string][]domain.Record{},
		owners:  map[string]string{},
	}
}

func (m *memoryStore) addSchema(owner string, s *domain.DatabaseSchema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[s.ID] = s
	m.owners[s.ID] = owner
}

func (m *memoryStore) addRecords(recs ...domain.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.records[r.DatabaseID] = append(m.records[r.DatabaseID], r)
	}
}

func (m *memoryStore) GetSchema(_ context.Context, databaseID string) (*domain.DatabaseSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schemas[databaseID]
	if !ok {
		return nil, NewNotFound("database", databaseID)
	}
	return s, nil
}

func (m *memoryStore) CanRead(_ context.Context, userID, databaseID string) error {
	return m.check(userID, databaseID)
}

func (m *memoryStore) CanWrite(_ context.Context, userID, databaseID string) error {
	return m.check(userID, databaseID)
}

func (m *memoryStore) check(userID, databaseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[databaseID]
	if !ok {
		return NewNotFound("database", databaseID)
	}
	if owner != userID {
		return ErrForbidden
	}
	return nil
}

func (m *memoryStore) matching(q RecordQuery) []domain.Record {
	var out []domain.Record
	for _, r := range m.records[q.DatabaseID] {
		if q.Match == nil || q.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memoryStore) Find(_ context.Context, q RecordQuery) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.failFind != nil {
		return nil, m.failFind
	}
	out := m.matching(q)
	if q.Order != nil {
		SortRecords(out, q.Order)
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Skip >= len(out) {
		return []domain.Record{}, nil
	}
	out = out[q.Skip:]
	if q.Limit >= 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memoryStore) Count(_ context.Context, q RecordQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(q)), nil
}

func (m *memoryStore) FindOne(_ context.Context, databaseID, recordID string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records[databaseID] {
		if r.ID == recordID {
			cp := r
			cp.Properties = maps.Clone(r.Properties)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) Insert(_ context.Context, rec domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.DatabaseID] = append(m.records[rec.DatabaseID], rec)
	return nil
}

func (m *memoryStore) Update(_ context.Context, rec domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.records[rec.DatabaseID]
	i := slices.IndexFunc(recs, func(r domain.Record) bool { return r.ID == rec.ID })
	if i < 0 {
		return NewNotFound("record", rec.ID)
	}
	recs[i] = rec
	return nil
}

func (m *memoryStore) Delete(_ context.Context, databaseID, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.records[databaseID]
	i := slices.IndexFunc(recs, func(r domain.Record) bool { return r.ID == recordID })
	if i < 0 {
		return NewNotFound("record", recordID)
	}
	m.records[databaseID] = slices.Delete(recs, i, i+1)
	return nil
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// tasksSchema is a database exercising most property types.
func tasksSchema() *domain.DatabaseSchema {
	return &domain.DatabaseSchema{
		ID:      "db-tasks",
		OwnerID: "u1",
		Name:    "Tasks",
		Properties: []domain.Property{
			{ID: "title", Name: "Title", Type: domain.PropertyTypeText, Required: true},
			{ID: "status", Name: "Status", Type: domain.PropertyTypeSelect, Options: []domain.SelectOption{
				{ID: "todo", Name: "To Do"}, {ID: "doing", Name: "In Progress"}, {ID: "done", Name: "Done"},
			}},
			{ID: "tags", Name: "Tags", Type: domain.PropertyTypeMultiSelect, Options: []domain.SelectOption{
				{ID: "urgent", Name: "Urgent"}, {ID: "home", Name: "Home"}, {ID: "work", Name: "Work"},
			}},
			{ID: "points", Name: "Points", Type: domain.PropertyTypeNumber},
			{ID: "due", Name: "Due", Type: domain.PropertyTypeDate},
			{ID: "flag", Name: "Flag", Type: domain.PropertyTypeCheckbox},
			{ID: "contact", Name: "Contact", Type: domain.PropertyTypeEmail},
			{ID: "link", Name: "Link", Type: domain.PropertyTypeURL},
		},
		Views: []domain.View{
			{ID: "v-default", DatabaseID: "db-tasks", Name: "Table", IsDefault: true},
			{ID: "v-done", DatabaseID: "db-tasks", Name: "Done", Position: 1,
				Filters: []domain.Filter{{PropertyID: "status", Operator: "equals", Value: "done"}},
				Sorts:   []domain.Sort{{PropertyID: "points", Direction: domain.SortDesc}},
			},
		},
	}
}

func newRec(id string, offset int, props map[string]any) domain.Record {
	return domain.Record{
		ID:         id,
		DatabaseID: "db-tasks",
		Properties: props,
		CreatedAt:  baseTime.Add(time.Duration(offset) * time.Minute),
		UpdatedAt:  baseTime.Add(time.Duration(offset) * time.Minute),
		CreatedBy:  "u1",
	}
}

func recordIDs(recs []domain.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}
