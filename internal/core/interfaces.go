package core

import (
	"context"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// RecordQuery is what the engine asks a RecordStore for: the live records of one
// database that satisfy Match, ordered by Order, after skipping Skip and keeping at
// most Limit (Limit < 0 means no limit). Nil Match matches everything; nil Order
// leaves store order.
type RecordQuery struct {
	DatabaseID string
	Match      Predicate
	Order      Comparator
	Skip       int
	Limit      int
}

// RecordStore persists records. Implementations translate RecordQuery into their
// native query form.
type RecordStore interface {
	Find(ctx context.Context, q RecordQuery) ([]domain.Record, error)
	Count(ctx context.Context, q RecordQuery) (int, error)
	// FindOne returns nil, nil when the record does not exist.
	FindOne(ctx context.Context, databaseID, recordID string) (*domain.Record, error)
	Insert(ctx context.Context, rec domain.Record) error
	Update(ctx context.Context, rec domain.Record) error
	Delete(ctx context.Context, databaseID, recordID string) error
}

// SchemaProvider supplies the ordered properties and views of a database.
type SchemaProvider interface {
	GetSchema(ctx context.Context, databaseID string) (*domain.DatabaseSchema, error)
}

// Authorizer decides access to a database. Denials return an error wrapping ErrForbidden.
type Authorizer interface {
	CanRead(ctx context.Context, userID, databaseID string) error
	CanWrite(ctx context.Context, userID, databaseID string) error
}

// RecordLookup is the existence check the validator needs for relation values.
type RecordLookup interface {
	FindOne(ctx context.Context, databaseID, recordID string) (*domain.Record, error)
}
