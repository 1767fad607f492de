package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// SchemaStore serves database schemas to the engine.
type SchemaStore struct {
	DB *sql.DB
}

func (s *SchemaStore) GetSchema(ctx context.Context, databaseID string) (*domain.DatabaseSchema, error) {
	return GetDatabaseSchema(ctx, s.DB, databaseID)
}

// RecordStore is the SQLite core.RecordStore.
type RecordStore struct {
	DB *sql.DB
}

func (s *RecordStore) Find(ctx context.Context, q core.RecordQuery) ([]domain.Record, error) {
	return FindRecords(ctx, s.DB, q)
}

func (s *RecordStore) Count(ctx context.Context, q core.RecordQuery) (int, error) {
	return CountRecords(ctx, s.DB, q)
}

func (s *RecordStore) FindOne(ctx context.Context, databaseID, recordID string) (*domain.Record, error) {
	return FindRecord(ctx, s.DB, databaseID, recordID)
}

func (s *RecordStore) Insert(ctx context.Context, rec domain.Record) error {
	return InsertRecord(ctx, s.DB, rec)
}

func (s *RecordStore) Update(ctx context.Context, rec domain.Record) error {
	return UpdateRecord(ctx, s.DB, rec)
}

func (s *RecordStore) Delete(ctx context.Context, databaseID, recordID string) error {
	return SoftDeleteRecord(ctx, s.DB, databaseID, recordID)
}

// OwnerAuthorizer grants read and write access to a database's owner only.
type OwnerAuthorizer struct {
	DB *sql.DB
}

func (a *OwnerAuthorizer) CanRead(ctx context.Context, userID, databaseID string) error {
	return a.check(ctx, userID, databaseID)
}

func (a *OwnerAuthorizer) CanWrite(ctx context.Context, userID, databaseID string) error {
	return a.check(ctx, userID, databaseID)
}

func (a *OwnerAuthorizer) check(ctx context.Context, userID, databaseID string) error {
	owner, err := FindDatabaseOwner(ctx, a.DB, databaseID)
	if err != nil {
		return err
	}
	if owner != userID {
		customLog.Warnf("Storage: User %s denied access to database %s", userID, databaseID)
		return fmt.Errorf("%w: database %s", core.ErrForbidden, databaseID)
	}
	return nil
}

var (
	_ core.SchemaProvider = (*SchemaStore)(nil)
	_ core.RecordStore    = (*RecordStore)(nil)
	_ core.Authorizer     = (*OwnerAuthorizer)(nil)
)
