package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/domain"
)

const recordColumns = `record_id, database_id, properties, created_at, updated_at, created_by, last_edited_by`

// loadLiveRecords returns every non-deleted record of a database in insertion order.
func loadLiveRecords(ctx context.Context, db *sql.DB, databaseID string) ([]domain.Record, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE database_id = ? AND deleted_at IS NULL ORDER BY created_at, record_id`,
		databaseID)
	if err != nil {
		customLog.Warnf("Storage: Error querying records of database %s: %v", databaseID, err)
		return nil, fmt.Errorf("database error querying records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			customLog.Warnf("Storage: Error scanning record of database %s: %v", databaseID, err)
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading records: %w", err)
	}
	return records, nil
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var rec domain.Record
	var raw string
	if err := row.Scan(&rec.ID, &rec.DatabaseID, &raw, &rec.CreatedAt, &rec.UpdatedAt, &rec.CreatedBy, &rec.LastEditedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed processing record row: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &rec.Properties); err != nil {
		return nil, fmt.Errorf("decoding properties of record %s: %w", rec.ID, err)
	}
	if rec.Properties == nil {
		rec.Properties = map[string]any{}
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

// FindRecords applies q to the live records of its database. Filtering, ordering
// and paging happen in memory over the decoded property maps.
func FindRecords(ctx context.Context, db *sql.DB, q core.RecordQuery) ([]domain.Record, error) {
	records, err := loadLiveRecords(ctx, db, q.DatabaseID)
	if err != nil {
		return nil, err
	}
	records = matchRecords(records, q.Match)
	if q.Order != nil {
		core.SortRecords(records, q.Order)
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Skip >= len(records) {
		return []domain.Record{}, nil
	}
	records = records[q.Skip:]
	if q.Limit >= 0 && q.Limit < len(records) {
		records = records[:q.Limit]
	}
	return records, nil
}

// CountRecords counts the live records of q's database matching q.Match.
func CountRecords(ctx context.Context, db *sql.DB, q core.RecordQuery) (int, error) {
	records, err := loadLiveRecords(ctx, db, q.DatabaseID)
	if err != nil {
		return 0, err
	}
	return len(matchRecords(records, q.Match)), nil
}

func matchRecords(records []domain.Record, match core.Predicate) []domain.Record {
	if match == nil {
		return records
	}
	out := records[:0]
	for _, rec := range records {
		if match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// FindRecord returns a live record, or nil when there is none.
func FindRecord(ctx context.Context, db *sql.DB, databaseID, recordID string) (*domain.Record, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE record_id = ? AND database_id = ? AND deleted_at IS NULL`,
		recordID, databaseID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		customLog.Warnf("Storage: Error finding record %s: %v", recordID, err)
		return nil, err
	}
	return rec, nil
}

// InsertRecord stores a new record.
func InsertRecord(ctx context.Context, db *sql.DB, rec domain.Record) error {
	raw, err := json.Marshal(rec.Properties)
	if err != nil {
		return fmt.Errorf("encoding record properties: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DatabaseID, string(raw), rec.CreatedAt, rec.UpdatedAt, rec.CreatedBy, rec.LastEditedBy)
	if err != nil {
		customLog.Warnf("Storage: Failed to insert record %s: %v", rec.ID, err)
		return fmt.Errorf("database error inserting record: %w", err)
	}
	return nil
}

// UpdateRecord overwrites the properties and edit metadata of a live record.
func UpdateRecord(ctx context.Context, db *sql.DB, rec domain.Record) error {
	raw, err := json.Marshal(rec.Properties)
	if err != nil {
		return fmt.Errorf("encoding record properties: %w", err)
	}
	result, err := db.ExecContext(ctx,
		`UPDATE records SET properties = ?, updated_at = ?, last_edited_by = ? WHERE record_id = ? AND database_id = ? AND deleted_at IS NULL`,
		string(raw), rec.UpdatedAt, rec.LastEditedBy, rec.ID, rec.DatabaseID)
	if err != nil {
		customLog.Warnf("Storage: Failed to update record %s: %v", rec.ID, err)
		return fmt.Errorf("database error updating record: %w", err)
	}
	return expectRow(result, "record", rec.ID)
}

// SoftDeleteRecord marks a record deleted; it disappears from every query.
func SoftDeleteRecord(ctx context.Context, db *sql.DB, databaseID, recordID string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE records SET deleted_at = ? WHERE record_id = ? AND database_id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), recordID, databaseID)
	if err != nil {
		customLog.Warnf("Storage: Failed to delete record %s: %v", recordID, err)
		return fmt.Errorf("database error deleting record: %w", err)
	}
	return expectRow(result, "record", recordID)
}
