// internal/storage/metadata_storage.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/domain"
)

// Specific errors for metadata operations
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrDatabaseExists     = errors.New("database name already exists for this user")
	ErrPropertyExists     = errors.New("property id already exists in this database")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DefaultViewName is the name of the view every new database starts with.
const DefaultViewName = "Table"

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// --- User Operations ---

// CreateUser inserts a new user.
func CreateUser(ctx context.Context, db *sql.DB, userID, username, email, passwordHash string) (string, error) {
	sqlStatement := `INSERT INTO users (user_id, username, email, password_hash) VALUES (?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, sqlStatement, userID, username, email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(err.Error(), "users.email") {
			return "", ErrEmailExists
		}
		customLog.Warnf("Storage: Failed to insert user %s: %v", email, err)
		return "", fmt.Errorf("database error during user creation: %w", err)
	}
	return userID, nil
}

// FindUserByEmail retrieves a user by their email address.
func FindUserByEmail(ctx context.Context, db *sql.DB, email string) (*domain.UserMetadata, error) {
	sqlStatement := `SELECT user_id, username, email, password_hash, created_at FROM users WHERE email = ? LIMIT 1`
	return scanUser(db.QueryRowContext(ctx, sqlStatement, email), email)
}

// FindUserByUserId finds a user with user_id
func FindUserByUserId(ctx context.Context, db *sql.DB, userID string) (*domain.UserMetadata, error) {
	sqlStatement := `SELECT user_id, username, email, password_hash, created_at FROM users WHERE user_id = ? LIMIT 1`
	return scanUser(db.QueryRowContext(ctx, sqlStatement, userID), userID)
}

func scanUser(row *sql.Row, key string) (*domain.UserMetadata, error) {
	var user domain.UserMetadata
	err := row.Scan(&user.UserId, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		customLog.Warnf("Storage: Failed to find user %s: %v", key, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return &user, nil
}

// --- Database Operations ---

// CreateDatabase registers a new database for ownerID with the given (already
// prepared) properties and a default "Table" view showing all of them.
func CreateDatabase(ctx context.Context, db *sql.DB, ownerID, name string, properties []domain.Property) (*domain.DatabaseSchema, error) {
	now := time.Now().UTC()
	properties = nonNil(properties)
	for i := range properties {
		properties[i].Order = i
	}
	visible := make([]string, 0, len(properties))
	for _, p := range properties {
		visible = append(visible, p.ID)
	}
	schema := &domain.DatabaseSchema{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Name:       name,
		Properties: properties,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	view := domain.View{
		ID:                uuid.NewString(),
		DatabaseID:        schema.ID,
		Name:              DefaultViewName,
		IsDefault:         true,
		Filters:           []domain.Filter{},
		Sorts:             []domain.Sort{},
		VisibleProperties: visible,
		CreatedAt:         now,
	}

	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("encoding properties: %w", err)
	}

	err = withTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO databases (database_id, owner_id, name, properties, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			schema.ID, ownerID, name, string(propsJSON), now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDatabaseExists
			}
			return fmt.Errorf("database error creating database: %w", err)
		}
		return insertView(ctx, tx, view)
	})
	if err != nil {
		customLog.Warnf("Storage: Failed to create database '%s' for user %s: %v", name, ownerID, err)
		return nil, err
	}

	schema.Views = []domain.View{view}
	customLog.Printf("Storage: Created database %s ('%s') for user %s", schema.ID, name, ownerID)
	return schema, nil
}

// ListDatabases returns the databases owned by ownerID, by name. Views are not loaded.
func ListDatabases(ctx context.Context, db *sql.DB, ownerID string) ([]domain.DatabaseSchema, error) {
	query := `SELECT database_id, owner_id, name, properties, created_at, updated_at FROM databases WHERE owner_id = ? ORDER BY name`
	rows, err := db.QueryContext(ctx, query, ownerID)
	if err != nil {
		customLog.Warnf("Storage: Error listing databases for UserID %s: %v", ownerID, err)
		return nil, fmt.Errorf("database error listing databases: %w", err)
	}
	defer rows.Close()

	dbs := make([]domain.DatabaseSchema, 0)
	for rows.Next() {
		s, err := scanDatabase(rows)
		if err != nil {
			customLog.Warnf("Storage: Error scanning database for UserID %s: %v", ownerID, err)
			return nil, err
		}
		s.Views = []domain.View{}
		dbs = append(dbs, *s)
	}
	if err = rows.Err(); err != nil {
		customLog.Warnf("Storage: Error iterating database list for UserID %s: %v", ownerID, err)
		return nil, fmt.Errorf("failed reading database list: %w", err)
	}
	return dbs, nil
}

// GetDatabaseSchema loads a database with its ordered properties and views.
func GetDatabaseSchema(ctx context.Context, db *sql.DB, databaseID string) (*domain.DatabaseSchema, error) {
	query := `SELECT database_id, owner_id, name, properties, created_at, updated_at FROM databases WHERE database_id = ?`
	schema, err := scanDatabase(db.QueryRowContext(ctx, query, databaseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFound("database", databaseID)
		}
		customLog.Warnf("Storage: Error loading database %s: %v", databaseID, err)
		return nil, err
	}

	views, err := listViews(ctx, db, databaseID)
	if err != nil {
		return nil, err
	}
	schema.Views = views
	return schema, nil
}

// RenameDatabase changes a database's display name.
func RenameDatabase(ctx context.Context, db *sql.DB, databaseID, name string) error {
	result, err := db.ExecContext(ctx, `UPDATE databases SET name = ?, updated_at = ? WHERE database_id = ?`, name, time.Now().UTC(), databaseID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDatabaseExists
		}
		customLog.Warnf("Storage: Error renaming database %s: %v", databaseID, err)
		return fmt.Errorf("database error renaming database: %w", err)
	}
	return expectRow(result, "database", databaseID)
}

// DeleteDatabase removes a database; its views and records go with it.
func DeleteDatabase(ctx context.Context, db *sql.DB, databaseID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM databases WHERE database_id = ?`, databaseID)
	if err != nil {
		customLog.Warnf("Storage: Error deleting database %s: %v", databaseID, err)
		return fmt.Errorf("database error deleting database: %w", err)
	}
	if err := expectRow(result, "database", databaseID); err != nil {
		return err
	}
	customLog.Printf("Storage: Deleted database %s", databaseID)
	return nil
}

// FindDatabaseOwner returns the owner of a database.
func FindDatabaseOwner(ctx context.Context, db *sql.DB, databaseID string) (string, error) {
	var ownerID string
	err := db.QueryRowContext(ctx, `SELECT owner_id FROM databases WHERE database_id = ?`, databaseID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", core.NewNotFound("database", databaseID)
		}
		customLog.Warnf("Storage: Error finding owner of database %s: %v", databaseID, err)
		return "", fmt.Errorf("database error finding database owner: %w", err)
	}
	return ownerID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDatabase(row rowScanner) (*domain.DatabaseSchema, error) {
	var s domain.DatabaseSchema
	var propsJSON string
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &propsJSON, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed processing database row: %w", err)
	}
	if err := json.Unmarshal([]byte(propsJSON), &s.Properties); err != nil {
		return nil, fmt.Errorf("decoding properties of database %s: %w", s.ID, err)
	}
	if s.Properties == nil {
		s.Properties = []domain.Property{}
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

// expectRow turns a zero-row update or delete into a NotFoundError.
func expectRow(result sql.Result, kind, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming %s change: %w", kind, err)
	}
	if rowsAffected == 0 {
		return core.NewNotFound(kind, id)
	}
	return nil
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			customLog.Warnf("Storage: Rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
