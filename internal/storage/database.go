// internal/storage/database.go
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/Annany2002/nebula-workspace/config"
	"github.com/Annany2002/nebula-workspace/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

var schemaStatements = []struct {
	name string
	sql  string
}{
	{"users", `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY NOT NULL,
		username TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`},
	{"databases", `
	CREATE TABLE IF NOT EXISTS databases (
		database_id TEXT PRIMARY KEY NOT NULL,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		properties TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (owner_id, name),
		FOREIGN KEY (owner_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`},
	{"views", `
	CREATE TABLE IF NOT EXISTS views (
		view_id TEXT PRIMARY KEY NOT NULL,
		database_id TEXT NOT NULL,
		name TEXT NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0,
		filters TEXT NOT NULL DEFAULT '[]',
		sorts TEXT NOT NULL DEFAULT '[]',
		visible_properties TEXT NOT NULL DEFAULT '[]',
		group_by TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (database_id) REFERENCES databases(database_id) ON DELETE CASCADE
	);`},
	{"records", `
	CREATE TABLE IF NOT EXISTS records (
		record_id TEXT PRIMARY KEY NOT NULL,
		database_id TEXT NOT NULL,
		properties TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		created_by TEXT NOT NULL,
		last_edited_by TEXT NOT NULL,
		deleted_at TIMESTAMP NULL,
		FOREIGN KEY (database_id) REFERENCES databases(database_id) ON DELETE CASCADE
	);`},
	{"records index", `CREATE INDEX IF NOT EXISTS idx_records_live ON records (database_id, deleted_at);`},
}

// ConnectDB initializes the connection pool for the workspace SQLite database
// and ensures the required tables ('users', 'databases', 'views', 'records') exist.
func ConnectDB(cfg *config.Config) (*sql.DB, error) {
	dbPath := filepath.Join(cfg.DataDir, cfg.DataFile)
	customLog.Printf("Storage: Initializing workspace database: %s", dbPath)

	// Ensure the data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		customLog.Warnf("Storage: Error creating data directory '%s': %v", cfg.DataDir, err)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// foreign keys for the cascades, WAL and a 5s busy timeout for concurrent writers
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		customLog.Warnf("Storage: Failed to open workspace db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to open workspace db: %w", err)
	}

	// Verify connection is working
	if err = db.Ping(); err != nil {
		db.Close()
		customLog.Warnf("Storage: Failed to ping workspace db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to connect to workspace db: %w", err)
	}
	customLog.Println("Storage: Workspace database connection successful.")

	for _, stmt := range schemaStatements {
		if _, err = db.Exec(stmt.sql); err != nil {
			db.Close()
			customLog.Warnf("Storage: Failed to create %s: %v", stmt.name, err)
			return nil, fmt.Errorf("failed to ensure %s: %w", stmt.name, err)
		}
	}
	customLog.Println("Storage: Tables ensured.")

	return db, nil
}
