package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if needed) the ledger database at path with WAL
// journaling and a busy timeout. The ledger assumes a single writer process.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping ledger db: %w", err)
	}

	if _, err := db.Exec(`PRAGMA synchronous=NORMAL; PRAGMA temp_store=MEMORY;`); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("configure ledger db: %w", err)
	}

	return db, nil
}

// Migrate creates the ledger schema when missing.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS uptime_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			instance_id TEXT NOT NULL,
			date TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			stop_time DATETIME,
			duration_seconds INTEGER,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS alert_configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			threshold_hours INTEGER NOT NULL,
			reminder_interval_hours INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			destination TEXT,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS alert_firings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			instance_id TEXT NOT NULL,
			config_id INTEGER NOT NULL,
			triggered_at DATETIME NOT NULL,
			uptime_hours REAL NOT NULL,
			delivered INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY(config_id) REFERENCES alert_configs(id)
		);`,
		`CREATE TABLE IF NOT EXISTS instance_metadata (
			instance_id TEXT PRIMARY KEY,
			instance_type TEXT,
			region TEXT,
			launch_time DATETIME,
			tags_json TEXT NOT NULL DEFAULT '{}',
			last_updated DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS command_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor TEXT NOT NULL,
			command TEXT NOT NULL,
			instance_id TEXT,
			success INTEGER NOT NULL,
			error_message TEXT,
			executed_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_instance ON uptime_sessions(instance_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_date ON uptime_sessions(date);`,
		`CREATE INDEX IF NOT EXISTS idx_firings_instance ON alert_firings(instance_id, config_id, triggered_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_cmdlog_executed ON command_log(executed_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}

	return nil
}
