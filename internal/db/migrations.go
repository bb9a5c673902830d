package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equipment (
    id                 INTEGER PRIMARY KEY,
    name               TEXT NOT NULL,
    photo              BLOB,
    photo_mime         TEXT,
    total_quantity     INTEGER NOT NULL CHECK (total_quantity >= 0),
    available_quantity INTEGER NOT NULL CHECK (available_quantity >= 0),
    rental_duration    INTEGER NOT NULL CHECK (rental_duration BETWEEN 1 AND 3650),
    deposit_amount     TEXT NOT NULL DEFAULT '0',
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (available_quantity <= total_quantity)
);

CREATE TABLE IF NOT EXISTS rentals (
    id             INTEGER PRIMARY KEY,
    equipment_id   INTEGER NOT NULL,
    equipment_name TEXT NOT NULL,
    patient_name   TEXT NOT NULL,
    mobile_number  TEXT NOT NULL,
    pickup_date    TEXT NOT NULL,
    return_date    TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'rented' CHECK (status IN ('rented', 'returned')),
    created_by     INTEGER,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    returned_at    DATETIME,
    CHECK (return_date > pickup_date)
);

CREATE INDEX IF NOT EXISTS idx_rentals_status ON rentals(status);
CREATE INDEX IF NOT EXISTS idx_rentals_equipment ON rentals(equipment_id);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: rentals listed newest first on every dashboard.
	`CREATE INDEX IF NOT EXISTS idx_rentals_created ON rentals(created_at DESC, id DESC)`,
	// Migration 2: per-staff rental counts on the users screen.
	`CREATE INDEX IF NOT EXISTS idx_rentals_created_by ON rentals(created_by)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Migrate ensures the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
