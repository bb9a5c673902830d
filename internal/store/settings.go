package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

const jwtSecretKey = "jwt_secret"

// GetSetting returns the value stored under key and whether it exists.
func GetSetting(ctx context.Context, db DBTX, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, true, nil
}

// EnsureSetting stores candidate under key unless a value is already there,
// and returns whichever value won. Concurrent callers all see the same value.
func EnsureSetting(ctx context.Context, db DBTX, key, candidate string) (string, error) {
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, candidate,
	); err != nil {
		return "", fmt.Errorf("storing setting %s: %w", key, err)
	}
	value, ok, err := GetSetting(ctx, db, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("setting %s vanished after insert", key)
	}
	return value, nil
}

// GetJWTSecret returns the token signing secret, generating a random one on
// first use.
func GetJWTSecret(ctx context.Context, db DBTX) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return EnsureSetting(ctx, db, jwtSecretKey, hex.EncodeToString(buf))
}
