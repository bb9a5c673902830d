// Package config reads service settings from the environment. Values in a
// .env file are loaded first and never override variables already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Prefix is prepended to every variable name, e.g. MEL_DB.
const Prefix = "MEL"

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds the service settings.
type Config struct {
	DB        string `envconfig:"DB" default:"mel.sqlite3"`
	Addr      string `envconfig:"ADDR" default:":8080"`
	AdminUser string `envconfig:"ADMIN_USER" default:"Admin"`
	Log       string `envconfig:"LOG"`

	// Store selects where equipment and rentals live. Users and tokens are
	// always kept in the SQLite database.
	Store        string `envconfig:"STORE" default:"sqlite"`
	Timezone     string `envconfig:"TIMEZONE" default:"Asia/Kolkata"`
	AtomicWrites bool   `envconfig:"ATOMIC_WRITES" default:"true"`

	// OverdueSchedule is a cron spec with a seconds field. Empty disables
	// the daily overdue report.
	OverdueSchedule string `envconfig:"OVERDUE_SCHEDULE" default:"0 0 7 * * *"`

	LoginRate  float64 `envconfig:"LOGIN_RATE" default:"1"`
	LoginBurst int     `envconfig:"LOGIN_BURST" default:"5"`
}

// Load reads the given .env files (default ".env"), then the environment.
// Missing files are skipped.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, fmt.Errorf("processing environment: %w", err)
	}
	return c, c.Validate()
}

// CronParser parses OverdueSchedule.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks values envconfig cannot.
func (c Config) Validate() error {
	if c.Store != StoreSQLite && c.Store != StoreMemory {
		return fmt.Errorf("%s_STORE must be %q or %q, got %q", Prefix, StoreSQLite, StoreMemory, c.Store)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.OverdueSchedule != "" {
		if _, err := CronParser.Parse(c.OverdueSchedule); err != nil {
			return fmt.Errorf("%s_OVERDUE_SCHEDULE: %w", Prefix, err)
		}
	}
	if c.LoginRate < 0 {
		return fmt.Errorf("%s_LOGIN_RATE must not be negative", Prefix)
	}
	return nil
}

// Location returns the zone that decides the library's calendar date.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s_TIMEZONE: %w", Prefix, err)
	}
	return loc, nil
}
