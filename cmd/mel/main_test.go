package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sevakendra/mel/internal/config"
	"github.com/sevakendra/mel/internal/model"
)

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	if err != nil {
		t.Fatalf("generatePassword: %v", err)
	}
	b, _ := generatePassword(16)
	if len(a) != 16 {
		t.Errorf("len = %d, want 16", len(a))
	}
	if a == b {
		t.Error("two passwords should differ")
	}
}

func TestWriteOverdue(t *testing.T) {
	rentals := []model.Rental{{
		ID:            7,
		PatientName:   "Asha",
		MobileNumber:  "9876543210",
		EquipmentName: "Wheelchair",
		ReturnDate:    model.NewDate(2024, time.January, 10),
		Status:        model.RentalStatusRented,
	}}

	var buf bytes.Buffer
	if err := writeOverdue(&buf, rentals, model.NewDate(2024, time.January, 13)); err != nil {
		t.Fatalf("writeOverdue: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	fields := strings.Fields(lines[1])
	want := []string{"7", "Asha", "9876543210", "Wheelchair", "2024-01-10", "3"}
	if strings.Join(fields, " ") != strings.Join(want, " ") {
		t.Errorf("row = %q, want %q", fields, want)
	}
}

func TestOneShotCommandsRejectMemoryStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mel.sqlite3")
	cfg := config.Config{DB: dbPath, Store: config.StoreMemory, Timezone: "UTC"}

	commands := map[string]func(config.Config, []string) error{
		"overdue": overdue,
		"export":  exportRentals,
	}
	for name, run := range commands {
		err := run(cfg, nil)
		if err == nil || !strings.Contains(err.Error(), config.StoreMemory) {
			t.Errorf("%s: expected memory store error, got %v", name, err)
		}
	}

	// Nothing was opened or created.
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Errorf("database file should not exist, stat err = %v", err)
	}
}
