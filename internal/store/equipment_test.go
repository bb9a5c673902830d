package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sevakendra/mel/internal/db"
	"github.com/sevakendra/mel/internal/model"
)

func createTestEquipment(t *testing.T, database DBTX, name string, total, available int) *model.Equipment {
	t.Helper()
	e, err := CreateEquipment(context.Background(), database, &model.Equipment{
		Name:              name,
		TotalQuantity:     total,
		AvailableQuantity: available,
		RentalDuration:    7,
		DepositAmount:     decimal.RequireFromString("500.50"),
	})
	if err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}
	return e
}

func TestCreateAndGetEquipment(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e := createTestEquipment(t, database, "Wheelchair", 3, 3)
	if e.ID == 0 {
		t.Fatal("expected an id")
	}

	got, err := GetEquipment(ctx, database, e.ID)
	if err != nil {
		t.Fatalf("GetEquipment: %v", err)
	}
	if got.Name != "Wheelchair" || got.TotalQuantity != 3 || got.AvailableQuantity != 3 || got.RentalDuration != 7 {
		t.Errorf("unexpected equipment: %+v", got)
	}
	if !got.DepositAmount.Equal(decimal.RequireFromString("500.5")) {
		t.Errorf("expected deposit 500.5, got %s", got.DepositAmount)
	}
	if got.HasPhoto() {
		t.Error("expected no photo")
	}

	missing, err := GetEquipment(ctx, database, 9999)
	if err != nil {
		t.Fatalf("GetEquipment: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing equipment")
	}
}

func TestCreateEquipmentRejectsAvailableAboveTotal(t *testing.T) {
	database := db.NewTestDB(t)

	_, err := CreateEquipment(context.Background(), database, &model.Equipment{
		Name: "Walker", TotalQuantity: 1, AvailableQuantity: 2, RentalDuration: 7,
	})
	if err == nil {
		t.Fatal("expected check constraint failure")
	}
}

func TestListEquipment(t *testing.T) {
	database := db.NewTestDB(t)

	createTestEquipment(t, database, "Walker", 1, 1)
	createTestEquipment(t, database, "Commode chair", 2, 2)

	list, err := ListEquipment(context.Background(), database)
	if err != nil {
		t.Fatalf("ListEquipment: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 equipment, got %d", len(list))
	}
	if list[0].Name != "Commode chair" {
		t.Errorf("expected list ordered by name, got %q first", list[0].Name)
	}
}

func TestUpdateEquipmentPartial(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e := createTestEquipment(t, database, "Oxygen concentrator", 2, 2)

	name := "Oxygen concentrator 5L"
	duration := 14
	if err := UpdateEquipment(ctx, database, e.ID, model.EquipmentUpdate{Name: &name, RentalDuration: &duration}); err != nil {
		t.Fatalf("UpdateEquipment: %v", err)
	}

	got, _ := GetEquipment(ctx, database, e.ID)
	if got.Name != name || got.RentalDuration != 14 {
		t.Errorf("update not applied: %+v", got)
	}
	if got.TotalQuantity != 2 || got.AvailableQuantity != 2 {
		t.Errorf("untouched fields changed: %+v", got)
	}

	err := UpdateEquipment(ctx, database, 9999, model.EquipmentUpdate{Name: &name})
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestAdjustAvailable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e := createTestEquipment(t, database, "Crutches", 2, 1)

	if err := AdjustAvailable(ctx, database, e.ID, -1); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := AdjustAvailable(ctx, database, e.ID, -1); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Errorf("expected ErrQuantityOutOfRange below zero, got %v", err)
	}

	if err := AdjustAvailable(ctx, database, e.ID, 2); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := AdjustAvailable(ctx, database, e.ID, 1); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Errorf("expected ErrQuantityOutOfRange above total, got %v", err)
	}

	got, _ := GetEquipment(ctx, database, e.ID)
	if got.AvailableQuantity != 2 {
		t.Errorf("expected available 2, got %d", got.AvailableQuantity)
	}

	if err := AdjustAvailable(ctx, database, 9999, 1); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDeleteEquipment(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e := createTestEquipment(t, database, "Hospital bed", 1, 1)
	if err := DeleteEquipment(ctx, database, e.ID); err != nil {
		t.Fatalf("DeleteEquipment: %v", err)
	}
	if err := DeleteEquipment(ctx, database, e.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
	}
}

func TestEquipmentPhoto(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e := createTestEquipment(t, database, "Nebulizer", 1, 1)

	photo, mime, err := GetEquipmentPhoto(ctx, database, e.ID)
	if err != nil {
		t.Fatalf("GetEquipmentPhoto: %v", err)
	}
	if photo != nil || mime != "" {
		t.Errorf("expected no photo, got %d bytes %q", len(photo), mime)
	}

	if err := SetEquipmentPhoto(ctx, database, e.ID, []byte{0xff, 0xd8}, "image/jpeg"); err != nil {
		t.Fatalf("SetEquipmentPhoto: %v", err)
	}
	photo, mime, _ = GetEquipmentPhoto(ctx, database, e.ID)
	if len(photo) != 2 || mime != "image/jpeg" {
		t.Errorf("unexpected photo: %d bytes %q", len(photo), mime)
	}

	got, _ := GetEquipment(ctx, database, e.ID)
	if !got.HasPhoto() {
		t.Error("expected HasPhoto after upload")
	}
}
