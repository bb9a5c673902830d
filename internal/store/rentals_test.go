package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sevakendra/mel/internal/db"
	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/model"
)

func createTestRental(t *testing.T, database DBTX, e *model.Equipment, patient string, pickup model.Date) *model.Rental {
	t.Helper()
	r, err := CreateRental(context.Background(), database, &model.Rental{
		EquipmentID:   e.ID,
		EquipmentName: e.Name,
		PatientName:   patient,
		MobileNumber:  "9876543210",
		PickupDate:    pickup,
		ReturnDate:    pickup.AddDays(e.RentalDuration),
	})
	if err != nil {
		t.Fatalf("CreateRental: %v", err)
	}
	return r
}

func TestCreateAndGetRental(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e := createTestEquipment(t, database, "Wheelchair", 1, 1)
	pickup := model.NewDate(2024, time.January, 3)
	r := createTestRental(t, database, e, "Asha", pickup)

	got, err := GetRental(ctx, database, r.ID)
	if err != nil {
		t.Fatalf("GetRental: %v", err)
	}
	if got.Status != model.RentalStatusRented {
		t.Errorf("expected status rented, got %q", got.Status)
	}
	if !got.PickupDate.Equal(pickup) {
		t.Errorf("pickup date changed: %s", got.PickupDate)
	}
	if got.ReturnDate.String() != "2024-01-10" {
		t.Errorf("expected return date 2024-01-10, got %s", got.ReturnDate)
	}
	if got.EquipmentName != "Wheelchair" {
		t.Errorf("expected equipment name copied, got %q", got.EquipmentName)
	}
	if got.ReturnedAt != nil {
		t.Error("expected no returned_at")
	}

	missing, err := GetRental(ctx, database, 9999)
	if err != nil {
		t.Fatalf("GetRental: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing rental")
	}
}

func TestRentalKeepsEquipmentNameAfterDelete(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e := createTestEquipment(t, database, "Walker", 1, 1)
	r := createTestRental(t, database, e, "Ravi", model.NewDate(2024, time.March, 1))

	if err := DeleteEquipment(ctx, database, e.ID); err != nil {
		t.Fatalf("DeleteEquipment: %v", err)
	}
	got, _ := GetRental(ctx, database, r.ID)
	if got == nil || got.EquipmentName != "Walker" {
		t.Errorf("expected rental to survive with name, got %+v", got)
	}
}

func TestListRentalsFilterAndOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	chair := createTestEquipment(t, database, "Wheelchair", 5, 5)
	bed := createTestEquipment(t, database, "Hospital bed", 5, 5)
	pickup := model.NewDate(2024, time.February, 1)

	first := createTestRental(t, database, chair, "A", pickup)
	second := createTestRental(t, database, bed, "B", pickup)
	third := createTestRental(t, database, chair, "C", pickup)

	if _, err := MarkRentalReturned(ctx, database, second.ID, time.Now()); err != nil {
		t.Fatalf("MarkRentalReturned: %v", err)
	}

	all, err := ListRentals(ctx, database, model.RentalFilter{})
	if err != nil {
		t.Fatalf("ListRentals: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rentals, got %d", len(all))
	}
	if all[0].ID != third.ID || all[2].ID != first.ID {
		t.Errorf("expected newest first, got ids %d, %d, %d", all[0].ID, all[1].ID, all[2].ID)
	}

	rented, _ := ListRentals(ctx, database, model.RentalFilter{Status: model.RentalStatusRented})
	if len(rented) != 2 {
		t.Errorf("expected 2 rented, got %d", len(rented))
	}

	chairs, _ := ListRentals(ctx, database, model.RentalFilter{EquipmentID: chair.ID})
	if len(chairs) != 2 {
		t.Errorf("expected 2 wheelchair rentals, got %d", len(chairs))
	}

	returnedBeds, _ := ListRentals(ctx, database, model.RentalFilter{Status: model.RentalStatusReturned, EquipmentID: bed.ID})
	if len(returnedBeds) != 1 || returnedBeds[0].ID != second.ID {
		t.Errorf("expected the returned bed rental, got %+v", returnedBeds)
	}
}

func TestMarkRentalReturnedOnce(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	e := createTestEquipment(t, database, "Crutches", 1, 1)
	r := createTestRental(t, database, e, "Meera", model.NewDate(2024, time.May, 5))

	changed, err := MarkRentalReturned(ctx, database, r.ID, time.Now())
	if err != nil {
		t.Fatalf("MarkRentalReturned: %v", err)
	}
	if !changed {
		t.Error("expected first return to change the rental")
	}

	changed, err = MarkRentalReturned(ctx, database, r.ID, time.Now())
	if err != nil {
		t.Fatalf("MarkRentalReturned: %v", err)
	}
	if changed {
		t.Error("expected second return to be a no-op")
	}

	got, _ := GetRental(ctx, database, r.ID)
	if got.Status != model.RentalStatusReturned || got.ReturnedAt == nil {
		t.Errorf("expected returned with timestamp, got %+v", got)
	}
}

func TestSQLInTxRollsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := NewSQL(database)

	e := createTestEquipment(t, database, "Wheelchair", 1, 1)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.InsertRental(ctx, &model.Rental{
			EquipmentID:   e.ID,
			EquipmentName: e.Name,
			PatientName:   "X",
			MobileNumber:  "9876543210",
			PickupDate:    model.NewDate(2024, time.January, 1),
			ReturnDate:    model.NewDate(2024, time.January, 8),
		}); err != nil {
			return err
		}
		if err := tx.AdjustAvailable(ctx, e.ID, -1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	rentals, _ := s.ListRentals(ctx, model.RentalFilter{})
	if len(rentals) != 0 {
		t.Errorf("expected rollback to discard rental, got %d", len(rentals))
	}
	got, _ := s.GetEquipment(ctx, e.ID)
	if got.AvailableQuantity != 1 {
		t.Errorf("expected rollback to restore availability, got %d", got.AvailableQuantity)
	}
}
