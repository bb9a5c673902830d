package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/model"
)

func TestEquipmentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	e, err := s.InsertEquipment(ctx, &model.Equipment{Name: "Walker", TotalQuantity: 2, AvailableQuantity: 2, RentalDuration: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.ID)

	got, err := s.GetEquipment(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Walker", got.Name)

	// Returned records are copies.
	got.Name = "changed"
	again, _ := s.GetEquipment(ctx, e.ID)
	assert.Equal(t, "Walker", again.Name)

	total := 1
	assert.ErrorIs(t, s.UpdateEquipment(ctx, e.ID, model.EquipmentUpdate{TotalQuantity: &total}), model.ErrQuantityOutOfRange)

	name := "Folding walker"
	require.NoError(t, s.UpdateEquipment(ctx, e.ID, model.EquipmentUpdate{Name: &name}))
	again, _ = s.GetEquipment(ctx, e.ID)
	assert.Equal(t, name, again.Name)

	require.NoError(t, s.DeleteEquipment(ctx, e.ID))
	assert.ErrorIs(t, s.DeleteEquipment(ctx, e.ID), model.ErrRecordNotFound)
	assert.ErrorIs(t, s.AdjustAvailable(ctx, e.ID, 1), model.ErrRecordNotFound)

	missing, err := s.GetEquipment(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAdjustAvailableBounds(t *testing.T) {
	ctx := context.Background()
	s := New()

	e, _ := s.InsertEquipment(ctx, &model.Equipment{Name: "Crutches", TotalQuantity: 1, AvailableQuantity: 1, RentalDuration: 3})

	require.NoError(t, s.AdjustAvailable(ctx, e.ID, -1))
	assert.ErrorIs(t, s.AdjustAvailable(ctx, e.ID, -1), model.ErrQuantityOutOfRange)
	require.NoError(t, s.AdjustAvailable(ctx, e.ID, 1))
	assert.ErrorIs(t, s.AdjustAvailable(ctx, e.ID, 1), model.ErrQuantityOutOfRange)
}

func TestAdjustAvailableConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()

	e, _ := s.InsertEquipment(ctx, &model.Equipment{Name: "Wheelchair", TotalQuantity: 10, AvailableQuantity: 10, RentalDuration: 7})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.AdjustAvailable(ctx, e.ID, -1) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	got, _ := s.GetEquipment(ctx, e.ID)
	assert.Equal(t, 0, got.AvailableQuantity)
}

func TestListRentalsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	pickup := model.NewDate(2024, time.January, 1)
	for _, name := range []string{"A", "B", "C"} {
		_, err := s.InsertRental(ctx, &model.Rental{
			EquipmentID: 1, PatientName: name, MobileNumber: "9876543210",
			PickupDate: pickup, ReturnDate: pickup.AddDays(7),
		})
		require.NoError(t, err)
	}

	changed, err := s.MarkRentalReturned(ctx, 2, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.MarkRentalReturned(ctx, 2, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	all, err := s.ListRentals(ctx, model.RentalFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{all[0].PatientName, all[1].PatientName, all[2].PatientName})

	rented, _ := s.ListRentals(ctx, model.RentalFilter{Status: model.RentalStatusRented})
	assert.Len(t, rented, 2)

	r, _ := s.GetRental(ctx, 2)
	require.NotNil(t, r.ReturnedAt)
	assert.Equal(t, model.RentalStatusReturned, r.Status)
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	e, _ := s.InsertEquipment(ctx, &model.Equipment{Name: "Walker", TotalQuantity: 1, AvailableQuantity: 1, RentalDuration: 7})
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx ledger.Store) error {
		_, err := tx.InsertRental(ctx, &model.Rental{EquipmentID: e.ID, PatientName: "A", MobileNumber: "9876543210"})
		require.NoError(t, err)
		require.NoError(t, tx.AdjustAvailable(ctx, e.ID, -1))
		return boom
	})
	require.ErrorIs(t, err, boom)

	rentals, _ := s.ListRentals(ctx, model.RentalFilter{})
	assert.Empty(t, rentals)
	got, _ := s.GetEquipment(ctx, e.ID)
	assert.Equal(t, 1, got.AvailableQuantity)

	require.NoError(t, s.InTx(ctx, func(tx ledger.Store) error {
		return tx.AdjustAvailable(ctx, e.ID, -1)
	}))
	got, _ = s.GetEquipment(ctx, e.ID)
	assert.Equal(t, 0, got.AvailableQuantity)
}

func TestReturnedAtIsCopiedOut(t *testing.T) {
	ctx := context.Background()
	s := New()

	r, err := s.InsertRental(ctx, &model.Rental{EquipmentID: 1, PatientName: "A", MobileNumber: "9000000001"})
	require.NoError(t, err)
	at := time.Date(2024, time.January, 11, 10, 0, 0, 0, time.UTC)
	ok, err := s.MarkRentalReturned(ctx, r.ID, at)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.GetRental(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReturnedAt)
	*got.ReturnedAt = at.AddDate(1, 0, 0)

	list, err := s.ListRentals(ctx, model.RentalFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, at, *list[0].ReturnedAt)
	*list[0].ReturnedAt = at.AddDate(2, 0, 0)

	again, err := s.GetRental(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, at, *again.ReturnedAt)
}
