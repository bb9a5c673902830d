package ledger

import (
	"context"
	"time"

	"github.com/sevakendra/mel/internal/model"
)

// EquipmentStore is the equipment collection of the record store.
// Getters return (nil, nil) when the record does not exist.
type EquipmentStore interface {
	InsertEquipment(ctx context.Context, e *model.Equipment) (*model.Equipment, error)
	GetEquipment(ctx context.Context, id int64) (*model.Equipment, error)
	ListEquipment(ctx context.Context) ([]model.Equipment, error)
	UpdateEquipment(ctx context.Context, id int64, u model.EquipmentUpdate) error
	// AdjustAvailable adds delta to available_quantity. It returns
	// model.ErrQuantityOutOfRange instead of breaking 0 <= available <= total
	// and model.ErrRecordNotFound when the equipment is gone.
	AdjustAvailable(ctx context.Context, id int64, delta int) error
	DeleteEquipment(ctx context.Context, id int64) error
}

// RentalStore is the rental collection of the record store.
type RentalStore interface {
	InsertRental(ctx context.Context, r *model.Rental) (*model.Rental, error)
	GetRental(ctx context.Context, id int64) (*model.Rental, error)
	// ListRentals returns matching rentals newest first.
	ListRentals(ctx context.Context, f model.RentalFilter) ([]model.Rental, error)
	// MarkRentalReturned flips a rented rental to returned and reports whether
	// this call made the change.
	MarkRentalReturned(ctx context.Context, id int64, at time.Time) (bool, error)
}

// Store is the record store the ledger treats as the source of truth.
type Store interface {
	EquipmentStore
	RentalStore
}

// Transactor is implemented by stores that can run several writes atomically.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}
