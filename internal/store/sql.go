package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/model"
)

// SQL adapts the query functions to the ledger's record store.
type SQL struct {
	db   DBTX
	pool *sql.DB
}

// NewSQL returns a ledger store backed by db.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db, pool: db}
}

var (
	_ ledger.Store      = (*SQL)(nil)
	_ ledger.Transactor = (*SQL)(nil)
)

// InTx runs fn against a store bound to a single transaction. The
// transaction commits only when fn returns nil.
func (s *SQL) InTx(ctx context.Context, fn func(ledger.Store) error) error {
	if s.pool == nil {
		// Already inside a transaction.
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQL{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQL) InsertEquipment(ctx context.Context, e *model.Equipment) (*model.Equipment, error) {
	return CreateEquipment(ctx, s.db, e)
}

func (s *SQL) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	return GetEquipment(ctx, s.db, id)
}

func (s *SQL) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	return ListEquipment(ctx, s.db)
}

func (s *SQL) UpdateEquipment(ctx context.Context, id int64, u model.EquipmentUpdate) error {
	return UpdateEquipment(ctx, s.db, id, u)
}

func (s *SQL) AdjustAvailable(ctx context.Context, id int64, delta int) error {
	return AdjustAvailable(ctx, s.db, id, delta)
}

func (s *SQL) DeleteEquipment(ctx context.Context, id int64) error {
	return DeleteEquipment(ctx, s.db, id)
}

func (s *SQL) InsertRental(ctx context.Context, r *model.Rental) (*model.Rental, error) {
	return CreateRental(ctx, s.db, r)
}

func (s *SQL) GetRental(ctx context.Context, id int64) (*model.Rental, error) {
	return GetRental(ctx, s.db, id)
}

func (s *SQL) ListRentals(ctx context.Context, f model.RentalFilter) ([]model.Rental, error) {
	return ListRentals(ctx, s.db, f)
}

func (s *SQL) MarkRentalReturned(ctx context.Context, id int64, at time.Time) (bool, error) {
	return MarkRentalReturned(ctx, s.db, id, at)
}
