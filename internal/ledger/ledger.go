// Package ledger keeps equipment availability in step with open rentals and
// answers overdue queries.
//
// Creating and returning a rental each take two writes: the rental record and
// the equipment's available_quantity. When the store implements Transactor and
// atomic writes are enabled both writes commit together. Otherwise they run as
// two independent calls and a failure between them leaves availability out of
// step with the rentals. That drift is logged, never compensated.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sevakendra/mel/internal/model"
)

// maxYear is the last year a stored YYYY-MM-DD date can hold.
const maxYear = 9999

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the time source used for "today" and return timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the zone whose calendar decides what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithAtomicWrites controls whether two-write operations use the store's
// transaction when it offers one. Enabled by default.
func WithAtomicWrites(enabled bool) Option {
	return func(l *Ledger) { l.atomic = enabled }
}

// Ledger owns the rental bookkeeping rules.
type Ledger struct {
	store  Store
	now    func() time.Time
	loc    *time.Location
	log    *slog.Logger
	atomic bool
}

// New creates a ledger over the given store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		loc:    time.Local,
		log:    slog.Default(),
		atomic: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Today returns the current calendar date in the ledger's location.
func (l *Ledger) Today() model.Date {
	return model.DateOf(l.now().In(l.loc))
}

// Atomic reports whether two-write operations commit as one.
func (l *Ledger) Atomic() bool {
	_, ok := l.store.(Transactor)
	return ok && l.atomic
}

// run executes fn inside a store transaction when possible, otherwise
// directly against the store.
func (l *Ledger) run(ctx context.Context, fn func(Store) error) error {
	if tx, ok := l.store.(Transactor); ok && l.atomic {
		return tx.InTx(ctx, fn)
	}
	return fn(l.store)
}

// CreateRental lends one unit of equipment to a patient. The return date is
// the pickup date plus the equipment's rental duration.
func (l *Ledger) CreateRental(ctx context.Context, in model.NewRental) (*model.Rental, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created *model.Rental
	err := l.run(ctx, func(s Store) error {
		eq, err := s.GetEquipment(ctx, in.EquipmentID)
		if err != nil {
			return persistence("loading equipment", err)
		}
		if eq == nil {
			return &NotFoundError{Kind: "equipment", ID: in.EquipmentID}
		}
		if eq.AvailableQuantity <= 0 {
			return &UnavailableError{EquipmentID: eq.ID, EquipmentName: eq.Name}
		}

		returnDate := in.PickupDate.AddDays(eq.RentalDuration)
		if returnDate.Time().Year() > maxYear {
			return &ValidationError{Field: "pickup_date", Message: "puts the return date past year 9999"}
		}

		created, err = s.InsertRental(ctx, &model.Rental{
			EquipmentID:   eq.ID,
			EquipmentName: eq.Name,
			PatientName:   in.PatientName,
			MobileNumber:  in.MobileNumber,
			PickupDate:    in.PickupDate,
			ReturnDate:    returnDate,
			Status:        model.RentalStatusRented,
			CreatedBy:     in.CreatedBy,
		})
		if err != nil {
			return persistence("recording rental", err)
		}

		if err := s.AdjustAvailable(ctx, eq.ID, -1); err != nil {
			if errors.Is(err, model.ErrQuantityOutOfRange) && l.Atomic() {
				// The last unit went to someone else since the check; the
				// rollback discards the rental.
				return &UnavailableError{EquipmentID: eq.ID, EquipmentName: eq.Name}
			}
			if !l.Atomic() {
				l.log.Error("availability drift: rental recorded without decrement",
					"rental", created.ID, "equipment", eq.ID, "error", err)
			}
			return persistence("decrementing availability", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("rental created", "rental", created.ID, "equipment", created.EquipmentName,
		"patient", created.PatientName, "return_date", created.ReturnDate.String(), "user", created.CreatedBy)
	return created, nil
}

// MarkReturned closes a rental and puts its unit back into circulation.
// Returning an already returned rental is a successful no-op.
func (l *Ledger) MarkReturned(ctx context.Context, id int64) (*model.Rental, error) {
	var result *model.Rental
	err := l.run(ctx, func(s Store) error {
		r, err := s.GetRental(ctx, id)
		if err != nil {
			return persistence("loading rental", err)
		}
		if r == nil {
			return &NotFoundError{Kind: "rental", ID: id}
		}
		if r.Status != model.RentalStatusRented {
			result = r
			return nil
		}

		changed, err := s.MarkRentalReturned(ctx, id, l.now())
		if err != nil {
			return persistence("marking rental returned", err)
		}
		if changed {
			if err := l.restoreUnit(ctx, s, r); err != nil {
				return err
			}
		}

		result, err = s.GetRental(ctx, id)
		if err != nil {
			return persistence("reloading rental", err)
		}
		if result == nil {
			return &NotFoundError{Kind: "rental", ID: id}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// restoreUnit increments availability for a just-returned rental.
func (l *Ledger) restoreUnit(ctx context.Context, s Store, r *model.Rental) error {
	err := s.AdjustAvailable(ctx, r.EquipmentID, 1)
	switch {
	case err == nil:
		l.log.Info("rental returned", "rental", r.ID, "equipment", r.EquipmentName, "patient", r.PatientName)
		return nil
	case errors.Is(err, model.ErrRecordNotFound):
		// Equipment was deleted while the unit was out; nothing to restore.
		l.log.Warn("rental returned for deleted equipment", "rental", r.ID, "equipment", r.EquipmentID)
		return nil
	case errors.Is(err, model.ErrQuantityOutOfRange):
		// An administrator already counted the unit back in.
		l.log.Warn("availability already at total, not incremented", "rental", r.ID, "equipment", r.EquipmentID)
		return nil
	default:
		if !l.Atomic() {
			l.log.Error("availability drift: rental returned without increment",
				"rental", r.ID, "equipment", r.EquipmentID, "error", err)
		}
		return persistence("incrementing availability", err)
	}
}

// Overdue returns rented rentals whose return date is before asOf, in store
// order. Callers must not depend on that order.
func (l *Ledger) Overdue(ctx context.Context, asOf model.Date) ([]model.Rental, error) {
	rentals, err := l.store.ListRentals(ctx, model.RentalFilter{Status: model.RentalStatusRented})
	if err != nil {
		return nil, persistence("listing rentals", err)
	}
	overdue := make([]model.Rental, 0, len(rentals))
	for i := range rentals {
		if rentals[i].IsOverdue(asOf) {
			overdue = append(overdue, rentals[i])
		}
	}
	return overdue, nil
}

// OverdueNow is Overdue as of today.
func (l *Ledger) OverdueNow(ctx context.Context) ([]model.Rental, error) {
	return l.Overdue(ctx, l.Today())
}

// DaysLate returns how many whole days r is past due as of asOf; at least 1
// for an overdue rental and 0 otherwise.
func DaysLate(r *model.Rental, asOf model.Date) int {
	return r.DaysLate(asOf)
}

// AvailableEquipment returns equipment with at least one unit available.
func (l *Ledger) AvailableEquipment(ctx context.Context) ([]model.Equipment, error) {
	all, err := l.store.ListEquipment(ctx)
	if err != nil {
		return nil, persistence("listing equipment", err)
	}
	available := make([]model.Equipment, 0, len(all))
	for _, e := range all {
		if e.AvailableQuantity > 0 {
			available = append(available, e)
		}
	}
	return available, nil
}

// Rentals lists rentals matching f, newest first.
func (l *Ledger) Rentals(ctx context.Context, f model.RentalFilter) ([]model.Rental, error) {
	rentals, err := l.store.ListRentals(ctx, f)
	if err != nil {
		return nil, persistence("listing rentals", err)
	}
	return rentals, nil
}

// Rental returns a single rental.
func (l *Ledger) Rental(ctx context.Context, id int64) (*model.Rental, error) {
	r, err := l.store.GetRental(ctx, id)
	if err != nil {
		return nil, persistence("loading rental", err)
	}
	if r == nil {
		return nil, &NotFoundError{Kind: "rental", ID: id}
	}
	return r, nil
}

// Stats summarises the library for the dashboard.
type Stats struct {
	EquipmentKinds  int             `json:"equipment_kinds"`
	TotalUnits      int             `json:"total_units"`
	AvailableUnits  int             `json:"available_units"`
	ActiveRentals   int             `json:"active_rentals"`
	OverdueRentals  int             `json:"overdue_rentals"`
	ReturnedRentals int             `json:"returned_rentals"`
	DepositsHeld    decimal.Decimal `json:"deposits_held"`
}

// Stats computes dashboard counts as of the given date. DepositsHeld sums the
// deposit of every open rental's equipment at its current rate.
func (l *Ledger) Stats(ctx context.Context, asOf model.Date) (*Stats, error) {
	equipment, err := l.store.ListEquipment(ctx)
	if err != nil {
		return nil, persistence("listing equipment", err)
	}
	rentals, err := l.store.ListRentals(ctx, model.RentalFilter{})
	if err != nil {
		return nil, persistence("listing rentals", err)
	}

	deposits := make(map[int64]decimal.Decimal, len(equipment))
	st := &Stats{EquipmentKinds: len(equipment), DepositsHeld: decimal.Zero}
	for _, e := range equipment {
		st.TotalUnits += e.TotalQuantity
		st.AvailableUnits += e.AvailableQuantity
		deposits[e.ID] = e.DepositAmount
	}
	for i := range rentals {
		r := &rentals[i]
		switch r.Status {
		case model.RentalStatusRented:
			st.ActiveRentals++
			st.DepositsHeld = st.DepositsHeld.Add(deposits[r.EquipmentID])
			if r.IsOverdue(asOf) {
				st.OverdueRentals++
			}
		case model.RentalStatusReturned:
			st.ReturnedRentals++
		}
	}
	return st, nil
}
