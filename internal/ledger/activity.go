package ledger

import (
	"context"

	"github.com/sevakendra/mel/internal/model"
)

// Activity counts the rentals one staff member recorded.
type Activity struct {
	OpenRentals     int `json:"open_rentals"`
	OverdueRentals  int `json:"overdue_rentals"`
	ReturnedRentals int `json:"returned_rentals"`
}

// ActivityOf counts the rentals created by userID as of asOf.
func (l *Ledger) ActivityOf(ctx context.Context, userID int64, asOf model.Date) (*Activity, error) {
	a := &Activity{}
	if userID <= 0 {
		return a, nil
	}
	rentals, err := l.store.ListRentals(ctx, model.RentalFilter{CreatedBy: userID})
	if err != nil {
		return nil, persistence("listing rentals", err)
	}
	for i := range rentals {
		r := &rentals[i]
		switch r.Status {
		case model.RentalStatusRented:
			a.OpenRentals++
			if r.IsOverdue(asOf) {
				a.OverdueRentals++
			}
		case model.RentalStatusReturned:
			a.ReturnedRentals++
		}
	}
	return a, nil
}
