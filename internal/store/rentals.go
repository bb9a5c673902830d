package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sevakendra/mel/internal/model"
)

var rentalColumns = []string{
	"id", "equipment_id", "equipment_name", "patient_name", "mobile_number",
	"pickup_date", "return_date", "status", "created_by", "created_at", "returned_at",
}

func scanRental(row rowScanner) (*model.Rental, error) {
	r := &model.Rental{}
	var createdBy sql.NullInt64
	err := row.Scan(&r.ID, &r.EquipmentID, &r.EquipmentName, &r.PatientName, &r.MobileNumber,
		&r.PickupDate, &r.ReturnDate, &r.Status, &createdBy, &r.CreatedAt, &r.ReturnedAt)
	if err != nil {
		return nil, err
	}
	r.CreatedBy = createdBy.Int64
	return r, nil
}

// CreateRental inserts a rental and returns it as stored.
func CreateRental(ctx context.Context, db DBTX, r *model.Rental) (*model.Rental, error) {
	var createdBy sql.NullInt64
	if r.CreatedBy != 0 {
		createdBy = sql.NullInt64{Int64: r.CreatedBy, Valid: true}
	}
	status := r.Status
	if status == "" {
		status = model.RentalStatusRented
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO rentals (equipment_id, equipment_name, patient_name, mobile_number,
		                      pickup_date, return_date, status, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.EquipmentID, r.EquipmentName, r.PatientName, r.MobileNumber,
		r.PickupDate, r.ReturnDate, string(status), createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating rental: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting rental id: %w", err)
	}

	return GetRental(ctx, db, id)
}

// GetRental returns a rental by ID, or nil when it does not exist.
func GetRental(ctx context.Context, db DBTX, id int64) (*model.Rental, error) {
	query, args, err := sq.Select(rentalColumns...).From("rentals").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building rental query: %w", err)
	}

	r, err := scanRental(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting rental: %w", err)
	}
	return r, nil
}

// ListRentals returns rentals matching f, newest first.
func ListRentals(ctx context.Context, db DBTX, f model.RentalFilter) ([]model.Rental, error) {
	q := sq.Select(rentalColumns...).From("rentals").
		OrderBy("created_at DESC", "id DESC").
		PlaceholderFormat(sq.Question)
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.EquipmentID != 0 {
		q = q.Where(sq.Eq{"equipment_id": f.EquipmentID})
	}
	if f.CreatedBy != 0 {
		q = q.Where(sq.Eq{"created_by": f.CreatedBy})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building rental query: %w", err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing rentals: %w", err)
	}
	defer rows.Close()

	var rentals []model.Rental
	for rows.Next() {
		r, err := scanRental(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rental: %w", err)
		}
		rentals = append(rentals, *r)
	}
	return rentals, rows.Err()
}

// MarkRentalReturned sets a rented rental to returned. It reports false when
// the rental was already returned or does not exist.
func MarkRentalReturned(ctx context.Context, db DBTX, id int64, at time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE rentals SET status = 'returned', returned_at = ? WHERE id = ? AND status = 'rented'`,
		at.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("returning rental: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("returning rental: %w", err)
	}
	return n > 0, nil
}
