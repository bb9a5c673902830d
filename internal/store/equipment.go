package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sevakendra/mel/internal/model"
)

const equipmentColumns = `id, name, photo_mime, total_quantity, available_quantity,
	rental_duration, deposit_amount, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row rowScanner) (*model.Equipment, error) {
	e := &model.Equipment{}
	var photoMime sql.NullString
	err := row.Scan(&e.ID, &e.Name, &photoMime, &e.TotalQuantity, &e.AvailableQuantity,
		&e.RentalDuration, &e.DepositAmount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.PhotoMime = photoMime.String
	return e, nil
}

// CreateEquipment inserts a new equipment category.
func CreateEquipment(ctx context.Context, db DBTX, e *model.Equipment) (*model.Equipment, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO equipment (name, total_quantity, available_quantity, rental_duration, deposit_amount)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Name, e.TotalQuantity, e.AvailableQuantity, e.RentalDuration, e.DepositAmount.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating equipment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting equipment id: %w", err)
	}

	return GetEquipment(ctx, db, id)
}

// GetEquipment returns equipment by ID, or nil when it does not exist.
func GetEquipment(ctx context.Context, db DBTX, id int64) (*model.Equipment, error) {
	e, err := scanEquipment(db.QueryRowContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting equipment: %w", err)
	}
	return e, nil
}

// ListEquipment returns all equipment ordered by name.
func ListEquipment(ctx context.Context, db DBTX) ([]model.Equipment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipment ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	defer rows.Close()

	var list []model.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning equipment: %w", err)
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// UpdateEquipment writes the non-nil fields of u.
func UpdateEquipment(ctx context.Context, db DBTX, id int64, u model.EquipmentUpdate) error {
	q := sq.Update("equipment").
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Question)
	if u.Name != nil {
		q = q.Set("name", *u.Name)
	}
	if u.TotalQuantity != nil {
		q = q.Set("total_quantity", *u.TotalQuantity)
	}
	if u.AvailableQuantity != nil {
		q = q.Set("available_quantity", *u.AvailableQuantity)
	}
	if u.RentalDuration != nil {
		q = q.Set("rental_duration", *u.RentalDuration)
	}
	if u.DepositAmount != nil {
		q = q.Set("deposit_amount", u.DepositAmount.String())
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building equipment update: %w", err)
	}
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating equipment: %w", err)
	}
	return requireRow(result, "updating equipment")
}

// AdjustAvailable adds delta to the available quantity as long as the result
// stays within [0, total_quantity].
func AdjustAvailable(ctx context.Context, db DBTX, id int64, delta int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE equipment SET available_quantity = available_quantity + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND available_quantity + ? BETWEEN 0 AND total_quantity`,
		delta, id, delta,
	)
	if err != nil {
		return fmt.Errorf("adjusting availability: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjusting availability: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Nothing changed: either the row is gone or the guard refused the change.
	var exists int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM equipment WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking equipment: %w", err)
	}
	if exists == 0 {
		return ErrRecordNotFound
	}
	return ErrQuantityOutOfRange
}

// DeleteEquipment removes equipment. Rentals keep their copy of the name.
func DeleteEquipment(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM equipment WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting equipment: %w", err)
	}
	return requireRow(result, "deleting equipment")
}

// SetEquipmentPhoto stores the equipment's photo.
func SetEquipmentPhoto(ctx context.Context, db DBTX, id int64, photo []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE equipment SET photo = ?, photo_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		photo, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting equipment photo: %w", err)
	}
	return requireRow(result, "setting equipment photo")
}

// GetEquipmentPhoto returns the photo bytes and MIME type. Both are empty
// when no photo was uploaded or the equipment does not exist.
func GetEquipmentPhoto(ctx context.Context, db DBTX, id int64) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM equipment WHERE id = ?`, id,
	).Scan(&photo, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting equipment photo: %w", err)
	}
	return photo, mime.String, nil
}

func requireRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}
