// Package export writes rental records as CSV for spreadsheets.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/sevakendra/mel/internal/model"
)

// Header is the first row of every export.
var Header = []string{"Equipment", "Patient", "Mobile", "Pickup Date", "Return Date", "Status"}

const (
	colPickup = 3
	colReturn = 4
)

// WriteRentals writes one row per rental after the header. Dates are written
// as YYYY-MM-DD calendar dates with no time zone.
func WriteRentals(w io.Writer, rentals []model.Rental) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := range rentals {
		r := &rentals[i]
		row := []string{
			r.EquipmentName,
			r.PatientName,
			r.MobileNumber,
			r.PickupDate.String(),
			r.ReturnDate.String(),
			string(r.Status),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing rental %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// RentalDates is the pickup and return date of one exported row.
type RentalDates struct {
	Pickup model.Date
	Return model.Date
}

// ReadRentalDates reads back the date columns of an export.
func ReadRentalDates(r io.Reader) ([]RentalDates, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty export")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if !slices.Equal(header, Header) {
		return nil, fmt.Errorf("unexpected header %q", header)
	}

	var out []RentalDates
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		pickup, err := model.ParseDate(rec[colPickup])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ret, err := model.ParseDate(rec[colReturn])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, RentalDates{Pickup: pickup, Return: ret})
	}
}
