package model

import (
	"strings"
	"time"
)

// RentalStatus is the state of a rental. The only transition is
// rented -> returned.
type RentalStatus string

// Rental statuses.
const (
	RentalStatusRented   RentalStatus = "rented"
	RentalStatusReturned RentalStatus = "returned"
)

// Valid reports whether s is a known status.
func (s RentalStatus) Valid() bool {
	return s == RentalStatusRented || s == RentalStatusReturned
}

// Rental is one loan of a single unit of equipment to a patient.
type Rental struct {
	ID          int64 `json:"id"`
	EquipmentID int64 `json:"equipment_id"`
	// EquipmentName is captured at creation so history survives renames and deletion.
	EquipmentName string       `json:"equipment_name"`
	PatientName   string       `json:"patient_name"`
	MobileNumber  string       `json:"mobile_number"`
	PickupDate    Date         `json:"pickup_date"`
	ReturnDate    Date         `json:"return_date"`
	Status        RentalStatus `json:"status"`
	CreatedBy     int64        `json:"created_by"`
	CreatedAt     time.Time    `json:"created_at"`
	ReturnedAt    *time.Time   `json:"returned_at,omitempty"`
}

// IsOverdue reports whether the rental is still out after its return date.
func (r *Rental) IsOverdue(asOf Date) bool {
	return r.Status == RentalStatusRented && asOf.After(r.ReturnDate)
}

// DaysLate returns the whole days past the return date, or 0 when the
// rental is not overdue.
func (r *Rental) DaysLate(asOf Date) int {
	if !r.IsOverdue(asOf) {
		return 0
	}
	return asOf.DaysSince(r.ReturnDate)
}

// NewRental is the input for creating a rental.
type NewRental struct {
	PatientName  string `json:"patient_name" validate:"required"`
	MobileNumber string `json:"mobile_number" validate:"required,mobile"`
	EquipmentID  int64  `json:"equipment_id" validate:"required,gt=0"`
	PickupDate   Date   `json:"pickup_date"`
	CreatedBy    int64  `json:"-"`
}

// Normalize trims surrounding whitespace from the free-text fields.
func (n *NewRental) Normalize() {
	n.PatientName = strings.TrimSpace(n.PatientName)
	n.MobileNumber = strings.TrimSpace(n.MobileNumber)
}

// Validate checks required fields and the mobile number format.
func (n *NewRental) Validate() error {
	n.Normalize()
	if err := validateStruct(n); err != nil {
		return err
	}
	if n.PickupDate.IsZero() {
		return &ValidationError{Field: "pickup_date", Message: "is required"}
	}
	return nil
}

// RentalFilter narrows a rental listing. Zero values match everything.
type RentalFilter struct {
	Status      RentalStatus
	EquipmentID int64
	CreatedBy   int64
}

// Match reports whether r passes the filter.
func (f RentalFilter) Match(r *Rental) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.EquipmentID != 0 && r.EquipmentID != f.EquipmentID {
		return false
	}
	if f.CreatedBy != 0 && r.CreatedBy != f.CreatedBy {
		return false
	}
	return true
}
