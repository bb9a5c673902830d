package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Equipment is one category of loanable medical item. Units are counted,
// not tracked individually.
type Equipment struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name" validate:"required,max=200"`
	PhotoMime         string          `json:"photo_mime,omitempty"`
	TotalQuantity     int             `json:"total_quantity" validate:"gte=0"`
	AvailableQuantity int             `json:"available_quantity" validate:"gte=0,ltefield=TotalQuantity"`
	RentalDuration    int             `json:"rental_duration" validate:"gte=1,lte=3650"`
	DepositAmount     decimal.Decimal `json:"deposit_amount"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Validate checks the equipment invariants:
// 0 <= available_quantity <= total_quantity, 1 <= rental_duration <= 3650,
// deposit >= 0.
func (e *Equipment) Validate() error {
	if err := validateStruct(e); err != nil {
		return err
	}
	if e.DepositAmount.IsNegative() {
		return &ValidationError{Field: "deposit_amount", Message: "must not be negative"}
	}
	return nil
}

// HasPhoto reports whether a photo has been uploaded.
func (e *Equipment) HasPhoto() bool { return e.PhotoMime != "" }

// EquipmentUpdate is a partial update. Nil fields are left unchanged.
type EquipmentUpdate struct {
	Name              *string          `json:"name,omitempty"`
	TotalQuantity     *int             `json:"total_quantity,omitempty"`
	AvailableQuantity *int             `json:"available_quantity,omitempty"`
	RentalDuration    *int             `json:"rental_duration,omitempty"`
	DepositAmount     *decimal.Decimal `json:"deposit_amount,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u EquipmentUpdate) IsEmpty() bool {
	return u.Name == nil && u.TotalQuantity == nil && u.AvailableQuantity == nil &&
		u.RentalDuration == nil && u.DepositAmount == nil
}

// Apply returns a copy of e with the update's fields set.
func (u EquipmentUpdate) Apply(e Equipment) Equipment {
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.TotalQuantity != nil {
		e.TotalQuantity = *u.TotalQuantity
	}
	if u.AvailableQuantity != nil {
		e.AvailableQuantity = *u.AvailableQuantity
	}
	if u.RentalDuration != nil {
		e.RentalDuration = *u.RentalDuration
	}
	if u.DepositAmount != nil {
		e.DepositAmount = *u.DepositAmount
	}
	return e
}
