package ledger

import (
	"context"
	"errors"

	"github.com/sevakendra/mel/internal/model"
)

// AddEquipment validates and stores a new equipment category.
func (l *Ledger) AddEquipment(ctx context.Context, e model.Equipment) (*model.Equipment, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	created, err := l.store.InsertEquipment(ctx, &e)
	if err != nil {
		return nil, persistence("adding equipment", err)
	}
	l.log.Info("equipment added", "equipment", created.ID, "name", created.Name, "total", created.TotalQuantity)
	return created, nil
}

// GetEquipment returns one equipment record.
func (l *Ledger) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	e, err := l.store.GetEquipment(ctx, id)
	if err != nil {
		return nil, persistence("loading equipment", err)
	}
	if e == nil {
		return nil, &NotFoundError{Kind: "equipment", ID: id}
	}
	return e, nil
}

// ListEquipment returns every equipment record.
func (l *Ledger) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	list, err := l.store.ListEquipment(ctx)
	if err != nil {
		return nil, persistence("listing equipment", err)
	}
	return list, nil
}

// UpdateEquipment applies a partial update. The merged record must still
// satisfy the equipment invariants.
func (l *Ledger) UpdateEquipment(ctx context.Context, id int64, u model.EquipmentUpdate) (*model.Equipment, error) {
	if u.IsEmpty() {
		return nil, &ValidationError{Field: "body", Message: "no fields to update"}
	}

	var updated *model.Equipment
	err := l.run(ctx, func(s Store) error {
		current, err := s.GetEquipment(ctx, id)
		if err != nil {
			return persistence("loading equipment", err)
		}
		if current == nil {
			return &NotFoundError{Kind: "equipment", ID: id}
		}
		merged := u.Apply(*current)
		if err := merged.Validate(); err != nil {
			return err
		}
		if err := s.UpdateEquipment(ctx, id, u); err != nil {
			if errors.Is(err, model.ErrRecordNotFound) {
				return &NotFoundError{Kind: "equipment", ID: id}
			}
			return persistence("updating equipment", err)
		}
		updated, err = s.GetEquipment(ctx, id)
		if err != nil {
			return persistence("reloading equipment", err)
		}
		if updated == nil {
			return &NotFoundError{Kind: "equipment", ID: id}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Info("equipment updated", "equipment", id, "available", updated.AvailableQuantity, "total", updated.TotalQuantity)
	return updated, nil
}

// DeleteEquipment removes an equipment record. Rentals keep the equipment
// name they were created with.
func (l *Ledger) DeleteEquipment(ctx context.Context, id int64) error {
	if err := l.store.DeleteEquipment(ctx, id); err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return &NotFoundError{Kind: "equipment", ID: id}
		}
		return persistence("deleting equipment", err)
	}
	l.log.Info("equipment deleted", "equipment", id)
	return nil
}
