// Package memstore is an in-memory record store for demos and tests.
// Nothing survives a restart.
package memstore

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/model"
)

// Store keeps equipment and rentals in maps guarded by a single lock.
type Store struct {
	mu   sync.RWMutex
	data data
	now  func() time.Time
}

type data struct {
	equipment map[int64]model.Equipment
	rentals   map[int64]model.Rental
	nextEqID  int64
	nextRenID int64
}

func (d data) clone() data {
	c := d
	c.equipment = maps.Clone(d.equipment)
	c.rentals = maps.Clone(d.rentals)
	return c
}

var (
	_ ledger.Store      = (*Store)(nil)
	_ ledger.Transactor = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		data: data{
			equipment: make(map[int64]model.Equipment),
			rentals:   make(map[int64]model.Rental),
		},
		now: time.Now,
	}
}

// InTx holds the store lock for the duration of fn and restores the previous
// state when fn fails.
func (s *Store) InTx(_ context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.data.clone()
	if err := fn(&tx{s: s}); err != nil {
		s.data = saved
		return err
	}
	return nil
}

func (s *Store) InsertEquipment(_ context.Context, e *model.Equipment) (*model.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertEquipment(e), nil
}

func (s *Store) GetEquipment(_ context.Context, id int64) (*model.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEquipment(id), nil
}

// ListEquipment returns equipment ordered by name.
func (s *Store) ListEquipment(_ context.Context) ([]model.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEquipment(), nil
}

func (s *Store) UpdateEquipment(_ context.Context, id int64, u model.EquipmentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateEquipment(id, u)
}

func (s *Store) AdjustAvailable(_ context.Context, id int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustAvailable(id, delta)
}

func (s *Store) DeleteEquipment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteEquipment(id)
}

func (s *Store) InsertRental(_ context.Context, r *model.Rental) (*model.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertRental(r), nil
}

func (s *Store) GetRental(_ context.Context, id int64) (*model.Rental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRental(id), nil
}

// ListRentals returns matching rentals newest first.
func (s *Store) ListRentals(_ context.Context, f model.RentalFilter) ([]model.Rental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRentals(f), nil
}

func (s *Store) MarkRentalReturned(_ context.Context, id int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markRentalReturned(id, at), nil
}

// The lowercase methods expect s.mu to be held.

func (s *Store) insertEquipment(e *model.Equipment) *model.Equipment {
	s.data.nextEqID++
	rec := *e
	rec.ID = s.data.nextEqID
	rec.PhotoMime = ""
	rec.CreatedAt = s.now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	s.data.equipment[rec.ID] = rec
	return &rec
}

func (s *Store) getEquipment(id int64) *model.Equipment {
	e, ok := s.data.equipment[id]
	if !ok {
		return nil
	}
	return &e
}

func (s *Store) listEquipment() []model.Equipment {
	list := make([]model.Equipment, 0, len(s.data.equipment))
	for _, e := range s.data.equipment {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if c := strings.Compare(list[i].Name, list[j].Name); c != 0 {
			return c < 0
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func (s *Store) updateEquipment(id int64, u model.EquipmentUpdate) error {
	e, ok := s.data.equipment[id]
	if !ok {
		return model.ErrRecordNotFound
	}
	e = u.Apply(e)
	if e.AvailableQuantity < 0 || e.AvailableQuantity > e.TotalQuantity {
		return model.ErrQuantityOutOfRange
	}
	e.UpdatedAt = s.now().UTC()
	s.data.equipment[id] = e
	return nil
}

func (s *Store) adjustAvailable(id int64, delta int) error {
	e, ok := s.data.equipment[id]
	if !ok {
		return model.ErrRecordNotFound
	}
	next := e.AvailableQuantity + delta
	if next < 0 || next > e.TotalQuantity {
		return model.ErrQuantityOutOfRange
	}
	e.AvailableQuantity = next
	e.UpdatedAt = s.now().UTC()
	s.data.equipment[id] = e
	return nil
}

func (s *Store) deleteEquipment(id int64) error {
	if _, ok := s.data.equipment[id]; !ok {
		return model.ErrRecordNotFound
	}
	delete(s.data.equipment, id)
	return nil
}

func (s *Store) insertRental(r *model.Rental) *model.Rental {
	s.data.nextRenID++
	rec := *r
	rec.ID = s.data.nextRenID
	if rec.Status == "" {
		rec.Status = model.RentalStatusRented
	}
	rec.CreatedAt = s.now().UTC()
	rec.ReturnedAt = nil
	s.data.rentals[rec.ID] = rec
	return &rec
}

// detached returns r with no pointers into the stored record.
func detached(r model.Rental) model.Rental {
	if r.ReturnedAt != nil {
		at := *r.ReturnedAt
		r.ReturnedAt = &at
	}
	return r
}

func (s *Store) getRental(id int64) *model.Rental {
	r, ok := s.data.rentals[id]
	if !ok {
		return nil
	}
	r = detached(r)
	return &r
}

func (s *Store) listRentals(f model.RentalFilter) []model.Rental {
	list := make([]model.Rental, 0, len(s.data.rentals))
	for _, r := range s.data.rentals {
		if f.Match(&r) {
			list = append(list, detached(r))
		}
	}
	// IDs are assigned in insertion order.
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list
}

func (s *Store) markRentalReturned(id int64, at time.Time) bool {
	r, ok := s.data.rentals[id]
	if !ok || r.Status != model.RentalStatusRented {
		return false
	}
	returnedAt := at.UTC()
	r.Status = model.RentalStatusReturned
	r.ReturnedAt = &returnedAt
	s.data.rentals[id] = r
	return true
}

// tx is the view handed to InTx callbacks. The store lock is already held.
type tx struct {
	s *Store
}

func (t *tx) InsertEquipment(_ context.Context, e *model.Equipment) (*model.Equipment, error) {
	return t.s.insertEquipment(e), nil
}

func (t *tx) GetEquipment(_ context.Context, id int64) (*model.Equipment, error) {
	return t.s.getEquipment(id), nil
}

func (t *tx) ListEquipment(_ context.Context) ([]model.Equipment, error) {
	return t.s.listEquipment(), nil
}

func (t *tx) UpdateEquipment(_ context.Context, id int64, u model.EquipmentUpdate) error {
	return t.s.updateEquipment(id, u)
}

func (t *tx) AdjustAvailable(_ context.Context, id int64, delta int) error {
	return t.s.adjustAvailable(id, delta)
}

func (t *tx) DeleteEquipment(_ context.Context, id int64) error {
	return t.s.deleteEquipment(id)
}

func (t *tx) InsertRental(_ context.Context, r *model.Rental) (*model.Rental, error) {
	return t.s.insertRental(r), nil
}

func (t *tx) GetRental(_ context.Context, id int64) (*model.Rental, error) {
	return t.s.getRental(id), nil
}

func (t *tx) ListRentals(_ context.Context, f model.RentalFilter) ([]model.Rental, error) {
	return t.s.listRentals(f), nil
}

func (t *tx) MarkRentalReturned(_ context.Context, id int64, at time.Time) (bool, error) {
	return t.s.markRentalReturned(id, at), nil
}
