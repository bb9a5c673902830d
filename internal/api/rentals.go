package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sevakendra/mel/internal/export"
	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/model"
)

// RentalsHandler handles the rental lifecycle. Every authenticated role may
// rent and return equipment.
type RentalsHandler struct {
	Ledger *ledger.Ledger
}

// overdueRental is a rental in the overdue listing.
type overdueRental struct {
	model.Rental
	DaysLate int `json:"days_late"`
}

func rentalFilter(r *http.Request) (model.RentalFilter, error) {
	var f model.RentalFilter
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		f.Status = model.RentalStatus(s)
		if !f.Status.Valid() {
			return f, fmt.Errorf("invalid status %q", s)
		}
	}
	if s := q.Get("equipment_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return f, fmt.Errorf("invalid equipment_id %q", s)
		}
		f.EquipmentID = id
	}
	return f, nil
}

// List handles GET /api/rentals[?status=&equipment_id=].
func (h *RentalsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := rentalFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	rentals, err := h.Ledger.Rentals(r.Context(), f)
	if err != nil {
		ledgerError(w, r, err, "list rentals")
		return
	}
	if rentals == nil {
		rentals = []model.Rental{}
	}
	jsonResponse(w, http.StatusOK, rentals)
}

// Create handles POST /api/rentals. The pickup date defaults to today.
func (h *RentalsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewRental
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PickupDate.IsZero() {
		req.PickupDate = h.Ledger.Today()
	}
	claims := GetClaims(r.Context())
	req.CreatedBy = claims.UserID

	rental, err := h.Ledger.CreateRental(r.Context(), req)
	if err != nil {
		ledgerError(w, r, err, "create rental")
		return
	}

	slog.Info("rental recorded", "user", claims.Username, "rental", rental.ID, "equipment", rental.EquipmentName)
	jsonResponse(w, http.StatusCreated, rental)
}

// Get handles GET /api/rentals/{id}.
func (h *RentalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid rental id")
		return
	}

	rental, err := h.Ledger.Rental(r.Context(), id)
	if err != nil {
		ledgerError(w, r, err, "get rental")
		return
	}
	jsonResponse(w, http.StatusOK, rental)
}

// Return handles POST /api/rentals/{id}/return. Returning twice is not an
// error.
func (h *RentalsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid rental id")
		return
	}

	rental, err := h.Ledger.MarkReturned(r.Context(), id)
	if err != nil {
		ledgerError(w, r, err, "return rental")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("rental return recorded", "user", claims.Username, "rental", rental.ID)
	jsonResponse(w, http.StatusOK, rental)
}

// Overdue handles GET /api/rentals/overdue[?as_of=YYYY-MM-DD].
func (h *RentalsHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateParam(r, "as_of", h.Ledger.Today())
	if err != nil {
		jsonError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
		return
	}

	rentals, err := h.Ledger.Overdue(r.Context(), asOf)
	if err != nil {
		ledgerError(w, r, err, "list overdue rentals")
		return
	}

	out := make([]overdueRental, 0, len(rentals))
	for i := range rentals {
		out = append(out, overdueRental{Rental: rentals[i], DaysLate: ledger.DaysLate(&rentals[i], asOf)})
	}
	jsonResponse(w, http.StatusOK, out)
}

// Export handles GET /api/rentals/export.csv with the same filters as List.
func (h *RentalsHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := rentalFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	rentals, err := h.Ledger.Rentals(r.Context(), f)
	if err != nil {
		ledgerError(w, r, err, "export rentals")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="rentals-%s.csv"`, h.Ledger.Today()))
	if err := export.WriteRentals(w, rentals); err != nil {
		slog.Error("failed to write export", "error", err, "request_id", RequestID(r.Context()))
	}
}
