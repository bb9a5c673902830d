package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/sevakendra/mel/internal/imaging"
	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/model"
	"github.com/sevakendra/mel/internal/store"
)

// EquipmentHandler handles the equipment catalogue.
type EquipmentHandler struct {
	Ledger *ledger.Ledger
	// PhotoDB stores photos next to the equipment rows. Nil when equipment
	// lives in a store without photo support.
	PhotoDB *sql.DB
}

type createEquipmentRequest struct {
	Name              string          `json:"name"`
	TotalQuantity     int             `json:"total_quantity"`
	AvailableQuantity *int            `json:"available_quantity"`
	RentalDuration    int             `json:"rental_duration"`
	DepositAmount     decimal.Decimal `json:"deposit_amount"`
}

// List handles GET /api/equipment. With ?available=true only equipment with
// a unit on the shelf is returned.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		list []model.Equipment
		err  error
	)
	if r.URL.Query().Get("available") == "true" {
		list, err = h.Ledger.AvailableEquipment(r.Context())
	} else {
		list, err = h.Ledger.ListEquipment(r.Context())
	}
	if err != nil {
		ledgerError(w, r, err, "list equipment")
		return
	}
	if list == nil {
		list = []model.Equipment{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// Create handles POST /api/equipment. The initial available_quantity is
// required; units may already be out on loans recorded elsewhere.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEquipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AvailableQuantity == nil {
		jsonError(w, http.StatusBadRequest, "available_quantity: is required")
		return
	}

	e := model.Equipment{
		Name:              req.Name,
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: *req.AvailableQuantity,
		RentalDuration:    req.RentalDuration,
		DepositAmount:     req.DepositAmount,
	}

	created, err := h.Ledger.AddEquipment(r.Context(), e)
	if err != nil {
		ledgerError(w, r, err, "create equipment")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("equipment created", "user", claims.Username, "equipment", created.Name, "total", created.TotalQuantity)
	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /api/equipment/{id}.
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	e, err := h.Ledger.GetEquipment(r.Context(), id)
	if err != nil {
		ledgerError(w, r, err, "get equipment")
		return
	}
	jsonResponse(w, http.StatusOK, e)
}

// Update handles PUT /api/equipment/{id} with a partial body.
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	var req model.EquipmentUpdate
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Ledger.UpdateEquipment(r.Context(), id, req)
	if err != nil {
		ledgerError(w, r, err, "update equipment")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("equipment updated", "user", claims.Username, "equipment", e.Name)
	jsonResponse(w, http.StatusOK, e)
}

// Delete handles DELETE /api/equipment/{id}.
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	if err := h.Ledger.DeleteEquipment(r.Context(), id); err != nil {
		ledgerError(w, r, err, "delete equipment")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("equipment deleted", "user", claims.Username, "equipment", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "equipment deleted"})
}

// UploadPhoto handles PUT /api/equipment/{id}/photo. The multipart field is
// "photo".
func (h *EquipmentHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if h.PhotoDB == nil {
		jsonError(w, http.StatusNotImplemented, "photos require the sqlite store")
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	photo, err := imaging.NormalizePhoto(file)
	if err != nil {
		if errors.Is(err, imaging.ErrTooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetEquipmentPhoto(r.Context(), h.PhotoDB, id, photo.Data, photo.MIME); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			jsonError(w, http.StatusNotFound, "equipment not found")
			return
		}
		slog.Error("failed to save photo", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save photo")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "photo uploaded"})
}

// GetPhoto handles GET /api/equipment/{id}/photo.
func (h *EquipmentHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	if h.PhotoDB == nil {
		jsonError(w, http.StatusNotImplemented, "photos require the sqlite store")
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	data, mime, err := store.GetEquipmentPhoto(r.Context(), h.PhotoDB, id)
	if err != nil {
		slog.Error("failed to get photo", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
