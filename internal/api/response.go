package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// dateParam parses an optional YYYY-MM-DD query parameter, falling back to def.
func dateParam(r *http.Request, name string, def model.Date) (model.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return model.ParseDate(v)
}

// ledgerError maps a ledger error onto an HTTP status. Persistence failures
// are logged and hidden behind a generic message.
func ledgerError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var (
		verr *ledger.ValidationError
		nf   *ledger.NotFoundError
		perr *ledger.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &nf):
		jsonError(w, http.StatusNotFound, nf.Error())
	case errors.Is(err, ledger.ErrUnavailable):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.As(err, &perr):
		slog.Error("failed to "+action, "op", perr.Op, "error", perr.Err, "request_id", RequestID(r.Context()))
		jsonError(w, http.StatusInternalServerError, "failed to "+action)
	default:
		slog.Error("failed to "+action, "error", err, "request_id", RequestID(r.Context()))
		jsonError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
