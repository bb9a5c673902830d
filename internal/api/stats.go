package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/sevakendra/mel/internal/ledger"
)

// StatsHandler serves dashboard counts and the health check.
type StatsHandler struct {
	Ledger *ledger.Ledger
	DB     *sql.DB
}

// Stats handles GET /api/stats[?as_of=YYYY-MM-DD].
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateParam(r, "as_of", h.Ledger.Today())
	if err != nil {
		jsonError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
		return
	}

	st, err := h.Ledger.Stats(r.Context(), asOf)
	if err != nil {
		ledgerError(w, r, err, "compute stats")
		return
	}
	jsonResponse(w, http.StatusOK, st)
}

// Health handles GET /api/health.
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		jsonError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"today":  h.Ledger.Today().String(),
		"atomic": h.Ledger.Atomic(),
	})
}
