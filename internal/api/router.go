package api

import (
	"database/sql"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/model"
)

// Config wires the router's dependencies.
type Config struct {
	// DB holds users, revoked tokens and, with the sqlite store, equipment photos.
	DB        *sql.DB
	Ledger    *ledger.Ledger
	JWTSecret string
	// Photos enables the photo endpoints. Only valid when the ledger's
	// equipment lives in DB.
	Photos bool
	// LoginRate and LoginBurst limit login attempts per client address.
	// A zero LoginRate disables the limit.
	LoginRate  rate.Limit
	LoginBurst int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret}
	usersHandler := &UsersHandler{DB: cfg.DB, Ledger: cfg.Ledger}
	equipmentHandler := &EquipmentHandler{Ledger: cfg.Ledger}
	if cfg.Photos {
		equipmentHandler.PhotoDB = cfg.DB
	}
	rentalsHandler := &RentalsHandler{Ledger: cfg.Ledger}
	statsHandler := &StatsHandler{Ledger: cfg.Ledger, DB: cfg.DB}

	authMW := AuthMiddleware(cfg.JWTSecret, cfg.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public.
	var login http.Handler = http.HandlerFunc(authHandler.Login)
	if cfg.LoginRate > 0 {
		login = RateLimit(cfg.LoginRate, max(cfg.LoginBurst, 1))(login)
	}
	mux.Handle("POST /api/auth/login", login)
	mux.HandleFunc("GET /api/health", statsHandler.Health)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("GET /api/users/{id}/rentals", authMW(requireAdmin(http.HandlerFunc(usersHandler.Rentals))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Equipment: read (all roles), write (manager+).
	mux.Handle("GET /api/equipment", authMW(http.HandlerFunc(equipmentHandler.List)))
	mux.Handle("POST /api/equipment", authMW(requireManager(http.HandlerFunc(equipmentHandler.Create))))
	mux.Handle("GET /api/equipment/{id}", authMW(http.HandlerFunc(equipmentHandler.Get)))
	mux.Handle("PUT /api/equipment/{id}", authMW(requireManager(http.HandlerFunc(equipmentHandler.Update))))
	mux.Handle("DELETE /api/equipment/{id}", authMW(requireManager(http.HandlerFunc(equipmentHandler.Delete))))
	mux.Handle("PUT /api/equipment/{id}/photo", authMW(requireManager(http.HandlerFunc(equipmentHandler.UploadPhoto))))
	mux.Handle("GET /api/equipment/{id}/photo", authMW(http.HandlerFunc(equipmentHandler.GetPhoto)))

	// Rentals (all roles).
	mux.Handle("GET /api/rentals", authMW(http.HandlerFunc(rentalsHandler.List)))
	mux.Handle("POST /api/rentals", authMW(http.HandlerFunc(rentalsHandler.Create)))
	mux.Handle("GET /api/rentals/overdue", authMW(http.HandlerFunc(rentalsHandler.Overdue)))
	mux.Handle("GET /api/rentals/export.csv", authMW(http.HandlerFunc(rentalsHandler.Export)))
	mux.Handle("GET /api/rentals/{id}", authMW(http.HandlerFunc(rentalsHandler.Get)))
	mux.Handle("POST /api/rentals/{id}/return", authMW(http.HandlerFunc(rentalsHandler.Return)))

	mux.Handle("GET /api/stats", authMW(http.HandlerFunc(statsHandler.Stats)))

	return mux
}
