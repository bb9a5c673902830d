package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/model"
	"github.com/sevakendra/mel/internal/store"
)

// UsersHandler manages staff accounts (admin only). Every rental records the
// staff member who created it, so account changes check the ledger first.
type UsersHandler struct {
	DB     *sql.DB
	Ledger *ledger.Ledger
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Role string `json:"role"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// userDetail is a staff account with the rentals it recorded.
type userDetail struct {
	model.User
	Rentals *ledger.Activity `json:"rentals"`
}

// List handles GET /api/users[?role=].
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role != "" && !model.ValidRole(role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	users, err := store.ListUsers(r.Context(), h.DB, role)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.Username == "" || req.Password == "" || req.Role == "":
		jsonError(w, http.StatusBadRequest, "username, password, and role required")
		return
	case !model.ValidRole(req.Role):
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, string(hash), req.Role)
	if err != nil {
		jsonError(w, http.StatusConflict, "username already exists")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("user created", "user", claims.Username, "new_user", req.Username, "role", req.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// activeUser loads the user named by the path, writing the error response
// and returning nil when there is none.
func (h *UsersHandler) activeUser(w http.ResponseWriter, r *http.Request) *model.User {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return nil
	}
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return nil
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return nil
	}
	return user
}

// Get handles GET /api/users/{id}. The response carries the counts of open,
// overdue and returned rentals the user recorded.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := h.activeUser(w, r)
	if user == nil {
		return
	}

	activity, err := h.Ledger.ActivityOf(r.Context(), user.ID, h.Ledger.Today())
	if err != nil {
		ledgerError(w, r, err, "count user rentals")
		return
	}
	jsonResponse(w, http.StatusOK, userDetail{User: *user, Rentals: activity})
}

// Rentals handles GET /api/users/{id}/rentals[?status=&equipment_id=].
func (h *UsersHandler) Rentals(w http.ResponseWriter, r *http.Request) {
	user := h.activeUser(w, r)
	if user == nil {
		return
	}
	f, err := rentalFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.CreatedBy = user.ID

	rentals, err := h.Ledger.Rentals(r.Context(), f)
	if err != nil {
		ledgerError(w, r, err, "list user rentals")
		return
	}
	if rentals == nil {
		rentals = []model.Rental{}
	}
	jsonResponse(w, http.StatusOK, rentals)
}

// lastAdmin reports whether user is the only active admin left.
func (h *UsersHandler) lastAdmin(r *http.Request, user *model.User) (bool, error) {
	if user.Role != model.RoleAdmin {
		return false, nil
	}
	n, err := store.CountAdmins(r.Context(), h.DB)
	if err != nil {
		return false, err
	}
	return n <= 1, nil
}

// Update handles PUT /api/users/{id}. The last admin cannot be demoted.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := h.activeUser(w, r)
	if user == nil {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	if req.Role != model.RoleAdmin {
		last, err := h.lastAdmin(r, user)
		if err != nil {
			slog.Error("failed to count admins", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
		if last {
			jsonError(w, http.StatusConflict, "cannot demote the last admin")
			return
		}
	}

	if err := store.UpdateUserRole(r.Context(), h.DB, user.ID, req.Role); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			jsonError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("failed to update user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	user.Role = req.Role

	claims := GetClaims(r.Context())
	slog.Info("user role updated", "user", claims.Username, "target_user", user.Username, "new_role", req.Role)
	jsonResponse(w, http.StatusOK, user)
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id, string(hash)); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			jsonError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("failed to reset password", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("user password reset", "user", claims.Username, "target_user", fmt.Sprintf("id:%d", id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}. Staff with rentals still out cannot
// be deleted, nor can the caller or the last admin.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := h.activeUser(w, r)
	if user == nil {
		return
	}

	claims := GetClaims(r.Context())
	if claims != nil && claims.UserID == user.ID {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	last, err := h.lastAdmin(r, user)
	if err != nil {
		slog.Error("failed to count admins", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if last {
		jsonError(w, http.StatusConflict, "cannot delete the last admin")
		return
	}

	activity, err := h.Ledger.ActivityOf(r.Context(), user.ID, h.Ledger.Today())
	if err != nil {
		ledgerError(w, r, err, "count user rentals")
		return
	}
	if activity.OpenRentals > 0 {
		jsonError(w, http.StatusConflict, fmt.Sprintf("user has %d open rentals", activity.OpenRentals))
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, user.ID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			jsonError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("failed to delete user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	slog.Info("user deleted", "user", claims.Username, "deleted_user", user.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
