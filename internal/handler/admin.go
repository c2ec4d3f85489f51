package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/rajvir-app/mining-server/internal/errors"
	"github.com/rajvir-app/mining-server/internal/middleware"
	"github.com/rajvir-app/mining-server/internal/model"
	"github.com/rajvir-app/mining-server/internal/service"
	"github.com/rajvir-app/mining-server/internal/util"
)

// AdminHandler is the operator surface: password login plus direct reads and
// writes against stored user records.
type AdminHandler struct {
	adminService *service.AdminService
	session      *middleware.AdminSessionMiddleware
	loginLimiter *middleware.LoginRateLimiter
	isProduction bool
}

func NewAdminHandler(
	adminService *service.AdminService,
	session *middleware.AdminSessionMiddleware,
	isProduction bool,
) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		session:      session,
		loginLimiter: middleware.NewLoginRateLimiter(),
		isProduction: isProduction,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.loginLimiter.Handler)
		r.Post("/login", h.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.session.Handler)
		r.Post("/logout", h.Logout)
		r.Get("/stats", h.GetStats)
		r.Get("/users", h.ListUsers)
		r.Get("/users/{id}", h.GetUser)
		r.Patch("/users/{id}", h.UpdateUser)
		r.Delete("/users/{id}", h.DeleteUser)
		r.Get("/users/{id}/recharges", h.ListUserRecharges)
	})

	return r
}

// POST /admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid request body"))
		return
	}

	token, err := h.adminService.Login(r.Context(), req.Password)
	if err != nil {
		log.Error().Err(err).Msg("admin login failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid password"})
		return
	}

	middleware.SetSessionCookie(w, middleware.AdminSessionCookie, token, "/admin", h.isProduction)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.AdminSessionCookie); err == nil && cookie.Value != "" {
		if err := h.adminService.Logout(r.Context(), cookie.Value); err != nil {
			log.Warn().Err(err).Msg("admin logout: session delete failed")
		}
	}

	middleware.ClearSessionCookie(w, middleware.AdminSessionCookie, "/admin")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.GetStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to compute stats")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GET /admin/users?q=&limit=&offset=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	query := r.URL.Query().Get("q")

	users, err := h.adminService.ListUsers(r.Context(), query, p.Limit, p.Offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if users == nil {
		users = []model.User{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// GET /admin/users/{id}
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.adminService.GetUser(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("userId", id).Msg("failed to fetch user")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if user == nil {
		writeError(w, apperrors.NotFound("User"))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// PATCH /admin/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Name   *string `json:"name"`
		Points *int    `json:"points"`
		Banned *bool   `json:"banned"`
		Role   *string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid request body"))
		return
	}

	if req.Name != nil && !util.IsValidProfileName(*req.Name) {
		writeError(w, apperrors.InvalidInput("name", "must be 1-30 characters"))
		return
	}
	if req.Points != nil && *req.Points < 0 {
		writeError(w, apperrors.InvalidInput("points", "must not be negative"))
		return
	}

	params := model.UpdateUserParams{
		Name:   req.Name,
		Points: req.Points,
		Banned: req.Banned,
	}
	if req.Role != nil {
		role := model.UserRole(*req.Role)
		if role != model.RoleUser && role != model.RoleAdmin {
			writeError(w, apperrors.InvalidInput("role", "must be user or admin"))
			return
		}
		params.Role = &role
	}

	user, err := h.adminService.UpdateUser(r.Context(), id, params)
	if err != nil {
		log.Error().Err(err).Str("userId", id).Msg("failed to update user")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if user == nil {
		writeError(w, apperrors.NotFound("User"))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// DELETE /admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.adminService.DeleteUser(r.Context(), id); err != nil {
		log.Error().Err(err).Str("userId", id).Msg("failed to delete user")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /admin/users/{id}/recharges
func (h *AdminHandler) ListUserRecharges(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := ParsePagination(r)

	records, err := h.adminService.ListUserRecharges(r.Context(), id, p.Limit, p.Offset)
	if err != nil {
		log.Error().Err(err).Str("userId", id).Msg("failed to list recharges")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}
