package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/rajvir-app/mining-server/internal/errors"
	"github.com/rajvir-app/mining-server/internal/service"
	"github.com/rajvir-app/mining-server/internal/util"
)

// AccountHandler covers the unauthenticated account surface: registration.
type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

func (h *AccountHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	return r
}

// POST /v1/account/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid request body"))
		return
	}

	if !util.IsValidDestination(req.Phone) {
		writeError(w, apperrors.InvalidInput("phone", "must be 6-15 digits"))
		return
	}

	user, token, err := h.accountService.Register(r.Context(), req.Phone)
	if err != nil {
		log.Error().Err(err).Msg("registration failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"userId": user.ID,
		"token":  token,
	})
}
