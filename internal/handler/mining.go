package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/rajvir-app/mining-server/internal/errors"
	"github.com/rajvir-app/mining-server/internal/middleware"
	"github.com/rajvir-app/mining-server/internal/mining"
	"github.com/rajvir-app/mining-server/internal/service"
)

// MiningHandler is the user-facing API: accrual state, start/stop, profile,
// language, recharge.
type MiningHandler struct {
	miningService  *service.MiningService
	accountService *service.AccountService
}

func NewMiningHandler(miningService *service.MiningService, accountService *service.AccountService) *MiningHandler {
	return &MiningHandler{
		miningService:  miningService,
		accountService: accountService,
	}
}

func (h *MiningHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/state", h.GetState)
	r.Post("/mining/start", h.StartMining)
	r.Post("/mining/stop", h.StopMining)
	r.Put("/profile", h.UpdateProfile)
	r.Put("/language", h.SetLanguage)
	r.Post("/recharge", h.Recharge)
	r.Get("/recharges", h.ListRecharges)

	return r
}

// GET /v1/state
func (h *MiningHandler) GetState(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, stateResponse(session))
}

// POST /v1/mining/start
func (h *MiningHandler) StartMining(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.Start(); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse(session))
}

// POST /v1/mining/stop
func (h *MiningHandler) StopMining(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.Stop()
	writeJSON(w, http.StatusOK, stateResponse(session))
}

// PUT /v1/profile
func (h *MiningHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string  `json:"name"`
		Avatar *string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid request body"))
		return
	}

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.UpdateProfile(req.Name, req.Avatar); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse(session))
}

// PUT /v1/language
func (h *MiningHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid request body"))
		return
	}

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.SetLanguage(req.Language); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"language": req.Language})
}

// POST /v1/recharge
//
// An insufficient balance is a normal declined outcome, not an error: the
// response is 200 with success=false so clients always check the flag.
func (h *MiningHandler) Recharge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid request body"))
		return
	}

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	record, err := session.Recharge(r.Context(), req.Destination)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.ErrCodeInsufficientPoints {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": false,
				"code":    appErr.Code,
				"details": appErr.Details,
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"record":  record,
		"state":   stateResponse(session),
	})
}

// GET /v1/recharges
func (h *MiningHandler) ListRecharges(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	p := ParsePagination(r)
	records, err := h.accountService.RechargeHistory(r.Context(), account.ID, p.Limit, p.Offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list recharges")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *MiningHandler) session(w http.ResponseWriter, r *http.Request) (*mining.Session, bool) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return nil, false
	}

	session, err := h.miningService.GetSession(r.Context(), account.ID)
	if err != nil {
		log.Error().Err(err).Str("accountId", account.ID).Msg("failed to load mining session")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return nil, false
	}

	return session, true
}
