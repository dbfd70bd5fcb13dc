package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/Johnm75/Tienda/internal/gate"
	"github.com/Johnm75/Tienda/internal/service"
	"go.uber.org/zap"
)

type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*service.Session, error)
	Logout(ctx context.Context, userID string) error
	Profile(ctx context.Context, userID string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in service.ProfileUpdate) (domain.Profile, error)
	OpenDeletion(userID string) gate.Status
	DeletionStatus(userID string) gate.Status
	CancelDeletion(userID string)
	ConfirmDeletion(ctx context.Context, userID string) error
}

type AccountHandler struct {
	accounts Accounts
	timeout  time.Duration
	log      *zap.Logger
}

func NewAccountHandler(accounts Accounts, timeout time.Duration, log *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		timeout:  timeout,
		log:      log,
	}
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleLoginRequestDTO struct {
	IDToken string `json:"id_token"`
}

type DeletionStatusDTO struct {
	State     string `json:"state"`
	Remaining int    `json:"countdown_seconds_remaining"`
	Armed     bool   `json:"armed"`
	Visible   bool   `json:"visible"`
}

func toDeletionStatus(st gate.Status) DeletionStatusDTO {
	return DeletionStatusDTO{
		State:     st.State.String(),
		Remaining: st.Remaining,
		Armed:     st.Armed,
		Visible:   st.Visible,
	}
}

// POST /api/v1/auth/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.accounts.Register(ctx, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// POST /api/v1/auth/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// POST /api/v1/auth/google
func (h *AccountHandler) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req GoogleLoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.accounts.LoginWithGoogle(ctx, req.IDToken)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// POST /api/v1/auth/logout
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.accounts.Logout(ctx, user.UID); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/profile
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.accounts.Profile(ctx, user.UID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// PUT /api/v1/profile
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req service.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.accounts.UpdateProfile(ctx, user.UID, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// POST /api/v1/account/deletion
func (h *AccountHandler) OpenDeletion(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusAccepted, toDeletionStatus(h.accounts.OpenDeletion(user.UID)))
}

// GET /api/v1/account/deletion
func (h *AccountHandler) DeletionStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toDeletionStatus(h.accounts.DeletionStatus(user.UID)))
}

// DELETE /api/v1/account/deletion
func (h *AccountHandler) CancelDeletion(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.accounts.CancelDeletion(user.UID)
	respondJSON(w, http.StatusOK, toDeletionStatus(h.accounts.DeletionStatus(user.UID)))
}

// POST /api/v1/account/deletion/confirm
func (h *AccountHandler) ConfirmDeletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.accounts.ConfirmDeletion(ctx, user.UID); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
