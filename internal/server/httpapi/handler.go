// Package httpapi exposes the credential store and session layer over
// HTTP. It owns the JSON request/response shapes and the mapping from
// service errors to status codes; business rules live in the services.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/akarpov87/idvault/internal/common"
	"github.com/akarpov87/idvault/internal/logging"
	"github.com/akarpov87/idvault/internal/server/identities"
	"github.com/akarpov87/idvault/internal/server/sessions"
)

// IdentityService is the slice of the credential store the handlers use.
type IdentityService interface {
	Register(ctx context.Context, username, email, password string) (*identities.Identity, error)
	Verify(ctx context.Context, login, password string) (string, error)
	Get(ctx context.Context, id string) (*identities.Identity, error)
	UpdateProfile(ctx context.Context, id, username, email string) (*identities.Identity, error)
	ChangePassword(ctx context.Context, id, current, next string) error
	SetAvatarKey(ctx context.Context, id, key string) error
	Deactivate(ctx context.Context, id string) error
}

// SessionService issues, validates, and invalidates access tokens.
type SessionService interface {
	Issue(ctx context.Context, identityID string) (*sessions.Session, error)
	Validate(ctx context.Context, token string) (string, error)
	Invalidate(ctx context.Context, token string) error
}

// AvatarService hands out presigned object-storage URLs.
type AvatarService interface {
	PresignedPutURL(ctx context.Context) (string, string, error)
	PresignedGetURL(ctx context.Context, key string) (string, error)
}

type Handler struct {
	identityService IdentityService
	sessionService  SessionService
	avatarService   AvatarService
	logger          logging.Logger
}

func NewHandler(identityService IdentityService, sessionService SessionService, avatarService AvatarService, logger logging.Logger) *Handler {
	return &Handler{
		identityService: identityService,
		sessionService:  sessionService,
		avatarService:   avatarService,
		logger:          logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	identity, err := h.identityService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "identity registered", "username", identity.Username)
	h.writeJSON(w, http.StatusCreated, identity.Summary())
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	identityID, err := h.identityService.Verify(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	session, err := h.sessionService.Issue(r.Context(), identityID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "login", "identity_id", identityID)
	h.writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: session.Token,
		ExpiresAt:   session.ExpiresAt,
	})
}

// Logout always answers 204: invalidation is idempotent and a missing or
// useless token leaves the world in the desired state anyway.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		if err := h.sessionService.Invalidate(r.Context(), token); err != nil {
			h.logger.Error(r.Context(), "logout invalidation failed", "error", err.Error())
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identityService.Get(r.Context(), identityIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, identity.Summary())
}

type updateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	identity, err := h.identityService.UpdateProfile(r.Context(), identityIDFromContext(r.Context()), req.Username, req.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, identity.Summary())
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	err := h.identityService.ChangePassword(r.Context(), identityIDFromContext(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProfile soft-deletes the account and revokes the presenting
// token so the session dies with the account.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.identityService.Deactivate(r.Context(), identityIDFromContext(r.Context())); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if token := bearerToken(r); token != "" {
		if err := h.sessionService.Invalidate(r.Context(), token); err != nil {
			h.logger.Error(r.Context(), "token invalidation after deactivate failed", "error", err.Error())
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

type avatarUploadResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}

// CreateAvatarUpload reserves a storage key, records it on the identity,
// and returns a presigned PUT URL for the actual bytes.
func (h *Handler) CreateAvatarUpload(w http.ResponseWriter, r *http.Request) {
	key, url, err := h.avatarService.PresignedPutURL(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.identityService.SetAvatarKey(r.Context(), identityIDFromContext(r.Context()), key); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, avatarUploadResponse{Key: key, UploadURL: url})
}

type avatarResponse struct {
	URL string `json:"url"`
}

func (h *Handler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identityService.Get(r.Context(), identityIDFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if identity.AvatarKey == "" {
		h.writeError(w, r, http.StatusNotFound, "no avatar")
		return
	}

	url, err := h.avatarService.PresignedGetURL(r.Context(), identity.AvatarKey)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, avatarResponse{URL: url})
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError translates the shared sentinels into the API's status
// codes. Credential and token failures collapse into one 401 so callers
// cannot probe which accounts or sessions exist.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorInvalidInput):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorDuplicate):
		h.writeError(w, r, http.StatusConflict, "username or email already taken")
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenRevoked),
		errors.Is(err, common.ErrorNotFound):
		// A deactivated account and a dead token look the same from
		// outside: unauthorized.
		h.writeError(w, r, http.StatusUnauthorized, "unauthorized")
	default:
		h.logger.Error(r.Context(), "internal error", "error", err.Error())
		h.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
