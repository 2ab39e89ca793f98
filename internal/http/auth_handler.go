package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/auth"
	"github.com/fjod/butchershop/internal/domain"
	profilesrepo "github.com/fjod/butchershop/internal/profiles/repository"
)

type AuthHandler struct {
	auth         Authenticator
	profiles     profilesrepo.ProfileRepository
	isAdminEmail func(string) bool
	timeout      time.Duration
	maxBody      int64
	secure       bool
	log          *zap.Logger
}

func NewAuthHandler(a Authenticator, profiles profilesrepo.ProfileRepository, isAdminEmail func(string) bool, timeout time.Duration, maxBody int64, secure bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         a,
		profiles:     profiles,
		isAdminEmail: isAdminEmail,
		timeout:      timeout,
		maxBody:      maxBody,
		secure:       secure,
		log:          log,
	}
}

type CredentialsDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes who is signed in and where the client should go next.
type SessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	Identity      *domain.Identity `json:"identity,omitempty"`
	Profile       *domain.Profile  `json:"profile,omitempty"`
	NeedsProfile  bool             `json:"needs_profile"`
	IsAdmin       bool             `json:"is_admin"`
	Redirect      string           `json:"redirect,omitempty"`
}

// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	h.startSession(w, r, http.StatusCreated, h.auth.Signup)
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.startSession(w, r, http.StatusOK, h.auth.Login)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int,
	fn func(ctx context.Context, email, password string) (*auth.Session, error)) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	var req CredentialsDTO
	if err := decodeBody(r, h.maxBody, credentialsLoader, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	session, err := fn(ctx, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.Expires,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, status, session)
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	claims := claimsFromContext(r.Context())
	if claims == nil {
		respondUnauthenticated(w, "missing user authentication")
		return
	}
	if err := h.auth.Logout(ctx, claims); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	id := identityFromContext(r.Context())
	if id == nil {
		respondJSON(w, http.StatusOK, SessionResponse{})
		return
	}

	profile, err := h.profiles.GetProfile(ctx, id.UserID)
	if err != nil && !errors.Is(err, profilesrepo.ErrProfileNotFound) {
		handleServiceError(w, r, h.log, err)
		return
	}

	resp := SessionResponse{
		Authenticated: true,
		Identity:      id,
		Profile:       profile,
		NeedsProfile:  profile == nil,
		IsAdmin:       profile.IsAdmin() || (h.isAdminEmail != nil && h.isAdminEmail(id.Email)),
	}
	if resp.NeedsProfile {
		resp.Redirect = redirectProfile
	}
	respondJSON(w, http.StatusOK, resp)
}
