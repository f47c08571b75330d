package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/crypto-vantro/apiserver/internal/auth"
	"github.com/crypto-vantro/apiserver/internal/services"
	"github.com/crypto-vantro/apiserver/types"
)

// AuthHandler provides signup, signin, and token re-verification endpoints.
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// AuthRouter registers account routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAuthHandler(userService)

	r.Post("/signup", handler.Signup)
	r.Post("/signin", handler.Signin)
	r.With(authMiddleware).Get("/verify", handler.Verify)
}

// RequireAuth builds the guard applied to every protected route: it runs the
// token verifier, then the account status gate, and injects the resolved
// subject id into the request context. Failures from either step propagate
// unchanged.
func RequireAuth(tokens *auth.Manager, userService *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := auth.ExtractBearer(r.Header.Get("Authorization"))
			if err != nil {
				writeFailure(w, err)
				return
			}

			verification, err := tokens.Verify(tokenString)
			if err != nil {
				writeFailure(w, err)
				return
			}

			user, err := userService.ResolveActive(r.Context(), verification.Subject)
			if err != nil {
				writeFailure(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Signup registers a new account and returns its first token pair.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, pair, err := h.userService.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SignupResponse{
		ID:           user.ID,
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	})
}

// Signin verifies credentials and returns tokens plus the caller's products.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, pair, products, err := h.userService.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SigninResponse{
		ID:            user.ID,
		AccessToken:   pair.Access,
		RefreshToken:  pair.Refresh,
		FoundProducts: products,
	})
}

// Verify re-issues a fresh access token for the authenticated subject and
// returns the subject's products. Either token kind is accepted by the
// guard, so an unexpired refresh token re-authenticates here without a
// dedicated refresh endpoint.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	accessToken, products, err := h.userService.VerifyAuth(r.Context(), subjectID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, VerifyResponse{
		AccessToken:  accessToken,
		VerifyHeader: subjectID,
		Products:     products,
	})
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupResponse struct {
	ID           string `json:"id"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type SigninResponse struct {
	ID            string          `json:"id"`
	AccessToken   string          `json:"accessToken"`
	RefreshToken  string          `json:"refreshToken"`
	FoundProducts []types.Product `json:"foundProducts"`
}

type VerifyResponse struct {
	AccessToken  string          `json:"accessToken"`
	VerifyHeader string          `json:"verifyHeader"`
	Products     []types.Product `json:"products"`
}
