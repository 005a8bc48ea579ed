package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dagma-cali/reportes-360/internal/auth"
)

// LoginHandler exchanges email/password credentials for a provider-issued
// session token. Credentials never touch local storage.
// POST /api/v1/auth/login
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", "")
		return
	}
	body.Email = strings.TrimSpace(body.Email)
	if body.Email == "" {
		respondErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "must not be empty", "email")
		return
	}
	if body.Password == "" {
		respondErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "must not be empty", "password")
		return
	}

	session, err := h.identity.SignInWithPassword(r.Context(), body.Email, body.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info().Str("email", session.Email).Msg("User signed in")
	respondData(w, http.StatusOK, session)
}

// MeHandler returns the identity behind the request's token.
// GET /api/v1/auth/me
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		respondError(w, auth.ErrInvalidToken)
		return
	}
	respondData(w, http.StatusOK, claims)
}

// AuthMiddleware verifies the Bearer token on protected routes and attaches
// the resolved identity to the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", "")
			return
		}

		claims, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			respondError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
