package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dagma-cali/reportes-360/internal/auth"
)

// IdentityService talks to the external identity provider's REST API.
// Tokens are opaque to this service: every verification is a round trip to
// the provider.
type IdentityService struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewIdentityService creates a new identity provider client.
func NewIdentityService(apiKey, endpoint string) *IdentityService {
	if endpoint == "" {
		endpoint = "https://identitytoolkit.googleapis.com/v1"
	}

	return &IdentityService{
		apiKey:   apiKey,
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Session is the result of a successful password sign-in.
type Session struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	IDToken      string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type providerError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type lookupResponse struct {
	providerError
	Users []struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"users"`
}

type signInResponse struct {
	providerError
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// Verify asks the provider who a token belongs to. Implements auth.TokenVerifier.
func (s *IdentityService) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	var resp lookupResponse
	if err := s.post(ctx, "accounts:lookup", map[string]string{"idToken": token}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		log.Debug().
			Int("provider_code", resp.Error.Code).
			Str("provider_message", resp.Error.Message).
			Msg("Identity provider rejected token")
		return nil, auth.ErrInvalidToken
	}
	if len(resp.Users) == 0 {
		return nil, auth.ErrInvalidToken
	}

	u := resp.Users[0]
	return &auth.Claims{
		UserID: u.LocalID,
		Email:  u.Email,
		Name:   u.DisplayName,
	}, nil
}

// SignInWithPassword delegates a password sign-in to the provider.
func (s *IdentityService) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var resp signInResponse
	if err := s.post(ctx, "accounts:signInWithPassword", body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		log.Debug().
			Str("provider_message", resp.Error.Message).
			Str("email", email).
			Msg("Identity provider rejected sign-in")
		return nil, auth.ErrInvalidCredentials
	}

	expires := 0
	fmt.Sscanf(resp.ExpiresIn, "%d", &expires)

	return &Session{
		UserID:       resp.LocalID,
		Email:        resp.Email,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    expires,
	}, nil
}

// post sends a JSON request to one of the provider's account endpoints.
// Provider-side rejections come back as a JSON error body, which the callers
// inspect; only transport failures surface as errors here.
func (s *IdentityService) post(ctx context.Context, action string, payload interface{}, out interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?key=%s", s.endpoint, action, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse provider response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// HealthCheck verifies the service is configured.
func (s *IdentityService) HealthCheck(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("identity provider API key not configured")
	}
	return nil
}
