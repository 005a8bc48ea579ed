package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagma-cali/reportes-360/internal/auth"
)

func identityProvider(t *testing.T, handler http.HandlerFunc) *IdentityService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewIdentityService("test-key", srv.URL)
}

func TestVerifyValidToken(t *testing.T) {
	t.Parallel()

	svc := identityProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts:lookup", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok-123", body["idToken"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"users": []map[string]string{
				{"localId": "u1", "email": "ana@dagma.gov.co", "displayName": "Ana"},
			},
		})
	})

	claims, err := svc.Verify(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ana@dagma.gov.co", claims.Email)
	assert.Equal(t, "Ana", claims.Name)
}

func TestVerifyRejectedToken(t *testing.T) {
	t.Parallel()

	svc := identityProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 400, "message": "INVALID_ID_TOKEN"},
		})
	})

	_, err := svc.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyNoUsers(t *testing.T) {
	t.Parallel()

	svc := identityProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"users": []interface{}{}})
	})

	_, err := svc.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyProviderUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	svc := NewIdentityService("test-key", srv.URL)

	_, err := svc.Verify(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSignInWithPassword(t *testing.T) {
	t.Parallel()

	svc := identityProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts:signInWithPassword", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["returnSecureToken"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"localId":      "u1",
			"email":        "ana@dagma.gov.co",
			"idToken":      "tok-123",
			"refreshToken": "ref-456",
			"expiresIn":    "3600",
		})
	})

	session, err := svc.SignInWithPassword(context.Background(), "ana@dagma.gov.co", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, "tok-123", session.IDToken)
	assert.Equal(t, "ref-456", session.RefreshToken)
	assert.Equal(t, 3600, session.ExpiresIn)
}

func TestSignInWithPasswordRejected(t *testing.T) {
	t.Parallel()

	svc := identityProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 400, "message": "INVALID_PASSWORD"},
		})
	})

	_, err := svc.SignInWithPassword(context.Background(), "ana@dagma.gov.co", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
