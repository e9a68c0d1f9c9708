package oauth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testIssuer   = "https://issuer.test"
	testClientID = "demeet-client"
)

func newTestGoogle(t *testing.T, claims jwt.MapClaims) *Google {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	}))
	t.Cleanup(srv.Close)

	verifier := oidc.NewVerifier(testIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}, &oidc.Config{ClientID: testClientID})
	return newGoogle(&oauth2.Config{
		ClientID:     testClientID,
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		RedirectURL:  "http://localhost/callback",
	}, verifier)
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            testClientID,
		"sub":            "google-sub-1",
		"email":          "gina@example.com",
		"email_verified": true,
		"name":           "Gina",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func TestExchangeReturnsProfile(t *testing.T) {
	g := newTestGoogle(t, baseClaims())

	p, err := g.Exchange(context.Background(), "code")

	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", p.Subject)
	assert.Equal(t, "gina@example.com", p.Email)
	assert.Equal(t, "Gina", p.Name)
}

func TestExchangeRejectsUnverifiedEmail(t *testing.T) {
	claims := baseClaims()
	claims["email_verified"] = false
	g := newTestGoogle(t, claims)

	_, err := g.Exchange(context.Background(), "code")

	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestExchangeRejectsWrongAudience(t *testing.T) {
	claims := baseClaims()
	claims["aud"] = "someone-else"
	g := newTestGoogle(t, claims)

	_, err := g.Exchange(context.Background(), "code")

	assert.Error(t, err)
}

func TestAuthCodeURLCarriesState(t *testing.T) {
	g := newTestGoogle(t, baseClaims())

	u := g.AuthCodeURL("xyz")

	assert.Contains(t, u, "state=xyz")
	assert.Contains(t, u, "client_id="+testClientID)
}
