package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestRSAKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, string(pemData)
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestNewVerifier(t *testing.T) {
	_, pemData := generateTestRSAKey(t)

	tests := []struct {
		name    string
		config  VerifierConfig
		wantErr bool
	}{
		{"valid HS256", VerifierConfig{Algorithm: "HS256", SecretKey: "s"}, false},
		{"HS256 without secret", VerifierConfig{Algorithm: "HS256"}, true},
		{"valid RS256", VerifierConfig{Algorithm: "RS256", PublicKeyPEM: pemData}, false},
		{"RS256 without key", VerifierConfig{Algorithm: "RS256"}, true},
		{"RS256 bad PEM", VerifierConfig{Algorithm: "RS256", PublicKeyPEM: "not pem"}, true},
		{"unsupported algorithm", VerifierConfig{Algorithm: "ES256"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVerifier(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, v)
		})
	}
}

func TestVerifyHS256Token(t *testing.T) {
	v, err := NewVerifier(VerifierConfig{Algorithm: "HS256", SecretKey: "test-secret"})
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Unix()

	token := signHS256(t, "test-secret", jwt.MapClaims{
		"sub":    "task-runner",
		"scopes": []string{ScopeControl, ScopeEvents},
		"exp":    exp,
	})
	claims, err := v.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "task-runner", claims.Subject)
	assert.Equal(t, []string{ScopeControl, ScopeEvents}, claims.Scopes)

	// Space-separated scope string
	token = signHS256(t, "test-secret", jwt.MapClaims{"sub": "a", "scopes": "control", "exp": exp})
	claims, err = v.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, []string{ScopeControl}, claims.Scopes)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"wrong secret", signHS256(t, "other", jwt.MapClaims{"sub": "a", "scopes": "control", "exp": exp})},
		{"expired", signHS256(t, "test-secret", jwt.MapClaims{"sub": "a", "scopes": "control", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"missing sub", signHS256(t, "test-secret", jwt.MapClaims{"scopes": "control", "exp": exp})},
		{"missing scopes", signHS256(t, "test-secret", jwt.MapClaims{"sub": "a", "exp": exp})},
		{"unknown scope", signHS256(t, "test-secret", jwt.MapClaims{"sub": "a", "scopes": "admin", "exp": exp})},
		{"garbage", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestVerifyRS256Token(t *testing.T) {
	key, pemData := generateTestRSAKey(t)

	v, err := NewVerifier(VerifierConfig{Algorithm: "RS256", PublicKeyPEM: pemData, Issuer: "lab"})
	require.NoError(t, err)

	claims := jwt.MapClaims{
		"sub":    "task-runner",
		"iss":    "lab",
		"scopes": []string{ScopeControl},
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	got, err := v.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "task-runner", got.Subject)

	// Wrong issuer
	claims["iss"] = "elsewhere"
	token, err = jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	_, err = v.VerifyToken(token)
	assert.Error(t, err)

	// HS256 token is rejected by an RS256 verifier
	_, err = v.VerifyToken(signHS256(t, "secret", jwt.MapClaims{"sub": "a", "scopes": "control"}))
	assert.Error(t, err)
}
