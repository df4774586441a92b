package token

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKeyPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func TestMaker_SignAndParse_ValidCases(t *testing.T) {
	maker, err := NewMaker("meal-credential-issuer", generateKeyPEM(t))
	require.NoError(t, err)

	serviceDate := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
	issuedAt := time.Now()
	expiresAt := issuedAt.Add(12 * time.Hour)

	tests := []struct {
		name        string
		customerUID string
		tokenID     string
	}{
		{
			name:        "plain customer",
			customerUID: "customer-1",
			tokenID:     "2f0c9a14-7b1e-4b2f-9a35-d5a1c0e6f001",
		},
		{
			name:        "uuid customer",
			customerUID: "6f2d8a90-1111-4222-8333-944445555666",
			tokenID:     "2f0c9a14-7b1e-4b2f-9a35-d5a1c0e6f002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := maker.Sign(tt.customerUID, tt.tokenID, serviceDate, issuedAt, expiresAt)
			require.NoError(t, err)
			assert.NotEmpty(t, signed)

			claims, err := maker.Parse(signed)
			require.NoError(t, err)

			assert.Equal(t, tt.customerUID, claims.Subject)
			assert.Equal(t, tt.tokenID, claims.ID)
			assert.Equal(t, "meal-credential-issuer", claims.Issuer)
			assert.Equal(t, "2026-03-17", claims.ServiceDate)
			assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestMaker_Parse_InvalidTokens(t *testing.T) {
	maker, err := NewMaker("meal-credential-issuer", generateKeyPEM(t))
	require.NoError(t, err)

	otherMaker, err := NewMaker("meal-credential-issuer", generateKeyPEM(t))
	require.NoError(t, err)

	serviceDate := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	expired, err := maker.Sign("customer-1", "tok-1", serviceDate, now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)

	foreign, err := otherMaker.Sign("customer-1", "tok-2", serviceDate, now, now.Add(time.Hour))
	require.NoError(t, err)

	valid, err := maker.Sign("customer-1", "tok-3", serviceDate, now, now.Add(time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: expired},
		{name: "signed with another key", token: foreign},
		{name: "tampered token", token: valid + "tampered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.Parse(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestNewMaker_RejectsGarbagePEM(t *testing.T) {
	maker, err := NewMaker("meal-credential-issuer", []byte("not a pem"))
	assert.Error(t, err)
	assert.Nil(t, maker)
}
