// Package testutil holds fixtures shared by package tests: an ES256 token
// signer and an in-memory database.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"testing"
	"time"

	"identity-sync-service/database"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	AppID  = "test-app-id"
	Issuer = "privy.io"
)

type Signer struct {
	Key *ecdsa.PrivateKey
}

func NewSigner(t testing.TB) *Signer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return &Signer{Key: key}
}

func (s *Signer) PublicKey() *ecdsa.PublicKey {
	return &s.Key.PublicKey
}

func (s *Signer) PublicKeyPEM(t testing.TB) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&s.Key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// Sign returns an ES256 token over claims.
func (s *Signer) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(s.Key)
	require.NoError(t, err)
	return token
}

// AccessClaims returns a complete, valid access token payload.
func AccessClaims(did, sessionID string, now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss": Issuer,
		"aud": AppID,
		"sub": did,
		"sid": sessionID,
		"iat": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

// IdentityClaims returns a valid identity token payload with linked_accounts
// encoded as a JSON string, the way the identity provider sends it.
func IdentityClaims(t testing.TB, did string, linkedAccounts []map[string]any, now time.Time) jwt.MapClaims {
	t.Helper()
	if linkedAccounts == nil {
		linkedAccounts = []map[string]any{}
	}
	raw, err := json.Marshal(linkedAccounts)
	require.NoError(t, err)
	return jwt.MapClaims{
		"iss":             Issuer,
		"aud":             AppID,
		"sub":             did,
		"iat":             now.Add(-time.Minute).Unix(),
		"exp":             now.Add(time.Hour).Unix(),
		"linked_accounts": string(raw),
	}
}

// NewDB opens a migrated in-memory SQLite database closed at test cleanup.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite:///:memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
