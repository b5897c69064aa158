package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelazquez/remate/pkg/auth"
)

func generateKeyPair(t *testing.T) (privPEM, pubPEM []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})
	return privPEM, pubPEM
}

func TestSigner_GenerateAndValidate(t *testing.T) {
	privPEM, pubPEM := generateKeyPair(t)
	signer, err := auth.NewSigner(privPEM, pubPEM, "remate")
	require.NoError(t, err)

	userID := uuid.New()
	token, err := signer.GenerateToken(userID, "Ana Vergara", []string{"tasador"}, time.Hour)
	require.NoError(t, err)

	claims, err := signer.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, "Ana Vergara", claims.FullName)
	assert.Equal(t, []string{"tasador"}, claims.Roles)

	parsedID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsedID)
}

func TestSigner_RejectsExpiredToken(t *testing.T) {
	privPEM, pubPEM := generateKeyPair(t)
	signer, err := auth.NewSigner(privPEM, pubPEM, "remate")
	require.NoError(t, err)

	token, err := signer.GenerateToken(uuid.New(), "Ana Vergara", nil, -time.Minute)
	require.NoError(t, err)

	_, err = signer.ValidateToken(token)
	assert.Error(t, err)
}

func TestSigner_RejectsWrongIssuer(t *testing.T) {
	privPEM, pubPEM := generateKeyPair(t)
	issuing, err := auth.NewSigner(privPEM, pubPEM, "someone-else")
	require.NoError(t, err)

	validating, err := auth.NewSignerFromPublicKey(pubPEM, "remate")
	require.NoError(t, err)

	token, err := issuing.GenerateToken(uuid.New(), "Ana Vergara", nil, time.Hour)
	require.NoError(t, err)

	_, err = validating.ValidateToken(token)
	assert.Error(t, err)
}

func TestSigner_RejectsTokenSignedWithOtherKey(t *testing.T) {
	privPEM, pubPEM := generateKeyPair(t)
	otherPrivPEM, otherPubPEM := generateKeyPair(t)

	issuing, err := auth.NewSigner(otherPrivPEM, otherPubPEM, "remate")
	require.NoError(t, err)

	validating, err := auth.NewSigner(privPEM, pubPEM, "remate")
	require.NoError(t, err)

	token, err := issuing.GenerateToken(uuid.New(), "Ana Vergara", nil, time.Hour)
	require.NoError(t, err)

	_, err = validating.ValidateToken(token)
	assert.Error(t, err)
}

func TestNewSignerFromPublicKey_CannotIssue(t *testing.T) {
	_, pubPEM := generateKeyPair(t)
	signer, err := auth.NewSignerFromPublicKey(pubPEM, "remate")
	require.NoError(t, err)

	_, err = signer.GenerateToken(uuid.New(), "Ana Vergara", nil, time.Hour)
	assert.Error(t, err)
}
