package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), 0)
	raw, issued, err := issuer.Issue(42, "avery@example.com")
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, issued.ExpiresAt.Sub(issued.IssuedAt))

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "avery@example.com", claims.Email)
	assert.Equal(t, issued.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestParseAcceptsNumericSubject(t *testing.T) {
	secret := []byte("secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   7,
		"email": "numeric@example.com",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString(secret)
	require.NoError(t, err)

	claims, err := NewTokenIssuer(secret, time.Hour).Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestParseRejectsExpired(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	issuer := NewTokenIssuer([]byte("secret"), time.Hour).WithClock(func() time.Time { return past })
	raw, _, err := issuer.Issue(1, "a@example.com")
	require.NoError(t, err)

	_, err = NewTokenIssuer([]byte("secret"), time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseRejectsBadSignatureAndGarbage(t *testing.T) {
	raw, _, err := NewTokenIssuer([]byte("one"), time.Hour).Issue(1, "a@example.com")
	require.NoError(t, err)

	_, err = NewTokenIssuer([]byte("two"), time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenIssuer([]byte("two"), time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNonNumericSubject(t *testing.T) {
	secret := []byte("secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString(secret)
	require.NoError(t, err)

	_, err = NewTokenIssuer(secret, time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
