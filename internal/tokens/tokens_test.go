package tokens

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-32-bytes-should-be-long-enough"

func TestGenerate_ValidAndClaims(t *testing.T) {
	iss := NewIssuer(secret, 2*time.Minute)
	tokenStr, exp, err := iss.Generate("alice")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(2*time.Minute), exp, 5*time.Second)

	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, "alice", claims["sub"])
	require.Equal(t, "alice", claims["preferred_username"])
	require.Equal(t, "wikifun", claims["iss"])
}

func TestParse(t *testing.T) {
	iss := NewIssuer(secret, time.Minute)
	raw, _, err := iss.Generate("bob")
	require.NoError(t, err)

	c, err := iss.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "bob", c.Subject)

	_, err = NewIssuer("another-secret", time.Minute).Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Parse("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	iss := NewIssuer(secret, time.Minute)
	iss.now = func() time.Time { return time.Now().Add(-time.Hour) }
	raw, _, err := iss.Generate("carol")
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.True(t, strings.Contains(err.Error(), "expired"))
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	iss := NewIssuer(secret, time.Minute)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "eve", "iss": "wikifun"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Parse(unsigned)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_ExposesClaims(t *testing.T) {
	iss := NewIssuer(secret, time.Minute)
	raw, _, err := iss.Generate("dave")
	require.NoError(t, err)

	tok, err := iss.Verify(context.Background(), raw)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "dave", claims["sub"])
	require.Equal(t, "dave", claims["preferred_username"])
}

func TestExpiresAt(t *testing.T) {
	iss := NewIssuer(secret, 10*time.Minute)
	raw, exp, err := iss.Generate("erin")
	require.NoError(t, err)

	got, err := ExpiresAt(raw)
	require.NoError(t, err)
	require.Equal(t, exp.Unix(), got.Unix())

	_, err = ExpiresAt("garbage")
	require.Error(t, err)
}
