package bridge

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_DisabledWhenNoToken(t *testing.T) {
	a := NewAuthenticator("")
	assert.False(t, a.Enabled())
	assert.True(t, a.Verify(""))
	assert.True(t, a.Verify("anything"))
}

func TestAuthenticator_Verify_StaticToken(t *testing.T) {
	a := NewAuthenticator("s3cret")
	assert.True(t, a.Enabled())
	assert.True(t, a.Verify("s3cret"))
	assert.False(t, a.Verify("wrong"))
	assert.False(t, a.Verify(""))
}

func signHS256(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestAuthenticator_Verify_JWTFallback(t *testing.T) {
	secret := []byte("jwt-signing-secret")
	a := NewAuthenticator("s3cret").WithJWTSecret(secret)

	valid := signHS256(t, secret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	assert.True(t, a.Verify(valid), "valid unexpired HS256 JWT under the configured secret should verify")

	wrongSecret := signHS256(t, []byte("not-the-secret"), jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	assert.False(t, a.Verify(wrongSecret))

	expired := signHS256(t, secret, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	assert.False(t, a.Verify(expired))
}

func TestAuthenticator_Verify_RejectsNoneAlgDowngrade(t *testing.T) {
	secret := []byte("jwt-signing-secret")
	a := NewAuthenticator("s3cret").WithJWTSecret(secret)

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	assert.False(t, a.Verify(unsigned))
}

func TestAuthenticator_Verify_NoJWTSecretConfigured(t *testing.T) {
	a := NewAuthenticator("s3cret")
	signed := signHS256(t, []byte("whatever"), jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	assert.False(t, a.Verify(signed), "without WithJWTSecret only the static token should verify")
}

func TestExtractBearerToken(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://example.org/rpc", nil)
	require.NoError(t, err)

	assert.Equal(t, "", ExtractBearerToken(req))

	req.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", ExtractBearerToken(req))

	req.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", ExtractBearerToken(req))
}

func TestAuthenticateHTTP_PrefersBearerThenXAuthToken(t *testing.T) {
	a := NewAuthenticator("s3cret")

	req, err := http.NewRequest(http.MethodGet, "http://example.org/rpc", nil)
	require.NoError(t, err)
	req.Header.Set("X-Auth-Token", "s3cret")
	assert.True(t, a.AuthenticateHTTP(req))

	req.Header.Set("Authorization", "Bearer wrong")
	assert.False(t, a.AuthenticateHTTP(req))
}
