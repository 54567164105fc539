package bridge

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator checks a caller-supplied token against the bridge's
// configured token, using a constant-time comparison to avoid leaking
// timing information about the secret (spec §4.5 "Auth"). When a JWT
// signing secret is also configured, a candidate that fails the static
// comparison is additionally accepted if it is a validly-signed,
// unexpired HS256 bearer JWT — agents that mint short-lived tokens from
// a shared secret don't need to know the long-lived static token.
type Authenticator struct {
	token     string
	jwtSecret []byte
}

// NewAuthenticator builds an Authenticator. An empty token disables
// authentication entirely — intended for local development only.
func NewAuthenticator(token string) *Authenticator {
	return &Authenticator{token: token}
}

// WithJWTSecret enables bearer-JWT validation alongside the static token
// and returns the same Authenticator for chaining.
func (a *Authenticator) WithJWTSecret(secret []byte) *Authenticator {
	a.jwtSecret = secret
	return a
}

// Enabled reports whether a token has been configured.
func (a *Authenticator) Enabled() bool {
	return a.token != ""
}

// Verify compares candidate against the configured token, falling back to
// JWT validation if a signing secret is configured.
func (a *Authenticator) Verify(candidate string) bool {
	if !a.Enabled() {
		return true
	}
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(a.token)) == 1 {
		return true
	}
	return a.verifyJWT(candidate)
}

// verifyJWT reports whether candidate is a validly-signed, unexpired HS256
// JWT under the configured secret. Any other signing method is rejected to
// avoid the classic "alg: none" downgrade.
func (a *Authenticator) verifyJWT(candidate string) bool {
	if len(a.jwtSecret) == 0 || candidate == "" {
		return false
	}
	token, err := jwt.Parse(candidate, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	return err == nil && token.Valid
}

// ExtractBearerToken pulls a bearer token out of an HTTP Authorization
// header, if present.
func ExtractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(h, prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// AuthenticateHTTP checks the caller's bearer token or X-Auth-Token
// header.
func (a *Authenticator) AuthenticateHTTP(r *http.Request) bool {
	if token := ExtractBearerToken(r); token != "" {
		return a.Verify(token)
	}
	return a.Verify(r.Header.Get("X-Auth-Token"))
}
