// Package auth verifies bearer credentials. The core treats identity as an
// opaque collaborator: a token goes in, a uid comes out.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, expired
// token, or a token without a subject. Callers get no finer detail.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier checks a bearer token and extracts the authenticated uid.
type Verifier interface {
	Verify(token string) (uid string, err error)
}

// JWTVerifier validates HS256-signed ID tokens whose subject claim carries
// the uid.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a verifier keyed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token, returning the subject uid.
func (v *JWTVerifier) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// StaticVerifier maps fixed tokens to uids. Test and development use only.
type StaticVerifier map[string]string

func (s StaticVerifier) Verify(token string) (string, error) {
	uid, ok := s[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return uid, nil
}
