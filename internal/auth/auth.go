// Package auth guards write endpoints with an optional shared bearer token.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingToken = errors.New("no authorization header")
	ErrInvalidToken = errors.New("invalid token")
)

// VerifyToken checks the request's bearer token against expected. An empty
// expected token disables the check.
func VerifyToken(r *http.Request, expected string) error {
	if expected == "" {
		return nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return ErrMissingToken
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(expected)) != 1 {
		return ErrInvalidToken
	}
	return nil
}
