// Package token generates public invoice tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
)

// Size is the number of random bytes behind a token.
const Size = 32

// Generate returns a URL-safe token carrying Size bytes of entropy.
func Generate() (string, error) {
	buf := make([]byte, Size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
