// Package auth provides the credential primitives behind capability tokens:
// random API keys and the salted digest that turns a key into a token id.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const secretBytes = 32

var ErrInvalidAuthorization = errors.New("invalid authorization header")

// GenerateAPIKey returns a new random API key as 64 lowercase hex characters.
func GenerateAPIKey() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// TokenID derives the storage id of a token from its API key. The id is the
// unpadded base64url SHA-256 of "<apikey>|<salt>" and cannot be reversed.
func TokenID(apiKey, salt string) string {
	h := sha256.Sum256([]byte(apiKey + "|" + salt))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// SaltedKey is a freshly generated salt with an API key and its token id.
type SaltedKey struct {
	Salt    string `json:"salt"`
	APIKey  string `json:"apikey"`
	TokenID string `json:"token_id"`
}

// GenerateSaltedKey generates a new salt and API key pair. Operators use it
// to pick a service salt together with the first admin key.
func GenerateSaltedKey() (*SaltedKey, error) {
	salt, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	apiKey, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	return &SaltedKey{
		Salt:    salt,
		APIKey:  apiKey,
		TokenID: TokenID(apiKey, salt),
	}, nil
}

// ParseBearer extracts the API key from an Authorization header value of the
// form "Bearer <apikey>".
func ParseBearer(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidAuthorization
	}
	return parts[1], nil
}
