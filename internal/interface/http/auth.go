package http

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// maxAcceptedKeys bounds the cache of keys that already passed bcrypt.
const maxAcceptedKeys = 16

var errInvalidAPIKey = errors.New("invalid api key")

// apiKeyVerifier checks bearer keys against a bcrypt hash. Keys that matched
// once are remembered by their SHA-256 so bcrypt runs once per key.
type apiKeyVerifier struct {
	hash []byte

	mu       sync.Mutex
	accepted map[[sha256.Size]byte]struct{}
}

func newAPIKeyVerifier(hash string) *apiKeyVerifier {
	if strings.TrimSpace(hash) == "" {
		return nil
	}
	return &apiKeyVerifier{
		hash:     []byte(strings.TrimSpace(hash)),
		accepted: make(map[[sha256.Size]byte]struct{}),
	}
}

// Verify reports whether the request carries a valid bearer key.
// A nil verifier accepts every request.
func (v *apiKeyVerifier) Verify(r *http.Request) error {
	if v == nil {
		return nil
	}

	key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return errInvalidAPIKey
	}

	sum := sha256.Sum256([]byte(key))
	v.mu.Lock()
	_, cached := v.accepted[sum]
	v.mu.Unlock()
	if cached {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return errInvalidAPIKey
	}

	v.mu.Lock()
	if len(v.accepted) >= maxAcceptedKeys {
		clear(v.accepted)
	}
	v.accepted[sum] = struct{}{}
	v.mu.Unlock()
	return nil
}

// HashAPIKey returns the bcrypt hash to configure for key.
func HashAPIKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("api key is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
