// Package auth issues and validates time-limited opaque session
// tokens and stores user credentials. It is independent of transport.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// DefaultTokenTTL is how long a generated token stays valid.
const DefaultTokenTTL = time.Hour

const tokenBytes = 16

type tokenEntry struct {
	username  string
	expiresAt time.Time
}

// TokenManager holds live tokens in a lock-guarded map. Expired
// entries are evicted lazily on lookup; CleanupExpired sweeps the rest
// and is meant to run periodically so lookups keep the lock hold time
// to a single map operation.
type TokenManager struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry

	clock clock.Clock
	ttl   time.Duration
}

func NewTokenManager(clk clock.Clock, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenManager{
		tokens: make(map[string]tokenEntry),
		clock:  clk,
		ttl:    ttl,
	}
}

// Generate produces an opaque token owned by username. Token bytes are
// drawn from a CSPRNG; collisions are birthday-bound, not prevented.
func (tm *TokenManager) Generate(username string) (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "reading random token bytes")
	}

	token := hex.EncodeToString(raw)
	expiresAt := tm.clock.Now().Add(tm.ttl)

	tm.mu.Lock()
	tm.tokens[token] = tokenEntry{username: username, expiresAt: expiresAt}
	tm.mu.Unlock()

	return token, nil
}

// Validate resolves a token to its owning username. An expired entry
// is evicted on the spot and reported as invalid.
func (tm *TokenManager) Validate(token string) (username string, ok bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	entry, ok := tm.tokens[token]
	if !ok {
		return "", false
	}

	if !tm.clock.Now().Before(entry.expiresAt) {
		delete(tm.tokens, token)
		return "", false
	}

	return entry.username, true
}

// Revoke removes a token and reports whether it existed.
func (tm *TokenManager) Revoke(token string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	_, ok := tm.tokens[token]
	delete(tm.tokens, token)

	return ok
}

// CleanupExpired sweeps the whole store, removing every expired entry,
// and reports how many were removed.
func (tm *TokenManager) CleanupExpired() int {
	now := tm.clock.Now()

	tm.mu.Lock()
	defer tm.mu.Unlock()

	removed := 0
	for token, entry := range tm.tokens {
		if !now.Before(entry.expiresAt) {
			delete(tm.tokens, token)
			removed++
		}
	}

	return removed
}
