package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type refreshEntry struct {
	username  string
	roles     []string
	expiresAt time.Time
}

// TokenStore holds issued refresh tokens in memory. Tokens are single use:
// Consume removes the token it returns.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]refreshEntry
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{
		tokens: make(map[string]refreshEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates an opaque refresh token for username.
func (s *TokenStore) Issue(username string, roles []string) string {
	token := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.tokens[token] = refreshEntry{
		username:  username,
		roles:     roles,
		expiresAt: s.now().Add(s.ttl),
	}
	return token
}

// Consume returns the owner of token and invalidates it. ok is false for
// unknown or expired tokens.
func (s *TokenStore) Consume(token string) (username string, roles []string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, found := s.tokens[token]
	if !found {
		return "", nil, false
	}
	delete(s.tokens, token)
	if s.now().After(entry.expiresAt) {
		return "", nil, false
	}
	return entry.username, entry.roles, true
}

// Revoke drops token if it exists.
func (s *TokenStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func (s *TokenStore) pruneLocked() {
	now := s.now()
	for token, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, token)
		}
	}
}
