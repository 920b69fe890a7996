package auth

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrUserExists = errors.New("username already exists")

// UserStore maps usernames to password hashes behind a mutex shared by
// all connections. Hashing and verification happen outside the lock;
// the lock only covers the map operation itself.
type UserStore struct {
	mu    sync.Mutex
	users map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]string)}
}

// Add stores an already-hashed credential, replacing any existing one.
func (s *UserStore) Add(username, passwordHash string) {
	s.mu.Lock()
	s.users[username] = passwordHash
	s.mu.Unlock()
}

// Register hashes the password and stores the user, refusing
// duplicates with ErrUserExists.
func (s *UserStore) Register(username, password string) error {
	if s.Exists(username) {
		return ErrUserExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check: another connection may have registered the name while
	// the hash was being computed.
	if _, ok := s.users[username]; ok {
		return ErrUserExists
	}
	s.users[username] = hash

	return nil
}

// Verify reports whether the username exists and the password matches
// its stored hash. Unknown user and wrong password are
// indistinguishable to the caller.
func (s *UserStore) Verify(username, password string) bool {
	s.mu.Lock()
	hash, ok := s.users[username]
	s.mu.Unlock()

	if !ok {
		return false
	}

	return VerifyPassword(password, hash)
}

func (s *UserStore) Exists(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.users[username]
	return ok
}
