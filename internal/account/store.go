// Package account holds the in-memory user directory. Trading state lives in
// the ledger; this store only knows who a user is and how they log in.
package account

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"lv-papertrade/internal/id"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("email already registered")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type Store struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
}

func NewStore() *Store {
	return &Store{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *Store) Create(email, fullName, passwordHash string, isAdmin bool) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return User{}, ErrEmailExists
	}
	u := &User{
		ID:           id.New(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID
	return *u, nil
}

func (s *Store) GetByEmail(email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return *s.byID[uid], nil
}

func (s *Store) GetByID(userID string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

func (s *Store) List() []User {
	s.mu.RLock()
	out := make([]User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, *u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) Delete(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, userID)
	delete(s.byEmail, u.Email)
	return nil
}
