package auth

import (
	"context"
	"sync"
	"time"
)

// memStore is an in-memory Store with the same contract as the PostgreSQL
// implementation, including compare-and-set semantics on MarkUsed.
type memStore struct {
	mu      sync.Mutex
	users   map[string]*User
	byEmail map[string]string
	tokens  map[string]*PurposeToken
	byHash  map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]*PurposeToken),
		byHash:  make(map[string]string),
	}
}

func (m *memStore) Users(context.Context) UserStore          { return (*memUsers)(m) }
func (m *memStore) PurposeTokens(context.Context) PurposeTokenStore { return (*memTokens)(m) }

type memUsers memStore

func (m *memUsers) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrAlreadyExists
	}
	cp := *u
	m.users[u.ID] = &cp
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *memUsers) Find(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *memUsers) UpdateStatus(_ context.Context, id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

type memTokens memStore

func (m *memTokens) Create(_ context.Context, tok *PurposeToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tok
	m.tokens[tok.ID] = &cp
	m.byHash[tok.TokenHash] = tok.ID
	return nil
}

func (m *memTokens) FindByHash(_ context.Context, tokenHash string) (*PurposeToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byHash[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.tokens[id]
	return &cp, nil
}

func (m *memTokens) MarkUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[id]
	if !ok || tok.Used {
		return ErrTokenInvalid
	}
	tok.Used = true
	return nil
}

func (m *memTokens) MarkAllUsed(_ context.Context, userID string, purpose Purpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tok := range m.tokens {
		if tok.UserID == userID && tok.Purpose == purpose {
			tok.Used = true
		}
	}
	return nil
}

func (m *memTokens) HasValid(_ context.Context, userID string, purpose Purpose, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tok := range m.tokens {
		if tok.UserID == userID && tok.Purpose == purpose && tok.Usable(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, tok := range m.tokens {
		if !now.Before(tok.ExpiresAt) {
			delete(m.byHash, tok.TokenHash)
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}
