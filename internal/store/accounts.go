package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/repository"
)

// MemoryAccounts is the in-process account store paired with MemoryStore.
type MemoryAccounts struct {
	mu   sync.Mutex
	byID map[string]*domain.Account
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{byID: make(map[string]*domain.Account)}
}

func (m *MemoryAccounts) Create(ctx context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if a.Email != "" && strings.EqualFold(other.Email, a.Email) {
			return repository.ErrAccountExists
		}
		if a.Subject != "" && other.Provider == a.Provider && other.Subject == a.Subject {
			return repository.ErrAccountExists
		}
	}
	if _, ok := m.byID[a.ID]; ok {
		return repository.ErrAccountExists
	}
	a.CreatedAt = time.Now().UTC()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *MemoryAccounts) find(match func(*domain.Account) bool) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (m *MemoryAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return m.find(func(a *domain.Account) bool { return a.Email != "" && strings.EqualFold(a.Email, email) })
}

func (m *MemoryAccounts) GetBySubject(ctx context.Context, provider, subject string) (*domain.Account, error) {
	return m.find(func(a *domain.Account) bool { return a.Provider == provider && a.Subject == subject })
}

func (m *MemoryAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return m.find(func(a *domain.Account) bool { return a.ID == id })
}
