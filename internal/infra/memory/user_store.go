package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"mockprep-service/internal/domain"
)

// UserStore is an in-memory implementation of auth.UserRepository.
type UserStore struct {
	mu     sync.RWMutex
	users  map[string]domain.User // keyed by normalized email
	hashes map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:  make(map[string]domain.User),
		hashes: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User, passwordHash string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.Email] = user
	s.hashes[user.Email] = passwordHash
	return user, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (domain.User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[email]
	if !ok {
		return domain.User{}, "", domain.ErrUserNotFound
	}
	return user, s.hashes[email], nil
}
