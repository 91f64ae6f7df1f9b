package memory

import (
	"context"
	"strings"
	"sync"

	"mockprep-service/internal/domain"
)

// IdentityStore keeps the token/user/email triplets in process memory.
// Last writer wins, matching the single-user usage model.
type IdentityStore struct {
	mu         sync.RWMutex
	identities map[string]domain.Identity
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{identities: make(map[string]domain.Identity)}
}

func (s *IdentityStore) Save(_ context.Context, identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[normalize(identity.Email)] = identity
	return nil
}

func (s *IdentityStore) Get(_ context.Context, email string) (domain.Identity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[normalize(email)]
	return identity, ok, nil
}

func (s *IdentityStore) Clear(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.identities, normalize(email))
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
