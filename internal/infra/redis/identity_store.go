package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"mockprep-service/internal/domain"
)

// IdentityStore persists the token/user/email triplet as a Redis hash per
// user. Triplets expire with the configured TTL; a zero TTL keeps them until
// Clear. Last writer wins.
type IdentityStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdentityStore(client *redis.Client, ttl time.Duration) *IdentityStore {
	return &IdentityStore{client: client, ttl: ttl}
}

func (s *IdentityStore) Save(ctx context.Context, identity domain.Identity) error {
	key := identityKey(identity.Email)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key,
		"token", identity.Token,
		"user", identity.User,
		"email", identity.Email,
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

func (s *IdentityStore) Get(ctx context.Context, email string) (domain.Identity, bool, error) {
	fields, err := s.client.HGetAll(ctx, identityKey(email)).Result()
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("get identity: %w", err)
	}
	if len(fields) == 0 {
		return domain.Identity{}, false, nil
	}
	return domain.Identity{
		Token: fields["token"],
		User:  fields["user"],
		Email: fields["email"],
	}, true, nil
}

func (s *IdentityStore) Clear(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, identityKey(email)).Err(); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

func identityKey(email string) string {
	return "identity:" + strings.ToLower(strings.TrimSpace(email))
}
