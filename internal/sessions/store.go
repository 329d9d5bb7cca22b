package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/filedepot/filedepot/internal/common"
	"github.com/filedepot/filedepot/pkg/utils"
)

const keyPrefix = "auth_"

// KV is the slice of the cache the session store needs. Expiry is handled
// entirely by the backing store; there is no sweep here.
type KV interface {
	SetString(ctx context.Context, key, value string, expiration time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Store maps opaque tokens to user IDs with a fixed TTL. Tokens are never
// renewed on access.
type Store struct {
	kv  KV
	ttl time.Duration
}

// NewStore creates a session store on top of kv.
func NewStore(kv KV, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl}
}

// Create issues a fresh token for userID and stores it with the fixed TTL.
func (s *Store) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := utils.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.kv.SetString(ctx, keyPrefix+token, userID.String(), s.ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	log.Debug().Str("user_id", userID.String()).Msg("session created")
	return token, nil
}

// Resolve returns the user behind token. Unknown and expired tokens are
// reported as absent, not as errors.
func (s *Store) Resolve(ctx context.Context, token string) (uuid.UUID, bool, error) {
	value, err := s.kv.GetString(ctx, keyPrefix+token)
	if err != nil {
		if errors.Is(err, common.ErrCacheMiss) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to resolve session: %w", err)
	}

	userID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt session value: %w", err)
	}
	return userID, true, nil
}

// Revoke removes the session behind token. Revoking an absent token
// succeeds.
func (s *Store) Revoke(ctx context.Context, token string) error {
	if err := s.kv.Delete(ctx, keyPrefix+token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
