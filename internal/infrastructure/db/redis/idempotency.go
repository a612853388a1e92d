package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers the user produced by a create request together
// with the fingerprint of the request body.
// Key format: idem:create-user:<key>
type IdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. A non-positive ttl selects the default.
func NewIdempotencyStore(client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

type idempotencyPayload struct {
	Fingerprint string       `json:"fingerprint"`
	User        *domain.User `json:"user"`
}

// Load returns the record saved under key, if any.
func (s *IdempotencyStore) Load(ctx context.Context, key string) (*ports.IdempotentCreate, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("idempotency load: %w", err)
	}

	var p idempotencyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("idempotency decode: %w", err)
	}
	if p.User == nil || p.Fingerprint == "" {
		return nil, false, fmt.Errorf("idempotency decode: incomplete record under %q", key)
	}
	return &ports.IdempotentCreate{Fingerprint: p.Fingerprint, User: p.User}, true, nil
}

// Save records rec under key. The first writer wins; later saves are no-ops.
func (s *IdempotencyStore) Save(ctx context.Context, key string, rec ports.IdempotentCreate) error {
	raw, err := json.Marshal(idempotencyPayload{Fingerprint: rec.Fingerprint, User: rec.User})
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	if err := s.client.SetNX(ctx, s.key(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency save: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(k string) string {
	return "idem:create-user:" + k
}
