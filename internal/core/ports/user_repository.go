package ports

import (
	"context"

	"github.com/99minutos/user-directory/internal/core/domain"
)

// UserRepository is the record store. Implementations enforce uniqueness of
// userName and email at the storage layer and assign ids on Create.
type UserRepository interface {
	// List returns every live record in store iteration order.
	List(ctx context.Context) ([]domain.User, error)
	// Create persists u under a fresh id. A collision yields *domain.ConflictError
	// naming the first colliding field (userName before email).
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	// Update applies patch to the record with the given id. Unknown ids yield
	// domain.ErrUserNotFound; collisions with a different record yield *domain.ConflictError.
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	// Delete hard-deletes the record. Unknown ids yield domain.ErrUserNotFound.
	Delete(ctx context.Context, id string) error
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// IdempotentCreate is what a completed create request leaves behind under its
// idempotency key. Fingerprint identifies the request body that produced User.
type IdempotentCreate struct {
	Fingerprint string
	User        *domain.User
}

// IdempotencyStore remembers the outcome of a create request so that a retried
// request carrying the same key replays the original result.
type IdempotencyStore interface {
	Load(ctx context.Context, key string) (*IdempotentCreate, bool, error)
	Save(ctx context.Context, key string, rec IdempotentCreate) error
}
