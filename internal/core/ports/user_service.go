package ports

import (
	"context"

	"github.com/99minutos/user-directory/internal/core/domain"
)

// CreateUserInput is the DTO passed from the transport layer to UserService.Create.
type CreateUserInput struct {
	UserName       string
	FullName       string
	Email          string
	Role           string
	IdempotencyKey string // optional
}

// UpdateUserInput carries a partial update; nil fields are not touched.
type UpdateUserInput struct {
	ID       string
	UserName *string
	FullName *string
	Email    *string
	Role     *string
}

// CreateUserResult is returned by UserService.Create.
type CreateUserResult struct {
	User *domain.User
	// Replayed is true when the idempotency key matched an earlier create.
	Replayed bool
}

// UserService defines the directory use cases. Each operation performs a
// single store call.
type UserService interface {
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, input CreateUserInput) (*CreateUserResult, error)
	Update(ctx context.Context, input UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}
