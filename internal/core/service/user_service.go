package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-directory/internal/api/metrics"
	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

const defaultStoreTimeout = 5 * time.Second

// FieldIdempotencyKey names the idempotency key in validation errors.
const FieldIdempotencyKey = "Idempotency-Key"

const (
	opList   = "list"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// UserService implements ports.UserService. It validates input, makes exactly
// one store call per operation, and bounds that call with a timeout.
type UserService struct {
	repo    ports.UserRepository
	idem    ports.IdempotencyStore
	timeout time.Duration
	logger  zerolog.Logger
}

// NewUserService wires the service. idem may be nil, which disables
// idempotent create replays. A non-positive timeout selects the default.
func NewUserService(repo ports.UserRepository, idem ports.IdempotencyStore, timeout time.Duration, logger zerolog.Logger) *UserService {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &UserService{repo: repo, idem: idem, timeout: timeout, logger: logger}
}

// List returns every user. An empty directory is an empty slice, not an error.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.storeCall(ctx, opList, func(ctx context.Context) error {
		var err error
		users, err = s.repo.List(ctx)
		return err
	})
	s.record(opList, err)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	s.logger.Debug().Int("count", len(users)).Msg("listed users")
	return users, nil
}

// Create validates input and inserts a new user. When an idempotency key is
// supplied and already known, the earlier result is replayed.
func (s *UserService) Create(ctx context.Context, in ports.CreateUserInput) (*ports.CreateUserResult, error) {
	candidate := domain.User{
		UserName: in.UserName,
		FullName: in.FullName,
		Email:    in.Email,
		Role:     domain.Role(in.Role),
	}
	if err := candidate.Validate(); err != nil {
		s.record(opCreate, err)
		return nil, err
	}

	fp := fingerprint(candidate)
	if replay := s.lookupReplay(ctx, in.IdempotencyKey); replay != nil {
		if replay.Fingerprint != fp {
			err := &domain.ValidationError{Field: FieldIdempotencyKey, Reason: "was already used for a different user"}
			s.record(opCreate, err)
			s.logger.Warn().Str("idempotency_key", in.IdempotencyKey).Str("user_id", replay.User.ID).Msg("idempotency key reused with a different body")
			return nil, err
		}
		metrics.IdempotentReplaysTotal.Inc()
		s.logger.Info().Str("idempotency_key", in.IdempotencyKey).Str("user_id", replay.User.ID).Msg("idempotent replay")
		return &ports.CreateUserResult{User: replay.User, Replayed: true}, nil
	}

	var created *domain.User
	err := s.storeCall(ctx, opCreate, func(ctx context.Context) error {
		var err error
		created, err = s.repo.Create(ctx, candidate)
		return err
	})
	s.record(opCreate, err)
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" && s.idem != nil {
		rec := ports.IdempotentCreate{Fingerprint: fp, User: created}
		if err := s.idem.Save(ctx, in.IdempotencyKey, rec); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to save idempotency key")
		}
	}

	metrics.UsersCreatedTotal.WithLabelValues(string(created.Role)).Inc()
	s.logger.Info().Str("user_id", created.ID).Str("user_name", created.UserName).Msg("user created")
	return &ports.CreateUserResult{User: created}, nil
}

// Update applies a partial update. The record's id is never changed.
func (s *UserService) Update(ctx context.Context, in ports.UpdateUserInput) (*domain.User, error) {
	patch := domain.UserPatch{
		UserName: in.UserName,
		FullName: in.FullName,
		Email:    in.Email,
	}
	if in.Role != nil {
		role := domain.Role(*in.Role)
		patch.Role = &role
	}
	if err := patch.Validate(); err != nil {
		s.record(opUpdate, err)
		return nil, err
	}

	var updated *domain.User
	err := s.storeCall(ctx, opUpdate, func(ctx context.Context) error {
		var err error
		updated, err = s.repo.Update(ctx, in.ID, patch)
		return err
	})
	s.record(opUpdate, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", updated.ID).Msg("user updated")
	return updated, nil
}

// Delete hard-deletes the user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.storeCall(ctx, opDelete, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	s.record(opDelete, err)
	if err != nil {
		return err
	}

	s.logger.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

// lookupReplay returns the record remembered under key, or nil. Cache failures
// are logged and treated as a miss.
func (s *UserService) lookupReplay(ctx context.Context, key string) *ports.IdempotentCreate {
	if key == "" || s.idem == nil {
		return nil
	}
	rec, ok, err := s.idem.Load(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed, creating anyway")
		return nil
	}
	if !ok || rec == nil || rec.User == nil {
		return nil
	}
	return rec
}

// fingerprint identifies the body of a create request. Two requests with the
// same fields share a fingerprint.
func fingerprint(u domain.User) string {
	h := sha256.New()
	for _, part := range []string{u.UserName, u.FullName, u.Email, string(u.Role)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// storeCall runs fn under the store timeout and records its latency. A call
// that ran out of time is reported as domain.ErrStoreTimeout.
func (s *UserService) storeCall(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	metrics.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%s user: %w (%v)", op, domain.ErrStoreTimeout, err)
	}
	return err
}

func (s *UserService) record(op string, err error) {
	metrics.UserOperationsTotal.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case domain.IsConflict(err):
		return metrics.OutcomeConflict
	case domain.IsValidation(err):
		return metrics.OutcomeInvalid
	case errors.Is(err, domain.ErrUserNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, domain.ErrStoreTimeout):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}
