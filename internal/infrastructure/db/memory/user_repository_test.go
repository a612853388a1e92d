package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/99minutos/user-directory/internal/core/domain"
)

func newRepo(t *testing.T) *UserRepository {
	t.Helper()
	repo, err := NewUserRepository()
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func mustCreate(t *testing.T, repo *UserRepository, userName, email string) *domain.User {
	t.Helper()
	u, err := repo.Create(context.Background(), domain.User{UserName: userName, Email: email, Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("create %s: %v", userName, err)
	}
	return u
}

func strPtr(s string) *string { return &s }

func TestUserRepository_CreateAssignsID(t *testing.T) {
	repo := newRepo(t)
	u := mustCreate(t, repo, "bob", "b@x.com")

	if u.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	users, _ := repo.List(context.Background())
	if len(users) != 1 || users[0].ID != u.ID {
		t.Fatalf("list mismatch: %+v", users)
	}
}

func TestUserRepository_ConflictPrecedence(t *testing.T) {
	repo := newRepo(t)
	mustCreate(t, repo, "a", "x")

	_, err := repo.Create(context.Background(), domain.User{UserName: "a", Email: "y", Role: domain.RoleUser})
	var ce *domain.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if ce.Field != domain.FieldUserName || ce.Value != "a" {
		t.Errorf("expected userName conflict, got %+v", ce)
	}

	// Both fields collide: userName still wins.
	_, err = repo.Create(context.Background(), domain.User{UserName: "a", Email: "x", Role: domain.RoleUser})
	if !errors.As(err, &ce) || ce.Field != domain.FieldUserName {
		t.Errorf("expected userName to be reported first, got %v", err)
	}

	_, err = repo.Create(context.Background(), domain.User{UserName: "b", Email: "x", Role: domain.RoleUser})
	if !errors.As(err, &ce) || ce.Field != domain.FieldEmail || ce.Value != "x" {
		t.Errorf("expected email conflict, got %v", err)
	}

	users, _ := repo.List(context.Background())
	if len(users) != 1 {
		t.Errorf("failed creates must not persist; have %d records", len(users))
	}
}

func TestUserRepository_UpdateKeepsID(t *testing.T) {
	repo := newRepo(t)
	u := mustCreate(t, repo, "bob", "b@x.com")

	role := domain.RoleAdmin
	updated, err := repo.Update(context.Background(), u.ID, domain.UserPatch{FullName: strPtr("Bob B"), Role: &role})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != u.ID {
		t.Errorf("id changed from %q to %q", u.ID, updated.ID)
	}
	if updated.FullName != "Bob B" || updated.Role != domain.RoleAdmin || updated.UserName != "bob" {
		t.Errorf("unexpected record: %+v", updated)
	}
}

func TestUserRepository_UpdateOwnValueIsNotConflict(t *testing.T) {
	repo := newRepo(t)
	u := mustCreate(t, repo, "bob", "b@x.com")

	if _, err := repo.Update(context.Background(), u.ID, domain.UserPatch{UserName: strPtr("bob"), Email: strPtr("b@x.com")}); err != nil {
		t.Fatalf("re-setting own values must succeed: %v", err)
	}
}

func TestUserRepository_UpdateConflict(t *testing.T) {
	repo := newRepo(t)
	mustCreate(t, repo, "alice", "a@x.com")
	bob := mustCreate(t, repo, "bob", "b@x.com")

	_, err := repo.Update(context.Background(), bob.ID, domain.UserPatch{Email: strPtr("a@x.com")})
	var ce *domain.ConflictError
	if !errors.As(err, &ce) || ce.Field != domain.FieldEmail {
		t.Fatalf("expected email conflict, got %v", err)
	}

	users, _ := repo.List(context.Background())
	if users[1].Email != "b@x.com" {
		t.Errorf("conflicting update must not apply: %+v", users[1])
	}
}

func TestUserRepository_UpdateReleasesOldValue(t *testing.T) {
	repo := newRepo(t)
	bob := mustCreate(t, repo, "bob", "b@x.com")

	if _, err := repo.Update(context.Background(), bob.ID, domain.UserPatch{UserName: strPtr("robert")}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	// The old name is free again.
	mustCreate(t, repo, "bob", "other@x.com")
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := newRepo(t)
	u := mustCreate(t, repo, "bob", "b@x.com")

	if _, err := repo.Update(context.Background(), "zzz", domain.UserPatch{}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("update unknown id: expected ErrUserNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), "zzz"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("delete unknown id: expected ErrUserNotFound, got %v", err)
	}

	if err := repo.Delete(context.Background(), u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Same answer after the id existed once.
	if err := repo.Delete(context.Background(), u.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("second delete: expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.Update(context.Background(), u.ID, domain.UserPatch{FullName: strPtr("x")}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("update deleted id: expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_DeleteThenCreateGetsNewID(t *testing.T) {
	repo := newRepo(t)
	first := mustCreate(t, repo, "bob", "b@x.com")
	if err := repo.Delete(context.Background(), first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	second := mustCreate(t, repo, "bob", "b@x.com")

	if second.ID == first.ID {
		t.Errorf("id %q was reused after deletion", first.ID)
	}
}

func TestUserRepository_ListInsertionOrder(t *testing.T) {
	repo := newRepo(t)
	var want []string
	for i := 0; i < 12; i++ {
		u := mustCreate(t, repo, fmt.Sprintf("user%d", i), fmt.Sprintf("u%d@x.com", i))
		want = append(want, u.ID)
	}

	users, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, u := range users {
		if u.ID != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, u.ID, want[i])
		}
	}
}

func TestUserRepository_EmptyListIsNotNil(t *testing.T) {
	repo := newRepo(t)
	users, err := repo.List(context.Background())
	if err != nil || users == nil || len(users) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v, %v", users, err)
	}
}

func TestUserRepository_ConcurrentCreatesKeepUniqueness(t *testing.T) {
	repo := newRepo(t)

	const writers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(context.Background(), domain.User{
				UserName: "same",
				Email:    fmt.Sprintf("u%d@x.com", i),
				Role:     domain.RoleUser,
			})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else if !domain.IsConflict(err) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("expected exactly one winner, got %d", created)
	}
	users, _ := repo.List(context.Background())
	if len(users) != 1 {
		t.Errorf("expected 1 record, got %d", len(users))
	}
}

func TestUserRepository_CancelledContext(t *testing.T) {
	repo := newRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
