package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-directory/internal/api"
	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/service"
	"github.com/99minutos/user-directory/internal/infrastructure/db/memory"
)

func newDirectoryServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo, err := memory.NewUserRepository()
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	e := api.NewRouter(api.Deps{
		Users:    service.NewUserService(repo, nil, 0, zerolog.Nop()),
		Logger:   zerolog.Nop(),
		Registry: prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func strPtr(s string) *string { return &s }

func TestClient_Scenarios(t *testing.T) {
	ctx := context.Background()
	c := New(newDirectoryServer(t).URL)

	users, err := c.ListUsers(ctx)
	if err != nil || len(users) != 0 || users == nil {
		t.Fatalf("fresh directory: users=%v err=%v", users, err)
	}

	bob, err := c.CreateUser(ctx, Fields{UserName: "bob", Email: "b@x.com", Role: "User"}, "")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if bob.ID == "" || bob.Role != domain.RoleUser {
		t.Fatalf("unexpected user: %+v", bob)
	}

	_, err = c.CreateUser(ctx, Fields{UserName: "bob", Email: "c@x.com", Role: "Admin"}, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindConflict || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if apiErr.Msg != `userName "bob" already exists` {
		t.Errorf("unexpected conflict msg %q", apiErr.Msg)
	}

	_, err = c.UpdateUser(ctx, "zzz", Patch{FullName: strPtr("Z")})
	if !IsKind(err, KindNotFound) || Message(err) != "User not found with that ID" {
		t.Fatalf("expected not found, got %v", err)
	}

	updated, err := c.UpdateUser(ctx, bob.ID, Patch{Role: strPtr("Developer")})
	if err != nil || updated.ID != bob.ID || updated.Role != domain.RoleDeveloper {
		t.Fatalf("update: %+v %v", updated, err)
	}

	if err := c.DeleteUser(ctx, bob.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.DeleteUser(ctx, bob.ID); !IsKind(err, KindNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}

	users, err = c.ListUsers(ctx)
	if err != nil || len(users) != 0 {
		t.Fatalf("after delete: users=%v err=%v", users, err)
	}
}

func TestClient_CreateSendsIdempotencyKey(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(idempotencyHeader)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"msg":"User created","user":{"id":"u1","userName":"bob","email":"b@x.com","role":"User"}}`))
	}))
	defer srv.Close()

	u, err := New(srv.URL).CreateUser(context.Background(), Fields{UserName: "bob", Email: "b@x.com", Role: "User"}, "key-1")
	if err != nil || u.ID != "u1" {
		t.Fatalf("create: %+v %v", u, err)
	}
	if got != "key-1" {
		t.Errorf("expected idempotency header, got %q", got)
	}
}

func TestClient_ListLegacyNotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"msg":"No users exist. Try adding one."}`))
	}))
	defer srv.Close()

	users, err := New(srv.URL).ListUsers(context.Background())
	if err != nil || len(users) != 0 {
		t.Fatalf("expected empty list, got %v %v", users, err)
	}
}

func TestClient_ListOtherNotFoundIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New(srv.URL).ListUsers(context.Background())
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListUsers(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindInternal || apiErr.Msg != "Bad Gateway" {
		t.Fatalf("expected internal error with status text, got %v", err)
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).ListUsers(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if Message(err) != msgUnreachable {
		t.Errorf("unexpected message %q", Message(err))
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).ListUsers(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError on timeout, got %v", err)
	}
}
