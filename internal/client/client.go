// Package client talks to the Directory API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/99minutos/user-directory/internal/core/domain"
)

const (
	defaultTimeout    = 10 * time.Second
	idempotencyHeader = "Idempotency-Key"
	maxBodyBytes      = 1 << 20
)

// EmptyListMsg is the message the server attaches to an empty directory.
const EmptyListMsg = "No users exist. Try adding one."

// Fields is the payload for creating a user.
type Fields struct {
	UserName string `json:"userName"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Patch is a partial update. Nil fields are left untouched by the server.
type Patch struct {
	UserName *string `json:"userName,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listResponse struct {
	Users []domain.User `json:"users"`
	Msg   string        `json:"msg"`
}

type userEnvelope struct {
	Msg  string       `json:"msg"`
	User *domain.User `json:"user"`
}

type messageResponse struct {
	Msg string `json:"msg"`
}

// ListUsers returns every user. An empty directory yields an empty slice,
// including when an older server answers it with 404.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var resp listResponse
	err := c.do(ctx, http.MethodGet, "/users", nil, nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Kind == KindNotFound && apiErr.Msg == EmptyListMsg {
			return []domain.User{}, nil
		}
		return nil, err
	}
	if resp.Users == nil {
		resp.Users = []domain.User{}
	}
	return resp.Users, nil
}

// CreateUser posts a new user. A non-empty idempotencyKey lets the server
// replay the original result if the request is retried.
func (c *Client) CreateUser(ctx context.Context, fields Fields, idempotencyKey string) (*domain.User, error) {
	var header http.Header
	if idempotencyKey != "" {
		header = http.Header{idempotencyHeader: []string{idempotencyKey}}
	}
	var resp userEnvelope
	if err := c.do(ctx, http.MethodPost, "/users", fields, header, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, patch Patch) (*domain.User, error) {
	var resp userEnvelope
	if err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), patch, nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var msg messageResponse
		if json.Unmarshal(raw, &msg) != nil || msg.Msg == "" {
			msg.Msg = http.StatusText(res.StatusCode)
		}
		return &APIError{Kind: kindFor(res.StatusCode), Status: res.StatusCode, Msg: msg.Msg}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Kind: KindInternal, Status: res.StatusCode, Msg: "Unreadable response from the directory service"}
	}
	return nil
}
