// Package controller holds the client-side view of the directory and keeps it
// in step with the server: every mutation is followed by a fresh list, and the
// local list is never edited ahead of the server.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-directory/internal/client"
	"github.com/99minutos/user-directory/internal/core/domain"
)

var (
	// ErrSubmitPending is returned when Submit or a form transition is
	// attempted while a submit is still in flight.
	ErrSubmitPending = errors.New("controller: a submit is already in progress")
	// ErrFormClosed is returned when Submit is called with no open form.
	ErrFormClosed = errors.New("controller: no form is open")
)

// Directory is the subset of the API client the controller drives.
type Directory interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, fields client.Fields, idempotencyKey string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, patch client.Patch) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Draft is the contents of the add/edit form.
type Draft struct {
	UserName string
	FullName string
	Email    string
	Role     string
}

// DraftFrom copies a user into a form draft.
func DraftFrom(u domain.User) Draft {
	return Draft{UserName: u.UserName, FullName: u.FullName, Email: u.Email, Role: string(u.Role)}
}

// State is a snapshot of everything the presentation layer renders.
type State struct {
	Users     []domain.User
	Draft     Draft
	EditingID string
	FormOpen  bool
	Pending   bool
	Loading   bool
	LastError string
}

// Editing reports whether the open form edits an existing user.
func (s State) Editing() bool { return s.EditingID != "" }

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient message for the user, such as a toast.
type Notice struct {
	Level Level
	Msg   string
}

type Option func(*Controller)

// WithNotifier registers a callback for transient notices. It is called
// without the controller lock held.
func WithNotifier(fn func(Notice)) Option {
	return func(c *Controller) { c.notify = fn }
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithKeyFunc replaces the idempotency key generator.
func WithKeyFunc(fn func() string) Option {
	return func(c *Controller) { c.newKey = fn }
}

type Controller struct {
	dir    Directory
	notify func(Notice)
	logger zerolog.Logger
	newKey func() string

	mu       sync.Mutex
	state    State
	draftKey string
}

func New(dir Directory, opts ...Option) *Controller {
	c := &Controller{
		dir:    dir,
		logger: zerolog.Nop(),
		newKey: uuid.NewString,
		state:  State{Users: []domain.User{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Users = append([]domain.User(nil), c.state.Users...)
	return s
}

// Refresh replaces the local list with the server's. On failure the list is
// cleared so stale rows are never shown next to an error.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.state.Loading = true
	c.mu.Unlock()

	users, err := c.dir.ListUsers(ctx)

	c.mu.Lock()
	c.state.Loading = false
	if err != nil {
		c.state.Users = []domain.User{}
		c.state.LastError = client.Message(err)
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("refresh failed")
		return err
	}
	c.state.Users = append([]domain.User{}, users...)
	c.state.LastError = ""
	c.mu.Unlock()
	return nil
}

// BeginAdd opens an empty form in create mode.
func (c *Controller) BeginAdd() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Pending {
		return ErrSubmitPending
	}
	c.resetFormLocked()
	c.state.FormOpen = true
	return nil
}

// BeginEdit opens the form pre-filled with u.
func (c *Controller) BeginEdit(u domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Pending {
		return ErrSubmitPending
	}
	c.resetFormLocked()
	c.state.Draft = DraftFrom(u)
	c.state.EditingID = u.ID
	c.state.FormOpen = true
	return nil
}

// CancelEdit closes the form and discards the draft.
func (c *Controller) CancelEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Pending {
		return ErrSubmitPending
	}
	c.resetFormLocked()
	return nil
}

// SetDraft replaces the form contents.
func (c *Controller) SetDraft(d Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Pending {
		return ErrSubmitPending
	}
	if d != c.state.Draft {
		c.draftKey = ""
	}
	c.state.Draft = d
	return nil
}

// Submit creates or updates from the draft, then refreshes. On failure the
// form stays open with the draft untouched and LastError set.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Pending {
		c.mu.Unlock()
		return ErrSubmitPending
	}
	if !c.state.FormOpen {
		c.mu.Unlock()
		return ErrFormClosed
	}
	c.state.Pending = true
	draft, editingID := c.state.Draft, c.state.EditingID
	if editingID == "" && c.draftKey == "" {
		c.draftKey = c.newKey()
	}
	key := c.draftKey
	c.mu.Unlock()

	var err error
	if editingID == "" {
		_, err = c.dir.CreateUser(ctx, client.Fields(draft), key)
	} else {
		_, err = c.dir.UpdateUser(ctx, editingID, patchFrom(draft))
	}

	c.mu.Lock()
	c.state.Pending = false
	if err != nil {
		c.state.LastError = client.Message(err)
		msg := c.state.LastError
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str("editing_id", editingID).Msg("submit failed")
		c.emit(LevelError, msg)
		return err
	}
	c.resetFormLocked()
	c.state.LastError = ""
	c.mu.Unlock()

	if editingID == "" {
		c.emit(LevelSuccess, "User created")
	} else {
		c.emit(LevelSuccess, "User updated")
	}
	return c.Refresh(ctx)
}

// Delete removes the user on the server and then refreshes. The local list is
// not touched when the call fails.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.dir.DeleteUser(ctx, id); err != nil {
		c.mu.Lock()
		c.state.LastError = client.Message(err)
		msg := c.state.LastError
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str("user_id", id).Msg("delete failed")
		c.emit(LevelError, msg)
		return err
	}
	c.emit(LevelSuccess, "User deleted")
	return c.Refresh(ctx)
}

func (c *Controller) resetFormLocked() {
	c.state.FormOpen = false
	c.state.Draft = Draft{}
	c.state.EditingID = ""
	c.draftKey = ""
}

func (c *Controller) emit(level Level, msg string) {
	if c.notify != nil {
		c.notify(Notice{Level: level, Msg: msg})
	}
}

func patchFrom(d Draft) client.Patch {
	return client.Patch{
		UserName: &d.UserName,
		FullName: &d.FullName,
		Email:    &d.Email,
		Role:     &d.Role,
	}
}
