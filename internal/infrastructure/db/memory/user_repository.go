// Package memory provides an in-process record store backed by hashicorp/go-memdb.
//
// go-memdb serializes write transactions, so checking the userName and email
// indexes and inserting inside one write transaction is atomic with respect to
// every other writer.
package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/99minutos/user-directory/internal/core/domain"
)

const (
	tableUsers = "users"

	indexID       = "id"
	indexUserName = "userName"
	indexEmail    = "email"
	indexSeq      = "seq"
)

// record is the stored form. Seq is a zero-padded insertion counter so the
// string index iterates in insertion order.
type record struct {
	ID       string
	UserName string
	FullName string
	Email    string
	Role     string
	Seq      string
}

func (r *record) toDomain() domain.User {
	return domain.User{
		ID:       r.ID,
		UserName: r.UserName,
		FullName: r.FullName,
		Email:    r.Email,
		Role:     domain.Role(r.Role),
	}
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexUserName: {
						Name:    indexUserName,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "UserName"},
					},
					indexEmail: {
						Name:    indexEmail,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Email"},
					},
					indexSeq: {
						Name:    indexSeq,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Seq"},
					},
				},
			},
		},
	}
}

// UserRepository implements ports.UserRepository in memory.
type UserRepository struct {
	db  *memdb.MemDB
	seq atomic.Uint64
	// newID is swappable in tests.
	newID func() string
}

// NewUserRepository creates an empty store.
func NewUserRepository() (*UserRepository, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("memdb init: %w", err)
	}
	return &UserRepository{db: db, newID: uuid.NewString}, nil
}

// List returns all records in insertion order.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableUsers, indexSeq)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0)
	for obj := it.Next(); obj != nil; obj = it.Next() {
		users = append(users, obj.(*record).toDomain())
	}
	return users, nil
}

// Create inserts u under a fresh id.
func (r *UserRepository) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := r.db.Txn(true)
	defer txn.Abort()

	if err := checkUnique(txn, "", u.UserName, u.Email); err != nil {
		return nil, err
	}

	rec := &record{
		ID:       r.newID(),
		UserName: u.UserName,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     string(u.Role),
		Seq:      fmt.Sprintf("%020d", r.seq.Add(1)),
	}
	if err := txn.Insert(tableUsers, rec); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	txn.Commit()

	created := rec.toDomain()
	return &created, nil
}

// Update applies patch to the record identified by id.
func (r *UserRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := r.db.Txn(true)
	defer txn.Abort()

	current, err := findByID(txn, id)
	if err != nil {
		return nil, err
	}

	var userName, email string
	if patch.UserName != nil {
		userName = *patch.UserName
	}
	if patch.Email != nil {
		email = *patch.Email
	}
	if err := checkUnique(txn, id, userName, email); err != nil {
		return nil, err
	}

	next := patch.Apply(current.toDomain())
	rec := &record{
		ID:       current.ID,
		UserName: next.UserName,
		FullName: next.FullName,
		Email:    next.Email,
		Role:     string(next.Role),
		Seq:      current.Seq,
	}
	if err := txn.Insert(tableUsers, rec); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	txn.Commit()

	return &next, nil
}

// Delete removes the record identified by id.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := r.db.Txn(true)
	defer txn.Abort()

	current, err := findByID(txn, id)
	if err != nil {
		return err
	}
	if err := txn.Delete(tableUsers, current); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	txn.Commit()
	return nil
}

// Ping always succeeds; the store lives in-process.
func (r *UserRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func findByID(txn *memdb.Txn, id string) (*record, error) {
	raw, err := txn.First(tableUsers, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if raw == nil {
		return nil, domain.ErrUserNotFound
	}
	return raw.(*record), nil
}

// checkUnique reports the first of userName, email already held by a record
// other than selfID. Empty values are not checked.
func checkUnique(txn *memdb.Txn, selfID, userName, email string) error {
	checks := []struct {
		index, field, value string
	}{
		{indexUserName, domain.FieldUserName, userName},
		{indexEmail, domain.FieldEmail, email},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		raw, err := txn.First(tableUsers, c.index, c.value)
		if err != nil {
			return fmt.Errorf("check %s: %w", c.field, err)
		}
		if raw != nil && raw.(*record).ID != selfID {
			return &domain.ConflictError{Field: c.field, Value: c.value}
		}
	}
	return nil
}
