package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/99minutos/user-directory/internal/core/domain"
)

const collectionUsers = "users"

// Unique index names. EnsureIndexes creates userName first so that a document
// colliding on both fields is reported against userName.
const (
	indexUserName = "userName_1"
	indexEmail    = "email_1"
)

// UserRepository implements ports.UserRepository on MongoDB. Uniqueness is
// enforced by the unique indexes, never by read-then-write checks.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(collectionUsers)}
}

type userDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	UserName string             `bson:"userName"`
	FullName string             `bson:"fullName,omitempty"`
	Email    string             `bson:"email"`
	Role     string             `bson:"role"`
}

func (d *userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:       d.ID.Hex(),
		UserName: d.UserName,
		FullName: d.FullName,
		Email:    d.Email,
		Role:     domain.Role(d.Role),
	}
}

// List returns all users ordered by _id, which follows insertion order.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toDomain())
	}
	return users, nil
}

// Create inserts a new user document under a fresh ObjectID.
func (r *UserRepository) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	doc := userDocument{
		ID:       primitive.NewObjectID(),
		UserName: u.UserName,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     string(u.Role),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, conflictFromError(err, map[string]string{
				domain.FieldUserName: u.UserName,
				domain.FieldEmail:    u.Email,
			})
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

// Update applies patch with $set and returns the post-update document.
func (r *UserRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// Not an id this store could ever have issued.
		return nil, domain.ErrUserNotFound
	}
	filter := bson.M{"_id": oid}

	var doc userDocument
	if patch.Empty() {
		err = r.coll.FindOne(ctx, filter).Decode(&doc)
	} else {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": setDocument(patch)}, opts).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			candidate := map[string]string{}
			if patch.UserName != nil {
				candidate[domain.FieldUserName] = *patch.UserName
			}
			if patch.Email != nil {
				candidate[domain.FieldEmail] = *patch.Email
			}
			return nil, conflictFromError(err, candidate)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return doc.toDomain(), nil
}

// Delete removes the user document.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Ping checks connectivity to the primary.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the unique indexes on userName and email.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: domain.FieldUserName, Value: 1}},
			Options: options.Index().SetUnique(true).SetName(indexUserName),
		},
		{
			Keys:    bson.D{{Key: domain.FieldEmail, Value: 1}},
			Options: options.Index().SetUnique(true).SetName(indexEmail),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func setDocument(p domain.UserPatch) bson.M {
	set := bson.M{}
	if p.UserName != nil {
		set[domain.FieldUserName] = *p.UserName
	}
	if p.FullName != nil {
		set[domain.FieldFullName] = *p.FullName
	}
	if p.Email != nil {
		set[domain.FieldEmail] = *p.Email
	}
	if p.Role != nil {
		set[domain.FieldRole] = string(*p.Role)
	}
	return set
}

// dupKeyPattern matches the server message of an E11000 error, e.g.
//
//	E11000 duplicate key error collection: userDatabase.users index: userName_1 dup key: { userName: "bob" }
//
// It is only consulted when the server reply carries no keyValue document.
var dupKeyPattern = regexp.MustCompile(`index: (\w+?)_1 dup key: \{ ?\w*: ?"((?:[^"\\]|\\.)*)" ?\}`)

// conflictFromError turns a duplicate-key error into a *domain.ConflictError.
// candidate holds the values that were written, keyed by field; they take
// precedence over the value reported by the server.
func conflictFromError(err error, candidate map[string]string) error {
	field, value, ok := keyValueFromRaw(err)
	if !ok {
		m := dupKeyPattern.FindStringSubmatch(err.Error())
		if m == nil {
			return fmt.Errorf("unrecognised duplicate key error: %w", err)
		}
		field, value = m[1], m[2]
	}

	if v, ok := candidate[field]; ok {
		value = v
	}
	return &domain.ConflictError{Field: field, Value: value}
}

// keyValueFromRaw reads the first field of the keyValue document the server
// attaches to a duplicate-key reply.
func keyValueFromRaw(err error) (field, value string, ok bool) {
	var raws []bson.Raw
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				raws = append(raws, e.Raw)
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		raws = append(raws, ce.Raw)
	}

	for _, raw := range raws {
		if len(raw) == 0 {
			continue
		}
		kv, lerr := raw.LookupErr("keyValue")
		if lerr != nil {
			continue
		}
		doc, isDoc := kv.DocumentOK()
		if !isDoc {
			continue
		}
		elems, eerr := doc.Elements()
		if eerr != nil || len(elems) == 0 {
			continue
		}
		v := elems[0].Value()
		if str, isStr := v.StringValueOK(); isStr {
			return elems[0].Key(), str, true
		}
		return elems[0].Key(), v.String(), true
	}
	return "", "", false
}
