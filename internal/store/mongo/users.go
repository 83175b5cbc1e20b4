package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/citypulse/cityhub/internal/domain/user"
	"github.com/citypulse/cityhub/internal/observability"
	"github.com/citypulse/cityhub/internal/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersStore is the managed-backend flavoured credential store on MongoDB.
// It exposes the same contract as the Postgres adapter; nothing above this
// package knows which one is wired in.
type UsersStore struct {
	coll *mongo.Collection
	prom *observability.Prom
}

// NewUsersStore ensures the unique email index before returning. Duplicate
// signups racing past the service pre-check lose here, not in app code.
func NewUsersStore(ctx context.Context, db *mongo.Database, prom *observability.Prom) (*UsersStore, error) {
	coll := db.Collection("users")

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	if err != nil {
		return nil, err
	}

	return &UsersStore{coll: coll, prom: prom}, nil
}

func (r *UsersStore) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

func (r *UsersStore) Create(ctx context.Context, nu store.NewUser) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Preferences:  nu.Preferences,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.coll.InsertOne(ctx, u)
		return err
	})

	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, store.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_email", bson.D{{Key: "email", Value: email}})
}

func (r *UsersStore) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_id", bson.D{{Key: "_id", Value: id}})
}

func (r *UsersStore) findOne(ctx context.Context, op string, filter bson.D) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		return r.coll.FindOne(ctx, filter).Decode(&u)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, store.ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersStore) Update(ctx context.Context, id string, upd store.UserUpdate) (user.User, error) {
	set := bson.D{{Key: "updated_at", Value: time.Now().UTC()}}

	if upd.DisplayName != nil {
		set = append(set, bson.E{Key: "display_name", Value: *upd.DisplayName})
	}

	if upd.UserName != nil {
		set = append(set, bson.E{Key: "user_name", Value: *upd.UserName})
	}

	if upd.Preferences != nil {
		set = append(set, bson.E{Key: "preferences", Value: *upd.Preferences})
	}

	var u user.User

	err := r.observe("users.update", func() error {
		return r.coll.FindOneAndUpdate(
			ctx,
			bson.D{{Key: "_id", Value: id}},
			bson.D{{Key: "$set", Value: set}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&u)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, store.ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}
