// Package mongo provides the MongoDB-backed user store. This is the primary
// production backend: each user is one document with the address book
// embedded, and contact mutations are atomic $push/$pull updates rather than
// whole-array rewrites, so two concurrent requests from the same user cannot
// clobber each other.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	ab "github.com/panyam/addrbook"
)

// UserStore implements addrbook.UserStore on a single Mongo collection.
type UserStore struct {
	col *mongo.Collection
}

// NewUserStore wraps the given collection and ensures the uniqueness
// indexes: username, and (provider, provider_id) for federated accounts.
func NewUserStore(db *mongo.Database, collection string) (*UserStore, error) {
	col := db.Collection(collection)
	_, err := col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"provider_id": bson.M{"$gt": ""}}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return &UserStore{col: col}, nil
}

// Connect dials the Mongo deployment, pings it, and returns the database
// handle. Call the returned close func at shutdown.
func Connect(ctx context.Context, uri, dbName string, logger *zap.SugaredLogger) (*mongo.Database, func(context.Context) error, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("mongo ping failed: %w", err)
	}
	logger.Infow("connected to mongo", "db", dbName)
	return client.Database(dbName), client.Disconnect, nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *ab.User) error {
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = time.Now().UTC()
	if user.AddressBook == nil {
		user.AddressBook = []ab.Contact{}
	}
	_, err := s.col.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: username %s", ab.ErrDuplicateAccount, user.Username)
	}
	return err
}

func (s *UserStore) GetUserById(ctx context.Context, userId string) (*ab.User, error) {
	return s.findOne(ctx, bson.M{"_id": userId})
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*ab.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *UserStore) GetUserByProvider(ctx context.Context, provider, providerId string) (*ab.User, error) {
	return s.findOne(ctx, bson.M{"provider": provider, "provider_id": providerId})
}

func (s *UserStore) SaveUser(ctx context.Context, user *ab.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := s.col.UpdateByID(ctx, user.Id, bson.M{"$set": bson.M{
		"username":   user.Username,
		"email":      user.Email,
		"provider":   user.Provider,
		"profile":    user.Profile,
		"updated_at": user.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ab.ErrUserNotFound, user.Id)
	}
	return nil
}

// AddContact appends with a single $push so concurrent adds interleave
// instead of overwriting each other.
func (s *UserStore) AddContact(ctx context.Context, userId string, contact ab.Contact) error {
	res, err := s.col.UpdateByID(ctx, userId, bson.M{
		"$push": bson.M{"address_book": contact},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ab.ErrUserNotFound, userId)
	}
	return nil
}

func (s *UserStore) RemoveContactById(ctx context.Context, userId string, contactId string) (int, error) {
	return s.pullContacts(ctx, userId, bson.M{"id": contactId})
}

// RemoveContactsByName removes every entry with the exact name; $pull
// matches all array elements.
func (s *UserStore) RemoveContactsByName(ctx context.Context, userId string, name string) (int, error) {
	return s.pullContacts(ctx, userId, bson.M{"name": name})
}

func (s *UserStore) pullContacts(ctx context.Context, userId string, filter bson.M) (int, error) {
	// $pull does not report how many elements went away, so count matches
	// first. The count is advisory (used for not-found responses); the pull
	// itself stays a single atomic update.
	user, err := s.GetUserById(ctx, userId)
	if err != nil {
		return 0, err
	}
	matched := 0
	for _, c := range user.AddressBook {
		if contactMatches(c, filter) {
			matched++
		}
	}

	res, err := s.col.UpdateByID(ctx, userId, bson.M{
		"$pull": bson.M{"address_book": filter},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	if res.MatchedCount == 0 {
		return 0, fmt.Errorf("%w: %s", ab.ErrUserNotFound, userId)
	}
	return matched, nil
}

func contactMatches(c ab.Contact, filter bson.M) bool {
	if id, ok := filter["id"].(string); ok && c.Id != id {
		return false
	}
	if name, ok := filter["name"].(string); ok && c.Name != name {
		return false
	}
	return true
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*ab.User, error) {
	var user ab.User
	err := s.col.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ab.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
