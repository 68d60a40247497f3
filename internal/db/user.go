package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kadod/mama-odekake-liff/internal/models"
)

// ErrDuplicateUser is returned when a username or LINE user id is taken.
var ErrDuplicateUser = errors.New("user already exists")

// MongoUserCollection stores parents (keyed by LINE user id) and staff
// accounts (keyed by username) in one collection.
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser stores a new active account. An empty role means a parent.
func (c *MongoUserCollection) InsertUser(ctx context.Context, user models.User) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	now := time.Now().UTC()
	user.ID = primitive.NilObjectID
	user.CreatedAt, user.UpdatedAt = now, now
	user.IsActive = true
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	if _, err := c.Collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert user %q: %w", user.Username, ErrDuplicateUser)
		}
		return err
	}
	return nil
}

// FindUserByID loads a user by hex ObjectID.
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseObjectID("user", id)
	if err != nil {
		return nil, err
	}
	return c.findOne(ctx, bson.M{"_id": oid})
}

// FindUserByUsername looks up a staff account.
func (c *MongoUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.findOne(ctx, bson.M{"username": username})
}

func (c *MongoUserCollection) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	var u models.User
	if err := c.Collection.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UpsertLineUser creates the user for a LINE account on first login and
// refreshes the profile fields on later ones. Role and active flag are
// only set on creation so moderators keep their role across logins.
func (c *MongoUserCollection) UpsertLineUser(ctx context.Context, p LineProfile) (*models.User, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	if p.UserID == "" {
		return nil, errors.New("upsert line user: empty LINE user id")
	}
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"display_name": p.DisplayName,
			"picture_url":  p.PictureURL,
			"last_login":   now,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"line_user_id": p.UserID,
			"role":         models.RoleUser,
			"is_active":    true,
			"created_at":   now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var u models.User
	err := c.Collection.FindOneAndUpdate(ctx, bson.M{"line_user_id": p.UserID}, update, opts).Decode(&u)
	if err != nil {
		return nil, fmt.Errorf("upsert line user: %w", err)
	}
	return &u, nil
}

// UpdateLastLogin stamps a successful staff login.
func (c *MongoUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	oid, err := parseObjectID("user", id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := c.Collection.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"last_login": now, "updated_at": now}})
	switch {
	case err != nil:
		return err
	case res.MatchedCount == 0:
		return ErrNotFound
	}
	return nil
}
