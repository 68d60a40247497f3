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
)

// Collection names.
const (
	SpotsCollection       = "spots"
	ReviewsCollection     = "reviews"
	SubmissionsCollection = "submissions"
	UsersCollection       = "users"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo: empty uri")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// Store bundles the collections of one database.
type Store struct {
	Spots       *MongoSpotCollection
	Reviews     *MongoReviewCollection
	Submissions *MongoSubmissionCollection
	Users       *MongoUserCollection
}

// NewStore wires every collection of database d.
func NewStore(d *mongo.Database) *Store {
	return &Store{
		Spots:       &MongoSpotCollection{Collection: d.Collection(SpotsCollection)},
		Reviews:     &MongoReviewCollection{Collection: d.Collection(ReviewsCollection)},
		Submissions: &MongoSubmissionCollection{Collection: d.Collection(SubmissionsCollection)},
		Users:       &MongoUserCollection{Collection: d.Collection(UsersCollection)},
	}
}

// EnsureIndexes creates the indexes the queries rely on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	type collIndexes struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}
	all := []collIndexes{
		{s.Spots.Collection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		}},
		{s.Reviews.Collection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "spot_id", Value: 1}, {Key: "created_at", Value: -1}}},
		}},
		{s.Submissions.Collection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		}},
		{s.Users.Collection, []mongo.IndexModel{
			{
				Keys: bson.D{{Key: "line_user_id", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"line_user_id": bson.M{"$type": "string"}}),
			},
			{
				Keys: bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"username": bson.M{"$type": "string"}}),
			},
		}},
	}
	for _, ci := range all {
		if ci.coll == nil {
			return ErrNilCollection
		}
		if _, err := ci.coll.Indexes().CreateMany(ctx, ci.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", ci.coll.Name(), err)
		}
	}
	return nil
}

func parseObjectID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid %s ID %q: %w", kind, id, ErrNotFound)
	}
	return oid, nil
}

// decodeAll drains cur into out and closes it.
func decodeAll(ctx context.Context, cur Cursor, out interface{}) error {
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
