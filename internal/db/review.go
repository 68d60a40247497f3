package db

import (
	"context"
	"fmt"
	"time"

	"github.com/kadod/mama-odekake-liff/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReviewCollection implements ReviewCollection for MongoDB.
type MongoReviewCollection struct {
	Collection *mongo.Collection
}

// InsertReview stores a review and returns its ID.
func (c *MongoReviewCollection) InsertReview(ctx context.Context, review models.Review) (primitive.ObjectID, error) {
	if c.Collection == nil {
		return primitive.NilObjectID, ErrNilCollection
	}
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	if _, err := c.Collection.InsertOne(ctx, review); err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert review: %w", err)
	}
	return review.ID, nil
}

// FindReviewsBySpot returns the reviews of a spot, newest first.
func (c *MongoReviewCollection) FindReviewsBySpot(ctx context.Context, spotID primitive.ObjectID) ([]models.Review, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := c.Collection.Find(ctx, bson.M{"spot_id": spotID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	reviews := []models.Review{}
	if err := decodeAll(ctx, cur, &reviews); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	return reviews, nil
}
