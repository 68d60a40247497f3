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

// MongoSubmissionCollection implements SubmissionCollection for MongoDB.
type MongoSubmissionCollection struct {
	Collection *mongo.Collection
}

// InsertSubmission stores a new pending submission.
func (c *MongoSubmissionCollection) InsertSubmission(ctx context.Context, sub models.Submission) (primitive.ObjectID, error) {
	if c.Collection == nil {
		return primitive.NilObjectID, ErrNilCollection
	}
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	sub.Status = models.SubmissionPending
	if _, err := c.Collection.InsertOne(ctx, sub); err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert submission: %w", err)
	}
	return sub.ID, nil
}

// FindSubmissions lists submissions with the given status, or all of them
// when status is empty, newest first.
func (c *MongoSubmissionCollection) FindSubmissions(ctx context.Context, status models.SubmissionStatus) ([]models.Submission, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find submissions: %w", err)
	}
	subs := []models.Submission{}
	if err := decodeAll(ctx, cur, &subs); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	return subs, nil
}

// FindSubmissionByID finds a submission by its hex ID.
func (c *MongoSubmissionCollection) FindSubmissionByID(ctx context.Context, id string) (*models.Submission, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	oid, err := parseObjectID("submission", id)
	if err != nil {
		return nil, err
	}
	var sub models.Submission
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&sub); err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

// DecideSubmission moves a pending submission to approved or rejected.
// It fails with ErrAlreadyDecided if the submission is no longer pending.
func (c *MongoSubmissionCollection) DecideSubmission(ctx context.Context, id primitive.ObjectID, d Decision) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	if d.Status != models.SubmissionApproved && d.Status != models.SubmissionRejected {
		return fmt.Errorf("decide submission: invalid status %q", d.Status)
	}
	set := bson.M{
		"status":      d.Status,
		"reviewed_by": d.ReviewedBy,
		"reviewed_at": time.Now().UTC(),
	}
	if d.SpotID != nil {
		set["spot_id"] = *d.SpotID
	}
	res, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.SubmissionPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("decide submission: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("decide submission: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrAlreadyDecided
	}
	return nil
}
