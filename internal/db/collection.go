package db

import (
	"context"
	"errors"

	"github.com/kadod/mama-odekake-liff/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("not found")
	// ErrNilCollection is returned by wrappers built without a collection.
	ErrNilCollection = errors.New("mongo collection is nil")
	// ErrAlreadyDecided is returned when a submission is no longer pending.
	ErrAlreadyDecided = errors.New("submission already decided")
)

// SpotCollection defines the interface for spot data operations.
type SpotCollection interface {
	InsertSpot(ctx context.Context, spot models.Spot) (primitive.ObjectID, error)
	InsertSpots(ctx context.Context, spots []models.Spot) (int, error)
	FindSpots(ctx context.Context) ([]models.Spot, error)
	FindSpotByID(ctx context.Context, id string) (*models.Spot, error)
	DeleteSpot(ctx context.Context, id primitive.ObjectID) error
	DeleteAll(ctx context.Context) (int64, error)
}

// ReviewCollection defines the interface for review data operations.
type ReviewCollection interface {
	InsertReview(ctx context.Context, review models.Review) (primitive.ObjectID, error)
	FindReviewsBySpot(ctx context.Context, spotID primitive.ObjectID) ([]models.Review, error)
}

// SubmissionCollection defines the interface for spot suggestion operations.
type SubmissionCollection interface {
	InsertSubmission(ctx context.Context, sub models.Submission) (primitive.ObjectID, error)
	FindSubmissions(ctx context.Context, status models.SubmissionStatus) ([]models.Submission, error)
	FindSubmissionByID(ctx context.Context, id string) (*models.Submission, error)
	DecideSubmission(ctx context.Context, id primitive.ObjectID, decision Decision) error
}

// Decision records a moderator's verdict on a pending submission.
type Decision struct {
	Status     models.SubmissionStatus
	ReviewedBy string
	SpotID     *primitive.ObjectID
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpsertLineUser(ctx context.Context, profile LineProfile) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// LineProfile is the identity LINE vouches for after ID token verification.
type LineProfile struct {
	UserID      string
	DisplayName string
	PictureURL  string
}

// Cursor defines the subset of mongo.Cursor the collections use.
type Cursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}
