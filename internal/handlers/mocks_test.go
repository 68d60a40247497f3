package handlers

import (
	"context"
	"io"
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kadod/mama-odekake-liff/internal/db"
	"github.com/kadod/mama-odekake-liff/internal/events"
	"github.com/kadod/mama-odekake-liff/internal/line"
	"github.com/kadod/mama-odekake-liff/internal/models"
)

// MockSpotCollection is a mock implementation of SpotCollection
type MockSpotCollection struct {
	mock.Mock
}

func (m *MockSpotCollection) InsertSpot(ctx context.Context, spot models.Spot) (primitive.ObjectID, error) {
	args := m.Called(ctx, spot)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockSpotCollection) InsertSpots(ctx context.Context, spots []models.Spot) (int, error) {
	args := m.Called(ctx, spots)
	return args.Int(0), args.Error(1)
}

func (m *MockSpotCollection) FindSpots(ctx context.Context) ([]models.Spot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Spot), args.Error(1)
}

func (m *MockSpotCollection) FindSpotByID(ctx context.Context, id string) (*models.Spot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Spot), args.Error(1)
}

func (m *MockSpotCollection) DeleteSpot(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSpotCollection) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockReviewCollection is a mock implementation of ReviewCollection
type MockReviewCollection struct {
	mock.Mock
}

func (m *MockReviewCollection) InsertReview(ctx context.Context, review models.Review) (primitive.ObjectID, error) {
	args := m.Called(ctx, review)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockReviewCollection) FindReviewsBySpot(ctx context.Context, spotID primitive.ObjectID) ([]models.Review, error) {
	args := m.Called(ctx, spotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}

// MockSubmissionCollection is a mock implementation of SubmissionCollection
type MockSubmissionCollection struct {
	mock.Mock
}

func (m *MockSubmissionCollection) InsertSubmission(ctx context.Context, sub models.Submission) (primitive.ObjectID, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockSubmissionCollection) FindSubmissions(ctx context.Context, status models.SubmissionStatus) ([]models.Submission, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Submission), args.Error(1)
}

func (m *MockSubmissionCollection) FindSubmissionByID(ctx context.Context, id string) (*models.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockSubmissionCollection) DecideSubmission(ctx context.Context, id primitive.ObjectID, decision db.Decision) error {
	args := m.Called(ctx, id, decision)
	return args.Error(0)
}

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) UpsertLineUser(ctx context.Context, profile db.LineProfile) (*models.User, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockVerifier is a mock LINE ID token verifier.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyIDToken(ctx context.Context, idToken string) (line.Profile, error) {
	args := m.Called(ctx, idToken)
	return args.Get(0).(line.Profile), args.Error(1)
}

// MockPublisher records published events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, e events.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockPublisher) Close() {
	m.Called()
}

// MockPinger is a mock database pinger.
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	args := m.Called(ctx, rp)
	return args.Error(0)
}

// eventOfType matches an events.Event by its type.
func eventOfType(t string) interface{} {
	return mock.MatchedBy(func(e events.Event) bool { return e.Type == t })
}

// quietLogs silences logrus for the duration of a test.
func quietLogs(t *testing.T) {
	t.Helper()
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
}
