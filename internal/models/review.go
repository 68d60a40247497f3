package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidCrowdLevel = errors.New("invalid crowd level")

// CrowdLevel is how busy a reviewer found the spot.
type CrowdLevel string

const (
	CrowdLow    CrowdLevel = "low"
	CrowdMedium CrowdLevel = "medium"
	CrowdHigh   CrowdLevel = "high"
)

// CrowdLevels lists the levels from mildest to most severe.
var CrowdLevels = []CrowdLevel{CrowdLow, CrowdMedium, CrowdHigh}

// ParseCrowdLevel validates a crowd level.
func ParseCrowdLevel(s string) (CrowdLevel, error) {
	c := CrowdLevel(strings.TrimSpace(s))
	switch c {
	case CrowdLow, CrowdMedium, CrowdHigh:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCrowdLevel, s)
	}
}

// Severity orders crowd levels; unknown levels are 0.
func (c CrowdLevel) Severity() int {
	switch c {
	case CrowdLow:
		return 1
	case CrowdMedium:
		return 2
	case CrowdHigh:
		return 3
	default:
		return 0
	}
}

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500
)

// Review is a user's rating of a spot.
type Review struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SpotID      primitive.ObjectID `bson:"spot_id" json:"spot_id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	Rating      int                `bson:"rating" json:"rating"`
	CrowdLevel  CrowdLevel         `bson:"crowd_level,omitempty" json:"crowd_level,omitempty"`
	Comment     string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// ReviewRequest is the body of a review post.
type ReviewRequest struct {
	Rating     int    `json:"rating"`
	CrowdLevel string `json:"crowd_level"`
	Comment    string `json:"comment"`
}
