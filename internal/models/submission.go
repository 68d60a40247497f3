package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmissionStatus tracks moderation of a suggested spot.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// IsValidSubmissionStatus checks if a status is valid
func IsValidSubmissionStatus(s SubmissionStatus) bool {
	switch s {
	case SubmissionPending, SubmissionApproved, SubmissionRejected:
		return true
	default:
		return false
	}
}

const (
	MaxSpotNameLength    = 100
	MaxSpotAddressLength = 200
)

// Submission is a user-suggested spot awaiting moderation.
type Submission struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name             string              `bson:"name" json:"name"`
	Address          string              `bson:"address" json:"address"`
	Description      string              `bson:"description,omitempty" json:"description,omitempty"`
	Location         *Location           `bson:"location,omitempty" json:"location,omitempty"`
	Parking          Parking             `bson:"parking" json:"parking"`
	StrollerFriendly bool                `bson:"stroller_friendly" json:"stroller_friendly"`
	NursingRoom      bool                `bson:"nursing_room" json:"nursing_room"`
	DiaperChange     bool                `bson:"diaper_change" json:"diaper_change"`
	AgeRanges        []AgeRange          `bson:"age_ranges,omitempty" json:"age_ranges,omitempty"`
	Phone            string              `bson:"phone,omitempty" json:"phone,omitempty"`
	Website          string              `bson:"website,omitempty" json:"website,omitempty"`
	SubmittedBy      string              `bson:"submitted_by" json:"submitted_by"`
	Status           SubmissionStatus    `bson:"status" json:"status"`
	ReviewedBy       string              `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	SpotID           *primitive.ObjectID `bson:"spot_id,omitempty" json:"spot_id,omitempty"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
}

// ToSpot builds the spot an approved submission becomes.
func (s *Submission) ToSpot(now time.Time) Spot {
	var loc *Location
	if s.Location != nil {
		l := *s.Location
		loc = &l
	}
	return Spot{
		Name:             s.Name,
		Address:          s.Address,
		Description:      s.Description,
		Location:         loc,
		Parking:          s.Parking,
		StrollerFriendly: s.StrollerFriendly,
		NursingRoom:      s.NursingRoom,
		DiaperChange:     s.DiaperChange,
		AgeRanges:        append([]AgeRange(nil), s.AgeRanges...),
		Phone:            s.Phone,
		Website:          s.Website,
		CreatedAt:        now,
	}
}

// SubmissionRequest is the body of a spot suggestion.
type SubmissionRequest struct {
	Name             string    `json:"name"`
	Address          string    `json:"address"`
	Description      string    `json:"description"`
	Location         *Location `json:"location"`
	Parking          string    `json:"parking"`
	StrollerFriendly bool      `json:"stroller_friendly"`
	NursingRoom      bool      `json:"nursing_room"`
	DiaperChange     bool      `json:"diaper_change"`
	AgeRanges        []string  `json:"age_ranges"`
	Phone            string    `json:"phone"`
	Website          string    `json:"website"`
}
