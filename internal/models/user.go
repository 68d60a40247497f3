package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// User represents a LINE user or a staff account.
// LINE users are keyed by LineUserID; staff accounts log in with Username.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LineUserID   string             `bson:"line_user_id,omitempty" json:"line_user_id,omitempty"`
	Username     string             `bson:"username,omitempty" json:"username,omitempty"`
	DisplayName  string             `bson:"display_name" json:"display_name"`
	PictureURL   string             `bson:"picture_url,omitempty" json:"picture_url,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// LineLoginRequest carries the LIFF ID token.
type LineLoginRequest struct {
	IDToken string `json:"id_token"`
}

// LoginRequest represents a staff login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	Exp         int64  `json:"exp"`
}

// Action names something a role may be allowed to do.
type Action string

const (
	ActionViewSpots   Action = "view_spots"
	ActionPostReview  Action = "post_review"
	ActionSubmitSpot  Action = "submit_spot"
	ActionModerate    Action = "moderate_submissions"
	ActionManageUsers Action = "manage_users"
)

// Admins may do anything and are not listed.
var rolePermissions = map[Role][]Action{
	RoleModerator: {ActionViewSpots, ActionPostReview, ActionSubmitSpot, ActionModerate},
	RoleUser:      {ActionViewSpots, ActionPostReview, ActionSubmitSpot},
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role Role) bool {
	return role == RoleAdmin || rolePermissions[role] != nil
}

// ParseRole parses a role name such as "moderator".
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !IsValidRole(r) {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Can reports whether the role grants action.
func (r Role) Can(action Action) bool {
	if r == RoleAdmin {
		return true
	}
	for _, a := range rolePermissions[r] {
		if a == action {
			return true
		}
	}
	return false
}

// HasPermission reports whether the user's role grants action.
func (u *User) HasPermission(action Action) bool {
	return u.Role.Can(action)
}
