// Package auth issues and checks the API's session tokens and hashes the
// passwords of staff accounts. Parents never have a password: they sign in
// through LINE and receive the same session token.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kadod/mama-odekake-liff/internal/models"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
)

// DefaultTokenExpiry is used when no expiry is configured.
const DefaultTokenExpiry = 24 * time.Hour

const (
	issuer    = "mama-odekake"
	clockSkew = 5 * time.Second

	minPasswordLen = 8
	minUsernameLen = 3
	maxUsernameLen = 50
)

// sessionClaims is the payload of a session token. The subject is the
// user's ObjectID in hex.
type sessionClaims struct {
	Name string      `json:"name,omitempty"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service signs session tokens with an HMAC secret.
type Service struct {
	jwtSecret []byte
	tokenExp  time.Duration
	now       func() time.Time
}

// NewService returns a Service. A non-positive exp falls back to DefaultTokenExpiry.
func NewService(secret string, exp time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth: empty JWT secret")
	}
	if exp <= 0 {
		exp = DefaultTokenExpiry
	}
	return &Service{jwtSecret: []byte(secret), tokenExp: exp, now: time.Now}, nil
}

// GenerateToken signs a session token for user.
func (s *Service) GenerateToken(user *models.User) (string, error) {
	if user.ID.IsZero() {
		return "", errors.New("auth: user has no id")
	}
	issued := s.now()
	claims := sessionClaims{
		Name: user.DisplayName,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.tokenExp)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks a session token, with or without its "Bearer " prefix.
func (s *Service) ValidateToken(raw string) (*models.Claims, error) {
	raw = strings.TrimPrefix(raw, "Bearer ")

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || !models.IsValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}
	return &models.Claims{
		UserID:      claims.Subject,
		DisplayName: claims.Name,
		Role:        claims.Role,
		Exp:         claims.ExpiresAt.Unix(),
	}, nil
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// HashPassword returns the bcrypt hash of a staff password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. LINE users have no
// hash and never match.
func (s *Service) CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate checks a staff sign-in. A deactivated account fails with
// ErrUserInactive before its password is compared.
func (s *Service) Authenticate(user *models.User, password string) error {
	if !user.IsActive {
		return ErrUserInactive
	}
	if !s.CheckPassword(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}

// CheckPasswordPolicy rejects staff passwords that are too short.
func CheckPasswordPolicy(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLen)
	}
	return nil
}

// CheckUsername validates a staff login name.
func CheckUsername(username string) error {
	switch n := utf8.RuneCountInString(username); {
	case n < minUsernameLen:
		return fmt.Errorf("username must be at least %d characters long", minUsernameLen)
	case n > maxUsernameLen:
		return fmt.Errorf("username must be at most %d characters long", maxUsernameLen)
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return errors.New("username must not contain whitespace")
	}
	return nil
}
