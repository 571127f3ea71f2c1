package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/storefront/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTTL   = 48 * time.Hour
	DefaultBcryptCost = 10
)

// Claims is the payload of a session token.
type Claims struct {
	UserID int    `json:"id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService hashes passwords and issues and verifies HS256 bearer tokens.
// It holds no per-request state.
type AuthService struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewAuthService(secret string, ttl time.Duration, cost int) (*AuthService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &AuthService{
		secret: []byte(secret),
		ttl:    ttl,
		cost:   cost,
		now:    time.Now,
	}, nil
}

func (s *AuthService) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", newError(ErrValidation, "password must be at most 72 bytes")
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *AuthService) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// IssueToken signs a token for user that expires after the configured TTL.
func (s *AuthService) IssueToken(user types.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.Name,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

var errInvalidToken = newError(ErrUnauthorized, "Invalid token")

// ParseToken verifies tokenString. Every failure is reported as the same
// ErrUnauthorized error.
func (s *AuthService) ParseToken(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Claims{}, errInvalidToken
	}
	if claims.UserID < 1 {
		return Claims{}, errInvalidToken
	}
	return claims, nil
}

var errAdminsOnly = newError(ErrForbidden, "Admins only")

// RequireRole returns ErrForbidden unless claims carry role.
func RequireRole(claims Claims, role string) error {
	if !strings.EqualFold(claims.Role, role) {
		if role == types.RoleAdmin {
			return errAdminsOnly
		}
		return newError(ErrForbidden, "Forbidden")
	}
	return nil
}
