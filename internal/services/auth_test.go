package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/storefront/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	auth, err := NewAuthService("test-secret", 0, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return auth
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	if _, err := NewAuthService("  ", time.Hour, bcrypt.MinCost); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestAuthService_HashAndVerify(t *testing.T) {
	auth := newTestAuthService(t)

	hash, err := auth.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal plaintext")
	}
	if !auth.Verify("s3cret", hash) {
		t.Fatal("expected password to verify")
	}
	if auth.Verify("wrong", hash) {
		t.Fatal("expected wrong password to fail")
	}
}

func TestAuthService_HashRejectsLongPassword(t *testing.T) {
	auth := newTestAuthService(t)

	// 40 runes, 80 bytes.
	_, err := auth.Hash(strings.Repeat("é", 40))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if Message(err) != "password must be at most 72 bytes" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	auth := newTestAuthService(t)
	user := types.User{ID: 42, Name: "Ada", Email: "ada@example.com", Role: types.RoleAdmin}

	token, err := auth.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 || claims.Name != "Ada" || claims.Email != "ada@example.com" || claims.Role != types.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "42" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != DefaultTokenTTL {
		t.Fatalf("expected ttl %s, got %s", DefaultTokenTTL, got)
	}
}

func TestAuthService_ParseTokenRejects(t *testing.T) {
	auth := newTestAuthService(t)
	user := types.User{ID: 1, Role: types.RoleUser}

	valid, err := auth.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	other, err := NewAuthService("other-secret", 0, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	foreign, err := other.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	expiredAuth := newTestAuthService(t)
	expiredAuth.now = func() time.Time { return time.Now().Add(-72 * time.Hour) }
	expired, err := expiredAuth.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	noSubject, err := auth.IssueToken(types.User{})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tokens := map[string]string{
		"garbage":      "not-a-token",
		"tampered":     valid + "x",
		"foreign":      foreign,
		"expired":      expired,
		"alg none":     unsigned,
		"missing user": noSubject,
		"empty":        "",
	}
	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ParseToken(token)
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			if Message(err) != "Invalid token" {
				t.Fatalf("unexpected message %q", Message(err))
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	if err := RequireRole(Claims{Role: types.RoleAdmin}, types.RoleAdmin); err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}

	err := RequireRole(Claims{Role: types.RoleUser}, types.RoleAdmin)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if Message(err) != "Admins only" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}
