package services

import (
	"context"
	"strings"

	"github.com/storefront/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// ProfileUpdate holds the optional fields of a profile update. Nil fields
// keep their current value; an empty password is ignored.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
	auth *AuthService
}

func NewUserService(repo UserRepository, auth *AuthService) *UserService {
	return &UserService{repo: repo, auth: auth}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = types.RoleUser
	}
	if role != types.RoleUser && role != types.RoleAdmin {
		return types.User{}, newError(ErrValidation, "role must be user or admin")
	}

	hashed, err := s.auth.Hash(in.Password)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Create(ctx, types.User{
		Name:         in.Name,
		Email:        in.Email,
		Role:         role,
		PasswordHash: hashed,
	})
}

// Login checks credentials and returns a fresh token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if isStoreNotFound(err) {
			return "", newError(ErrInvalidCredentials, "Email not found")
		}
		return "", err
	}

	if !s.auth.Verify(password, user.PasswordHash) {
		return "", newError(ErrInvalidCredentials, "Wrong password")
	}

	return s.auth.IssueToken(user)
}

func (s *UserService) Profile(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, notFound(err, "User not found")
	}
	return user, nil
}

// UpdateProfile applies update and returns the stored user with a token
// reflecting the new name and email.
func (s *UserService) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) (types.User, string, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return types.User{}, "", err
	}

	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Password != nil && *update.Password != "" {
		hashed, err := s.auth.Hash(*update.Password)
		if err != nil {
			return types.User{}, "", err
		}
		user.PasswordHash = hashed
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, "", notFound(err, "User not found")
	}

	token, err := s.auth.IssueToken(updated)
	if err != nil {
		return types.User{}, "", err
	}
	return updated, token, nil
}
