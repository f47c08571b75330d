package services

import (
	"context"
	"errors"
	"strings"

	"github.com/crypto-vantro/apiserver/internal/apperr"
	"github.com/crypto-vantro/apiserver/internal/auth"
	"github.com/crypto-vantro/apiserver/internal/store"
	"github.com/crypto-vantro/apiserver/types"
)

const (
	msgEmailTaken      = "User with this email already exists"
	msgUnknownUser     = "This user doesn't exist"
	msgWrongPassword   = "Invalid email or password"
	msgUserNotFound    = "This user does not exist, please sign up."
	msgAccountInactive = "You recently deleted your account, sign in to reactivate."
	msgAccountBanned   = "You have been banned."
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateStatus(ctx context.Context, id string, status types.UserStatus) error
}

// TokenPair is the access/refresh credential pair issued on signup and signin.
type TokenPair struct {
	Access  string
	Refresh string
}

// UserService encapsulates account use-cases: registration, authentication,
// and the status gate applied before protected operations.
type UserService struct {
	users    UserRepository
	products ProductRepository
	tokens   *auth.Manager
}

func NewUserService(users UserRepository, products ProductRepository, tokens *auth.Manager) *UserService {
	return &UserService{
		users:    users,
		products: products,
		tokens:   tokens,
	}
}

// Signup registers a new account and issues its first token pair.
// A duplicate email fails with 409.
func (s *UserService) Signup(ctx context.Context, email, password string) (types.User, TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return types.User{}, TokenPair{}, apperr.Conflict(msgEmailTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, TokenPair{}, err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return types.User{}, TokenPair{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        email,
		PasswordHash: hashed,
		Status:       types.StatusActive,
	})
	if err != nil {
		return types.User{}, TokenPair{}, err
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return types.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Signin verifies credentials and returns a fresh token pair together with
// the products the account owns.
func (s *UserService) Signin(ctx context.Context, email, password string) (types.User, TokenPair, []types.Product, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, TokenPair{}, nil, apperr.Unauthorized(msgUnknownUser)
		}
		return types.User{}, TokenPair{}, nil, err
	}

	products, err := s.products.ListByOwner(ctx, user.ID)
	if err != nil {
		return types.User{}, TokenPair{}, nil, err
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return types.User{}, TokenPair{}, nil, apperr.Unauthorized(msgWrongPassword)
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return types.User{}, TokenPair{}, nil, err
	}
	return user, pair, products, nil
}

// VerifyAuth re-issues an access token for an already-verified subject and
// returns the subject's products. An unknown subject fails with 404.
func (s *UserService) VerifyAuth(ctx context.Context, subjectID string) (string, []types.Product, error) {
	if _, err := s.users.GetByID(ctx, subjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, apperr.NotFound(msgUserNotFound)
		}
		return "", nil, err
	}

	accessToken, err := s.tokens.IssueAccess(subjectID)
	if err != nil {
		return "", nil, err
	}

	products, err := s.products.ListByOwner(ctx, subjectID)
	if err != nil {
		return "", nil, err
	}
	return accessToken, products, nil
}

// ResolveActive is the account status gate: it loads the user behind a
// verified subject id and rejects accounts that may not authenticate.
// Inactive is checked before Banned.
func (s *UserService) ResolveActive(ctx context.Context, subjectID string) (types.User, error) {
	user, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.NotFound(msgUserNotFound)
		}
		return types.User{}, err
	}

	switch user.Status {
	case types.StatusInactive:
		return types.User{}, apperr.Unauthorized(msgAccountInactive)
	case types.StatusBanned:
		return types.User{}, apperr.Unauthorized(msgAccountBanned)
	}
	return user, nil
}

func (s *UserService) issuePair(subjectID string) (TokenPair, error) {
	access, err := s.tokens.IssueAccess(subjectID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefresh(subjectID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}
