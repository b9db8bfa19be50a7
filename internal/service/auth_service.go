package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/utils"
)

type userStore interface {
	Create(ctx context.Context, name, email, password string, role model.Role, cost int) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// AuthService registers and authenticates accounts and issues access
// tokens for them.
type AuthService struct {
	users      userStore
	secret     string
	ttl        time.Duration
	bcryptCost int
}

func NewAuthService(users userStore, secret string, ttl time.Duration, bcryptCost int) *AuthService {
	return &AuthService{users: users, secret: secret, ttl: ttl, bcryptCost: bcryptCost}
}

// Register creates a RoleUser account and returns it with a fresh token.
// Self-registration can never produce an admin.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return AuthResult{}, validationf("name, email and password are required")
	}
	u, err := s.users.Create(ctx, name, email, password, model.RoleUser, s.bcryptCost)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return AuthResult{}, validationf("%s", err.Error())
		}
		return AuthResult{}, err
	}
	return s.issue(u)
}

// Login verifies the credentials.  An unknown email and a wrong password
// produce the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(u)
}

// Profile returns the account behind an authenticated request.
func (s *AuthService) Profile(ctx context.Context, userID uint64) (model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) issue(u model.User) (AuthResult, error) {
	tok, err := utils.NewAccessToken(s.secret, u.ID, string(u.Role), s.ttl)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: tok.Token, User: u}, nil
}
