package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/auth"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

// AuthService registers users and exchanges credentials for access tokens.
type AuthService struct {
	users  repository.UserStore
	tokens *auth.TokenIssuer
}

// NewAuthService constructs an AuthService.
func NewAuthService(users repository.UserStore, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// SignUp creates a user with a bcrypt-hashed password.
func (s *AuthService) SignUp(ctx context.Context, req model.SignUpRequest) (*model.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		return nil, invalid("name is required")
	}
	if email == "" {
		return nil, invalid("email is required")
	}
	if len(req.Password) < 8 {
		return nil, invalid("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, model.User{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, ExpiresAt: exp, User: *u}, nil
}

// GetUser returns the user with the given id.
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
