// Package admin authenticates back-office users against stored bcrypt
// credentials.
package admin

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials reports a failed password check.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin is a stored back-office account.
type Admin struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository persists admin accounts.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	Insert(ctx context.Context, a Admin) (Admin, error)
}

// Service handles admin login, bootstrapping the account on first use:
// an unknown username is created with the supplied password.
type Service struct {
	repo Repository
}

// NewService creates the admin service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Login verifies the credentials, creating the account if the username is
// new. Returns the (possibly just created) account on success.
func (s *Service) Login(ctx context.Context, username, password string) (Admin, error) {
	if username == "" || password == "" {
		return Admin{}, ErrInvalidCredentials
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return Admin{}, err
	}
	if existing == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return Admin{}, err
		}
		return s.repo.Insert(ctx, Admin{Username: username, PasswordHash: string(hash)})
	}

	if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) != nil {
		return Admin{}, ErrInvalidCredentials
	}
	return *existing, nil
}
