// Package users looks up provisioned accounts and verifies credentials.
// Accounts are created out-of-band; this service never writes anything
// except the last-login timestamp.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/herbario-app/herbario/internal/models"
	"github.com/herbario-app/herbario/internal/security"
)

// ErrNotFound indicates no account exists for the given identity.
var ErrNotFound = errors.New("user not found")

// Service provides account lookups backed by the database.
type Service struct {
	db *gorm.DB
}

// NewService wires the user service with its database dependency.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// VerifyPassword checks an email/password pair against the stored verifier.
// Unknown emails and wrong passwords produce the same negative result so
// callers cannot enumerate accounts. Lookup failures are returned as errors,
// never as negatives.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (*models.User, bool, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if errFind != nil {
		return nil, false, fmt.Errorf("lookup user: %w", errFind)
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		return nil, false, nil
	}
	return &user, true, nil
}

// TouchLastLogin records a successful authentication.
func (s *Service) TouchLastLogin(ctx context.Context, id string) error {
	now := time.Now().UTC()
	errUpdate := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", now).Error
	if errUpdate != nil {
		return fmt.Errorf("touch last login: %w", errUpdate)
	}
	return nil
}

// GetByID fetches an account by identity.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if errFind != nil {
		return nil, fmt.Errorf("get user: %w", errFind)
	}
	return &user, nil
}
