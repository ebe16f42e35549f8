package models

import "time"

// User represents a provisioned account stored in the database.
// Accounts are created out-of-band; the API only reads them and
// touches LastLoginAt on successful authentication.
type User struct {
	ID string `gorm:"type:uuid;primaryKey"` // Primary key.

	Email        string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	PasswordHash string `gorm:"type:text;not null"`             // bcrypt password verifier.

	IsAdmin bool `gorm:"not null;default:false"` // Grants moderation permissions when true.

	LastLoginAt *time.Time // Set on each successful login.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Role returns the role string embedded in tokens issued for the user.
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// DisplayName derives a presentable name from the email local part.
func (u *User) DisplayName() string {
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}

// Token roles.
const (
	// RoleAdmin marks a principal allowed to moderate submissions.
	RoleAdmin = "admin"
	// RoleUser marks an authenticated principal without moderation rights.
	RoleUser = "user"
)
