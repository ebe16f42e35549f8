package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/herbario-app/herbario/internal/models"
	"github.com/herbario-app/herbario/internal/security"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:users_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.User{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func seedUser(t *testing.T, conn *gorm.DB, email, password string, admin bool) models.User {
	t.Helper()
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      admin,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	return user
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	conn := setupUserTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	seeded := seedUser(t, conn, "admin@herbario.local", "correct horse", true)

	user, ok, errVerify := svc.VerifyPassword(ctx, "admin@herbario.local", "correct horse")
	if errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	if !ok {
		t.Fatalf("valid credentials rejected")
	}
	if user.ID != seeded.ID {
		t.Fatalf("user id = %q, want %q", user.ID, seeded.ID)
	}
	if user.Role() != models.RoleAdmin {
		t.Fatalf("role = %q, want admin", user.Role())
	}

	// Wrong password and unknown email must be indistinguishable negatives.
	if _, ok, _ := svc.VerifyPassword(ctx, "admin@herbario.local", "wrong"); ok {
		t.Fatalf("wrong password accepted")
	}
	if _, ok, _ := svc.VerifyPassword(ctx, "nobody@herbario.local", "correct horse"); ok {
		t.Fatalf("unknown email accepted")
	}
}

func TestTouchLastLogin(t *testing.T) {
	t.Parallel()

	conn := setupUserTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	seeded := seedUser(t, conn, "user@herbario.local", "pw123456", false)

	if seeded.LastLoginAt != nil {
		t.Fatalf("fresh account already has last login")
	}
	if errTouch := svc.TouchLastLogin(ctx, seeded.ID); errTouch != nil {
		t.Fatalf("touch: %v", errTouch)
	}

	got, errGet := svc.GetByID(ctx, seeded.ID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if got.LastLoginAt == nil {
		t.Fatalf("last login not recorded")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(setupUserTestDB(t))

	_, errGet := svc.GetByID(context.Background(), uuid.NewString())
	if !errors.Is(errGet, ErrNotFound) {
		t.Fatalf("get missing id: %v, want ErrNotFound", errGet)
	}
}
