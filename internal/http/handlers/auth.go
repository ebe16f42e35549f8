package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/herbario-app/herbario/internal/apperr"
	"github.com/herbario-app/herbario/internal/config"
	httpapi "github.com/herbario-app/herbario/internal/http"
	"github.com/herbario-app/herbario/internal/security"
	"github.com/herbario-app/herbario/internal/users"
)

// emailPattern is a plausibility check, not full RFC validation.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

// AuthHandler handles login, token verification and logout.
type AuthHandler struct {
	users          *users.Service
	jwtCfg         config.JWTConfig
	storageTimeout time.Duration
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(userSvc *users.Service, jwtCfg config.JWTConfig, storageTimeout time.Duration) *AuthHandler {
	return &AuthHandler{users: userSvc, jwtCfg: jwtCfg, storageTimeout: storageTimeout}
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a session token. Unknown emails
// and wrong passwords yield the same response.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		httpapi.Fail(c, apperr.MissingCredentials())
		return
	}
	if body.Email == "" || body.Password == "" {
		httpapi.Fail(c, apperr.MissingCredentials())
		return
	}

	var details []string
	if !emailPattern.MatchString(body.Email) {
		details = append(details, "email is not valid")
	}
	if len(body.Password) < 8 || len(body.Password) > 128 {
		details = append(details, "password must be between 8 and 128 characters")
	}
	if len(details) > 0 {
		httpapi.Fail(c, apperr.Validation(details...))
		return
	}

	ctx, cancel := storageContext(c, h.storageTimeout)
	defer cancel()

	user, ok, errVerify := h.users.VerifyPassword(ctx, body.Email, body.Password)
	if errVerify != nil {
		httpapi.Fail(c, apperr.Internal(errVerify))
		return
	}
	if !ok {
		httpapi.Fail(c, apperr.InvalidCredentials())
		return
	}

	if errTouch := h.users.TouchLastLogin(ctx, user.ID); errTouch != nil {
		// Login still succeeds; the timestamp is advisory.
		log.WithError(errTouch).Warn("auth: failed to update last login")
	}

	token, errSign := security.GenerateToken(h.jwtCfg.Secret, user.ID, user.Role(), user.Email, h.jwtCfg.Expiry.Std())
	if errSign != nil {
		httpapi.Fail(c, apperr.Internal(errSign))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.DisplayName(),
			"role":  user.Role(),
		},
	})
}

// Verify validates the presented token and confirms the subject still
// exists, protecting tokens that outlive a removed account.
func (h *AuthHandler) Verify(c *gin.Context) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		httpapi.Fail(c, apperr.MissingToken())
		return
	}

	claims, errParse := security.ParseToken(h.jwtCfg.Secret, header[len(prefix):])
	if errParse != nil {
		httpapi.Fail(c, apperr.InvalidOrExpiredToken())
		return
	}

	ctx, cancel := storageContext(c, h.storageTimeout)
	defer cancel()

	user, errGet := h.users.GetByID(ctx, claims.Subject)
	if errors.Is(errGet, users.ErrNotFound) {
		httpapi.Fail(c, apperr.InvalidToken())
		return
	}
	if errGet != nil {
		httpapi.Fail(c, apperr.Internal(errGet))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.DisplayName(),
			"role":  claims.Role,
		},
	})
}

// Logout confirms the client-side token discard. Tokens are stateless and
// are not revoked server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}
