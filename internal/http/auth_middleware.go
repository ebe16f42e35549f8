package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/herbario-app/herbario/internal/apperr"
	"github.com/herbario-app/herbario/internal/config"
	"github.com/herbario-app/herbario/internal/models"
	"github.com/herbario-app/herbario/internal/security"
)

// Context keys populated by the admin gate.
const (
	// ContextUserID holds the authenticated subject id.
	ContextUserID = "userID"
	// ContextClaims holds the verified token claims.
	ContextClaims = "claims"
)

// ListingScope classifies a listing request by the authorization it needs.
type ListingScope int

const (
	// ScopePublic lists only records the gallery may show.
	ScopePublic ListingScope = iota
	// ScopeAdmin lists records still under (or past) moderation.
	ScopeAdmin
)

// ScopeForStatus derives the listing scope from the requested status
// filter. Only the exact filter "accepted" is public; any other value,
// including an absent filter, requires the admin role.
func ScopeForStatus(status string) ListingScope {
	if status == models.StatusAccepted {
		return ScopePublic
	}
	return ScopeAdmin
}

// bearerToken extracts the token from the Authorization header. Only the
// Bearer scheme is accepted.
func bearerToken(c *gin.Context) (string, *apperr.Error) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", apperr.MissingToken()
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return "", apperr.InvalidToken()
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.MissingToken()
	}
	return token, nil
}

// authenticateAdmin verifies the bearer token and the admin role, loading
// the claims into the context on success. The embedded role is trusted
// without a fresh account lookup.
func authenticateAdmin(c *gin.Context, jwtCfg config.JWTConfig) bool {
	token, errToken := bearerToken(c)
	if errToken != nil {
		Fail(c, errToken)
		return false
	}

	claims, errParse := security.ParseToken(jwtCfg.Secret, token)
	if errParse != nil {
		Fail(c, apperr.InvalidOrExpiredToken())
		return false
	}
	if claims.Role != models.RoleAdmin {
		Fail(c, apperr.Forbidden("administrator role required"))
		return false
	}

	c.Set(ContextUserID, claims.Subject)
	c.Set(ContextClaims, claims)
	return true
}

// AdminAuth gates a route on a valid, unexpired admin bearer token.
func AdminAuth(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticateAdmin(c, jwtCfg) {
			c.Next()
		}
	}
}

// ListingGate applies the two-tier listing rule: the requested status
// filter decides the scope before any authentication is demanded.
func ListingGate(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ScopeForStatus(strings.TrimSpace(c.Query("status"))) == ScopePublic {
			c.Next()
			return
		}
		if authenticateAdmin(c, jwtCfg) {
			c.Next()
		}
	}
}
