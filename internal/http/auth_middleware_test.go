package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/herbario-app/herbario/internal/config"
	"github.com/herbario-app/herbario/internal/models"
	"github.com/herbario-app/herbario/internal/security"
)

const testSecret = "auth-middleware-test-secret"

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: testSecret, Expiry: config.Duration(time.Hour)}
}

func mintToken(t *testing.T, role string, expiry time.Duration) string {
	t.Helper()
	token, errToken := security.GenerateToken(testSecret, uuid.NewString(), role, "someone@herbario.local", expiry)
	if errToken != nil {
		t.Fatalf("mint token: %v", errToken)
	}
	return token
}

func newAuthEngine(middleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorReporter(false))
	engine.GET("/gated", middleware, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.GetString(ContextUserID)})
	})
	return engine
}

func TestScopeForStatus(t *testing.T) {
	if ScopeForStatus(models.StatusAccepted) != ScopePublic {
		t.Fatalf("accepted filter should be public")
	}
	for _, status := range []string{"", models.StatusPending, models.StatusRejected, "ACCEPTED", "all"} {
		if ScopeForStatus(status) != ScopeAdmin {
			t.Fatalf("status %q should demand the admin scope", status)
		}
	}
}

func TestAdminAuth_MissingToken(t *testing.T) {
	engine := newAuthEngine(AdminAuth(testJWTConfig()))

	rec := perform(engine, http.MethodGet, "/gated", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body["code"] != "MISSING_TOKEN" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestAdminAuth_WrongScheme(t *testing.T) {
	engine := newAuthEngine(AdminAuth(testJWTConfig()))

	rec := perform(engine, http.MethodGet, "/gated", "", map[string]string{
		"Authorization": "Basic dXNlcjpwdw==",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body["code"] != "INVALID_TOKEN" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestAdminAuth_ExpiredToken(t *testing.T) {
	engine := newAuthEngine(AdminAuth(testJWTConfig()))
	expired := mintToken(t, models.RoleAdmin, -time.Minute)

	rec := perform(engine, http.MethodGet, "/gated", "", map[string]string{
		"Authorization": "Bearer " + expired,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body["code"] != "INVALID_OR_EXPIRED_TOKEN" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestAdminAuth_NonAdminRoleForbidden(t *testing.T) {
	engine := newAuthEngine(AdminAuth(testJWTConfig()))
	token := mintToken(t, models.RoleUser, time.Hour)

	rec := perform(engine, http.MethodGet, "/gated", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body["code"] != "FORBIDDEN" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestAdminAuth_ValidAdminToken(t *testing.T) {
	engine := newAuthEngine(AdminAuth(testJWTConfig()))
	token := mintToken(t, models.RoleAdmin, time.Hour)

	rec := perform(engine, http.MethodGet, "/gated", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestListingGate_PublicScopeNeedsNoToken(t *testing.T) {
	engine := newAuthEngine(ListingGate(testJWTConfig()))

	rec := perform(engine, http.MethodGet, "/gated?status=accepted", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestListingGate_AdminScopeDemandsToken(t *testing.T) {
	engine := newAuthEngine(ListingGate(testJWTConfig()))

	for _, path := range []string{"/gated", "/gated?status=pending", "/gated?status=rejected"} {
		rec := perform(engine, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", path, rec.Code)
		}
	}

	token := mintToken(t, models.RoleAdmin, time.Hour)
	rec := perform(engine, http.MethodGet, "/gated?status=pending", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin token: status = %d, want 200", rec.Code)
	}
}
