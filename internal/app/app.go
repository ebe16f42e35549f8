// Package app boots the Herbario API: storage, migrations, the gin engine
// with its hardening chain, and the HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/herbario-app/herbario/internal/apperr"
	"github.com/herbario-app/herbario/internal/config"
	"github.com/herbario-app/herbario/internal/db"
	httpapi "github.com/herbario-app/herbario/internal/http"
	"github.com/herbario-app/herbario/internal/http/handlers"
	"github.com/herbario-app/herbario/internal/plants"
	"github.com/herbario-app/herbario/internal/ratelimit"
	"github.com/herbario-app/herbario/internal/users"
)

// limiterFactory builds one limiter per rate-limit budget, sharing the
// redis client when one is configured.
type limiterFactory struct {
	redisClient *redis.Client
}

func newLimiterFactory(cfg config.Config) *limiterFactory {
	factory := &limiterFactory{}
	if cfg.RedisAddr != "" {
		factory.redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	return factory
}

func (f *limiterFactory) build(budget config.WindowLimit) ratelimit.Limiter {
	if f.redisClient != nil {
		return ratelimit.NewRedis(f.redisClient, budget.Window.Std())
	}
	return ratelimit.NewInMemory(budget.Window.Std())
}

// BuildEngine assembles the gin engine: hardening chain, routes and the
// uniform not-found response. Exported so tests can drive the real stack.
func BuildEngine(cfg config.Config, conn *gorm.DB) *gin.Engine {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if !cfg.TrustProxy {
		_ = engine.SetTrustedProxies(nil)
	}
	engine.MaxMultipartMemory = cfg.MaxBodyBytes

	limiters := newLimiterFactory(cfg)
	globalLimit := httpapi.RateLimit(limiters.build(cfg.RateLimits.Global), "global", cfg.RateLimits.Global)
	loginLimit := httpapi.RateLimit(limiters.build(cfg.RateLimits.Login), "login", cfg.RateLimits.Login)
	submissionLimit := httpapi.RateLimit(limiters.build(cfg.RateLimits.Submission), "submission", cfg.RateLimits.Submission)
	adminLimit := httpapi.RateLimit(limiters.build(cfg.RateLimits.Admin), "admin", cfg.RateLimits.Admin)

	engine.Use(
		httpapi.ErrorReporter(cfg.Production()),
		httpapi.Recovery(),
		httpapi.HTTPSRedirect(cfg.Production(), cfg.TrustProxy),
		httpapi.SecurityHeaders(cfg.Production()),
		httpapi.CORS(cfg.AllowedOrigins),
		globalLimit,
		httpapi.CSRFOriginCheck(cfg.AllowedOrigins),
		httpapi.BodyLimit(cfg.MaxBodyBytes),
	)

	userSvc := users.NewService(conn)
	plantSvc := plants.NewService(conn)
	authHandler := handlers.NewAuthHandler(userSvc, cfg.JWT, cfg.StorageTimeout.Std())
	plantHandler := handlers.NewPlantHandler(plantSvc, cfg.StorageTimeout.Std())

	engine.GET("/health", handlers.Health)
	engine.GET("/", handlers.Root)

	auth := engine.Group("/auth")
	auth.POST("/login", loginLimit, authHandler.Login)
	auth.GET("/verify", authHandler.Verify)
	auth.POST("/logout", authHandler.Logout)

	plantRoutes := engine.Group("/plants")
	plantRoutes.POST("/submissions", submissionLimit, plantHandler.Submit)
	plantRoutes.GET("", httpapi.ListingGate(cfg.JWT), plantHandler.List)
	plantRoutes.GET("/count", adminLimit, httpapi.AdminAuth(cfg.JWT), plantHandler.Count)
	plantRoutes.GET("/count/pending", plantHandler.CountPending)
	plantRoutes.GET("/:id/imagen", plantHandler.Image)
	plantRoutes.PUT("/:id/accept", adminLimit, httpapi.AdminAuth(cfg.JWT), plantHandler.Accept)
	plantRoutes.PUT("/:id/reject", adminLimit, httpapi.AdminAuth(cfg.JWT), plantHandler.Reject)
	plantRoutes.PUT("/:id", adminLimit, httpapi.AdminAuth(cfg.JWT), plantHandler.Update)
	plantRoutes.DELETE("/:id", adminLimit, httpapi.AdminAuth(cfg.JWT), plantHandler.Delete)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":         true,
			"code":          apperr.CodeNotFound,
			"message":       "route not found",
			"correlationId": c.GetString("correlationID"),
		})
	})

	return engine
}

// Migrate opens the database and brings the schema up to date.
func Migrate(cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer runs the API until the context is cancelled.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           BuildEngine(cfg, conn),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (env=%s)", cfg.ListenAddr, cfg.Environment)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return errShutdown
	}
	return nil
}
