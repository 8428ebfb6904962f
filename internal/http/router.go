// Package httpapi wires the HTTP transport (Gin) to the companion services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/ai-companion-backend/docs"
	"github.com/tbourn/ai-companion-backend/internal/cache"
	"github.com/tbourn/ai-companion-backend/internal/config"
	"github.com/tbourn/ai-companion-backend/internal/domain"
	"github.com/tbourn/ai-companion-backend/internal/http/handlers"
	"github.com/tbourn/ai-companion-backend/internal/http/middleware"
	"github.com/tbourn/ai-companion-backend/internal/repo"
	"github.com/tbourn/ai-companion-backend/internal/services"
)

// userRepoShim adapts the repository free functions to the services.UserRepo
// interface expected by the UserService.
type userRepoShim struct{}

func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return repo.CreateUser(ctx, db, u)
}

func (userRepoShim) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

func (userRepoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

func (userRepoShim) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return repo.ListUsers(ctx, db)
}

func (userRepoShim) TouchLastLogin(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return repo.TouchLastLogin(ctx, db, id, at)
}

func (userRepoShim) UpdateUserPreferences(ctx context.Context, db *gorm.DB, id, voice, gender string) error {
	return repo.UpdateUserPreferences(ctx, db, id, voice, gender)
}

// Dependencies are the long-lived collaborators built once in main.
type Dependencies struct {
	DB *gorm.DB
	// Cache holds companion documents; nil disables caching.
	Cache     cache.Cache
	Generator services.ReplyGenerator
	// Speech may report itself unavailable; voice chat then answers without audio.
	Speech  services.Speaker
	Log     zerolog.Logger
	Version string
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client IP, bypass on replay). The pre-body lookup
//     cannot see the user, so a live key of another user also bypasses; the
//     limiter charges such requests once the handler answers without a replay.
//  9. CORS and security headers
//  10. gzip
func RegisterRoutes(r *gin.Engine, deps Dependencies, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB
	base := cfg.APIBasePath

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(deps.Log, middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
		LogHeaders:  cfg.Debug,
	}))
	r.Use(middleware.Recovery())

	// 1 MiB covers the largest message and TTS text with room to spare.
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 128, // idempotency.key column width
			Scopes: map[string]string{
				apiPath(base, "/chat/send"):  services.ScopeChat,
				apiPath(base, "/voice/chat"): services.ScopeVoice,
			},
		},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			return repo.IdempotencyKeyLive(ctx, db, scope, key, now)
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", middleware.HeaderIdempotencyReplayed, "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// ACAO: * even without an Origin header (simple health checks, curl).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	// mp3 does not compress; metrics scrapers negotiate on their own.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics", apiPath(base, "/voice/tts")}),
	))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	version := deps.Version
	if version == "" {
		version = "dev"
	}
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "AI Companion Backend API", "version": version, "status": "running"})
	})
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := repo.Ping(ctx, db); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("health: database ping failed")
			handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeUnavailable, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "connected"})
	})

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.Version = version
		docs.SwaggerInfo.BasePath = base
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/cache/providers
	userSvc := services.NewUserService(db, userRepoShim{})
	companionSvc := services.NewCompanionService(db, deps.Cache, cfg.Cache.CompanionTTL, deps.Log)
	chatSvc := services.NewChatService(db, companionSvc, deps.Generator)
	voiceSvc := services.NewVoiceService(chatSvc, deps.Speech)
	h := handlers.New(userSvc, companionSvc, chatSvc, voiceSvc, cfg.IdempotencyTTL)

	api := groupWithPrefix(r, base)
	{
		auth := api.Group("/auth")
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
		auth.GET("/user/:user_id", h.GetUser)
		auth.GET("/users", h.ListUsers)
		auth.PUT("/user/:user_id/preferences", h.UpdatePreferences)

		comp := api.Group("/companion")
		comp.GET("/get_story/:gender", h.GetCompanionStory)
		comp.GET("/all", h.ListCompanions)
		comp.POST("/create", h.CreateCompanion)
		comp.GET("/:companion_id", h.GetCompanion)
		comp.DELETE("/:companion_id", h.DeleteCompanion)

		chat := api.Group("/chat")
		chat.POST("/send", h.SendChat)
		chat.GET("/history/:user_id", h.GetChatHistory)
		chat.GET("/history/:user_id/:chat_id", h.GetChatTurn)
		chat.DELETE("/history/:user_id", h.ClearChatHistory)
		chat.GET("/stats/:user_id", h.GetChatStats)

		voice := api.Group("/voice")
		voice.POST("/chat", h.VoiceChat)
		voice.POST("/tts", h.TextToSpeech)
		voice.GET("/check-tts", h.CheckTTS)
		voice.GET("/voices", h.ListVoices)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// apiPath is the gin FullPath of route under the API base path.
func apiPath(base, route string) string {
	return path.Join("/", base, route)
}
