// Command server runs the AI companion HTTP API.
//
// Configuration comes from the environment, optionally preloaded from a .env
// file in the working directory. See internal/config for the variables.
//
// @title       AI Companion Backend API
// @version     1.0.0
// @description Persona-driven companion chat with text and voice replies.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tbourn/ai-companion-backend/internal/cache"
	"github.com/tbourn/ai-companion-backend/internal/config"
	httpapi "github.com/tbourn/ai-companion-backend/internal/http"
	"github.com/tbourn/ai-companion-backend/internal/llm"
	"github.com/tbourn/ai-companion-backend/internal/observability"
	"github.com/tbourn/ai-companion-backend/internal/persona"
	"github.com/tbourn/ai-companion-backend/internal/repo"
	"github.com/tbourn/ai-companion-backend/internal/speech"
	"github.com/tbourn/ai-companion-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg, log, err := bootstrap(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

// bootstrap loads the configuration and builds the process logger. When the
// configuration is invalid the returned logger uses default settings so the
// error can still be reported.
func bootstrap(w io.Writer) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, sysutil.NewLogger(w, "ai-companion-backend", "info", false), err
	}
	return cfg, sysutil.NewLogger(w, cfg.OTEL.ServiceName, cfg.LogLevel, cfg.LogPretty), nil
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL,
		observability.Build{Version: version, Environment: cfg.GinMode}, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	db, err := repo.Open(cfg.Database, repo.Options{Tracing: cfg.OTEL.Enabled, Debug: cfg.Debug})
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	var companionCache cache.Cache
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.Cache.RedisURL, "companion-backend:")
		if err != nil {
			return err
		}
		defer rc.Close()
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rc.Ping(pctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; lookups fall through to the database")
		}
		cancel()
		companionCache = rc
	} else {
		companionCache = cache.NewMemory(cfg.Cache.CompanionTTL, 2*cfg.Cache.CompanionTTL)
	}

	gen := llm.NewGenerator(llm.NewProvider(cfg.LLM, log), persona.NewAssembler(nil), log)
	log.Info().Str("provider", gen.ProviderName()).Msg("response generator ready")

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Dependencies{
		DB:        db,
		Cache:     companionCache,
		Generator: gen,
		Speech:    speech.New(cfg.TTS, log),
		Log:       log,
		Version:   version,
	}, cfg)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
