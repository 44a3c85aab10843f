// Package app wires configuration, storage, and the HTTP surface into a
// runnable server.
package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/CJCR07/veridicus/internal/config"
	"github.com/CJCR07/veridicus/internal/database"
	"github.com/CJCR07/veridicus/internal/middleware"
	"github.com/CJCR07/veridicus/internal/pkg/genai"
	"github.com/CJCR07/veridicus/internal/pkg/jwt"
	"github.com/CJCR07/veridicus/internal/pkg/objectstore"
	pkgredis "github.com/CJCR07/veridicus/internal/pkg/redis"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	rc     *pkgredis.Client
	logger *zap.Logger
}

// New initializes the application: config → DB → Redis → storage → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	store, err := objectstore.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	verifier, err := jwt.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	// A missing API key degrades AI features instead of refusing to boot:
	// extraction tasks fail with a recorded error and vibe sessions run in
	// fallback mode.
	var ai *genai.Client
	if cfg.GenAI.APIKey != "" {
		ai, err = genai.New(cfg.GenAI.APIKey, cfg.GenAI.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("genai: %w", err)
		}
	} else {
		logger.Warn("no generative model API key configured, AI features degraded")
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	app := &App{cfg: cfg, router: router, db: db, rc: rc, logger: logger}
	app.registerRoutes(rc, store, verifier, ai)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown closes the backing connections.
func (a *App) Shutdown() {
	if err := a.rc.Close(); err != nil {
		a.logger.Warn("redis close failed", zap.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.Warn("database close failed", zap.Error(err))
		}
	}
}
