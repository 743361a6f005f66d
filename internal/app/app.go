package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/config"
	"github.com/studiolens/core/internal/database"
	"github.com/studiolens/core/internal/middleware"
	"github.com/studiolens/core/internal/pkg/jwt"
	pkgredis "github.com/studiolens/core/internal/pkg/redis"
	"github.com/studiolens/core/internal/pkg/storage"
	"github.com/studiolens/core/internal/pkg/wechat"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	rc     *pkgredis.Client
	logger *zap.Logger
	cancel context.CancelFunc
}

// New initializes the application: config → DB → Redis → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
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
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-idempotence"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	_, cancel := context.WithCancel(context.Background())

	app := &App{cfg: cfg, router: router, db: db, rc: rc, logger: logger, cancel: cancel}
	app.registerRoutes(app.buildWechat(), app.buildStorage())

	return app, nil
}

// buildWechat returns the subscribe-message sender, or nil when the platform
// credentials are absent or pushes are switched off.
func (a *App) buildWechat() *wechat.Service {
	w := a.cfg.Wechat
	if !w.SubscribeMessageOn || w.AppID == "" || w.AppSecret == "" {
		a.logger.Info("subscribe messages disabled")
		return nil
	}
	return wechat.New(w.AppID, w.AppSecret)
}

// buildStorage returns the S3 presigner, or nil when no bucket is configured;
// the presign endpoint then answers 503.
func (a *App) buildStorage() *storage.Service {
	if a.cfg.S3.Bucket == "" {
		a.logger.Info("object storage disabled")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := storage.New(ctx, a.cfg.S3)
	if err != nil {
		a.logger.Warn("object storage unavailable", zap.Error(err))
		return nil
	}
	return store
}

func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) error {
	jwt.SetSecret(cfg.JWTSecret)

	if tz := cfg.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		time.Local = loc
		logger.Info("timezone applied", zap.String("tz", tz))
	}
	return nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }
