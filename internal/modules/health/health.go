package health

import (
	"time"

	"github.com/gin-gonic/gin"
	appredis "github.com/studiolens/core/internal/pkg/redis"
	"github.com/studiolens/core/internal/pkg/response"
	"gorm.io/gorm"
)

type Handler struct {
	db      *gorm.DB
	rdb     *appredis.Client
	started time.Time
}

func NewHandler(db *gorm.DB, rdb *appredis.Client) *Handler {
	return &Handler{db: db, rdb: rdb, started: time.Now()}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
}

func (h *Handler) health(c *gin.Context) {
	dbOK := false
	if h.db != nil {
		if sqlDB, err := h.db.DB(); err == nil {
			dbOK = sqlDB.PingContext(c.Request.Context()) == nil
		}
	}

	redisOK := false
	if h.rdb != nil {
		redisOK = h.rdb.Raw().Ping(c.Request.Context()).Err() == nil
	}

	response.OK(c, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
		"db":     dbOK,
		"redis":  redisOK,
	})
}
