package files

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/pkg/response"
	"github.com/studiolens/core/internal/pkg/storage"
)

const maxPresignTTL = time.Hour

type PresignDTO struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	TTLSeconds  int    `json:"ttl_seconds"`
}

// Handler hands out presigned upload URLs for order photos and photographer
// reference images. A nil storage service (S3 not configured) turns the
// endpoint into a 503.
type Handler struct {
	store *storage.Service
}

func NewHandler(store *storage.Service) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/files/presign", authMW, h.presign)
}

func (h *Handler) presign(c *gin.Context) {
	if h.store == nil {
		c.AbortWithStatusJSON(503, gin.H{
			"ok": 0, "code": 503, "message": "对象存储未配置",
		})
		return
	}

	var dto PresignDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ttl := time.Duration(dto.TTLSeconds) * time.Second
	if ttl > maxPresignTTL {
		ttl = maxPresignTTL
	}

	result, err := h.store.PresignUpload(c.Request.Context(), dto.Filename, dto.ContentType, ttl)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}
