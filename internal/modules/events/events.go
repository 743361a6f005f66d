package events

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	appredis "github.com/studiolens/core/internal/pkg/redis"
	"go.uber.org/zap"
)

// Channel carries admin dashboard refresh events between server instances.
const Channel = "sl:events"

const heartbeatInterval = 25 * time.Second

// Event tells connected dashboards which resource changed. Delivery is
// cooperative: no ordering guarantee, no replay for tabs that were offline.
type Event struct {
	Resource string    `json:"resource"`
	Action   string    `json:"action"`
	At       time.Time `json:"at"`
}

// Publisher emits an Event after every successful mutating API request, keyed
// by the first path segment under the API prefix. Publishing is best-effort;
// a redis hiccup never fails the mutation that triggered it.
func Publisher(rdb *appredis.Client, apiPrefix string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if rdb == nil {
			return
		}
		action := actionFor(c.Request.Method)
		if action == "" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		resource := resourceFor(c.Request.URL.Path, apiPrefix)
		if resource == "" {
			return
		}

		payload, err := json.Marshal(Event{Resource: resource, Action: action, At: time.Now()})
		if err != nil {
			return
		}
		if err := rdb.Publish(c.Request.Context(), Channel, payload); err != nil {
			log.Warn("event publish failed", zap.String("resource", resource), zap.Error(err))
		}
	}
}

func actionFor(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return ""
	}
}

func resourceFor(path, apiPrefix string) string {
	rest := strings.TrimPrefix(path, apiPrefix)
	if rest == path {
		return ""
	}
	rest = strings.TrimPrefix(rest, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	switch rest {
	case "", "auth", "events", "files":
		return ""
	}
	return rest
}

type Handler struct {
	rdb *appredis.Client
	log *zap.Logger
}

func NewHandler(rdb *appredis.Client, log *zap.Logger) *Handler {
	return &Handler{rdb: rdb, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/events/stream", authMW, h.stream)
}

// stream fans the redis event channel out to one dashboard tab over SSE,
// with periodic heartbeats so intermediaries keep the connection open.
func (h *Handler) stream(c *gin.Context) {
	if h.rdb == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"ok": 0, "code": http.StatusServiceUnavailable, "message": "事件通道不可用",
		})
		return
	}

	sub := h.rdb.Subscribe(c.Request.Context(), Channel)
	defer sub.Close()
	msgs := sub.Channel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			c.SSEvent("change", msg.Payload)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
