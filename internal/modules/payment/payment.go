package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/models"
	appredis "github.com/studiolens/core/internal/pkg/redis"
	"github.com/studiolens/core/internal/pkg/wechat"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	resultSuccess = "SUCCESS"

	// notifyDedupTTL guards the subscribe message against at-least-once
	// gateway redelivery; the state writes themselves are idempotent.
	notifyDedupTTL    = 24 * time.Hour
	notifyDedupPrefix = "sl:paynotify:"
)

// SubscribeNotifier pushes mini-program subscribe messages.
type SubscribeNotifier interface {
	SendSubscribeMessage(ctx context.Context, msg *wechat.SubscribeMessage) error
}

// NotifyDTO is the gateway callback body. The gateway identifies the order by
// the business number, never the row id.
type NotifyDTO struct {
	OrderNo       string `json:"orderNo" binding:"required"`
	ResultCode    string `json:"resultCode"`
	TransactionID string `json:"transactionId"`
	TotalFee      int    `json:"totalFee"`
	TimeEnd       string `json:"timeEnd"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	rdb            *appredis.Client
	notifier       SubscribeNotifier
	paidTemplateID string
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

// WithNotifier enables the payment-success subscribe message, deduplicated
// through redis so a redelivered callback never pushes twice.
func (s *Service) WithNotifier(rdb *appredis.Client, n SubscribeNotifier, paidTemplateID string) *Service {
	s.rdb = rdb
	s.notifier = n
	s.paidTemplateID = paidTemplateID
	return s
}

// HandleNotify applies one gateway result. SUCCESS writes fixed target
// values (paid, pending_upload, transaction id, paid time), which makes
// redelivery a natural no-op; any other result code marks the payment failed
// and leaves the order status untouched. Once an order is paid no later
// callback, SUCCESS or otherwise, changes it.
func (s *Service) HandleNotify(ctx context.Context, dto *NotifyDTO) (*models.ActivityOrderModel, error) {
	var item models.ActivityOrderModel
	if err := s.db.First(&item, "order_no = ?", dto.OrderNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if dto.ResultCode != resultSuccess {
		if item.PaymentStatus == models.PaymentStatusPaid {
			// A FAIL arriving after a recorded SUCCESS is late or out of
			// order; the payment stands.
			s.log.Warn("ignoring failure callback for paid order",
				zap.String("order_no", dto.OrderNo),
				zap.String("result_code", dto.ResultCode))
			return &item, nil
		}
		if err := s.db.Model(&item).
			Update("payment_status", models.PaymentStatusFailed).Error; err != nil {
			return nil, err
		}
		s.log.Warn("payment failed",
			zap.String("order_no", dto.OrderNo),
			zap.String("result_code", dto.ResultCode))
		return &item, nil
	}

	if item.PaymentStatus == models.PaymentStatusPaid {
		// Redelivery. The order may have advanced past pending_upload by
		// now; touching nothing keeps the first recorded paid time and
		// transaction id and never regresses the status.
		return &item, nil
	}

	now := time.Now()
	if err := s.db.Model(&item).Updates(map[string]interface{}{
		"payment_status": models.PaymentStatusPaid,
		"status":         models.OrderStatusPendingUpload,
		"transaction_id": dto.TransactionID,
		"paid_at":        &now,
	}).Error; err != nil {
		return nil, err
	}

	s.notifyPaid(ctx, &item)
	return &item, nil
}

func (s *Service) notifyPaid(ctx context.Context, o *models.ActivityOrderModel) {
	if s.notifier == nil || s.paidTemplateID == "" || o.OpenID == "" {
		return
	}

	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, notifyDedupPrefix+o.OrderNo, "1", notifyDedupTTL)
		if err != nil {
			s.log.Warn("payment notify dedup check failed",
				zap.String("order_no", o.OrderNo), zap.Error(err))
			return
		}
		if !ok {
			return
		}
	}

	err := s.notifier.SendSubscribeMessage(ctx, &wechat.SubscribeMessage{
		ToUser:     o.OpenID,
		TemplateID: s.paidTemplateID,
		Page:       "pages/order/detail?id=" + o.ID,
		Data: map[string]map[string]string{
			"character_string1": {"value": o.OrderNo},
			"phrase2":           {"value": "支付成功"},
		},
	})
	if err != nil {
		s.log.Warn("payment notification failed",
			zap.String("order_no", o.OrderNo), zap.Error(err))
	}
}

type Handler struct {
	svc         *Service
	notifyToken string
}

// NewHandler creates the callback handler. notifyToken, when set, must match
// the token query parameter of incoming callbacks.
func NewHandler(svc *Service, notifyToken string) *Handler {
	return &Handler{svc: svc, notifyToken: notifyToken}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/notify", h.notify)
}

// notify speaks the gateway's envelope: errcode 0 acknowledges, any other
// value asks the gateway to redeliver later.
func (h *Handler) notify(c *gin.Context) {
	if h.notifyToken != "" && c.Query("token") != h.notifyToken {
		c.JSON(http.StatusOK, gin.H{"errcode": 1, "errmsg": "invalid token"})
		return
	}

	var dto NotifyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusOK, gin.H{"errcode": 1, "errmsg": err.Error()})
		return
	}

	item, err := h.svc.HandleNotify(c.Request.Context(), &dto)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"errcode": 2, "errmsg": err.Error()})
		return
	}
	if item == nil {
		c.JSON(http.StatusOK, gin.H{"errcode": 3, "errmsg": "order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"errcode": 0, "errmsg": "ok"})
}
