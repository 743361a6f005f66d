package order

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/pagination"
	"github.com/studiolens/core/internal/pkg/response"
	"github.com/studiolens/core/internal/pkg/wechat"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInvalidTransition marks a lifecycle operation attempted in the wrong
// order status; handlers map it to 422.
var ErrInvalidTransition = errors.New("order status does not allow this operation")

// SubscribeNotifier pushes mini-program subscribe messages. Satisfied by
// *wechat.Service; nil disables notifications.
type SubscribeNotifier interface {
	SendSubscribeMessage(ctx context.Context, msg *wechat.SubscribeMessage) error
}

type CreateOrderDTO struct {
	ActivityID   string `json:"activity_id" binding:"required"`
	OpenID       string `json:"openid"      binding:"required"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
}

type SubmitPhotosDTO struct {
	Photos []string `json:"photos" binding:"required,min=1"`
}

type RejectDTO struct {
	Reason string `json:"reason" binding:"required"`
}

// ListFilter narrows the admin order listing; all set fields must match.
type ListFilter struct {
	Status        string
	PaymentStatus string
	Keyword       string // substring of the order number
	OpenID        string
}

type orderResponse struct {
	ID                string     `json:"id"`
	OrderNo           string     `json:"order_no"`
	ActivityID        string     `json:"activity_id"`
	OpenID            string     `json:"openid"`
	ContactName       string     `json:"contact_name"`
	ContactPhone      string     `json:"contact_phone"`
	Status            string     `json:"status"`
	PaymentStatus     string     `json:"payment_status"`
	TransactionID     string     `json:"transaction_id"`
	PaidAt            *time.Time `json:"paid_at"`
	Photos            []string   `json:"photos"`
	RejectReason      string     `json:"reject_reason"`
	AdminRejectReason string     `json:"admin_reject_reason"`
	RejectCount       int        `json:"reject_count"`
	Created           time.Time  `json:"created"`
	Modified          time.Time  `json:"modified"`
}

type historyResponse struct {
	ID           string     `json:"id"`
	OrderID      string     `json:"order_id"`
	Photos       []string   `json:"photos"`
	RejectType   string     `json:"reject_type"`
	RejectReason string     `json:"reject_reason"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	RejectedAt   *time.Time `json:"rejected_at"`
	Created      time.Time  `json:"created"`
}

func toResponse(o *models.ActivityOrderModel) orderResponse {
	return orderResponse{
		ID: o.ID, OrderNo: o.OrderNo, ActivityID: o.ActivityID,
		OpenID: o.OpenID, ContactName: o.ContactName, ContactPhone: o.ContactPhone,
		Status: o.Status, PaymentStatus: o.PaymentStatus,
		TransactionID: o.TransactionID, PaidAt: o.PaidAt,
		Photos: o.Photos, RejectReason: o.RejectReason,
		AdminRejectReason: o.AdminRejectReason, RejectCount: o.RejectCount,
		Created: o.CreatedAt, Modified: o.UpdatedAt,
	}
}

func toHistoryResponse(h *models.OrderPhotoHistoryModel) historyResponse {
	return historyResponse{
		ID: h.ID, OrderID: h.OrderID, Photos: h.Photos,
		RejectType: h.RejectType, RejectReason: h.RejectReason,
		SubmittedAt: h.SubmittedAt, RejectedAt: h.RejectedAt,
		Created: h.CreatedAt,
	}
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	notifier         SubscribeNotifier
	photosTemplateID string
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

// WithNotifier enables the photos-ready subscribe message.
func (s *Service) WithNotifier(n SubscribeNotifier, photosTemplateID string) *Service {
	s.notifier = n
	s.photosTemplateID = photosTemplateID
	return s
}

// NewOrderNo builds a business order number: an SL prefix, a second-resolution
// timestamp, and a random suffix against same-second collisions. The gateway
// round-trips this value, never the row id.
func NewOrderNo(now time.Time) string {
	u := uuid.New()
	suffix := binary.BigEndian.Uint32(u[0:4]) % 1000000
	return fmt.Sprintf("SL%s%06d", now.Format("20060102150405"), suffix)
}

func (s *Service) Create(dto *CreateOrderDTO) (*models.ActivityOrderModel, error) {
	var activity models.ActivityModel
	if err := s.db.First(&activity, "id = ?", dto.ActivityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	item := models.ActivityOrderModel{
		OrderNo:       NewOrderNo(time.Now()),
		ActivityID:    dto.ActivityID,
		OpenID:        dto.OpenID,
		ContactName:   dto.ContactName,
		ContactPhone:  dto.ContactPhone,
		Status:        models.OrderStatusPendingPayment,
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	return &item, s.db.Create(&item).Error
}

func (s *Service) List(f ListFilter, q pagination.Query) ([]models.ActivityOrderModel, response.Pagination, error) {
	tx := s.db.Model(&models.ActivityOrderModel{}).Order("created_at DESC")
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		tx = tx.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.Keyword != "" {
		tx = tx.Where("order_no LIKE ?", "%"+f.Keyword+"%")
	}
	if f.OpenID != "" {
		tx = tx.Where("open_id = ?", f.OpenID)
	}
	var items []models.ActivityOrderModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) GetByID(id string) (*models.ActivityOrderModel, error) {
	var item models.ActivityOrderModel
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (s *Service) GetByOrderNo(orderNo string) (*models.ActivityOrderModel, error) {
	var item models.ActivityOrderModel
	if err := s.db.First(&item, "order_no = ?", orderNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// SubmitPhotos records the finished photo set and moves the order to the
// customer-confirmation stage. Each submission starts a new history row.
func (s *Service) SubmitPhotos(ctx context.Context, id string, photos []string) (*models.ActivityOrderModel, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return item, err
	}
	if item.Status != models.OrderStatusPendingUpload && item.Status != models.OrderStatusInProgress {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(item).Updates(map[string]interface{}{
			"photos": models.StringArray(photos),
			"status": models.OrderStatusPendingConfirm,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderPhotoHistoryModel{
			OrderID:     item.ID,
			Photos:      photos,
			SubmittedAt: &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyPhotosReady(ctx, item)
	return item, nil
}

// Reject sends the current submission back for re-editing. rejectType records
// whether the customer or an admin acting for them rejected; the open history
// row is stamped rather than a new one appended.
func (s *Service) Reject(id, rejectType, reason string) (*models.ActivityOrderModel, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return item, err
	}
	if item.Status != models.OrderStatusPendingConfirm {
		return nil, ErrInvalidTransition
	}

	updates := map[string]interface{}{
		"status":       models.OrderStatusInProgress,
		"reject_count": gorm.Expr("reject_count + 1"),
	}
	if rejectType == models.RejectTypeAdmin {
		updates["admin_reject_reason"] = reason
	} else {
		updates["reject_reason"] = reason
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(item).Updates(updates).Error; err != nil {
			return err
		}

		var last models.OrderPhotoHistoryModel
		err := tx.Where("order_id = ?", item.ID).
			Order("created_at DESC").
			First(&last).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&last).Updates(map[string]interface{}{
			"reject_type":   rejectType,
			"reject_reason": reason,
			"rejected_at":   &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Confirm accepts the submitted photos and completes the order.
func (s *Service) Confirm(id string) (*models.ActivityOrderModel, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return item, err
	}
	if item.Status != models.OrderStatusPendingConfirm {
		return nil, ErrInvalidTransition
	}
	if err := s.db.Model(item).Update("status", models.OrderStatusCompleted).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Cancel voids an order; only possible before payment.
func (s *Service) Cancel(id string) (*models.ActivityOrderModel, error) {
	item, err := s.GetByID(id)
	if err != nil || item == nil {
		return item, err
	}
	if item.Status != models.OrderStatusPendingPayment {
		return nil, ErrInvalidTransition
	}
	if err := s.db.Model(item).Update("status", models.OrderStatusCancelled).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// History returns every submission/rejection cycle of an order, oldest first.
func (s *Service) History(orderID string) ([]models.OrderPhotoHistoryModel, error) {
	var items []models.OrderPhotoHistoryModel
	err := s.db.Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (s *Service) notifyPhotosReady(ctx context.Context, o *models.ActivityOrderModel) {
	if s.notifier == nil || s.photosTemplateID == "" || o.OpenID == "" {
		return
	}
	err := s.notifier.SendSubscribeMessage(ctx, &wechat.SubscribeMessage{
		ToUser:     o.OpenID,
		TemplateID: s.photosTemplateID,
		Page:       "pages/order/detail?id=" + o.ID,
		Data: map[string]map[string]string{
			"character_string1": {"value": o.OrderNo},
			"phrase2":           {"value": "照片已上传"},
		},
	})
	if err != nil {
		s.log.Warn("photos-ready notification failed",
			zap.String("order_no", o.OrderNo), zap.Error(err))
	}
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/orders")
	g.POST("", h.create)
	g.GET("/mine", h.listMine)
	g.GET("/no/:orderNo", h.getByOrderNo)
	g.GET("/:id", h.get)
	g.GET("/:id/history", h.history)
	g.POST("/:id/confirm", h.confirm)
	g.POST("/:id/reject", h.rejectUser)
	g.POST("/:id/cancel", h.cancel)

	a := g.Group("", authMW)
	a.GET("", h.list)
	a.POST("/:id/photos", h.submitPhotos)
	a.POST("/:id/admin-reject", h.rejectAdmin)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateOrderDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	item, err := h.svc.Create(&dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.NotFoundMsg(c, "活动不存在")
		return
	}
	response.Created(c, toResponse(item))
}

func (h *Handler) list(c *gin.Context) {
	f := ListFilter{
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		Keyword:       c.Query("keyword"),
	}
	items, pag, err := h.svc.List(f, pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]orderResponse, len(items))
	for i, o := range items {
		out[i] = toResponse(&o)
	}
	response.Paged(c, out, pag)
}

// listMine pages a customer's own orders, identified by openid the way the
// mini-program session does.
func (h *Handler) listMine(c *gin.Context) {
	openid := c.Query("openid")
	if openid == "" {
		response.BadRequest(c, "openid is required")
		return
	}
	items, pag, err := h.svc.List(ListFilter{OpenID: openid}, pagination.FromLimitSkip(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]orderResponse, len(items))
	for i, o := range items {
		out[i] = toResponse(&o)
	}
	response.Paged(c, out, pag)
}

func (h *Handler) get(c *gin.Context) {
	item, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(item))
}

func (h *Handler) getByOrderNo(c *gin.Context) {
	item, err := h.svc.GetByOrderNo(c.Param("orderNo"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(item))
}

func (h *Handler) history(c *gin.Context) {
	items, err := h.svc.History(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]historyResponse, len(items))
	for i, item := range items {
		out[i] = toHistoryResponse(&item)
	}
	response.OK(c, out)
}

func (h *Handler) submitPhotos(c *gin.Context) {
	var dto SubmitPhotosDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	item, err := h.svc.SubmitPhotos(c.Request.Context(), c.Param("id"), dto.Photos)
	h.respondTransition(c, item, err)
}

func (h *Handler) rejectUser(c *gin.Context) {
	h.reject(c, models.RejectTypeUser)
}

func (h *Handler) rejectAdmin(c *gin.Context) {
	h.reject(c, models.RejectTypeAdmin)
}

func (h *Handler) reject(c *gin.Context, rejectType string) {
	var dto RejectDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	item, err := h.svc.Reject(c.Param("id"), rejectType, dto.Reason)
	h.respondTransition(c, item, err)
}

func (h *Handler) confirm(c *gin.Context) {
	item, err := h.svc.Confirm(c.Param("id"))
	h.respondTransition(c, item, err)
}

func (h *Handler) cancel(c *gin.Context) {
	item, err := h.svc.Cancel(c.Param("id"))
	h.respondTransition(c, item, err)
}

func (h *Handler) respondTransition(c *gin.Context, item *models.ActivityOrderModel, err error) {
	if errors.Is(err, ErrInvalidTransition) {
		response.UnprocessableEntity(c, "当前订单状态不允许该操作")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(item))
}
