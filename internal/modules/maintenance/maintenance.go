package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/models"
	"github.com/studiolens/core/internal/pkg/response"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	// resequenceWorkers bounds the parallel update fan-out.
	resequenceWorkers = 8

	// defaultActivityCategory identifies the ID-photo activity that legacy
	// orders are backfilled onto.
	defaultActivityCategory = "证件照"
)

// ErrNoDefaultActivity aborts the order backfill before any write.
var ErrNoDefaultActivity = errors.New("no default activity to backfill onto")

// Service hosts the one-shot repair scripts. Each is re-runnable: a second
// run over repaired data issues no writes. None of them guard against
// concurrent mutation of the rows they walk.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

// ResequenceReport summarizes one resequencing run.
type ResequenceReport struct {
	Total   int `json:"total"`
	Changed int `json:"changed"`
}

// ResequenceStudents reassigns dense zero-padded student ids in creation
// order. Only rows whose id already differs are written, in parallel.
func (s *Service) ResequenceStudents(ctx context.Context) (*ResequenceReport, error) {
	var students []models.StudentModel
	if err := s.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&students).Error; err != nil {
		return nil, err
	}

	type change struct {
		rowID string
		sid   string
	}
	var changes []change
	for i, st := range students {
		want := fmt.Sprintf("%04d", i+1)
		if st.StudentID != want {
			changes = append(changes, change{rowID: st.ID, sid: want})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resequenceWorkers)
	for _, ch := range changes {
		ch := ch
		g.Go(func() error {
			return s.db.WithContext(gctx).
				Model(&models.StudentModel{}).
				Where("id = ?", ch.rowID).
				Update("student_id", ch.sid).Error
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Info("students resequenced",
		zap.Int("total", len(students)), zap.Int("changed", len(changes)))
	return &ResequenceReport{Total: len(students), Changed: len(changes)}, nil
}

// BackfillReport summarizes one order backfill run.
type BackfillReport struct {
	Scanned    int    `json:"scanned"`
	Updated    int    `json:"updated"`
	Skipped    int    `json:"skipped"`
	ActivityID string `json:"activity_id,omitempty"`
}

// BackfillOrderActivity points orders with a missing activity reference at
// the default ID-photo activity. Fails fast when no default exists.
func (s *Service) BackfillOrderActivity(ctx context.Context) (*BackfillReport, error) {
	var def models.ActivityModel
	err := s.db.WithContext(ctx).
		Where("is_default = ? AND category = ?", true, defaultActivityCategory).
		First(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoDefaultActivity
	}
	if err != nil {
		return nil, err
	}

	var scanned int64
	if err := s.db.WithContext(ctx).
		Model(&models.ActivityOrderModel{}).
		Count(&scanned).Error; err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).
		Model(&models.ActivityOrderModel{}).
		Where("activity_id IS NULL OR activity_id = ''").
		Update("activity_id", def.ID)
	if res.Error != nil {
		return nil, res.Error
	}

	s.log.Info("orders backfilled onto default activity",
		zap.String("activity", def.ID),
		zap.Int64("scanned", scanned), zap.Int64("updated", res.RowsAffected))
	return &BackfillReport{
		Scanned:    int(scanned),
		Updated:    int(res.RowsAffected),
		Skipped:    int(scanned - res.RowsAffected),
		ActivityID: def.ID,
	}, nil
}

// BackfillOrderHistory synthesizes a history row for in-progress orders that
// predate history tracking, from the reject fields still on the order. An
// admin rejection wins over a user one when both are present. Orders without
// photos or without any reject reason cannot be reconstructed and are
// skipped. Best effort; a partial run leaves a mixed state and is safe to
// re-run.
func (s *Service) BackfillOrderHistory(ctx context.Context) (*BackfillReport, error) {
	var orders []models.ActivityOrderModel
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.OrderStatusInProgress).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}

	report := &BackfillReport{Scanned: len(orders)}
	for i := range orders {
		o := &orders[i]

		var count int64
		if err := s.db.WithContext(ctx).
			Model(&models.OrderPhotoHistoryModel{}).
			Where("order_id = ?", o.ID).
			Count(&count).Error; err != nil {
			return report, err
		}
		if count > 0 {
			continue
		}

		rejectType := models.RejectTypeUser
		reason := o.RejectReason
		if o.AdminRejectReason != "" {
			rejectType = models.RejectTypeAdmin
			reason = o.AdminRejectReason
		}
		if len(o.Photos) == 0 || reason == "" {
			report.Skipped++
			continue
		}

		// The original submission/rejection times are gone; the order's own
		// timestamps are the closest approximation left.
		submittedAt := o.CreatedAt
		rejectedAt := o.UpdatedAt
		if err := s.db.WithContext(ctx).Create(&models.OrderPhotoHistoryModel{
			OrderID:      o.ID,
			Photos:       o.Photos,
			RejectType:   rejectType,
			RejectReason: reason,
			SubmittedAt:  &submittedAt,
			RejectedAt:   &rejectedAt,
		}).Error; err != nil {
			return report, err
		}
		report.Updated++
	}

	s.log.Info("order history backfilled",
		zap.Int("scanned", report.Scanned),
		zap.Int("created", report.Updated),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/maintenance", authMW)
	g.POST("/students/resequence", h.resequenceStudents)
	g.POST("/orders/backfill-activity", h.backfillOrderActivity)
	g.POST("/orders/backfill-history", h.backfillOrderHistory)
}

func (h *Handler) resequenceStudents(c *gin.Context) {
	report, err := h.svc.ResequenceStudents(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, report)
}

func (h *Handler) backfillOrderActivity(c *gin.Context) {
	report, err := h.svc.BackfillOrderActivity(c.Request.Context())
	if errors.Is(err, ErrNoDefaultActivity) {
		response.UnprocessableEntity(c, "默认活动不存在，无法回填")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, report)
}

func (h *Handler) backfillOrderHistory(c *gin.Context) {
	report, err := h.svc.BackfillOrderHistory(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, report)
}
