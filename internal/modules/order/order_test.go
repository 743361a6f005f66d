package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/studiolens/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.ActivityModel{},
		&models.ActivityOrderModel{},
		&models.OrderPhotoHistoryModel{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) *Service {
	return NewService(newTestDB(t), zap.NewNop())
}

func seedOrder(t *testing.T, svc *Service, status string) *models.ActivityOrderModel {
	t.Helper()
	activity := models.ActivityModel{Title: "毕业照", Status: models.ActivityStatusPublished}
	if err := svc.db.Create(&activity).Error; err != nil {
		t.Fatalf("seed activity: %v", err)
	}
	item, err := svc.Create(&CreateOrderDTO{
		ActivityID: activity.ID,
		OpenID:     "o-test-openid",
	})
	if err != nil || item == nil {
		t.Fatalf("seed order: item=%v err=%v", item, err)
	}
	if status != models.OrderStatusPendingPayment {
		if err := svc.db.Model(item).Update("status", status).Error; err != nil {
			t.Fatalf("force status: %v", err)
		}
	}
	return item
}

func TestNewOrderNo(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	no := NewOrderNo(now)
	if !strings.HasPrefix(no, "SL20260314150926") {
		t.Errorf("order no %q lacks timestamp prefix", no)
	}
	if len(no) != len("SL20260314150926")+6 {
		t.Errorf("order no %q has unexpected length", no)
	}
	if no == NewOrderNo(now) {
		t.Error("two order numbers in the same second collided")
	}
}

func TestCreate(t *testing.T) {
	svc := newTestService(t)

	t.Run("fresh order", func(t *testing.T) {
		item := seedOrder(t, svc, models.OrderStatusPendingPayment)
		if item.Status != models.OrderStatusPendingPayment {
			t.Errorf("status = %s", item.Status)
		}
		if item.PaymentStatus != models.PaymentStatusUnpaid {
			t.Errorf("payment status = %s", item.PaymentStatus)
		}
		if !strings.HasPrefix(item.OrderNo, "SL") {
			t.Errorf("order no = %q", item.OrderNo)
		}
	})

	t.Run("unknown activity", func(t *testing.T) {
		item, err := svc.Create(&CreateOrderDTO{ActivityID: "nope", OpenID: "o"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item != nil {
			t.Fatal("expected nil for unknown activity")
		}
	})
}

func TestLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	item := seedOrder(t, svc, models.OrderStatusPendingUpload)

	// First submission.
	if _, err := svc.SubmitPhotos(ctx, item.ID, []string{"p1.jpg", "p2.jpg"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, _ := svc.GetByID(item.ID)
	if got.Status != models.OrderStatusPendingConfirm {
		t.Fatalf("after submit status = %s", got.Status)
	}
	history, err := svc.History(item.ID)
	if err != nil || len(history) != 1 {
		t.Fatalf("history rows = %d err = %v, want 1", len(history), err)
	}
	if history[0].SubmittedAt == nil || history[0].RejectedAt != nil {
		t.Errorf("fresh history row: %+v", history[0])
	}

	// Customer rejects.
	got, err = svc.Reject(item.ID, models.RejectTypeUser, "背景太暗")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != models.OrderStatusInProgress || got.RejectCount != 1 {
		t.Fatalf("after reject: status=%s count=%d", got.Status, got.RejectCount)
	}
	if got.RejectReason != "背景太暗" {
		t.Errorf("reject reason = %q", got.RejectReason)
	}
	history, _ = svc.History(item.ID)
	if len(history) != 1 {
		t.Fatalf("reject should stamp the open row, got %d rows", len(history))
	}
	if history[0].RejectType != models.RejectTypeUser || history[0].RejectedAt == nil {
		t.Errorf("stamped history row: %+v", history[0])
	}

	// Re-edit and resubmit starts a new cycle.
	if _, err := svc.SubmitPhotos(ctx, item.ID, []string{"p3.jpg"}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	history, _ = svc.History(item.ID)
	if len(history) != 2 {
		t.Fatalf("history rows = %d, want 2", len(history))
	}

	// Admin rejects on the customer's behalf.
	got, err = svc.Reject(item.ID, models.RejectTypeAdmin, "客户电话要求重修")
	if err != nil {
		t.Fatalf("admin reject: %v", err)
	}
	if got.AdminRejectReason != "客户电话要求重修" || got.RejectCount != 2 {
		t.Errorf("after admin reject: %+v", got)
	}

	// Final round.
	if _, err := svc.SubmitPhotos(ctx, item.ID, []string{"p4.jpg"}); err != nil {
		t.Fatalf("final submit: %v", err)
	}
	got, err = svc.Confirm(item.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != models.OrderStatusCompleted {
		t.Errorf("final status = %s", got.Status)
	}
}

func TestInvalidTransitions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("submit before payment", func(t *testing.T) {
		item := seedOrder(t, svc, models.OrderStatusPendingPayment)
		if _, err := svc.SubmitPhotos(ctx, item.ID, []string{"p.jpg"}); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("confirm without submission", func(t *testing.T) {
		item := seedOrder(t, svc, models.OrderStatusPendingUpload)
		if _, err := svc.Confirm(item.ID); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("cancel after payment", func(t *testing.T) {
		item := seedOrder(t, svc, models.OrderStatusPendingUpload)
		if _, err := svc.Cancel(item.ID); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("cancel before payment", func(t *testing.T) {
		item := seedOrder(t, svc, models.OrderStatusPendingPayment)
		got, err := svc.Cancel(item.ID)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.Status != models.OrderStatusCancelled {
			t.Errorf("status = %s", got.Status)
		}
	})
}

func TestGetByOrderNo(t *testing.T) {
	svc := newTestService(t)
	item := seedOrder(t, svc, models.OrderStatusPendingPayment)

	got, err := svc.GetByOrderNo(item.OrderNo)
	if err != nil || got == nil {
		t.Fatalf("lookup: item=%v err=%v", got, err)
	}
	if got.ID != item.ID {
		t.Errorf("resolved %s, want %s", got.ID, item.ID)
	}

	missing, err := svc.GetByOrderNo("SL00000000000000000000")
	if err != nil || missing != nil {
		t.Errorf("missing lookup: item=%v err=%v", missing, err)
	}
}
