package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
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
	if err := db.AutoMigrate(&models.ActivityOrderModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB) *models.ActivityOrderModel {
	t.Helper()
	item := models.ActivityOrderModel{
		OrderNo:       "SL20260101000000123456",
		ActivityID:    "act-1",
		OpenID:        "o-openid",
		Status:        models.OrderStatusPendingPayment,
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return &item
}

func TestHandleNotify_Success(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	order := seedOrder(t, db)

	got, err := svc.HandleNotify(context.Background(), &NotifyDTO{
		OrderNo:       order.OrderNo,
		ResultCode:    "SUCCESS",
		TransactionID: "wx-txn-1",
	})
	if err != nil || got == nil {
		t.Fatalf("notify: item=%v err=%v", got, err)
	}

	var reloaded models.ActivityOrderModel
	if err := db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("payment status = %s", reloaded.PaymentStatus)
	}
	if reloaded.Status != models.OrderStatusPendingUpload {
		t.Errorf("status = %s", reloaded.Status)
	}
	if reloaded.TransactionID != "wx-txn-1" {
		t.Errorf("transaction id = %q", reloaded.TransactionID)
	}
	if reloaded.PaidAt == nil {
		t.Error("paid_at not recorded")
	}
}

func TestHandleNotify_FailureLeavesStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	order := seedOrder(t, db)

	if _, err := svc.HandleNotify(context.Background(), &NotifyDTO{
		OrderNo:    order.OrderNo,
		ResultCode: "FAIL",
	}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	var reloaded models.ActivityOrderModel
	if err := db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PaymentStatus != models.PaymentStatusFailed {
		t.Errorf("payment status = %s", reloaded.PaymentStatus)
	}
	if reloaded.Status != models.OrderStatusPendingPayment {
		t.Errorf("order status moved on failure: %s", reloaded.Status)
	}
	if reloaded.PaidAt != nil {
		t.Error("paid_at set on failure")
	}
}

func TestHandleNotify_RedeliveryIsNoOp(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	order := seedOrder(t, db)
	ctx := context.Background()

	first := &NotifyDTO{OrderNo: order.OrderNo, ResultCode: "SUCCESS", TransactionID: "wx-txn-1"}
	if _, err := svc.HandleNotify(ctx, first); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	var afterFirst models.ActivityOrderModel
	if err := db.First(&afterFirst, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}

	// The order advances before the gateway redelivers.
	if err := db.Model(&afterFirst).Update("status", models.OrderStatusPendingConfirm).Error; err != nil {
		t.Fatalf("advance: %v", err)
	}

	redelivery := &NotifyDTO{OrderNo: order.OrderNo, ResultCode: "SUCCESS", TransactionID: "wx-txn-other"}
	if _, err := svc.HandleNotify(ctx, redelivery); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	var afterSecond models.ActivityOrderModel
	if err := db.First(&afterSecond, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if afterSecond.Status != models.OrderStatusPendingConfirm {
		t.Errorf("redelivery regressed status to %s", afterSecond.Status)
	}
	if afterSecond.TransactionID != "wx-txn-1" {
		t.Errorf("redelivery replaced transaction id: %s", afterSecond.TransactionID)
	}
	if !afterSecond.PaidAt.Equal(*afterFirst.PaidAt) {
		t.Errorf("redelivery changed paid time: %v -> %v", afterFirst.PaidAt, afterSecond.PaidAt)
	}
}

func TestHandleNotify_LateFailureAfterSuccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	order := seedOrder(t, db)
	ctx := context.Background()

	if _, err := svc.HandleNotify(ctx, &NotifyDTO{
		OrderNo: order.OrderNo, ResultCode: "SUCCESS", TransactionID: "wx-txn-1",
	}); err != nil {
		t.Fatalf("success delivery: %v", err)
	}

	if _, err := svc.HandleNotify(ctx, &NotifyDTO{
		OrderNo: order.OrderNo, ResultCode: "FAIL",
	}); err != nil {
		t.Fatalf("late failure: %v", err)
	}

	var reloaded models.ActivityOrderModel
	if err := db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("late failure flipped payment status to %s", reloaded.PaymentStatus)
	}
	if reloaded.Status != models.OrderStatusPendingUpload {
		t.Errorf("status = %s", reloaded.Status)
	}
	if reloaded.PaidAt == nil || reloaded.TransactionID != "wx-txn-1" {
		t.Errorf("payment record lost: paid_at=%v txn=%q", reloaded.PaidAt, reloaded.TransactionID)
	}
}

func TestNotifyHandler_GatewayEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	order := seedOrder(t, db)

	router := gin.New()
	NewHandler(svc, "").RegisterRoutes(router.Group("/api/v1"))

	post := func(t *testing.T, body interface{}) (int, map[string]interface{}) {
		t.Helper()
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/notify", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var out map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return w.Code, out
	}

	t.Run("acknowledges success", func(t *testing.T) {
		code, out := post(t, gin.H{"orderNo": order.OrderNo, "resultCode": "SUCCESS", "transactionId": "wx-1"})
		if code != http.StatusOK || out["errcode"] != float64(0) {
			t.Errorf("code=%d body=%v", code, out)
		}
	})

	t.Run("unknown order asks for redelivery", func(t *testing.T) {
		code, out := post(t, gin.H{"orderNo": "SL-unknown", "resultCode": "SUCCESS"})
		if code != http.StatusOK || out["errcode"] == float64(0) {
			t.Errorf("code=%d body=%v", code, out)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		code, out := post(t, gin.H{"resultCode": "SUCCESS"})
		if code != http.StatusOK || out["errcode"] == float64(0) {
			t.Errorf("code=%d body=%v", code, out)
		}
	})
}

func TestNotifyHandler_Token(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	svc := NewService(db, zap.NewNop())
	seedOrder(t, db)

	router := gin.New()
	NewHandler(svc, "secret-token").RegisterRoutes(router.Group("/api/v1"))

	raw, _ := json.Marshal(gin.H{"orderNo": "SL20260101000000123456", "resultCode": "SUCCESS"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/notify?token=wrong", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["errcode"] == float64(0) {
		t.Errorf("wrong token accepted: %v", out)
	}
}
