package models

import "time"

// ActivityOrder statuses. The payment callback drives the
// pending_payment → pending_upload transition; photo submission and
// rejection cycles drive the rest.
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPendingUpload  = "pending_upload"
	OrderStatusPendingConfirm = "pending_confirm"
	OrderStatusInProgress     = "in_progress"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
)

// Payment states, tracked separately from the order status: a failed gateway
// result flips PaymentStatus only and leaves Status untouched.
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Photo rejection origins.
const (
	RejectTypeUser  = "user"
	RejectTypeAdmin = "admin"
)

// ActivityOrderModel is a booking for an activity. OrderNo is the business
// order number; the payment gateway only knows this, never the row id.
type ActivityOrderModel struct {
	Base
	OrderNo           string      `json:"order_no"            gorm:"uniqueIndex;not null"`
	ActivityID        string      `json:"activity_id"         gorm:"index"`
	OpenID            string      `json:"openid"              gorm:"index"`
	ContactName       string      `json:"contact_name"`
	ContactPhone      string      `json:"contact_phone"`
	Status            string      `json:"status"              gorm:"index;default:'pending_payment'"`
	PaymentStatus     string      `json:"payment_status"      gorm:"index;default:'unpaid'"`
	TransactionID     string      `json:"transaction_id"      gorm:"index"`
	PaidAt            *time.Time  `json:"paid_at"`
	Photos            StringArray `json:"photos"              gorm:"type:longtext"`
	RejectReason      string      `json:"reject_reason"       gorm:"type:text"`
	AdminRejectReason string      `json:"admin_reject_reason" gorm:"type:text"`
	RejectCount       int         `json:"reject_count"`
}

func (ActivityOrderModel) TableName() string { return "activity_orders" }

// OrderPhotoHistoryModel records one photo submission/rejection cycle of an
// order. Rows are appended, never rewritten.
type OrderPhotoHistoryModel struct {
	Base
	OrderID      string      `json:"order_id"      gorm:"index;not null"`
	Photos       StringArray `json:"photos"        gorm:"type:longtext"`
	RejectType   string      `json:"reject_type"`
	RejectReason string      `json:"reject_reason" gorm:"type:text"`
	SubmittedAt  *time.Time  `json:"submitted_at"`
	RejectedAt   *time.Time  `json:"rejected_at"`
}

func (OrderPhotoHistoryModel) TableName() string { return "order_photo_history" }
