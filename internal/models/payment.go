package models

import (
	"time"
)

// Payment represents a single money movement against a lease, usually
// applied to an invoice. Refund adjustments are payments with a
// negative amount pointing at the same invoice.
type Payment struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	LeaseID    uint  `gorm:"not null;index" json:"lease_id"`
	PropertyID uint  `gorm:"not null;index" json:"property_id"`
	TenantID   uint  `gorm:"not null;index" json:"tenant_id"`
	InvoiceID  *uint `gorm:"index" json:"invoice_id,omitempty"`

	Amount   int64  `gorm:"not null" json:"amount"`
	Currency string `gorm:"default:ZMW" json:"currency"`
	DatePaid time.Time `gorm:"not null" json:"date_paid"`

	Method string `gorm:"not null" json:"method"`

	// Gateway request reference set at initiation time; webhook
	// deliveries are keyed on it.
	ExternalRef *string `gorm:"index" json:"external_ref,omitempty"`
	// Gateway transaction id reported by the success webhook.
	TransactionID *string `gorm:"index" json:"transaction_id,omitempty"`

	ReceiptNumber string `gorm:"uniqueIndex;not null" json:"receipt_number"`

	Status string `gorm:"default:pending;not null;index" json:"status"`

	IsDeposit bool `gorm:"default:false" json:"is_deposit"`

	RefundStatus      string     `gorm:"default:none;not null" json:"refund_status"`
	RefundAmount      int64      `gorm:"default:0" json:"refund_amount"`
	RefundExternalRef *string    `gorm:"index" json:"refund_external_ref,omitempty"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`

	ReceiptPath *string `json:"-"`

	LockVersion int `gorm:"default:0;not null" json:"-"`

	Notes        *string   `json:"notes,omitempty"`
	RecordedByID *uint     `gorm:"index" json:"recorded_by_id,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Associations
	Lease    Lease    `gorm:"foreignKey:LeaseID" json:"lease,omitempty"`
	Tenant   Tenant   `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Property Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Invoice  *Invoice `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment status constants
const (
	PaymentStatusPending    = "pending"
	PaymentStatusSuccessful = "successful"
	PaymentStatusFailed     = "failed"
	PaymentStatusReversed   = "reversed"
	PaymentStatusRefunded   = "refunded"
)

// Refund sub-state constants
const (
	RefundStatusNone      = "none"
	RefundStatusRequested = "requested"
	RefundStatusRefunded  = "refunded"
	RefundStatusFailed    = "failed"
)

// Payment method constants
const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodMTNMoMo      = "mtn_momo"
	PaymentMethodAirtelMoney  = "airtel_money"
	PaymentMethodCard         = "card"
	PaymentMethodCheque       = "cheque"
	PaymentMethodOther        = "other"
	PaymentMethodAdjustment   = "adjustment"
)

// IsTerminal returns true once a payment has settled or failed
func (p *Payment) IsTerminal() bool {
	return p.Status != PaymentStatusPending
}

// MaySucceed returns true if the payment can transition to successful
func (p *Payment) MaySucceed() bool {
	return p.Status == PaymentStatusPending
}

// MayFail returns true if the payment can transition to failed
func (p *Payment) MayFail() bool {
	return p.Status == PaymentStatusPending
}

// MayRequestRefund returns true if a refund may be requested
func (p *Payment) MayRequestRefund() bool {
	return p.Status == PaymentStatusSuccessful && p.RefundStatus == RefundStatusNone
}

// PaymentResponse is the JSON response format for payments
type PaymentResponse struct {
	ID            uint       `json:"id"`
	LeaseID       uint       `json:"lease_id"`
	InvoiceID     *uint      `json:"invoice_id,omitempty"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	DatePaid      time.Time  `json:"date_paid"`
	Method        string     `json:"method"`
	ReceiptNumber string     `json:"receipt_number"`
	Status        string     `json:"status"`
	IsDeposit     bool       `json:"is_deposit"`
	ExternalRef   *string    `json:"external_ref,omitempty"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	RefundStatus  string     `json:"refund_status"`
	RefundAmount  int64      `json:"refund_amount,omitempty"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
	HasReceipt    bool       `json:"has_receipt"`
	TenantName    string     `json:"tenant_name,omitempty"`
	PropertyTitle string     `json:"property_title,omitempty"`
}

// ToResponse converts Payment to PaymentResponse
func (p *Payment) ToResponse() PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID,
		LeaseID:       p.LeaseID,
		InvoiceID:     p.InvoiceID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		DatePaid:      p.DatePaid,
		Method:        p.Method,
		ReceiptNumber: p.ReceiptNumber,
		Status:        p.Status,
		IsDeposit:     p.IsDeposit,
		ExternalRef:   p.ExternalRef,
		TransactionID: p.TransactionID,
		RefundStatus:  p.RefundStatus,
		RefundAmount:  p.RefundAmount,
		RefundedAt:    p.RefundedAt,
		HasReceipt:    p.ReceiptPath != nil && *p.ReceiptPath != "",
	}

	if p.Tenant.ID != 0 {
		resp.TenantName = p.Tenant.FullName
	}
	if p.Property.ID != 0 {
		resp.PropertyTitle = p.Property.Title
	}

	return resp
}
