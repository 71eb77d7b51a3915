package models

import (
	"time"
)

// Property is a thin reference to a managed property. Property CRUD
// lives outside the billing engine; billing only reads these rows.
type Property struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Address    *string   `json:"address,omitempty"`
	LandlordID uint      `gorm:"index" json:"landlord_id"`
	IsOccupied bool      `gorm:"default:false" json:"is_occupied"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for Property
func (Property) TableName() string {
	return "properties"
}

// Tenant is a thin reference to a tenant. Tenant CRUD lives outside
// the billing engine.
type Tenant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Phone     string    `gorm:"index" json:"phone"`
	Email     string    `gorm:"index" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Tenant
func (Tenant) TableName() string {
	return "tenants"
}

// Notification represents an in-app notification for a user
type Notification struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;index" json:"user_id"`
	Title            string     `gorm:"not null" json:"title"`
	Message          string     `gorm:"not null" json:"message"`
	NotificationType *string    `gorm:"index" json:"notification_type"`
	ReadAt           *time.Time `gorm:"index" json:"read_at"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// Notification type constants
const (
	NotificationTypePaymentReceived = "payment_received"
	NotificationTypePaymentFailed   = "payment_failed"
	NotificationTypePaymentRefunded = "payment_refunded"
	NotificationTypeInvoiceCreated  = "invoice_created"
	NotificationTypeInvoiceOverdue  = "invoice_overdue"
	NotificationTypeDepositDeducted = "deposit_deducted"
	NotificationTypeDepositRefunded = "deposit_refunded"
	NotificationTypeLeaseTerminated = "lease_terminated"
	NotificationTypeLeaseRenewed    = "lease_renewed"
	NotificationTypeSystem          = "system"
)

// IsRead returns true if notification has been read
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// MarkAsRead marks the notification as read
func (n *Notification) MarkAsRead() {
	now := time.Now()
	n.ReadAt = &now
}
