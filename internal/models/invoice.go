package models

import (
	"time"
)

// Invoice represents one billing period of rent for a lease
type Invoice struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	LeaseID    uint `gorm:"not null;index;uniqueIndex:idx_invoices_lease_period" json:"lease_id"`
	TenantID   uint `gorm:"not null;index" json:"tenant_id"`
	PropertyID uint `gorm:"not null;index" json:"property_id"`

	// e.g. "2025-03" for monthly rent
	PeriodLabel string `gorm:"not null;index;uniqueIndex:idx_invoices_lease_period" json:"period_label"`

	IssueDate time.Time `gorm:"type:date;not null" json:"issue_date"`
	DueDate   time.Time `gorm:"type:date;not null;index" json:"due_date"`

	AmountDue  int64  `gorm:"not null" json:"amount_due"`
	AmountPaid int64  `gorm:"default:0;not null" json:"amount_paid"`
	Currency   string `gorm:"default:ZMW" json:"currency"`

	Status string `gorm:"default:pending;not null;index" json:"status"`

	// Globally unique, human-readable, e.g. "INV-8F2A41-2025-03"
	Reference string `gorm:"uniqueIndex;not null" json:"reference"`

	// One marker per reminder type so re-running the daily sweep
	// does not re-send the same reminder.
	DueSoonReminderSentAt  *time.Time `json:"-"`
	DueTodayReminderSentAt *time.Time `json:"-"`
	OverdueReminderSentAt  *time.Time `json:"-"`

	LockVersion int `gorm:"default:0;not null" json:"-"`

	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Lease    Lease    `gorm:"foreignKey:LeaseID" json:"lease,omitempty"`
	Tenant   Tenant   `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Property Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}

// TableName specifies the table name for Invoice
func (Invoice) TableName() string {
	return "invoices"
}

// Invoice status constants
const (
	InvoiceStatusPending       = "pending"
	InvoiceStatusPartiallyPaid = "partially_paid"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusOverdue       = "overdue"
)

// Outstanding returns the unpaid remainder of the invoice
func (i *Invoice) Outstanding() int64 {
	if i.AmountPaid >= i.AmountDue {
		return 0
	}
	return i.AmountDue - i.AmountPaid
}

// IsSettled returns true if the invoice is fully paid
func (i *Invoice) IsSettled() bool {
	return i.AmountPaid >= i.AmountDue
}

// IsPastDue returns true if the due date is strictly before now
func (i *Invoice) IsPastDue(now time.Time) bool {
	return i.DueDate.Before(now)
}

// DeriveStatus computes the invoice status from its payment standing.
// This is the single rule by which invoice status is derived; callers
// persist the result, they never set Status by hand.
func (i *Invoice) DeriveStatus(now time.Time) string {
	switch {
	case i.AmountPaid >= i.AmountDue:
		return InvoiceStatusPaid
	case i.AmountPaid > 0:
		if i.IsPastDue(now) {
			return InvoiceStatusOverdue
		}
		return InvoiceStatusPartiallyPaid
	default:
		if i.IsPastDue(now) {
			return InvoiceStatusOverdue
		}
		return InvoiceStatusPending
	}
}

// InvoiceResponse is the JSON response format for invoices
type InvoiceResponse struct {
	ID            uint      `json:"id"`
	LeaseID       uint      `json:"lease_id"`
	Reference     string    `json:"reference"`
	PeriodLabel   string    `json:"period_label"`
	IssueDate     time.Time `json:"issue_date"`
	DueDate       time.Time `json:"due_date"`
	AmountDue     int64     `json:"amount_due"`
	AmountPaid    int64     `json:"amount_paid"`
	Outstanding   int64     `json:"outstanding"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	TenantName    string    `json:"tenant_name,omitempty"`
	TenantPhone   string    `json:"tenant_phone,omitempty"`
	PropertyTitle string    `json:"property_title,omitempty"`
}

// ToResponse converts Invoice to InvoiceResponse
func (i *Invoice) ToResponse() InvoiceResponse {
	resp := InvoiceResponse{
		ID:          i.ID,
		LeaseID:     i.LeaseID,
		Reference:   i.Reference,
		PeriodLabel: i.PeriodLabel,
		IssueDate:   i.IssueDate,
		DueDate:     i.DueDate,
		AmountDue:   i.AmountDue,
		AmountPaid:  i.AmountPaid,
		Outstanding: i.Outstanding(),
		Currency:    i.Currency,
		Status:      i.Status,
	}

	if i.Tenant.ID != 0 {
		resp.TenantName = i.Tenant.FullName
		resp.TenantPhone = i.Tenant.Phone
	}
	if i.Property.ID != 0 {
		resp.PropertyTitle = i.Property.Title
	}

	return resp
}

// PeriodLabelFor formats the billing period label for a given date
func PeriodLabelFor(t time.Time) string {
	return t.Format("2006-01")
}
