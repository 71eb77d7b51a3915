package models

import (
	"time"
)

// Lease represents a tenancy agreement between a landlord and a tenant
type Lease struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	PropertyID uint   `gorm:"not null;index" json:"property_id"`
	TenantID   uint   `gorm:"not null;index" json:"tenant_id"`
	LandlordID uint   `gorm:"not null;index" json:"landlord_id"`
	LeaseRef   string `gorm:"uniqueIndex;not null" json:"lease_ref"`

	StartDate time.Time  `gorm:"type:date;not null" json:"start_date"`
	EndDate   *time.Time `gorm:"type:date" json:"end_date"`

	RentAmount    int64  `gorm:"not null" json:"rent_amount"`
	RentCurrency  string `gorm:"default:ZMW" json:"rent_currency"`
	RentFrequency string `gorm:"default:monthly" json:"rent_frequency"`

	// Day of month rent is due (1-31)
	DueDay int `gorm:"not null" json:"due_day"`

	DepositAmount   int64  `gorm:"default:0" json:"deposit_amount"`
	DepositCurrency string `gorm:"default:ZMW" json:"deposit_currency"`
	DepositBalance  int64  `gorm:"default:0" json:"deposit_balance"`

	Status string `gorm:"default:pending;not null;index" json:"status"`

	TerminationDate   *time.Time `gorm:"type:date" json:"termination_date,omitempty"`
	TerminationReason *string    `json:"termination_reason,omitempty"`

	LastRentIncreaseAt *time.Time `json:"last_rent_increase_at,omitempty"`

	// Bumped on every conditional update; serializes concurrent
	// read-modify-write on the same lease.
	LockVersion int `gorm:"default:0;not null" json:"-"`

	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Property       Property       `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Tenant         Tenant         `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	DepositEntries []DepositEntry `gorm:"foreignKey:LeaseID" json:"deposit_entries,omitempty"`
}

// TableName specifies the table name for Lease
func (Lease) TableName() string {
	return "leases"
}

// Lease status constants
const (
	LeaseStatusPending    = "pending"
	LeaseStatusActive     = "active"
	LeaseStatusTerminated = "terminated"
	LeaseStatusExpired    = "expired"
)

// Rent frequency constants
const (
	RentFrequencyWeekly    = "weekly"
	RentFrequencyMonthly   = "monthly"
	RentFrequencyQuarterly = "quarterly"
	RentFrequencyYearly    = "yearly"
)

// MayActivate returns true if the lease can transition to active
func (l *Lease) MayActivate() bool {
	return l.Status == LeaseStatusPending
}

// MayTerminate returns true if the lease can be terminated
func (l *Lease) MayTerminate() bool {
	return l.Status == LeaseStatusActive || l.Status == LeaseStatusPending
}

// MayExpire returns true if the lease can be archived as expired
func (l *Lease) MayExpire() bool {
	return l.Status == LeaseStatusActive
}

// IsBillable reports whether the lease should receive period invoices at now
func (l *Lease) IsBillable(now time.Time) bool {
	if l.Status != LeaseStatusActive || l.RentFrequency != RentFrequencyMonthly {
		return false
	}
	if l.StartDate.After(now) {
		return false
	}
	return l.EndDate == nil || !l.EndDate.Before(now)
}

// DepositEntry is one append-only movement on a lease's deposit ledger
type DepositEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LeaseID   uint      `gorm:"not null;index" json:"lease_id"`
	EntryType string    `gorm:"not null;index" json:"entry_type"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"not null" json:"reason"`
	EntryDate time.Time `gorm:"not null;default:current_timestamp" json:"entry_date"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for DepositEntry
func (DepositEntry) TableName() string {
	return "deposit_entries"
}

// Deposit entry type constants
const (
	DepositEntryDeduction = "deduction"
	DepositEntryRefund    = "refund"
)

// LeaseResponse is the JSON response format for leases
type LeaseResponse struct {
	ID                 uint       `json:"id"`
	LeaseRef           string     `json:"lease_ref"`
	PropertyID         uint       `json:"property_id"`
	TenantID           uint       `json:"tenant_id"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	RentAmount         int64      `json:"rent_amount"`
	RentCurrency       string     `json:"rent_currency"`
	RentFrequency      string     `json:"rent_frequency"`
	DueDay             int        `json:"due_day"`
	DepositAmount      int64      `json:"deposit_amount"`
	DepositBalance     int64      `json:"deposit_balance"`
	Status             string     `json:"status"`
	TerminationDate    *time.Time `json:"termination_date,omitempty"`
	TerminationReason  *string    `json:"termination_reason,omitempty"`
	LastRentIncreaseAt *time.Time `json:"last_rent_increase_at,omitempty"`
	PropertyTitle      string     `json:"property_title,omitempty"`
	TenantName         string     `json:"tenant_name,omitempty"`
	TenantPhone        string     `json:"tenant_phone,omitempty"`
}

// ToResponse converts Lease to LeaseResponse
func (l *Lease) ToResponse() LeaseResponse {
	resp := LeaseResponse{
		ID:                 l.ID,
		LeaseRef:           l.LeaseRef,
		PropertyID:         l.PropertyID,
		TenantID:           l.TenantID,
		StartDate:          l.StartDate,
		EndDate:            l.EndDate,
		RentAmount:         l.RentAmount,
		RentCurrency:       l.RentCurrency,
		RentFrequency:      l.RentFrequency,
		DueDay:             l.DueDay,
		DepositAmount:      l.DepositAmount,
		DepositBalance:     l.DepositBalance,
		Status:             l.Status,
		TerminationDate:    l.TerminationDate,
		TerminationReason:  l.TerminationReason,
		LastRentIncreaseAt: l.LastRentIncreaseAt,
	}

	if l.Property.ID != 0 {
		resp.PropertyTitle = l.Property.Title
	}
	if l.Tenant.ID != 0 {
		resp.TenantName = l.Tenant.FullName
		resp.TenantPhone = l.Tenant.Phone
	}

	return resp
}
