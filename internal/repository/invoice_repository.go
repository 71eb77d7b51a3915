package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/nyumba/nyumba-api/internal/models"
	"gorm.io/gorm"
)

// Reminder type constants used for per-invoice sent markers
const (
	ReminderDueSoon  = "due_soon"
	ReminderDueToday = "due_today"
	ReminderOverdue  = "overdue"
)

// InvoiceRepository defines the interface for invoice data access
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Invoice, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Invoice, error)
	FindByLeaseAndPeriod(ctx context.Context, leaseID uint, periodLabel string) (*models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	// UpdateStanding persists amountPaid and status under the
	// invoice's current lock version. Fails with ErrStaleRecord.
	UpdateStanding(ctx context.Context, invoice *models.Invoice) error
	FindUnsettledPastDue(ctx context.Context, now time.Time) ([]models.Invoice, error)
	FindUnsettledDueOn(ctx context.Context, day time.Time) ([]models.Invoice, error)
	FindUnsettledOverdue(ctx context.Context, now time.Time) ([]models.Invoice, error)
	MarkReminderSent(ctx context.Context, invoiceID uint, reminderType string, at time.Time) error
	List(ctx context.Context, query *ListQuery) ([]models.Invoice, int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Joins("Lease").
		Joins("Tenant").
		Joins("Property").
		First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByLeaseAndPeriod(ctx context.Context, leaseID uint, periodLabel string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Where("lease_id = ? AND period_label = ?", leaseID, periodLabel).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *invoiceRepository) UpdateStanding(ctx context.Context, invoice *models.Invoice) error {
	res := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND lock_version = ?", invoice.ID, invoice.LockVersion).
		Updates(map[string]interface{}{
			"amount_paid":  invoice.AmountPaid,
			"status":       invoice.Status,
			"lock_version": gorm.Expr("lock_version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRecord
	}
	invoice.LockVersion++
	return nil
}

func (r *invoiceRepository) FindUnsettledPastDue(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.InvoiceStatusPending, models.InvoiceStatusPartiallyPaid}).
		Where("due_date < ?", now).
		Find(&invoices).Error
	return invoices, err
}

// FindUnsettledDueOn returns unsettled invoices whose due date falls on
// the given calendar day.
func (r *invoiceRepository) FindUnsettledDueOn(ctx context.Context, day time.Time) ([]models.Invoice, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.InvoiceStatusPending, models.InvoiceStatusPartiallyPaid}).
		Where("due_date >= ? AND due_date < ?", start, end).
		Preload("Tenant").
		Preload("Property").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) FindUnsettledOverdue(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ?", models.InvoiceStatusOverdue).
		Where("due_date < ?", now).
		Preload("Tenant").
		Preload("Property").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) MarkReminderSent(ctx context.Context, invoiceID uint, reminderType string, at time.Time) error {
	var column string
	switch reminderType {
	case ReminderDueSoon:
		column = "due_soon_reminder_sent_at"
	case ReminderDueToday:
		column = "due_today_reminder_sent_at"
	case ReminderOverdue:
		column = "overdue_reminder_sent_at"
	default:
		return fmt.Errorf("unknown reminder type: %s", reminderType)
	}

	return r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update(column, at).Error
}

func (r *invoiceRepository) List(ctx context.Context, query *ListQuery) ([]models.Invoice, int64, error) {
	var invoices []models.Invoice
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Invoice{})

	if status := query.Filters["status"]; status != "" {
		db = db.Where("invoices.status = ?", status)
	}
	if leaseID := query.Filters["lease_id"]; leaseID != "" {
		db = db.Where("invoices.lease_id = ?", leaseID)
	}
	if period := query.Filters["period_label"]; period != "" {
		db = db.Where("invoices.period_label = ?", period)
	}
	if query.Search != "" {
		db = db.Where("invoices.reference ILIKE ?", "%"+query.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(db, query).
		Preload("Tenant").
		Preload("Property").
		Order("due_date DESC").
		Find(&invoices).Error
	return invoices, total, err
}
