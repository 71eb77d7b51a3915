package repository

import (
	"context"

	"github.com/nyumba/nyumba-api/internal/models"
	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Payment, error)
	FindByExternalRef(ctx context.Context, externalRef string) (*models.Payment, error)
	FindByRefundExternalRef(ctx context.Context, refundRef string) (*models.Payment, error)
	FindByReceiptNumber(ctx context.Context, receiptNumber string) (*models.Payment, error)
	// FindSuccessfulByInvoice returns every payment counted towards an
	// invoice's amountPaid, refund adjustments included.
	FindSuccessfulByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	// UpdateVersioned persists payment state under the current lock
	// version. Fails with ErrStaleRecord when raced.
	UpdateVersioned(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, query *ListQuery) ([]models.Payment, int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Joins("Lease").
		Joins("Tenant").
		Joins("Property").
		Preload("Invoice").
		First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByExternalRef(ctx context.Context, externalRef string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("external_ref = ?", externalRef).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByRefundExternalRef(ctx context.Context, refundRef string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("refund_external_ref = ?", refundRef).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("receipt_number = ?", receiptNumber).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindSuccessfulByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND status = ?", invoiceID, models.PaymentStatusSuccessful).
		Order("date_paid ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) UpdateVersioned(ctx context.Context, payment *models.Payment) error {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND lock_version = ?", payment.ID, payment.LockVersion).
		Updates(map[string]interface{}{
			"status":              payment.Status,
			"transaction_id":      payment.TransactionID,
			"date_paid":           payment.DatePaid,
			"refund_status":       payment.RefundStatus,
			"refund_amount":       payment.RefundAmount,
			"refund_external_ref": payment.RefundExternalRef,
			"refunded_at":         payment.RefundedAt,
			"receipt_path":        payment.ReceiptPath,
			"lock_version":        gorm.Expr("lock_version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRecord
	}
	payment.LockVersion++
	return nil
}

func (r *paymentRepository) List(ctx context.Context, query *ListQuery) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Payment{})

	if status := query.Filters["status"]; status != "" {
		db = db.Where("payments.status = ?", status)
	}
	if leaseID := query.Filters["lease_id"]; leaseID != "" {
		db = db.Where("payments.lease_id = ?", leaseID)
	}
	if method := query.Filters["method"]; method != "" {
		db = db.Where("payments.method = ?", method)
	}
	if query.Search != "" {
		db = db.Where("payments.receipt_number ILIKE ?", "%"+query.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(db, query).
		Preload("Tenant").
		Preload("Property").
		Order("date_paid DESC").
		Find(&payments).Error
	return payments, total, err
}
