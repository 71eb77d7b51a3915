package services

import (
	"context"
	"testing"
	"time"

	"github.com/nyumba/nyumba-api/internal/config"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/internal/repository"
	"gorm.io/gorm"
)

// Mock LeaseRepository
type mockLeaseRepository struct {
	mockFindByID            func(ctx context.Context, id uint) (*models.Lease, error)
	mockFindByIDWithDetails func(ctx context.Context, id uint) (*models.Lease, error)
	mockFindBillable        func(ctx context.Context, now time.Time) ([]models.Lease, error)
	mockCreate              func(ctx context.Context, lease *models.Lease) error
	mockUpdate              func(ctx context.Context, lease *models.Lease) error
	mockApplyDepositEntry   func(ctx context.Context, lease *models.Lease, entry *models.DepositEntry) error
	mockDepositHistory      func(ctx context.Context, leaseID uint) ([]models.DepositEntry, error)
	mockExistsByRef         func(ctx context.Context, leaseRef string) (bool, error)
}

func (m *mockLeaseRepository) FindByID(ctx context.Context, id uint) (*models.Lease, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockLeaseRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Lease, error) {
	if m.mockFindByIDWithDetails != nil {
		return m.mockFindByIDWithDetails(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockLeaseRepository) FindBillable(ctx context.Context, now time.Time) ([]models.Lease, error) {
	if m.mockFindBillable != nil {
		return m.mockFindBillable(ctx, now)
	}
	return nil, nil
}
func (m *mockLeaseRepository) Create(ctx context.Context, lease *models.Lease) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, lease)
	}
	return nil
}
func (m *mockLeaseRepository) Update(ctx context.Context, lease *models.Lease) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, lease)
	}
	return nil
}
func (m *mockLeaseRepository) ApplyDepositEntry(ctx context.Context, lease *models.Lease, entry *models.DepositEntry) error {
	if m.mockApplyDepositEntry != nil {
		return m.mockApplyDepositEntry(ctx, lease, entry)
	}
	return nil
}
func (m *mockLeaseRepository) DepositHistory(ctx context.Context, leaseID uint) ([]models.DepositEntry, error) {
	if m.mockDepositHistory != nil {
		return m.mockDepositHistory(ctx, leaseID)
	}
	return nil, nil
}
func (m *mockLeaseRepository) List(ctx context.Context, query *repository.ListQuery) ([]models.Lease, int64, error) {
	return nil, 0, nil
}
func (m *mockLeaseRepository) ExistsByRef(ctx context.Context, leaseRef string) (bool, error) {
	if m.mockExistsByRef != nil {
		return m.mockExistsByRef(ctx, leaseRef)
	}
	return false, nil
}

// Mock InvoiceRepository
type mockInvoiceRepository struct {
	mockFindByID             func(ctx context.Context, id uint) (*models.Invoice, error)
	mockFindByIDWithDetails  func(ctx context.Context, id uint) (*models.Invoice, error)
	mockFindByLeaseAndPeriod func(ctx context.Context, leaseID uint, periodLabel string) (*models.Invoice, error)
	mockCreate               func(ctx context.Context, invoice *models.Invoice) error
	mockUpdateStanding       func(ctx context.Context, invoice *models.Invoice) error
	mockFindUnsettledPastDue func(ctx context.Context, now time.Time) ([]models.Invoice, error)
	mockFindUnsettledDueOn   func(ctx context.Context, day time.Time) ([]models.Invoice, error)
	mockFindUnsettledOverdue func(ctx context.Context, now time.Time) ([]models.Invoice, error)
	mockMarkReminderSent     func(ctx context.Context, invoiceID uint, reminderType string, at time.Time) error
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, id uint) (*models.Invoice, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockInvoiceRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Invoice, error) {
	if m.mockFindByIDWithDetails != nil {
		return m.mockFindByIDWithDetails(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockInvoiceRepository) FindByLeaseAndPeriod(ctx context.Context, leaseID uint, periodLabel string) (*models.Invoice, error) {
	if m.mockFindByLeaseAndPeriod != nil {
		return m.mockFindByLeaseAndPeriod(ctx, leaseID, periodLabel)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, invoice)
	}
	return nil
}
func (m *mockInvoiceRepository) UpdateStanding(ctx context.Context, invoice *models.Invoice) error {
	if m.mockUpdateStanding != nil {
		return m.mockUpdateStanding(ctx, invoice)
	}
	return nil
}
func (m *mockInvoiceRepository) FindUnsettledPastDue(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	if m.mockFindUnsettledPastDue != nil {
		return m.mockFindUnsettledPastDue(ctx, now)
	}
	return nil, nil
}
func (m *mockInvoiceRepository) FindUnsettledDueOn(ctx context.Context, day time.Time) ([]models.Invoice, error) {
	if m.mockFindUnsettledDueOn != nil {
		return m.mockFindUnsettledDueOn(ctx, day)
	}
	return nil, nil
}
func (m *mockInvoiceRepository) FindUnsettledOverdue(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	if m.mockFindUnsettledOverdue != nil {
		return m.mockFindUnsettledOverdue(ctx, now)
	}
	return nil, nil
}
func (m *mockInvoiceRepository) MarkReminderSent(ctx context.Context, invoiceID uint, reminderType string, at time.Time) error {
	if m.mockMarkReminderSent != nil {
		return m.mockMarkReminderSent(ctx, invoiceID, reminderType, at)
	}
	return nil
}
func (m *mockInvoiceRepository) List(ctx context.Context, query *repository.ListQuery) ([]models.Invoice, int64, error) {
	return nil, 0, nil
}

// Mock PaymentRepository
type mockPaymentRepository struct {
	mockFindByID                func(ctx context.Context, id uint) (*models.Payment, error)
	mockFindByIDWithDetails     func(ctx context.Context, id uint) (*models.Payment, error)
	mockFindByExternalRef       func(ctx context.Context, externalRef string) (*models.Payment, error)
	mockFindByRefundExternalRef func(ctx context.Context, refundRef string) (*models.Payment, error)
	mockFindSuccessfulByInvoice func(ctx context.Context, invoiceID uint) ([]models.Payment, error)
	mockCreate                  func(ctx context.Context, payment *models.Payment) error
	mockUpdateVersioned         func(ctx context.Context, payment *models.Payment) error
}

func (m *mockPaymentRepository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockPaymentRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Payment, error) {
	if m.mockFindByIDWithDetails != nil {
		return m.mockFindByIDWithDetails(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockPaymentRepository) FindByExternalRef(ctx context.Context, externalRef string) (*models.Payment, error) {
	if m.mockFindByExternalRef != nil {
		return m.mockFindByExternalRef(ctx, externalRef)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockPaymentRepository) FindByRefundExternalRef(ctx context.Context, refundRef string) (*models.Payment, error) {
	if m.mockFindByRefundExternalRef != nil {
		return m.mockFindByRefundExternalRef(ctx, refundRef)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockPaymentRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*models.Payment, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockPaymentRepository) FindSuccessfulByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	if m.mockFindSuccessfulByInvoice != nil {
		return m.mockFindSuccessfulByInvoice(ctx, invoiceID)
	}
	return nil, nil
}
func (m *mockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, payment)
	}
	return nil
}
func (m *mockPaymentRepository) UpdateVersioned(ctx context.Context, payment *models.Payment) error {
	if m.mockUpdateVersioned != nil {
		return m.mockUpdateVersioned(ctx, payment)
	}
	return nil
}
func (m *mockPaymentRepository) List(ctx context.Context, query *repository.ListQuery) ([]models.Payment, int64, error) {
	return nil, 0, nil
}

// Mock NotificationRepository
type mockNotificationRepository struct {
	mockCreate func(ctx context.Context, notification *models.Notification) error
}

func (m *mockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, notification)
	}
	return nil
}

// Mock gateway client
type mockGatewayClient struct {
	mockRequestToPay     func(ctx context.Context, amount int64, currency, payerPhone, externalRef string) error
	mockRequestReversal  func(ctx context.Context, amount int64, currency, originalRef, refundRef string) error
	requestToPayCalls    int
	requestReversalCalls int
}

func (m *mockGatewayClient) RequestToPay(ctx context.Context, amount int64, currency, payerPhone, externalRef string) error {
	m.requestToPayCalls++
	if m.mockRequestToPay != nil {
		return m.mockRequestToPay(ctx, amount, currency, payerPhone, externalRef)
	}
	return nil
}
func (m *mockGatewayClient) RequestReversal(ctx context.Context, amount int64, currency, originalRef, refundRef string) error {
	m.requestReversalCalls++
	if m.mockRequestReversal != nil {
		return m.mockRequestReversal(ctx, amount, currency, originalRef, refundRef)
	}
	return nil
}

func newTestNotificationService() *NotificationService {
	return NewNotificationService(&mockNotificationRepository{})
}

func newTestEmailService() *EmailService {
	return NewEmailService(&config.Config{FromEmail: "noreply@test.local"})
}

func newTestSMSService() *SMSService {
	// No base URL configured, sends are skipped and logged
	return NewSMSService(&config.Config{})
}

func testDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad test date %q: %v", value, err)
	}
	return d
}
