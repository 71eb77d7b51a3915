package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newBillingService(leaseRepo *mockLeaseRepository, invoiceRepo *mockInvoiceRepository, paymentRepo *mockPaymentRepository) *BillingService {
	invoiceSvc := NewInvoiceService(invoiceRepo, paymentRepo)
	return NewBillingService(leaseRepo, invoiceRepo, invoiceSvc,
		newTestNotificationService(), newTestEmailService(), newTestSMSService())
}

func TestRunDailySweep_GeneratesInvoicesForBillableLeases(t *testing.T) {
	now := testDate(t, "2025-05-15")
	leaseRepo := &mockLeaseRepository{
		mockFindBillable: func(ctx context.Context, at time.Time) ([]models.Lease, error) {
			return []models.Lease{
				{ID: 1, LeaseRef: "LSE-AAA111", TenantID: 1, StartDate: testDate(t, "2025-01-01"),
					RentAmount: 9000, RentCurrency: "ZMW", RentFrequency: models.RentFrequencyMonthly, DueDay: 5},
				{ID: 2, LeaseRef: "LSE-BBB222", TenantID: 2, StartDate: testDate(t, "2025-02-01"),
					RentAmount: 7000, RentCurrency: "ZMW", RentFrequency: models.RentFrequencyMonthly, DueDay: 1},
			}, nil
		},
	}
	var createdRefs []string
	invoiceRepo := &mockInvoiceRepository{
		mockCreate: func(ctx context.Context, invoice *models.Invoice) error {
			createdRefs = append(createdRefs, invoice.Reference)
			return nil
		},
	}
	svc := newBillingService(leaseRepo, invoiceRepo, &mockPaymentRepository{})

	summary, err := svc.RunDailySweep(context.Background(), now)

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.InvoicesCreated)
	assert.Equal(t, 0, summary.Errors)
	assert.Contains(t, createdRefs, "INV-LSE-AAA111-2025-05")
	assert.Contains(t, createdRefs, "INV-LSE-BBB222-2025-05")
}

func TestRunDailySweep_SkipsStartMonthAndAlreadyBilled(t *testing.T) {
	now := testDate(t, "2025-05-15")
	leaseRepo := &mockLeaseRepository{
		mockFindBillable: func(ctx context.Context, at time.Time) ([]models.Lease, error) {
			return []models.Lease{
				// Covered by the prorated initial invoice.
				{ID: 1, LeaseRef: "LSE-AAA111", StartDate: testDate(t, "2025-05-10"),
					RentAmount: 9000, RentFrequency: models.RentFrequencyMonthly, DueDay: 1},
				// Already billed for this period.
				{ID: 2, LeaseRef: "LSE-BBB222", StartDate: testDate(t, "2025-01-01"),
					RentAmount: 7000, RentFrequency: models.RentFrequencyMonthly, DueDay: 1},
			}, nil
		},
	}
	invoiceRepo := &mockInvoiceRepository{
		mockFindByLeaseAndPeriod: func(ctx context.Context, leaseID uint, periodLabel string) (*models.Invoice, error) {
			if leaseID == 2 {
				return &models.Invoice{ID: 50, LeaseID: 2, PeriodLabel: periodLabel}, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
		mockCreate: func(ctx context.Context, invoice *models.Invoice) error {
			t.Fatalf("unexpected invoice created: %s", invoice.Reference)
			return nil
		},
	}
	svc := newBillingService(leaseRepo, invoiceRepo, &mockPaymentRepository{})

	summary, err := svc.RunDailySweep(context.Background(), now)

	assert.NoError(t, err)
	assert.Equal(t, 0, summary.InvoicesCreated)
	assert.Equal(t, 0, summary.Errors)
}

func TestRunDailySweep_OneBadLeaseDoesNotStallTheRest(t *testing.T) {
	now := testDate(t, "2025-05-15")
	leaseRepo := &mockLeaseRepository{
		mockFindBillable: func(ctx context.Context, at time.Time) ([]models.Lease, error) {
			return []models.Lease{
				{ID: 1, LeaseRef: "LSE-AAA111", StartDate: testDate(t, "2025-01-01"),
					RentAmount: 9000, RentFrequency: models.RentFrequencyMonthly, DueDay: 1},
				{ID: 2, LeaseRef: "LSE-BBB222", StartDate: testDate(t, "2025-01-01"),
					RentAmount: 7000, RentFrequency: models.RentFrequencyMonthly, DueDay: 1},
			}, nil
		},
	}
	invoiceRepo := &mockInvoiceRepository{
		mockCreate: func(ctx context.Context, invoice *models.Invoice) error {
			if invoice.LeaseID == 1 {
				return errors.New("insert failed")
			}
			return nil
		},
	}
	svc := newBillingService(leaseRepo, invoiceRepo, &mockPaymentRepository{})

	summary, err := svc.RunDailySweep(context.Background(), now)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.InvoicesCreated)
	assert.Equal(t, 1, summary.Errors)
}

func TestRunDailySweep_MarksOverdue(t *testing.T) {
	now := testDate(t, "2025-05-15")
	invoiceRepo := &mockInvoiceRepository{
		mockFindUnsettledPastDue: func(ctx context.Context, at time.Time) ([]models.Invoice, error) {
			return []models.Invoice{
				{ID: 1, AmountDue: 9000, DueDate: testDate(t, "2025-05-05")},
				{ID: 2, AmountDue: 7000, DueDate: testDate(t, "2025-05-01")},
			}, nil
		},
	}
	svc := newBillingService(&mockLeaseRepository{}, invoiceRepo, &mockPaymentRepository{})

	summary, err := svc.RunDailySweep(context.Background(), now)

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.MarkedOverdue)
}

func TestRunDailySweep_SendsRemindersOncePerFlavor(t *testing.T) {
	now := testDate(t, "2025-05-15")
	sentAt := testDate(t, "2025-05-14")

	var marked []string
	invoiceRepo := &mockInvoiceRepository{
		mockFindUnsettledDueOn: func(ctx context.Context, day time.Time) ([]models.Invoice, error) {
			if day.Equal(now.Add(dueSoonLeadTime)) {
				return []models.Invoice{
					{ID: 1, Reference: "INV-A", TenantID: 1, AmountDue: 9000, DueDate: testDate(t, "2025-05-18")},
					// Reminded by yesterday's sweep already.
					{ID: 2, Reference: "INV-B", TenantID: 2, AmountDue: 7000, DueDate: testDate(t, "2025-05-18"),
						DueSoonReminderSentAt: &sentAt},
				}, nil
			}
			return []models.Invoice{
				{ID: 3, Reference: "INV-C", TenantID: 3, AmountDue: 5000, DueDate: now},
			}, nil
		},
		mockFindUnsettledOverdue: func(ctx context.Context, at time.Time) ([]models.Invoice, error) {
			return []models.Invoice{
				{ID: 4, Reference: "INV-D", TenantID: 4, AmountDue: 3000, DueDate: testDate(t, "2025-05-01"),
					Status: models.InvoiceStatusOverdue},
			}, nil
		},
		mockMarkReminderSent: func(ctx context.Context, invoiceID uint, reminderType string, at time.Time) error {
			marked = append(marked, reminderType)
			return nil
		},
	}
	svc := newBillingService(&mockLeaseRepository{}, invoiceRepo, &mockPaymentRepository{})

	summary, err := svc.RunDailySweep(context.Background(), now)

	assert.NoError(t, err)
	assert.Equal(t, 3, summary.RemindersSent)
	assert.ElementsMatch(t, []string{
		repository.ReminderDueSoon,
		repository.ReminderDueToday,
		repository.ReminderOverdue,
	}, marked)
}

func TestRunDailySweep_ReminderMarkerFailureCounted(t *testing.T) {
	now := testDate(t, "2025-05-15")
	invoiceRepo := &mockInvoiceRepository{
		mockFindUnsettledOverdue: func(ctx context.Context, at time.Time) ([]models.Invoice, error) {
			return []models.Invoice{
				{ID: 4, Reference: "INV-D", TenantID: 4, AmountDue: 3000, DueDate: testDate(t, "2025-05-01")},
			}, nil
		},
		mockMarkReminderSent: func(ctx context.Context, invoiceID uint, reminderType string, at time.Time) error {
			return errors.New("update failed")
		},
	}
	svc := newBillingService(&mockLeaseRepository{}, invoiceRepo, &mockPaymentRepository{})

	summary, err := svc.RunDailySweep(context.Background(), now)

	assert.NoError(t, err)
	assert.Equal(t, 0, summary.RemindersSent)
	assert.Equal(t, 1, summary.Errors)
}
