package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nyumba/nyumba-api/internal/jobs"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func newLeaseService(leaseRepo *mockLeaseRepository, invoiceRepo *mockInvoiceRepository) (*LeaseService, *jobs.Worker) {
	worker := jobs.NewWorker(1)
	invoiceSvc := NewInvoiceService(invoiceRepo, &mockPaymentRepository{})
	svc := NewLeaseService(leaseRepo, invoiceSvc, newTestNotificationService(), worker)
	return svc, worker
}

func TestCreateLease_ActivatesAndIssuesInitialInvoice(t *testing.T) {
	var createdInvoice *models.Invoice
	leaseRepo := &mockLeaseRepository{
		mockCreate: func(ctx context.Context, lease *models.Lease) error {
			lease.ID = 1
			return nil
		},
	}
	invoiceRepo := &mockInvoiceRepository{
		mockCreate: func(ctx context.Context, invoice *models.Invoice) error {
			createdInvoice = invoice
			return nil
		},
	}
	svc, worker := newLeaseService(leaseRepo, invoiceRepo)
	defer worker.Shutdown()

	start := time.Now().AddDate(0, 0, -3)
	lease, err := svc.Create(context.Background(), CreateLeaseCommand{
		PropertyID:    1,
		TenantID:      2,
		LandlordID:    3,
		StartDate:     start,
		RentAmount:    9000,
		DueDay:        5,
		DepositAmount: 18000,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.LeaseStatusActive, lease.Status)
	assert.True(t, strings.HasPrefix(lease.LeaseRef, "LSE-"))
	assert.Equal(t, models.RentFrequencyMonthly, lease.RentFrequency)
	assert.Equal(t, "ZMW", lease.RentCurrency)
	assert.Equal(t, int64(18000), lease.DepositBalance)
	assert.NotNil(t, createdInvoice)
}

func TestCreateLease_Validation(t *testing.T) {
	svc, worker := newLeaseService(&mockLeaseRepository{}, &mockInvoiceRepository{})
	defer worker.Shutdown()

	start := testDate(t, "2025-04-01")
	sameDay := start

	tests := []struct {
		name string
		cmd  CreateLeaseCommand
	}{
		{"zero rent", CreateLeaseCommand{StartDate: start, RentAmount: 0, DueDay: 1}},
		{"due day too low", CreateLeaseCommand{StartDate: start, RentAmount: 9000, DueDay: 0}},
		{"due day too high", CreateLeaseCommand{StartDate: start, RentAmount: 9000, DueDay: 32}},
		{"end not after start", CreateLeaseCommand{StartDate: start, EndDate: &sameDay, RentAmount: 9000, DueDay: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestTerminateLease_SetsTerminationFields(t *testing.T) {
	leaseRepo := &mockLeaseRepository{
		mockFindByID: func(ctx context.Context, id uint) (*models.Lease, error) {
			return &models.Lease{ID: 1, LeaseRef: "LSE-AAA111", Status: models.LeaseStatusActive}, nil
		},
	}
	svc, worker := newLeaseService(leaseRepo, &mockInvoiceRepository{})
	defer worker.Shutdown()

	lease, err := svc.Terminate(context.Background(), 1, "Tenant moving out")

	assert.NoError(t, err)
	assert.Equal(t, models.LeaseStatusTerminated, lease.Status)
	assert.NotNil(t, lease.TerminationDate)
	if assert.NotNil(t, lease.TerminationReason) {
		assert.Equal(t, "Tenant moving out", *lease.TerminationReason)
	}
}

func TestTerminateLease_AlreadyTerminated(t *testing.T) {
	leaseRepo := &mockLeaseRepository{
		mockFindByID: func(ctx context.Context, id uint) (*models.Lease, error) {
			return &models.Lease{ID: 1, Status: models.LeaseStatusTerminated}, nil
		},
	}
	svc, worker := newLeaseService(leaseRepo, &mockInvoiceRepository{})
	defer worker.Shutdown()

	_, err := svc.Terminate(context.Background(), 1, "")

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRenewLease_ExtendsEndDate(t *testing.T) {
	end := testDate(t, "2025-12-31")
	leaseRepo := &mockLeaseRepository{
		mockFindByID: func(ctx context.Context, id uint) (*models.Lease, error) {
			return &models.Lease{ID: 1, Status: models.LeaseStatusActive, EndDate: &end, RentAmount: 9000}, nil
		},
	}
	svc, worker := newLeaseService(leaseRepo, &mockInvoiceRepository{})
	defer worker.Shutdown()

	newEnd := testDate(t, "2026-12-31")
	lease, err := svc.Renew(context.Background(), RenewLeaseCommand{
		LeaseID:    1,
		NewEndDate: newEnd,
		RentAmount: 9500,
	})

	assert.NoError(t, err)
	assert.Equal(t, &newEnd, lease.EndDate)
	assert.Equal(t, int64(9500), lease.RentAmount)
}

func TestRenewLease_MustExtend(t *testing.T) {
	end := testDate(t, "2025-12-31")
	leaseRepo := &mockLeaseRepository{
		mockFindByID: func(ctx context.Context, id uint) (*models.Lease, error) {
			return &models.Lease{ID: 1, Status: models.LeaseStatusActive, EndDate: &end}, nil
		},
	}
	svc, worker := newLeaseService(leaseRepo, &mockInvoiceRepository{})
	defer worker.Shutdown()

	_, err := svc.Renew(context.Background(), RenewLeaseCommand{
		LeaseID:    1,
		NewEndDate: testDate(t, "2025-06-30"),
	})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestRentIncrease_MustExceedCurrentRent(t *testing.T) {
	leaseRepo := &mockLeaseRepository{
		mockFindByID: func(ctx context.Context, id uint) (*models.Lease, error) {
			return &models.Lease{ID: 1, Status: models.LeaseStatusActive, RentAmount: 9000}, nil
		},
	}
	svc, worker := newLeaseService(leaseRepo, &mockInvoiceRepository{})
	defer worker.Shutdown()

	_, err := svc.RentIncrease(context.Background(), RentIncreaseCommand{LeaseID: 1, NewRentAmount: 9000})
	assert.ErrorIs(t, err, ErrValidation)

	lease, err := svc.RentIncrease(context.Background(), RentIncreaseCommand{LeaseID: 1, NewRentAmount: 10000})
	assert.NoError(t, err)
	assert.Equal(t, int64(10000), lease.RentAmount)
	assert.NotNil(t, lease.LastRentIncreaseAt)
}

func TestRentIncrease_InactiveLease(t *testing.T) {
	leaseRepo := &mockLeaseRepository{
		mockFindByID: func(ctx context.Context, id uint) (*models.Lease, error) {
			return &models.Lease{ID: 1, Status: models.LeaseStatusTerminated, RentAmount: 9000}, nil
		},
	}
	svc, worker := newLeaseService(leaseRepo, &mockInvoiceRepository{})
	defer worker.Shutdown()

	_, err := svc.RentIncrease(context.Background(), RentIncreaseCommand{LeaseID: 1, NewRentAmount: 10000})

	assert.ErrorIs(t, err, ErrInvalidState)
}
