package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nyumba/nyumba-api/internal/metrics"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/pkg/logger"
	"gorm.io/gorm"
)

// applyRetries bounds how often a versioned update is retried after a
// concurrent writer wins.
const applyRetries = 3

type InvoiceService struct {
	repo        repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
}

func NewInvoiceService(repo repository.InvoiceRepository, paymentRepo repository.PaymentRepository) *InvoiceService {
	return &InvoiceService{
		repo:        repo,
		paymentRepo: paymentRepo,
	}
}

func (s *InvoiceService) FindByID(ctx context.Context, id uint) (*models.Invoice, error) {
	invoice, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return invoice, nil
}

func (s *InvoiceService) List(ctx context.Context, query *repository.ListQuery) ([]models.Invoice, int64, error) {
	return s.repo.List(ctx, query)
}

// CreateInitialInvoice issues the first-month invoice for a lease,
// prorated when the lease starts mid-month. Calling it again for the
// same lease returns the existing invoice.
func (s *InvoiceService) CreateInitialInvoice(ctx context.Context, lease *models.Lease, now time.Time) (*models.Invoice, error) {
	result := ComputeInitialInvoice(lease, now)
	if !result.Created {
		return nil, nil
	}

	return s.createForPeriod(ctx, lease, result.Amount, result.IssueDate, result.DueDate, result.PeriodLabel, result.Prorated)
}

// GeneratePeriodInvoice issues the full-rent invoice for the month
// containing period. Idempotent per (lease, period).
func (s *InvoiceService) GeneratePeriodInvoice(ctx context.Context, lease *models.Lease, period time.Time) (*models.Invoice, error) {
	issueDate := time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, period.Location())
	dueDate := dueDateFor(period.Year(), period.Month(), lease.DueDay, period.Location())

	return s.createForPeriod(ctx, lease, lease.RentAmount, issueDate, dueDate, models.PeriodLabelFor(period), false)
}

func (s *InvoiceService) createForPeriod(ctx context.Context, lease *models.Lease, amount int64, issueDate, dueDate time.Time, periodLabel string, prorated bool) (*models.Invoice, error) {
	existing, err := s.repo.FindByLeaseAndPeriod(ctx, lease.ID, periodLabel)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	invoice := &models.Invoice{
		LeaseID:     lease.ID,
		TenantID:    lease.TenantID,
		PropertyID:  lease.PropertyID,
		PeriodLabel: periodLabel,
		IssueDate:   issueDate,
		DueDate:     dueDate,
		AmountDue:   amount,
		Currency:    lease.RentCurrency,
		Status:      models.InvoiceStatusPending,
		Reference:   fmt.Sprintf("INV-%s-%s", lease.LeaseRef, periodLabel),
	}
	if prorated {
		notes := "Prorated first month"
		invoice.Notes = &notes
	}

	if err := s.repo.Create(ctx, invoice); err != nil {
		// A concurrent sweep may have created the same period; the
		// unique index makes whichever arrives second lose.
		if repository.IsDuplicateKey(err) {
			return s.repo.FindByLeaseAndPeriod(ctx, lease.ID, periodLabel)
		}
		return nil, err
	}

	metrics.ObserveInvoiceCreated()
	logger.Info(fmt.Sprintf("Created invoice %s for lease %s (amount: %d %s)",
		invoice.Reference, lease.LeaseRef, invoice.AmountDue, invoice.Currency))

	return invoice, nil
}

// ApplyPayments recomputes an invoice's paid total from its successful
// payments and re-derives its status. Safe to call any number of times.
func (s *InvoiceService) ApplyPayments(ctx context.Context, invoiceID uint, now time.Time) (*models.Invoice, error) {
	var invoice *models.Invoice

	for attempt := 0; attempt < applyRetries; attempt++ {
		var err error
		invoice, err = s.repo.FindByID(ctx, invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}

		payments, err := s.paymentRepo.FindSuccessfulByInvoice(ctx, invoiceID)
		if err != nil {
			return nil, err
		}

		var total int64
		for _, p := range payments {
			total += p.Amount
		}
		if total < 0 {
			total = 0
		}

		invoice.AmountPaid = total
		invoice.Status = invoice.DeriveStatus(now)

		err = s.repo.UpdateStanding(ctx, invoice)
		if err == nil {
			return invoice, nil
		}
		if !errors.Is(err, repository.ErrStaleRecord) {
			return nil, err
		}
	}

	return nil, ErrConflict
}

// MarkOverdueSweep flips every unsettled invoice past its due date to
// overdue. Returns how many invoices changed.
func (s *InvoiceService) MarkOverdueSweep(ctx context.Context, now time.Time) (int, error) {
	invoices, err := s.repo.FindUnsettledPastDue(ctx, now)
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range invoices {
		invoice := &invoices[i]
		invoice.Status = models.InvoiceStatusOverdue
		if err := s.repo.UpdateStanding(ctx, invoice); err != nil {
			if errors.Is(err, repository.ErrStaleRecord) {
				// Someone paid it in the meantime; skip it.
				continue
			}
			logger.Error(fmt.Sprintf("Failed to mark invoice %d overdue: %v", invoice.ID, err))
			continue
		}
		marked++
	}

	return marked, nil
}
