package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nyumba/nyumba-api/internal/metrics"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/pkg/logger"
)

// SweepSummary reports what one billing sweep did
type SweepSummary struct {
	RanAt           time.Time `json:"ran_at"`
	InvoicesCreated int       `json:"invoices_created"`
	MarkedOverdue   int       `json:"marked_overdue"`
	RemindersSent   int       `json:"reminders_sent"`
	Errors          int       `json:"errors"`
}

// dueSoonLeadTime is how far ahead of the due date the first reminder
// goes out.
const dueSoonLeadTime = 3 * 24 * time.Hour

type BillingService struct {
	leaseRepo       repository.LeaseRepository
	invoiceRepo     repository.InvoiceRepository
	invoiceSvc      *InvoiceService
	notificationSvc *NotificationService
	emailSvc        *EmailService
	smsSvc          *SMSService
}

func NewBillingService(
	leaseRepo repository.LeaseRepository,
	invoiceRepo repository.InvoiceRepository,
	invoiceSvc *InvoiceService,
	notificationSvc *NotificationService,
	emailSvc *EmailService,
	smsSvc *SMSService,
) *BillingService {
	return &BillingService{
		leaseRepo:       leaseRepo,
		invoiceRepo:     invoiceRepo,
		invoiceSvc:      invoiceSvc,
		notificationSvc: notificationSvc,
		emailSvc:        emailSvc,
		smsSvc:          smsSvc,
	}
}

// RunDailySweep issues the current month's invoices for every billable
// lease, flips unsettled past-due invoices to overdue and sends due
// reminders. Each phase tolerates per-record failures so one bad lease
// cannot stall the rest.
func (s *BillingService) RunDailySweep(ctx context.Context, now time.Time) (*SweepSummary, error) {
	summary := &SweepSummary{RanAt: now}
	defer func(start time.Time) { metrics.ObserveSweep(time.Since(start)) }(time.Now())

	created, errs := s.generateMonthlyInvoices(ctx, now)
	summary.InvoicesCreated = created
	summary.Errors += errs

	marked, err := s.invoiceSvc.MarkOverdueSweep(ctx, now)
	if err != nil {
		logger.Error(fmt.Sprintf("Overdue sweep failed: %v", err))
		summary.Errors++
	}
	summary.MarkedOverdue = marked

	sent, errs := s.sendReminders(ctx, now)
	summary.RemindersSent = sent
	summary.Errors += errs

	logger.Info(fmt.Sprintf("Billing sweep done: %d invoices, %d overdue, %d reminders, %d errors",
		summary.InvoicesCreated, summary.MarkedOverdue, summary.RemindersSent, summary.Errors))

	return summary, nil
}

func (s *BillingService) generateMonthlyInvoices(ctx context.Context, now time.Time) (created, errs int) {
	leases, err := s.leaseRepo.FindBillable(ctx, now)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load billable leases: %v", err))
		return 0, 1
	}

	period := models.PeriodLabelFor(now)
	for i := range leases {
		lease := &leases[i]

		// The lease's own start month is covered by the prorated
		// initial invoice.
		if models.PeriodLabelFor(lease.StartDate) == period {
			continue
		}

		if _, err := s.invoiceRepo.FindByLeaseAndPeriod(ctx, lease.ID, period); err == nil {
			continue
		}

		invoice, err := s.invoiceSvc.GeneratePeriodInvoice(ctx, lease, now)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to generate invoice for lease %s: %v", lease.LeaseRef, err))
			errs++
			continue
		}
		created++
		s.notifyInvoiceCreated(ctx, lease, invoice)
	}

	return created, errs
}

func (s *BillingService) notifyInvoiceCreated(ctx context.Context, lease *models.Lease, invoice *models.Invoice) {
	if err := s.notificationSvc.NotifyUser(ctx, lease.TenantID,
		"Invoice issued",
		fmt.Sprintf("Invoice %s for %d %s is due on %s.",
			invoice.Reference, invoice.AmountDue, invoice.Currency, invoice.DueDate.Format("2006-01-02")),
		models.NotificationTypeInvoiceCreated); err != nil {
		logger.Error(fmt.Sprintf("Failed to notify tenant %d of invoice %s: %v", lease.TenantID, invoice.Reference, err))
	}
}

// sendReminders fans out the three reminder flavors. Each invoice
// carries a sent marker per flavor so a rerun of the sweep does not
// repeat a reminder.
func (s *BillingService) sendReminders(ctx context.Context, now time.Time) (sent, errs int) {
	dueSoonDay := now.Add(dueSoonLeadTime)

	dueSoon, err := s.invoiceRepo.FindUnsettledDueOn(ctx, dueSoonDay)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load due-soon invoices: %v", err))
		errs++
	} else {
		n, e := s.remindBatch(ctx, dueSoon, repository.ReminderDueSoon, now)
		sent += n
		errs += e
	}

	dueToday, err := s.invoiceRepo.FindUnsettledDueOn(ctx, now)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load due-today invoices: %v", err))
		errs++
	} else {
		n, e := s.remindBatch(ctx, dueToday, repository.ReminderDueToday, now)
		sent += n
		errs += e
	}

	overdue, err := s.invoiceRepo.FindUnsettledOverdue(ctx, now)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load overdue invoices: %v", err))
		errs++
	} else {
		n, e := s.remindBatch(ctx, overdue, repository.ReminderOverdue, now)
		sent += n
		errs += e
	}

	return sent, errs
}

func (s *BillingService) remindBatch(ctx context.Context, invoices []models.Invoice, reminderType string, now time.Time) (sent, errs int) {
	for i := range invoices {
		invoice := &invoices[i]

		if reminderSentAt(invoice, reminderType) != nil {
			continue
		}

		if err := s.sendReminder(ctx, invoice, reminderType); err != nil {
			logger.Error(fmt.Sprintf("Failed to send %s reminder for invoice %s: %v", reminderType, invoice.Reference, err))
			errs++
			continue
		}

		if err := s.invoiceRepo.MarkReminderSent(ctx, invoice.ID, reminderType, now); err != nil {
			logger.Error(fmt.Sprintf("Failed to mark %s reminder on invoice %s: %v", reminderType, invoice.Reference, err))
			errs++
			continue
		}
		sent++
	}
	return sent, errs
}

func (s *BillingService) sendReminder(ctx context.Context, invoice *models.Invoice, reminderType string) error {
	var title, message, notifType string

	switch reminderType {
	case repository.ReminderDueSoon:
		title = "Rent due soon"
		message = fmt.Sprintf("Invoice %s for %d %s is due on %s.",
			invoice.Reference, invoice.Outstanding(), invoice.Currency, invoice.DueDate.Format("2006-01-02"))
		notifType = models.NotificationTypeInvoiceCreated
	case repository.ReminderDueToday:
		title = "Rent due today"
		message = fmt.Sprintf("Invoice %s for %d %s is due today.",
			invoice.Reference, invoice.Outstanding(), invoice.Currency)
		notifType = models.NotificationTypeInvoiceCreated
	case repository.ReminderOverdue:
		title = "Rent overdue"
		message = fmt.Sprintf("Invoice %s for %d %s is overdue. Please pay as soon as possible.",
			invoice.Reference, invoice.Outstanding(), invoice.Currency)
		notifType = models.NotificationTypeInvoiceOverdue
	default:
		return fmt.Errorf("unknown reminder type: %s", reminderType)
	}

	if err := s.notificationSvc.NotifyUser(ctx, invoice.TenantID, title, message, notifType); err != nil {
		return err
	}

	if invoice.Tenant.Email != "" {
		if err := s.emailSvc.SendInvoiceReminder(ctx, invoice, title, message); err != nil {
			logger.Error(fmt.Sprintf("Failed to email %s reminder for invoice %s: %v", reminderType, invoice.Reference, err))
		}
	}
	if invoice.Tenant.Phone != "" {
		if err := s.smsSvc.Send(ctx, invoice.Tenant.Phone, message); err != nil {
			logger.Error(fmt.Sprintf("Failed to SMS %s reminder for invoice %s: %v", reminderType, invoice.Reference, err))
		}
	}

	return nil
}

func reminderSentAt(invoice *models.Invoice, reminderType string) *time.Time {
	switch reminderType {
	case repository.ReminderDueSoon:
		return invoice.DueSoonReminderSentAt
	case repository.ReminderDueToday:
		return invoice.DueTodayReminderSentAt
	case repository.ReminderOverdue:
		return invoice.OverdueReminderSentAt
	default:
		return nil
	}
}
