package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyumba/nyumba-api/internal/gateway"
	"github.com/nyumba/nyumba-api/internal/jobs"
	"github.com/nyumba/nyumba-api/internal/metrics"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/internal/statemachine"
	"github.com/nyumba/nyumba-api/pkg/logger"
	"gorm.io/gorm"
)

// InitiatePaymentCommand starts a mobile-money collection for an invoice
type InitiatePaymentCommand struct {
	InvoiceID  uint
	Amount     int64
	PayerPhone string
}

// RecordPaymentCommand records an out-of-band payment (cash, bank)
type RecordPaymentCommand struct {
	InvoiceID  uint
	Amount     int64
	Method     string
	DatePaid   time.Time
	Notes      *string
	RecordedBy uint
}

// WebhookResult tells the caller whether a webhook delivery changed
// anything or was a replay.
type WebhookResult struct {
	Payment          *models.Payment
	AlreadyProcessed bool
}

type PaymentService struct {
	repo            repository.PaymentRepository
	invoiceRepo     repository.InvoiceRepository
	leaseRepo       repository.LeaseRepository
	invoiceSvc      *InvoiceService
	notificationSvc *NotificationService
	emailSvc        *EmailService
	smsSvc          *SMSService
	receiptSvc      *ReceiptService
	gateway         gateway.Client
	worker          *jobs.Worker
}

func NewPaymentService(
	repo repository.PaymentRepository,
	invoiceRepo repository.InvoiceRepository,
	leaseRepo repository.LeaseRepository,
	invoiceSvc *InvoiceService,
	notificationSvc *NotificationService,
	emailSvc *EmailService,
	smsSvc *SMSService,
	receiptSvc *ReceiptService,
	gw gateway.Client,
	worker *jobs.Worker,
) *PaymentService {
	return &PaymentService{
		repo:            repo,
		invoiceRepo:     invoiceRepo,
		leaseRepo:       leaseRepo,
		invoiceSvc:      invoiceSvc,
		notificationSvc: notificationSvc,
		emailSvc:        emailSvc,
		smsSvc:          smsSvc,
		receiptSvc:      receiptSvc,
		gateway:         gw,
		worker:          worker,
	}
}

func (s *PaymentService) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	payment, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) List(ctx context.Context, query *repository.ListQuery) ([]models.Payment, int64, error) {
	return s.repo.List(ctx, query)
}

// Initiate creates a pending payment and asks the gateway to collect
// it from the payer's phone. The outcome arrives later on the webhook.
func (s *PaymentService) Initiate(ctx context.Context, cmd InitiatePaymentCommand) (*models.Payment, error) {
	if cmd.PayerPhone == "" {
		return nil, fmt.Errorf("%w: payer phone is required", ErrValidation)
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, cmd.InvoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if invoice.IsSettled() {
		return nil, fmt.Errorf("%w: invoice is already settled", ErrInvalidState)
	}

	amount := cmd.Amount
	if amount <= 0 {
		amount = invoice.Outstanding()
	}

	externalRef := uuid.NewString()
	payment := &models.Payment{
		LeaseID:       invoice.LeaseID,
		PropertyID:    invoice.PropertyID,
		TenantID:      invoice.TenantID,
		InvoiceID:     &invoice.ID,
		Amount:        amount,
		Currency:      invoice.Currency,
		DatePaid:      time.Now(),
		Method:        models.PaymentMethodMTNMoMo,
		ExternalRef:   &externalRef,
		ReceiptNumber: newReceiptNumber(),
		Status:        models.PaymentStatusPending,
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	if err := s.gateway.RequestToPay(ctx, amount, invoice.Currency, cmd.PayerPhone, externalRef); err != nil {
		// The request never reached the provider, so no webhook will
		// come for this reference.
		fsm := statemachine.NewPaymentFSM(payment)
		if fsmErr := fsm.Fail(ctx); fsmErr == nil {
			s.repo.UpdateVersioned(ctx, payment)
		}
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	logger.Info(fmt.Sprintf("Initiated payment %s for invoice %s (amount: %d)",
		externalRef, invoice.Reference, amount))

	return payment, nil
}

// HandleGatewayWebhook settles a pending payment from a gateway
// callback. Replays of an already-settled reference are acknowledged
// without side effects.
func (s *PaymentService) HandleGatewayWebhook(ctx context.Context, externalRef, status string, transactionID *string) (*WebhookResult, error) {
	payment, err := s.repo.FindByExternalRef(ctx, externalRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if payment.IsTerminal() {
		return &WebhookResult{Payment: payment, AlreadyProcessed: true}, nil
	}

	switch strings.ToUpper(status) {
	case "SUCCESSFUL":
		return s.settleSuccess(ctx, payment, transactionID)
	case "FAILED", "REJECTED", "TIMEOUT", "EXPIRED":
		return s.settleFailure(ctx, payment, status)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledStatus, status)
	}
}

func (s *PaymentService) settleSuccess(ctx context.Context, payment *models.Payment, transactionID *string) (*WebhookResult, error) {
	fsm := statemachine.NewPaymentFSM(payment)
	if err := fsm.Succeed(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	payment.TransactionID = transactionID
	payment.DatePaid = time.Now()

	if err := s.repo.UpdateVersioned(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrStaleRecord) {
			// A concurrent delivery of the same webhook won the race.
			fresh, ferr := s.repo.FindByExternalRef(ctx, *payment.ExternalRef)
			if ferr != nil {
				return nil, ferr
			}
			return &WebhookResult{Payment: fresh, AlreadyProcessed: true}, nil
		}
		return nil, err
	}

	metrics.ObservePaymentSettled(payment.Status)

	if payment.InvoiceID != nil {
		if _, err := s.invoiceSvc.ApplyPayments(ctx, *payment.InvoiceID, time.Now()); err != nil {
			logger.Error(fmt.Sprintf("Failed to apply payment %d to invoice %d: %v",
				payment.ID, *payment.InvoiceID, err))
		}
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.dispatchPaymentReceived(ctx, payment.ID)
	})

	return &WebhookResult{Payment: payment}, nil
}

func (s *PaymentService) settleFailure(ctx context.Context, payment *models.Payment, gatewayStatus string) (*WebhookResult, error) {
	fsm := statemachine.NewPaymentFSM(payment)
	if err := fsm.Fail(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if err := s.repo.UpdateVersioned(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrStaleRecord) {
			fresh, ferr := s.repo.FindByExternalRef(ctx, *payment.ExternalRef)
			if ferr != nil {
				return nil, ferr
			}
			return &WebhookResult{Payment: fresh, AlreadyProcessed: true}, nil
		}
		return nil, err
	}

	metrics.ObservePaymentSettled(payment.Status)
	logger.Warn(fmt.Sprintf("Payment %d failed at gateway with status %s", payment.ID, gatewayStatus))

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyUser(ctx, payment.TenantID,
			"Payment failed",
			"Your rent payment could not be completed. Please try again.",
			models.NotificationTypePaymentFailed)
	})

	return &WebhookResult{Payment: payment}, nil
}

// dispatchPaymentReceived runs the once-per-settlement side effects:
// receipt, notification, email and SMS.
func (s *PaymentService) dispatchPaymentReceived(ctx context.Context, paymentID uint) error {
	payment, err := s.repo.FindByIDWithDetails(ctx, paymentID)
	if err != nil {
		return err
	}

	if path, err := s.receiptSvc.GenerateReceipt(ctx, payment); err != nil {
		logger.Error(fmt.Sprintf("Failed to generate receipt for payment %d: %v", payment.ID, err))
	} else {
		payment.ReceiptPath = &path
		if err := s.repo.UpdateVersioned(ctx, payment); err != nil {
			logger.Error(fmt.Sprintf("Failed to store receipt path for payment %d: %v", payment.ID, err))
		}
	}

	if err := s.notificationSvc.NotifyUser(ctx, payment.TenantID,
		"Payment received",
		fmt.Sprintf("Your payment of %d %s was received. Receipt: %s", payment.Amount, payment.Currency, payment.ReceiptNumber),
		models.NotificationTypePaymentReceived); err != nil {
		logger.Error(fmt.Sprintf("Failed to notify tenant %d: %v", payment.TenantID, err))
	}

	if payment.Tenant.Email != "" {
		if err := s.emailSvc.SendPaymentReceipt(ctx, payment); err != nil {
			logger.Error(fmt.Sprintf("Failed to email receipt for payment %d: %v", payment.ID, err))
		}
	}

	if payment.Tenant.Phone != "" {
		if err := s.smsSvc.SendPaymentConfirmation(ctx, payment.Tenant.Phone, payment.Amount, payment.Currency, payment.ReceiptNumber); err != nil {
			logger.Error(fmt.Sprintf("Failed to SMS receipt for payment %d: %v", payment.ID, err))
		}
	}

	return nil
}

// RecordManual records a payment taken outside the gateway, cash or a
// bank transfer, and applies it to the invoice immediately.
func (s *PaymentService) RecordManual(ctx context.Context, cmd RecordPaymentCommand) (*models.Payment, error) {
	if cmd.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	switch cmd.Method {
	case models.PaymentMethodCash, models.PaymentMethodBankTransfer, models.PaymentMethodCheque, models.PaymentMethodOther:
	default:
		return nil, fmt.Errorf("%w: unsupported method %q", ErrValidation, cmd.Method)
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, cmd.InvoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	datePaid := cmd.DatePaid
	if datePaid.IsZero() {
		datePaid = time.Now()
	}

	payment := &models.Payment{
		LeaseID:       invoice.LeaseID,
		PropertyID:    invoice.PropertyID,
		TenantID:      invoice.TenantID,
		InvoiceID:     &invoice.ID,
		Amount:        cmd.Amount,
		Currency:      invoice.Currency,
		DatePaid:      datePaid,
		Method:        cmd.Method,
		ReceiptNumber: newReceiptNumber(),
		Status:        models.PaymentStatusSuccessful,
		Notes:         cmd.Notes,
		RecordedByID:  &cmd.RecordedBy,
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	if _, err := s.invoiceSvc.ApplyPayments(ctx, invoice.ID, time.Now()); err != nil {
		logger.Error(fmt.Sprintf("Failed to apply manual payment %d to invoice %d: %v",
			payment.ID, invoice.ID, err))
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.dispatchPaymentReceived(ctx, payment.ID)
	})

	return payment, nil
}

// RequestRefund starts a refund for a successful payment. The refund
// settles later on the refund webhook.
func (s *PaymentService) RequestRefund(ctx context.Context, paymentID uint, amount int64) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if amount <= 0 {
		amount = payment.Amount
	}
	if amount > payment.Amount {
		return nil, fmt.Errorf("%w: refund exceeds payment amount", ErrValidation)
	}

	fsm := statemachine.NewRefundFSM(payment)
	if err := fsm.Request(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	refundRef := uuid.NewString()
	payment.RefundAmount = amount
	payment.RefundExternalRef = &refundRef

	if err := s.repo.UpdateVersioned(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrStaleRecord) {
			return nil, ErrConflict
		}
		return nil, err
	}

	externalRef := ""
	if payment.ExternalRef != nil {
		externalRef = *payment.ExternalRef
	}
	if err := s.gateway.RequestReversal(ctx, amount, payment.Currency, externalRef, refundRef); err != nil {
		return nil, fmt.Errorf("failed to request refund: %w", err)
	}

	logger.Info(fmt.Sprintf("Requested refund %s of %d for payment %d", refundRef, amount, payment.ID))

	return payment, nil
}

// HandleRefundWebhook confirms or rejects a pending refund. On
// confirmation an adjustment payment with a negative amount is posted
// against the same invoice so the invoice standing reflects the money
// that went back out.
func (s *PaymentService) HandleRefundWebhook(ctx context.Context, refundRef, status string) (*WebhookResult, error) {
	payment, err := s.repo.FindByRefundExternalRef(ctx, refundRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if payment.RefundStatus == models.RefundStatusRefunded || payment.RefundStatus == models.RefundStatusFailed {
		return &WebhookResult{Payment: payment, AlreadyProcessed: true}, nil
	}

	fsm := statemachine.NewRefundFSM(payment)

	switch strings.ToUpper(status) {
	case "SUCCESSFUL":
		if err := fsm.Confirm(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		now := time.Now()
		payment.RefundedAt = &now
	case "FAILED", "REJECTED":
		if err := fsm.Fail(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledStatus, status)
	}

	if err := s.repo.UpdateVersioned(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrStaleRecord) {
			fresh, ferr := s.repo.FindByRefundExternalRef(ctx, refundRef)
			if ferr != nil {
				return nil, ferr
			}
			return &WebhookResult{Payment: fresh, AlreadyProcessed: true}, nil
		}
		return nil, err
	}

	if payment.RefundStatus == models.RefundStatusRefunded {
		if err := s.recordRefundAdjustment(ctx, payment); err != nil {
			logger.Error(fmt.Sprintf("Failed to record refund adjustment for payment %d: %v", payment.ID, err))
		}

		s.worker.EnqueueAsync(func(ctx context.Context) error {
			return s.notificationSvc.NotifyUser(ctx, payment.TenantID,
				"Payment refunded",
				fmt.Sprintf("Your refund of %d %s has been processed.", payment.RefundAmount, payment.Currency),
				models.NotificationTypePaymentRefunded)
		})
	}

	return &WebhookResult{Payment: payment}, nil
}

// recordRefundAdjustment posts a negative payment against the refunded
// payment's invoice and re-derives the invoice standing.
func (s *PaymentService) recordRefundAdjustment(ctx context.Context, payment *models.Payment) error {
	if payment.InvoiceID == nil {
		return nil
	}

	adjustment := &models.Payment{
		LeaseID:       payment.LeaseID,
		PropertyID:    payment.PropertyID,
		TenantID:      payment.TenantID,
		InvoiceID:     payment.InvoiceID,
		Amount:        -payment.RefundAmount,
		Currency:      payment.Currency,
		DatePaid:      time.Now(),
		Method:        models.PaymentMethodAdjustment,
		ReceiptNumber: newReceiptNumber(),
		Status:        models.PaymentStatusSuccessful,
	}
	notes := fmt.Sprintf("Refund adjustment for receipt %s", payment.ReceiptNumber)
	adjustment.Notes = &notes

	if err := s.repo.Create(ctx, adjustment); err != nil {
		return err
	}

	_, err := s.invoiceSvc.ApplyPayments(ctx, *payment.InvoiceID, time.Now())
	return err
}

// StatusByID exposes a payment's settlement state for polling clients
func (s *PaymentService) StatusByID(ctx context.Context, id uint) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

func newReceiptNumber() string {
	return "RCP-" + strings.ToUpper(uuid.NewString()[:8])
}
