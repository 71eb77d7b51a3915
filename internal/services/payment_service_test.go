package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nyumba/nyumba-api/internal/jobs"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/internal/storage"
	"github.com/stretchr/testify/assert"
)

type paymentServiceFixture struct {
	svc         *PaymentService
	paymentRepo *mockPaymentRepository
	invoiceRepo *mockInvoiceRepository
	gateway     *mockGatewayClient
	worker      *jobs.Worker
}

func newPaymentServiceFixture(t *testing.T) *paymentServiceFixture {
	t.Helper()

	paymentRepo := &mockPaymentRepository{}
	invoiceRepo := &mockInvoiceRepository{}
	leaseRepo := &mockLeaseRepository{}
	gw := &mockGatewayClient{}
	worker := jobs.NewWorker(1)
	t.Cleanup(worker.Shutdown)

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	invoiceSvc := NewInvoiceService(invoiceRepo, paymentRepo)
	svc := NewPaymentService(
		paymentRepo,
		invoiceRepo,
		leaseRepo,
		invoiceSvc,
		newTestNotificationService(),
		newTestEmailService(),
		newTestSMSService(),
		NewReceiptService(store),
		gw,
		worker,
	)

	return &paymentServiceFixture{
		svc:         svc,
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		gateway:     gw,
		worker:      worker,
	}
}

func TestInitiate_DefaultsToOutstandingAmount(t *testing.T) {
	f := newPaymentServiceFixture(t)

	f.invoiceRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Invoice, error) {
		return &models.Invoice{ID: 1, LeaseID: 2, TenantID: 3, PropertyID: 4,
			AmountDue: 9000, AmountPaid: 4000, Currency: "ZMW"}, nil
	}
	var created *models.Payment
	f.paymentRepo.mockCreate = func(ctx context.Context, payment *models.Payment) error {
		payment.ID = 10
		created = payment
		return nil
	}
	var collected int64
	f.gateway.mockRequestToPay = func(ctx context.Context, amount int64, currency, payerPhone, externalRef string) error {
		collected = amount
		return nil
	}

	payment, err := f.svc.Initiate(context.Background(), InitiatePaymentCommand{
		InvoiceID:  1,
		PayerPhone: "260971234567",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(5000), payment.Amount)
	assert.Equal(t, int64(5000), collected)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, models.PaymentMethodMTNMoMo, payment.Method)
	assert.NotNil(t, created.ExternalRef)
}

func TestInitiate_SettledInvoiceRejected(t *testing.T) {
	f := newPaymentServiceFixture(t)

	f.invoiceRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Invoice, error) {
		return &models.Invoice{ID: 1, AmountDue: 9000, AmountPaid: 9000}, nil
	}

	_, err := f.svc.Initiate(context.Background(), InitiatePaymentCommand{
		InvoiceID:  1,
		PayerPhone: "260971234567",
	})

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 0, f.gateway.requestToPayCalls)
}

func TestInitiate_GatewayFailureMarksPaymentFailed(t *testing.T) {
	f := newPaymentServiceFixture(t)

	f.invoiceRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Invoice, error) {
		return &models.Invoice{ID: 1, AmountDue: 9000, Currency: "ZMW"}, nil
	}
	var created *models.Payment
	f.paymentRepo.mockCreate = func(ctx context.Context, payment *models.Payment) error {
		created = payment
		return nil
	}
	f.gateway.mockRequestToPay = func(ctx context.Context, amount int64, currency, payerPhone, externalRef string) error {
		return errors.New("gateway unreachable")
	}

	_, err := f.svc.Initiate(context.Background(), InitiatePaymentCommand{
		InvoiceID:  1,
		PayerPhone: "260971234567",
	})

	assert.Error(t, err)
	assert.Equal(t, models.PaymentStatusFailed, created.Status)
}

func TestInitiate_MissingPhoneRejected(t *testing.T) {
	f := newPaymentServiceFixture(t)

	_, err := f.svc.Initiate(context.Background(), InitiatePaymentCommand{InvoiceID: 1})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestHandleGatewayWebhook_SuccessSettlesAndAppliesToInvoice(t *testing.T) {
	f := newPaymentServiceFixture(t)

	ref := "ext-ref-1"
	invoiceID := uint(1)
	payment := &models.Payment{ID: 10, InvoiceID: &invoiceID, TenantID: 3,
		Amount: 5000, ExternalRef: &ref, Status: models.PaymentStatusPending}

	f.paymentRepo.mockFindByExternalRef = func(ctx context.Context, externalRef string) (*models.Payment, error) {
		return payment, nil
	}
	f.paymentRepo.mockFindSuccessfulByInvoice = func(ctx context.Context, id uint) ([]models.Payment, error) {
		return []models.Payment{{Amount: 5000}}, nil
	}
	invoice := &models.Invoice{ID: 1, AmountDue: 5000, DueDate: time.Now().Add(24 * time.Hour)}
	f.invoiceRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Invoice, error) {
		return invoice, nil
	}
	var standing *models.Invoice
	f.invoiceRepo.mockUpdateStanding = func(ctx context.Context, inv *models.Invoice) error {
		standing = inv
		return nil
	}

	txID := "MP123"
	result, err := f.svc.HandleGatewayWebhook(context.Background(), ref, "SUCCESSFUL", &txID)

	assert.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, models.PaymentStatusSuccessful, result.Payment.Status)
	assert.Equal(t, &txID, result.Payment.TransactionID)
	if assert.NotNil(t, standing) {
		assert.Equal(t, int64(5000), standing.AmountPaid)
		assert.Equal(t, models.InvoiceStatusPaid, standing.Status)
	}
}

func TestHandleGatewayWebhook_ReplayIsAcknowledgedWithoutSideEffects(t *testing.T) {
	f := newPaymentServiceFixture(t)

	ref := "ext-ref-1"
	f.paymentRepo.mockFindByExternalRef = func(ctx context.Context, externalRef string) (*models.Payment, error) {
		return &models.Payment{ID: 10, ExternalRef: &ref, Status: models.PaymentStatusSuccessful}, nil
	}
	f.paymentRepo.mockUpdateVersioned = func(ctx context.Context, payment *models.Payment) error {
		t.Fatal("replay must not write")
		return nil
	}

	result, err := f.svc.HandleGatewayWebhook(context.Background(), ref, "SUCCESSFUL", nil)

	assert.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
}

func TestHandleGatewayWebhook_ConcurrentDeliveryTreatedAsReplay(t *testing.T) {
	f := newPaymentServiceFixture(t)

	ref := "ext-ref-1"
	calls := 0
	f.paymentRepo.mockFindByExternalRef = func(ctx context.Context, externalRef string) (*models.Payment, error) {
		calls++
		if calls == 1 {
			return &models.Payment{ID: 10, ExternalRef: &ref, Status: models.PaymentStatusPending}, nil
		}
		// The racing delivery already settled it.
		return &models.Payment{ID: 10, ExternalRef: &ref, Status: models.PaymentStatusSuccessful}, nil
	}
	f.paymentRepo.mockUpdateVersioned = func(ctx context.Context, payment *models.Payment) error {
		return repository.ErrStaleRecord
	}

	result, err := f.svc.HandleGatewayWebhook(context.Background(), ref, "SUCCESSFUL", nil)

	assert.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, models.PaymentStatusSuccessful, result.Payment.Status)
}

func TestHandleGatewayWebhook_FailureStatuses(t *testing.T) {
	for _, status := range []string{"FAILED", "REJECTED", "TIMEOUT", "EXPIRED"} {
		t.Run(status, func(t *testing.T) {
			f := newPaymentServiceFixture(t)

			ref := "ext-ref-1"
			f.paymentRepo.mockFindByExternalRef = func(ctx context.Context, externalRef string) (*models.Payment, error) {
				return &models.Payment{ID: 10, ExternalRef: &ref, Status: models.PaymentStatusPending}, nil
			}

			result, err := f.svc.HandleGatewayWebhook(context.Background(), ref, status, nil)

			assert.NoError(t, err)
			assert.Equal(t, models.PaymentStatusFailed, result.Payment.Status)
		})
	}
}

func TestHandleGatewayWebhook_UnhandledStatus(t *testing.T) {
	f := newPaymentServiceFixture(t)

	ref := "ext-ref-1"
	f.paymentRepo.mockFindByExternalRef = func(ctx context.Context, externalRef string) (*models.Payment, error) {
		return &models.Payment{ID: 10, ExternalRef: &ref, Status: models.PaymentStatusPending}, nil
	}

	_, err := f.svc.HandleGatewayWebhook(context.Background(), ref, "ONGOING", nil)

	assert.ErrorIs(t, err, ErrUnhandledStatus)
}

func TestHandleGatewayWebhook_UnknownReference(t *testing.T) {
	f := newPaymentServiceFixture(t)

	_, err := f.svc.HandleGatewayWebhook(context.Background(), "no-such-ref", "SUCCESSFUL", nil)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordManual_AppliesImmediately(t *testing.T) {
	f := newPaymentServiceFixture(t)

	f.invoiceRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Invoice, error) {
		return &models.Invoice{ID: 1, LeaseID: 2, TenantID: 3, PropertyID: 4,
			AmountDue: 9000, Currency: "ZMW", DueDate: time.Now().Add(24 * time.Hour)}, nil
	}
	var created *models.Payment
	f.paymentRepo.mockCreate = func(ctx context.Context, payment *models.Payment) error {
		payment.ID = 11
		created = payment
		return nil
	}

	payment, err := f.svc.RecordManual(context.Background(), RecordPaymentCommand{
		InvoiceID:  1,
		Amount:     9000,
		Method:     models.PaymentMethodCash,
		RecordedBy: 7,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccessful, payment.Status)
	assert.Equal(t, models.PaymentMethodCash, payment.Method)
	assert.NotEmpty(t, created.ReceiptNumber)
	if assert.NotNil(t, created.RecordedByID) {
		assert.Equal(t, uint(7), *created.RecordedByID)
	}
}

func TestRecordManual_RejectsGatewayMethods(t *testing.T) {
	f := newPaymentServiceFixture(t)

	_, err := f.svc.RecordManual(context.Background(), RecordPaymentCommand{
		InvoiceID: 1,
		Amount:    9000,
		Method:    models.PaymentMethodMTNMoMo,
	})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestRefund_TwoPhase(t *testing.T) {
	f := newPaymentServiceFixture(t)

	ref := "ext-ref-1"
	f.paymentRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Payment, error) {
		return &models.Payment{ID: 10, Amount: 5000, Currency: "ZMW", ExternalRef: &ref,
			Status: models.PaymentStatusSuccessful, RefundStatus: models.RefundStatusNone}, nil
	}

	payment, err := f.svc.RequestRefund(context.Background(), 10, 2000)

	assert.NoError(t, err)
	// The refund is only requested here; it settles on the refund webhook.
	assert.Equal(t, models.PaymentStatusSuccessful, payment.Status)
	assert.Equal(t, models.RefundStatusRequested, payment.RefundStatus)
	assert.Equal(t, int64(2000), payment.RefundAmount)
	assert.NotNil(t, payment.RefundExternalRef)
	assert.Equal(t, 1, f.gateway.requestReversalCalls)
}

func TestRequestRefund_ExceedsPaymentAmount(t *testing.T) {
	f := newPaymentServiceFixture(t)

	f.paymentRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Payment, error) {
		return &models.Payment{ID: 10, Amount: 5000,
			Status: models.PaymentStatusSuccessful, RefundStatus: models.RefundStatusNone}, nil
	}

	_, err := f.svc.RequestRefund(context.Background(), 10, 5001)

	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestRefund_OnlySuccessfulPayments(t *testing.T) {
	f := newPaymentServiceFixture(t)

	f.paymentRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Payment, error) {
		return &models.Payment{ID: 10, Amount: 5000, Status: models.PaymentStatusPending}, nil
	}

	_, err := f.svc.RequestRefund(context.Background(), 10, 0)

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestHandleRefundWebhook_ConfirmPostsAdjustment(t *testing.T) {
	f := newPaymentServiceFixture(t)

	refundRef := "refund-ref-1"
	invoiceID := uint(1)
	payment := &models.Payment{ID: 10, InvoiceID: &invoiceID, TenantID: 3,
		Amount: 5000, RefundAmount: 2000, Currency: "ZMW",
		ReceiptNumber: "RCP-AAAA1111", RefundExternalRef: &refundRef,
		Status: models.PaymentStatusSuccessful, RefundStatus: models.RefundStatusRequested}

	f.paymentRepo.mockFindByRefundExternalRef = func(ctx context.Context, ref string) (*models.Payment, error) {
		return payment, nil
	}
	var adjustment *models.Payment
	f.paymentRepo.mockCreate = func(ctx context.Context, p *models.Payment) error {
		adjustment = p
		return nil
	}
	f.invoiceRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Invoice, error) {
		return &models.Invoice{ID: 1, AmountDue: 5000, DueDate: time.Now().Add(24 * time.Hour)}, nil
	}

	result, err := f.svc.HandleRefundWebhook(context.Background(), refundRef, "SUCCESSFUL")

	assert.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, models.RefundStatusRefunded, result.Payment.RefundStatus)
	// The original stays successful so payment sums remain correct;
	// the negative adjustment carries the refund.
	assert.Equal(t, models.PaymentStatusSuccessful, result.Payment.Status)
	assert.NotNil(t, result.Payment.RefundedAt)
	if assert.NotNil(t, adjustment) {
		assert.Equal(t, int64(-2000), adjustment.Amount)
		assert.Equal(t, models.PaymentMethodAdjustment, adjustment.Method)
		assert.Equal(t, &invoiceID, adjustment.InvoiceID)
	}
}

func TestHandleRefundWebhook_FailureClearsNothing(t *testing.T) {
	f := newPaymentServiceFixture(t)

	refundRef := "refund-ref-1"
	f.paymentRepo.mockFindByRefundExternalRef = func(ctx context.Context, ref string) (*models.Payment, error) {
		return &models.Payment{ID: 10, Amount: 5000, RefundExternalRef: &refundRef,
			Status: models.PaymentStatusSuccessful, RefundStatus: models.RefundStatusRequested}, nil
	}
	f.paymentRepo.mockCreate = func(ctx context.Context, p *models.Payment) error {
		t.Fatal("no adjustment on a failed refund")
		return nil
	}

	result, err := f.svc.HandleRefundWebhook(context.Background(), refundRef, "FAILED")

	assert.NoError(t, err)
	assert.Equal(t, models.RefundStatusFailed, result.Payment.RefundStatus)
	assert.Equal(t, models.PaymentStatusSuccessful, result.Payment.Status)
}

func TestHandleRefundWebhook_Replay(t *testing.T) {
	f := newPaymentServiceFixture(t)

	refundRef := "refund-ref-1"
	f.paymentRepo.mockFindByRefundExternalRef = func(ctx context.Context, ref string) (*models.Payment, error) {
		return &models.Payment{ID: 10, RefundExternalRef: &refundRef,
			Status: models.PaymentStatusSuccessful, RefundStatus: models.RefundStatusRefunded}, nil
	}
	f.paymentRepo.mockUpdateVersioned = func(ctx context.Context, payment *models.Payment) error {
		t.Fatal("replay must not write")
		return nil
	}

	result, err := f.svc.HandleRefundWebhook(context.Background(), refundRef, "SUCCESSFUL")

	assert.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
}
