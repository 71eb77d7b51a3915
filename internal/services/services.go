package services

import (
	"github.com/nyumba/nyumba-api/internal/config"
	"github.com/nyumba/nyumba-api/internal/gateway"
	"github.com/nyumba/nyumba-api/internal/jobs"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/internal/storage"
)

// Services holds all service instances
type Services struct {
	Lease        *LeaseService
	Invoice      *InvoiceService
	Deposit      *DepositService
	Payment      *PaymentService
	Billing      *BillingService
	Notification *NotificationService
	Email        *EmailService
	SMS          *SMSService
	Receipt      *ReceiptService
	Export       *ExportService
	Job          *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, storage *storage.LocalStorage, cfg *config.Config, gw gateway.Client) *Services {
	notificationSvc := NewNotificationService(repos.Notification)
	emailSvc := NewEmailService(cfg)
	smsSvc := NewSMSService(cfg)
	receiptSvc := NewReceiptService(storage)

	invoiceSvc := NewInvoiceService(repos.Invoice, repos.Payment)
	depositSvc := NewDepositService(repos.Lease, notificationSvc, emailSvc, worker)
	paymentSvc := NewPaymentService(repos.Payment, repos.Invoice, repos.Lease, invoiceSvc, notificationSvc, emailSvc, smsSvc, receiptSvc, gw, worker)
	leaseSvc := NewLeaseService(repos.Lease, invoiceSvc, notificationSvc, worker)
	billingSvc := NewBillingService(repos.Lease, repos.Invoice, invoiceSvc, notificationSvc, emailSvc, smsSvc)

	return &Services{
		Lease:        leaseSvc,
		Invoice:      invoiceSvc,
		Deposit:      depositSvc,
		Payment:      paymentSvc,
		Billing:      billingSvc,
		Notification: notificationSvc,
		Email:        emailSvc,
		SMS:          smsSvc,
		Receipt:      receiptSvc,
		Export:       NewExportService(repos.Invoice, repos.Payment),
		Job:          NewJobService(worker, billingSvc),
	}
}
