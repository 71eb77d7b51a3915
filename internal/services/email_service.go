package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/nyumba/nyumba-api/internal/config"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/pkg/logger"
	"github.com/resend/resend-go/v2"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

type EmailService struct {
	config       *config.Config
	resendClient *resend.Client
}

func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config:       cfg,
		resendClient: client,
	}
}

// SendPaymentReceipt mails the tenant a confirmation of a settled
// payment.
func (s *EmailService) SendPaymentReceipt(ctx context.Context, payment *models.Payment) error {
	data := struct {
		Name          string
		Amount        int64
		Currency      string
		ReceiptNumber string
		PropertyTitle string
		DatePaid      string
		AppURL        string
	}{
		Name:          payment.Tenant.FullName,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		ReceiptNumber: payment.ReceiptNumber,
		PropertyTitle: payment.Property.Title,
		DatePaid:      payment.DatePaid.Format("2 January 2006"),
		AppURL:        s.config.AppURL,
	}

	body, err := s.renderTemplate("payment_receipt.html", data)
	if err != nil {
		return err
	}

	return s.send(payment.Tenant.Email, "Payment received", body)
}

// SendInvoiceReminder mails a due or overdue reminder for an invoice
func (s *EmailService) SendInvoiceReminder(ctx context.Context, invoice *models.Invoice, subject, message string) error {
	data := struct {
		Name        string
		Message     string
		Reference   string
		Outstanding int64
		Currency    string
		DueDate     string
		AppURL      string
	}{
		Name:        invoice.Tenant.FullName,
		Message:     message,
		Reference:   invoice.Reference,
		Outstanding: invoice.Outstanding(),
		Currency:    invoice.Currency,
		DueDate:     invoice.DueDate.Format("2 January 2006"),
		AppURL:      s.config.AppURL,
	}

	body, err := s.renderTemplate("invoice_reminder.html", data)
	if err != nil {
		return err
	}

	return s.send(invoice.Tenant.Email, subject, body)
}

// SendDepositDeduction tells the tenant money came out of their deposit
func (s *EmailService) SendDepositDeduction(ctx context.Context, lease *models.Lease, amount int64, reason string) error {
	if lease.Tenant.Email == "" {
		return nil
	}

	data := depositEmailData(lease, amount, reason, s.config.AppURL)

	body, err := s.renderTemplate("deposit_deduction.html", data)
	if err != nil {
		return err
	}

	return s.send(lease.Tenant.Email, "Deposit deduction", body)
}

// SendDepositRefund tells the tenant part of their deposit was returned
func (s *EmailService) SendDepositRefund(ctx context.Context, lease *models.Lease, amount int64, reason string) error {
	if lease.Tenant.Email == "" {
		return nil
	}

	data := depositEmailData(lease, amount, reason, s.config.AppURL)

	body, err := s.renderTemplate("deposit_refund.html", data)
	if err != nil {
		return err
	}

	return s.send(lease.Tenant.Email, "Deposit refund", body)
}

type depositEmail struct {
	Name     string
	Amount   int64
	Currency string
	Reason   string
	Balance  int64
	LeaseRef string
	AppURL   string
}

func depositEmailData(lease *models.Lease, amount int64, reason, appURL string) depositEmail {
	return depositEmail{
		Name:     lease.Tenant.FullName,
		Amount:   amount,
		Currency: lease.DepositCurrency,
		Reason:   reason,
		Balance:  lease.DepositBalance,
		LeaseRef: lease.LeaseRef,
		AppURL:   appURL,
	}
}

func (s *EmailService) send(to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}
	_, err := s.resendClient.Emails.Send(params)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to send email to %s: %v", to, err))
		return err
	}

	logger.Info(fmt.Sprintf("📧 [Email Sent] To: %s | Subject: %s", to, subject))

	return nil
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
