package services

import (
	"context"
	"testing"

	"github.com/nyumba/nyumba-api/internal/config"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestEmailService_RenderTemplates(t *testing.T) {
	logger.Setup("test")
	svc := NewEmailService(&config.Config{AppURL: "https://app.test.local"})

	tests := []struct {
		name     string
		template string
		data     interface{}
		contains []string
	}{
		{
			name:     "payment receipt",
			template: "payment_receipt.html",
			data: struct {
				Name          string
				Amount        int64
				Currency      string
				ReceiptNumber string
				PropertyTitle string
				DatePaid      string
				AppURL        string
			}{
				Name:          "Chipo Mwansa",
				Amount:        9000,
				Currency:      "ZMW",
				ReceiptNumber: "RCP-AAAA1111",
				PropertyTitle: "Roma Park Flat 2B",
				DatePaid:      "5 April 2025",
				AppURL:        "https://app.test.local",
			},
			contains: []string{"Chipo Mwansa", "RCP-AAAA1111", "9000", "ZMW"},
		},
		{
			name:     "invoice reminder",
			template: "invoice_reminder.html",
			data: struct {
				Name        string
				Message     string
				Reference   string
				Outstanding int64
				Currency    string
				DueDate     string
				AppURL      string
			}{
				Name:        "Chipo Mwansa",
				Message:     "Invoice INV-LSE-AAA111-2025-04 for 9000 ZMW is due today.",
				Reference:   "INV-LSE-AAA111-2025-04",
				Outstanding: 9000,
				Currency:    "ZMW",
				DueDate:     "5 April 2025",
				AppURL:      "https://app.test.local",
			},
			contains: []string{"INV-LSE-AAA111-2025-04", "due today"},
		},
		{
			name:     "deposit deduction",
			template: "deposit_deduction.html",
			data: depositEmail{
				Name:     "Chipo Mwansa",
				Amount:   1500,
				Currency: "ZMW",
				Reason:   "Broken window",
				Balance:  3500,
				LeaseRef: "LSE-AAA111",
				AppURL:   "https://app.test.local",
			},
			contains: []string{"Broken window", "1500", "3500"},
		},
		{
			name:     "deposit refund",
			template: "deposit_refund.html",
			data: depositEmail{
				Name:     "Chipo Mwansa",
				Amount:   3500,
				Currency: "ZMW",
				Reason:   "Lease ended",
				Balance:  0,
				LeaseRef: "LSE-AAA111",
				AppURL:   "https://app.test.local",
			},
			contains: []string{"Lease ended", "3500"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := svc.renderTemplate(tt.template, tt.data)
			assert.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, body, want)
			}
		})
	}
}

func TestEmailService_DepositEmailsSkipWithoutAddress(t *testing.T) {
	logger.Setup("test")
	svc := NewEmailService(&config.Config{})

	lease := &models.Lease{ID: 1, LeaseRef: "LSE-AAA111", DepositBalance: 3500}

	assert.NoError(t, svc.SendDepositDeduction(context.Background(), lease, 1500, "Broken window"))
	assert.NoError(t, svc.SendDepositRefund(context.Background(), lease, 1500, "Lease ended"))
}
