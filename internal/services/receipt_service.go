package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/jung-kurt/gofpdf"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/internal/storage"
)

//go:embed templates/documents/*.html
var documentTemplates embed.FS

// ReceiptService renders payment receipts and invoice documents and
// keeps them in local storage.
type ReceiptService struct {
	storage *storage.LocalStorage
}

func NewReceiptService(st *storage.LocalStorage) *ReceiptService {
	return &ReceiptService{storage: st}
}

// GenerateReceipt renders a PDF receipt for a settled payment and
// stores it. Returns the storage-relative path.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, payment *models.Payment) (string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(40, 10, "Payment Receipt")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(60, 8, "Receipt Number:")
	pdf.Cell(80, 8, payment.ReceiptNumber)
	pdf.Ln(8)

	pdf.Cell(60, 8, "Date:")
	pdf.Cell(80, 8, payment.DatePaid.Format("2 January 2006"))
	pdf.Ln(8)

	if payment.Tenant.ID != 0 {
		pdf.Cell(60, 8, "Received From:")
		pdf.Cell(80, 8, payment.Tenant.FullName)
		pdf.Ln(8)
	}

	if payment.Property.ID != 0 {
		pdf.Cell(60, 8, "Property:")
		pdf.Cell(80, 8, payment.Property.Title)
		pdf.Ln(8)
	}

	pdf.Cell(60, 8, "Method:")
	pdf.Cell(80, 8, payment.Method)
	pdf.Ln(8)

	if payment.Invoice != nil {
		pdf.Cell(60, 8, "Invoice:")
		pdf.Cell(80, 8, payment.Invoice.Reference)
		pdf.Ln(8)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(60, 10, "Amount:")
	pdf.Cell(80, 10, fmt.Sprintf("%d %s", payment.Amount, payment.Currency))
	pdf.Ln(16)

	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(120, 6, "This receipt was generated automatically and requires no signature.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return "", fmt.Errorf("failed to render receipt: %w", err)
	}

	filename := fmt.Sprintf("receipt_%s.pdf", payment.ReceiptNumber)
	return s.storage.UploadFromBytes(buf.Bytes(), filename, "receipts")
}

// GenerateInvoiceDocument renders an invoice as a PDF for download
func (s *ReceiptService) GenerateInvoiceDocument(ctx context.Context, invoice *models.Invoice) (*bytes.Buffer, error) {
	tmpl, err := template.ParseFS(documentTemplates, "templates/documents/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice template: %w", err)
	}

	data := struct {
		Reference     string
		PeriodLabel   string
		IssueDate     string
		DueDate       string
		AmountDue     int64
		AmountPaid    int64
		Outstanding   int64
		Currency      string
		Status        string
		TenantName    string
		PropertyTitle string
		PropertyAddr  string
	}{
		Reference:   invoice.Reference,
		PeriodLabel: invoice.PeriodLabel,
		IssueDate:   invoice.IssueDate.Format("2 January 2006"),
		DueDate:     invoice.DueDate.Format("2 January 2006"),
		AmountDue:   invoice.AmountDue,
		AmountPaid:  invoice.AmountPaid,
		Outstanding: invoice.Outstanding(),
		Currency:    invoice.Currency,
		Status:      invoice.Status,
	}
	if invoice.Tenant.ID != 0 {
		data.TenantName = invoice.Tenant.FullName
	}
	if invoice.Property.ID != 0 {
		data.PropertyTitle = invoice.Property.Title
		if invoice.Property.Address != nil {
			data.PropertyAddr = *invoice.Property.Address
		}
	}

	var html bytes.Buffer
	if err := tmpl.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to execute invoice template: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(html.Bytes()))
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create pdf: %w", err)
	}

	return pdfg.Buffer(), nil
}

// ReceiptPath resolves a stored receipt's absolute path for streaming
func (s *ReceiptService) ReceiptPath(relativePath string) (string, error) {
	if !s.storage.Exists(relativePath) {
		return "", ErrNotFound
	}
	return s.storage.GetFullPath(relativePath), nil
}
