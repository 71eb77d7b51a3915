package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService produces downloadable registers of invoices and
// payments for landlord bookkeeping.
type ExportService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
}

func NewExportService(invoiceRepo repository.InvoiceRepository, paymentRepo repository.PaymentRepository) *ExportService {
	return &ExportService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
	}
}

// exportPageSize caps export queries; registers are expected to fit
const exportPageSize = 10000

func (s *ExportService) InvoicesCSV(ctx context.Context, filters map[string]string) ([]byte, string, error) {
	invoices, err := s.fetchInvoices(ctx, filters)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Reference", "Period", "Tenant", "Property", "Issue Date", "Due Date", "Amount Due", "Amount Paid", "Outstanding", "Currency", "Status"})
	for i := range invoices {
		inv := &invoices[i]
		_ = writer.Write([]string{
			inv.Reference,
			inv.PeriodLabel,
			inv.Tenant.FullName,
			inv.Property.Title,
			inv.IssueDate.Format("2006-01-02"),
			inv.DueDate.Format("2006-01-02"),
			fmt.Sprintf("%d", inv.AmountDue),
			fmt.Sprintf("%d", inv.AmountPaid),
			fmt.Sprintf("%d", inv.Outstanding()),
			inv.Currency,
			inv.Status,
		})
	}

	writer.Flush()

	filename := fmt.Sprintf("invoices_%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func (s *ExportService) InvoicesXLSX(ctx context.Context, filters map[string]string) ([]byte, string, error) {
	invoices, err := s.fetchInvoices(ctx, filters)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Invoices"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	headers := []string{"Reference", "Period", "Tenant", "Property", "Issue Date", "Due Date", "Amount Due", "Amount Paid", "Outstanding", "Currency", "Status"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i := range invoices {
		inv := &invoices[i]
		row := i + 2
		values := []interface{}{
			inv.Reference,
			inv.PeriodLabel,
			inv.Tenant.FullName,
			inv.Property.Title,
			inv.IssueDate.Format("2006-01-02"),
			inv.DueDate.Format("2006-01-02"),
			inv.AmountDue,
			inv.AmountPaid,
			inv.Outstanding(),
			inv.Currency,
			inv.Status,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("invoices_%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func (s *ExportService) PaymentsCSV(ctx context.Context, filters map[string]string) ([]byte, string, error) {
	query := repository.NewListQuery()
	query.PerPage = exportPageSize
	query.Filters = filters

	payments, _, err := s.paymentRepo.List(ctx, query)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Receipt", "Tenant", "Property", "Date Paid", "Amount", "Currency", "Method", "Status", "Refund Status"})
	for i := range payments {
		p := &payments[i]
		_ = writer.Write([]string{
			p.ReceiptNumber,
			p.Tenant.FullName,
			p.Property.Title,
			p.DatePaid.Format("2006-01-02"),
			fmt.Sprintf("%d", p.Amount),
			p.Currency,
			p.Method,
			p.Status,
			p.RefundStatus,
		})
	}

	writer.Flush()

	filename := fmt.Sprintf("payments_%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func (s *ExportService) fetchInvoices(ctx context.Context, filters map[string]string) ([]models.Invoice, error) {
	query := repository.NewListQuery()
	query.PerPage = exportPageSize
	query.Filters = filters

	invoices, _, err := s.invoiceRepo.List(ctx, query)
	return invoices, err
}
