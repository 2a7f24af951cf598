// internal/services/report_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tradebook/tradebook-backend/internal/utils"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const archiveFolder = "reports"

const (
	sheetSummary  = "Summary"
	sheetLowStock = "Low Stock"
	sheetBalances = "Trader Balances"
	sheetExpenses = "Expenses"
)

// ReportService renders the dashboard summary as an xlsx workbook.
type ReportService struct {
	dashboard *DashboardService
	storage   *StorageService
}

type ArchivedReport struct {
	*UploadResult
	Filename string `json:"filename"`
}

func NewReportService(dashboard *DashboardService, storage *StorageService) *ReportService {
	return &ReportService{dashboard: dashboard, storage: storage}
}

// ExportSummary builds the workbook and returns it with a download filename.
func (s *ReportService) ExportSummary(ctx context.Context, r utils.DateRange) ([]byte, string, error) {
	summary, err := s.dashboard.Summary(ctx, r)
	if err != nil {
		return nil, "", err
	}
	balances, err := s.dashboard.TraderBalances(ctx)
	if err != nil {
		return nil, "", err
	}
	expenses, err := s.dashboard.ExpensesByCategory(ctx, r)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, "", err
	}
	for _, name := range []string{sheetLowStock, sheetBalances, sheetExpenses} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, "", err
		}
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"From", dateCell(summary.From)},
		{"To", dateCell(summary.To)},
		{"Active products", summary.ProductCount},
		{"Active traders", summary.ActiveTraderCount},
		{"Stock value", money(summary.StockValue)},
		{"Sales", summary.SalesCount},
		{"Sales revenue", money(summary.SalesRevenue)},
		{"Cost of goods sold", money(summary.CostOfGoodsSold)},
		{"Gross profit", money(summary.GrossProfit)},
		{"Expenses", money(summary.Expenses)},
		{"Net profit", money(summary.NetProfit)},
		{"Payments received", money(summary.PaymentsReceived)},
		{"Receivables", money(summary.Receivables)},
		{"Purchases", money(summary.PurchasesTotal)},
		{"Generated at", summary.GeneratedAt.Format("2006-01-02 15:04:05")},
	}
	if err := writeRows(f, sheetSummary, rows); err != nil {
		return nil, "", err
	}

	rows = [][]interface{}{{"Code", "Name", "Category", "Stock", "Threshold", "Unit cost"}}
	for _, p := range summary.LowStock {
		rows = append(rows, []interface{}{p.Code, p.Name, p.Category, p.StockQuantity, p.LowStockThreshold, money(p.UnitCost)})
	}
	if err := writeRows(f, sheetLowStock, rows); err != nil {
		return nil, "", err
	}

	rows = [][]interface{}{{"Trader", "Type", "Total sales", "Total payments", "Balance"}}
	for _, t := range balances {
		rows = append(rows, []interface{}{t.Name, string(t.Type), money(t.TotalSales), money(t.TotalPayments), money(t.Balance)})
	}
	if err := writeRows(f, sheetBalances, rows); err != nil {
		return nil, "", err
	}

	rows = [][]interface{}{{"Category", "Total"}}
	for _, e := range expenses {
		rows = append(rows, []interface{}{e.Category, money(e.Total)})
	}
	if err := writeRows(f, sheetExpenses, rows); err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("summary_%s_%s.xlsx", rangeToken(r.From), rangeToken(r.To))
	return buf.Bytes(), filename, nil
}

// ArchiveSummary exports the workbook and stores it under reports/.
func (s *ReportService) ArchiveSummary(ctx context.Context, r utils.DateRange) (*ArchivedReport, error) {
	data, filename, err := s.ExportSummary(ctx, r)
	if err != nil {
		return nil, err
	}

	result, err := s.storage.Store(ctx, archiveFolder, ".xlsx", data, XLSXContentType)
	if err != nil {
		return nil, err
	}
	return &ArchivedReport{UploadResult: result, Filename: filename}, nil
}

// archiveLinkTTL bounds presigned links to archived reports.
const archiveLinkTTL = 15 * time.Minute

// OpenArchive returns a previously archived report. Keys outside reports/ are treated as
// missing.
func (s *ReportService) OpenArchive(ctx context.Context, key string) (*StoredObject, error) {
	clean := path.Clean("/" + key)[1:]
	if clean != key || !strings.HasPrefix(clean, archiveFolder+"/") || path.Ext(clean) != ".xlsx" {
		return nil, fmt.Errorf("report %q: %w", key, ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.storage.Fetch(clean, archiveLinkTTL)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// money writes decimals as numbers so the sheet can sum them.
func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
