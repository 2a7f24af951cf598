package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"

	"github.com/tradebook/tradebook-backend/internal/cache"
	"github.com/tradebook/tradebook-backend/internal/config"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type fakeS3 struct {
	s3iface.S3API
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func day(year int, month time.Month, d int) *time.Time {
	t := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// seedTrading runs the reference scenario: two purchases averaging to 6, one credit sale of
// five units at 10 and a 5.00 expense.
func (s *ServiceTestSuite) seedTrading() {
	product := s.newProduct("DASH-1", "10")
	s.buy(product.ID, 10, "5")
	s.buy(product.ID, 10, "7")
	trader := s.newTrader("Acme")

	_, err := s.sell(&trader.ID, "0", SaleLineRequest{ProductID: product.ID, Quantity: 5})
	s.Require().NoError(err)

	_, err = s.expenses.CreateExpense(s.ctx, &ExpenseRequest{Category: "rent", Description: "Stall rent", Amount: dec("5")})
	s.Require().NoError(err)
}

func (s *ServiceTestSuite) TestExpenseLifecycle() {
	expense, err := s.expenses.CreateExpense(s.ctx, &ExpenseRequest{
		ExpenseDate: day(2026, time.March, 2),
		Category:    " utilities ",
		Description: "Electricity",
		Amount:      dec("42.10"),
	})
	s.Require().NoError(err)
	s.Equal("utilities", expense.Category)

	updated, err := s.expenses.UpdateExpense(s.ctx, expense.ID, &ExpenseRequest{
		Category:    "utilities",
		Description: "Electricity and water",
		Amount:      dec("50"),
	})
	s.Require().NoError(err)
	s.decEqual("50", updated.Amount)
	s.Equal(2026, updated.ExpenseDate.Year())

	list, total, err := s.expenses.ListExpenses(s.ctx, ExpenseSearchParams{
		PaginationParams: utils.PaginationParams{Search: "water"},
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(list, 1)

	s.Require().NoError(s.expenses.DeleteExpense(s.ctx, expense.ID))
	_, err = s.expenses.GetExpense(s.ctx, expense.ID)
	s.ErrorIs(err, ErrNotFound)
	s.ErrorIs(s.expenses.DeleteExpense(s.ctx, expense.ID), ErrNotFound)

	_, err = s.expenses.CreateExpense(s.ctx, &ExpenseRequest{Description: "Free lunch", Amount: dec("0")})
	s.Error(err)
}

func (s *ServiceTestSuite) TestExpenseDateRange() {
	_, err := s.expenses.CreateExpense(s.ctx, &ExpenseRequest{ExpenseDate: day(2025, time.January, 10), Description: "Old", Amount: dec("1")})
	s.Require().NoError(err)
	_, err = s.expenses.CreateExpense(s.ctx, &ExpenseRequest{ExpenseDate: day(2026, time.January, 10), Description: "New", Amount: dec("2")})
	s.Require().NoError(err)

	list, total, err := s.expenses.ListExpenses(s.ctx, ExpenseSearchParams{
		DateRange: utils.DateRange{From: day(2026, time.January, 1), To: day(2026, time.December, 31)},
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("New", list[0].Description)
}

func (s *ServiceTestSuite) TestDashboardSummary() {
	s.seedTrading()

	summary, err := s.dashboard.Summary(s.ctx, utils.DateRange{})
	s.Require().NoError(err)

	s.Equal(int64(1), summary.ProductCount)
	s.Equal(int64(1), summary.ActiveTraderCount)
	s.Equal(int64(1), summary.SalesCount)
	s.decEqual("50", summary.SalesRevenue)
	s.decEqual("30", summary.CostOfGoodsSold)
	s.decEqual("20", summary.GrossProfit)
	s.decEqual("5", summary.Expenses)
	s.decEqual("15", summary.NetProfit)
	s.decEqual("90", summary.StockValue)
	s.decEqual("50", summary.Receivables)
	s.decEqual("120", summary.PurchasesTotal)
	s.True(summary.PaymentsReceived.IsZero())
	s.Empty(summary.LowStock)
}

func (s *ServiceTestSuite) TestDashboardRangeExcludesOtherPeriods() {
	s.seedTrading()

	summary, err := s.dashboard.Summary(s.ctx, utils.DateRange{From: day(2001, time.January, 1), To: day(2001, time.December, 31)})
	s.Require().NoError(err)
	s.Equal(int64(0), summary.SalesCount)
	s.True(summary.SalesRevenue.IsZero())
	s.True(summary.Expenses.IsZero())
	s.decEqual("90", summary.StockValue, "stock value is always as of now")
	s.decEqual("50", summary.Receivables)
}

func (s *ServiceTestSuite) TestDashboardCacheFollowsWrites() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s.setServices(cache.New(client, time.Minute))

	s.seedTrading()

	first, err := s.dashboard.Summary(s.ctx, utils.DateRange{})
	s.Require().NoError(err)
	s.decEqual("5", first.Expenses)
	s.NotEmpty(mr.Keys())

	// Writes behind the services' back are not seen until something invalidates.
	s.Require().NoError(s.db.Exec("UPDATE expenses SET amount = 6").Error)
	cached, err := s.dashboard.Summary(s.ctx, utils.DateRange{})
	s.Require().NoError(err)
	s.decEqual("5", cached.Expenses)

	_, err = s.expenses.CreateExpense(s.ctx, &ExpenseRequest{Category: "rent", Description: "Deposit", Amount: dec("4")})
	s.Require().NoError(err)

	fresh, err := s.dashboard.Summary(s.ctx, utils.DateRange{})
	s.Require().NoError(err)
	s.decEqual("10", fresh.Expenses)
	s.decEqual("10", fresh.NetProfit)
}

func (s *ServiceTestSuite) TestTraderBalancesAndExpenseCategories() {
	s.seedTrading()
	_, err := s.expenses.CreateExpense(s.ctx, &ExpenseRequest{Category: "fuel", Description: "Van", Amount: dec("7.25")})
	s.Require().NoError(err)

	balances, err := s.dashboard.TraderBalances(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(balances, 1)
	s.decEqual("50", balances[0].Balance)

	categories, err := s.dashboard.ExpensesByCategory(s.ctx, utils.DateRange{})
	s.Require().NoError(err)
	s.Require().Len(categories, 2)
	s.Equal("fuel", categories[0].Category)
	s.decEqual("7.25", categories[0].Total)
	s.Equal("rent", categories[1].Category)
}

func (s *ServiceTestSuite) TestExportSummaryWorkbook() {
	s.seedTrading()
	reports := NewReportService(s.dashboard, NewStorageServiceWithClient(nil, config.AWSConfig{ReportDir: s.T().TempDir()}))

	data, filename, err := reports.ExportSummary(s.ctx, utils.DateRange{From: day(2026, time.January, 1)})
	s.Require().NoError(err)
	s.Equal("summary_20260101_-.xlsx", filename)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	s.Require().NoError(err)
	defer f.Close()

	s.Equal([]string{"Summary", "Low Stock", "Trader Balances", "Expenses"}, f.GetSheetList())

	value, err := f.GetCellValue("Summary", "B2")
	s.Require().NoError(err)
	s.Equal("2026-01-01", value)

	label, err := f.GetCellValue("Summary", "A8")
	s.Require().NoError(err)
	s.Equal("Sales revenue", label)

	rows, err := f.GetRows("Trader Balances")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("Acme", rows[1][0])
	s.Equal("50", rows[1][4])

	rows, err = f.GetRows("Expenses")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal([]string{"rent", "5"}, rows[1])
}

func (s *ServiceTestSuite) TestArchiveSummaryLocally() {
	s.seedTrading()
	dir := s.T().TempDir()
	reports := NewReportService(s.dashboard, NewStorageServiceWithClient(nil, config.AWSConfig{ReportDir: dir}))

	archived, err := reports.ArchiveSummary(s.ctx, utils.DateRange{})
	s.Require().NoError(err)
	s.Equal("local", archived.Backend)
	s.True(strings.HasPrefix(archived.Key, "reports/"))
	s.True(strings.HasSuffix(archived.Key, ".xlsx"))
	s.Equal(XLSXContentType, archived.MimeType)

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(archived.Key)))
	s.Require().NoError(err)
	s.Equal(archived.Size, int64(len(stored)))
	s.True(utils.VerifyChecksum(stored, archived.Checksum))
}

func (s *ServiceTestSuite) TestArchiveSummaryToS3() {
	s.seedTrading()
	client := &fakeS3{}
	storage := NewStorageServiceWithClient(client, config.AWSConfig{Region: "eu-west-1", S3Bucket: "ledger-reports"})
	reports := NewReportService(s.dashboard, storage)

	archived, err := reports.ArchiveSummary(s.ctx, utils.DateRange{})
	s.Require().NoError(err)
	s.Equal("s3", archived.Backend)
	s.Require().NotNil(client.input)
	s.Equal("ledger-reports", aws.StringValue(client.input.Bucket))
	s.Equal(archived.Key, aws.StringValue(client.input.Key))
	s.Equal(XLSXContentType, aws.StringValue(client.input.ContentType))
	s.Equal(int64(len(client.body)), archived.Size)
	s.Equal(archived.Checksum, aws.StringValue(client.input.Metadata["sha256"]))
	s.True(utils.VerifyChecksum(client.body, archived.Checksum))
	s.Equal("https://ledger-reports.s3.eu-west-1.amazonaws.com/"+archived.Key, archived.URL)
}

func (s *ServiceTestSuite) TestStorageSurfacesS3Errors() {
	storage := NewStorageServiceWithClient(&fakeS3{err: errors.New("access denied")}, config.AWSConfig{S3Bucket: "b"})

	_, err := storage.Store(context.Background(), "reports", ".xlsx", []byte("x"), XLSXContentType)
	s.Error(err)
	s.Contains(err.Error(), "access denied")
}

func (s *ServiceTestSuite) TestOpenArchiveLocally() {
	s.seedTrading()
	dir := s.T().TempDir()
	reports := NewReportService(s.dashboard, NewStorageServiceWithClient(nil, config.AWSConfig{ReportDir: dir}))

	archived, err := reports.ArchiveSummary(s.ctx, utils.DateRange{})
	s.Require().NoError(err)

	object, err := reports.OpenArchive(s.ctx, archived.Key)
	s.Require().NoError(err)
	s.Empty(object.URL)
	s.Equal(archived.Size, int64(len(object.Data)))
	s.True(utils.VerifyChecksum(object.Data, archived.Checksum))

	for _, key := range []string{
		"reports/missing.xlsx",
		"reports/../../etc/passwd.xlsx",
		"/" + archived.Key,
		strings.TrimSuffix(archived.Key, ".xlsx") + ".xlsx.sha256",
		"other/" + filepath.Base(archived.Key),
	} {
		_, err = reports.OpenArchive(s.ctx, key)
		s.ErrorIs(err, ErrNotFound, key)
	}

	s.Require().NoError(os.WriteFile(filepath.Join(dir, filepath.FromSlash(archived.Key)), []byte("tampered"), 0o644))
	_, err = reports.OpenArchive(s.ctx, archived.Key)
	s.ErrorIs(err, ErrChecksumMismatch)
}

func (s *ServiceTestSuite) TestOpenArchivePresignsS3Objects() {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String("eu-west-1"),
		Credentials: credentials.NewStaticCredentials("AKIDEXAMPLE", "secret", ""),
	})
	s.Require().NoError(err)
	storage := NewStorageServiceWithClient(s3.New(sess), config.AWSConfig{Region: "eu-west-1", S3Bucket: "ledger-reports"})
	reports := NewReportService(s.dashboard, storage)

	object, err := reports.OpenArchive(s.ctx, "reports/20260101-120000_abcd1234.xlsx")
	s.Require().NoError(err)
	s.Nil(object.Data)
	s.Contains(object.URL, "ledger-reports")
	s.Contains(object.URL, "reports/20260101-120000_abcd1234.xlsx")
	s.Contains(object.URL, "X-Amz-Signature=")

	_, err = NewStorageServiceWithClient(nil, config.AWSConfig{}).PresignedURL("reports/x.xlsx", time.Minute)
	s.Error(err)
}
