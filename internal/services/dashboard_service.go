// internal/services/dashboard_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradebook/tradebook-backend/internal/cache"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type DashboardService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// DashboardSummary is the business at a glance for an optional date range. Stock value,
// receivables and low stock are always as of now.
type DashboardSummary struct {
	From              *time.Time       `json:"from,omitempty"`
	To                *time.Time       `json:"to,omitempty"`
	ProductCount      int64            `json:"product_count"`
	ActiveTraderCount int64            `json:"active_trader_count"`
	StockValue        decimal.Decimal  `json:"stock_value"`
	SalesCount        int64            `json:"sales_count"`
	SalesRevenue      decimal.Decimal  `json:"sales_revenue"`
	CostOfGoodsSold   decimal.Decimal  `json:"cost_of_goods_sold"`
	GrossProfit       decimal.Decimal  `json:"gross_profit"`
	Expenses          decimal.Decimal  `json:"expenses"`
	NetProfit         decimal.Decimal  `json:"net_profit"`
	PaymentsReceived  decimal.Decimal  `json:"payments_received"`
	Receivables       decimal.Decimal  `json:"receivables"`
	PurchasesTotal    decimal.Decimal  `json:"purchases_total"`
	LowStock          []models.Product `json:"low_stock"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

func NewDashboardService(db *gorm.DB, c *cache.Cache) *DashboardService {
	return &DashboardService{db: db, cache: c}
}

// Summary serves from the cache when redis is configured; any mutation elsewhere bumps the
// cache version, so a hit is never older than the last write.
func (s *DashboardService) Summary(ctx context.Context, r utils.DateRange) (*DashboardSummary, error) {
	key, err := s.cache.Key(ctx, "dashboard", "summary", rangeToken(r.From), rangeToken(r.To))
	if err != nil {
		return s.buildSummary(ctx, r)
	}

	var summary DashboardSummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		return s.buildSummary(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *DashboardService) buildSummary(ctx context.Context, r utils.DateRange) (*DashboardSummary, error) {
	db := s.db.WithContext(ctx)
	summary := &DashboardSummary{From: r.From, To: r.To, GeneratedAt: time.Now()}

	if err := db.Model(&models.Product{}).Where("is_active = ?", true).Count(&summary.ProductCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := db.Model(&models.Trader{}).Where("is_active = ?", true).Count(&summary.ActiveTraderCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count traders: %w", err)
	}

	stockValue, err := stockValue(db)
	if err != nil {
		return nil, err
	}
	summary.StockValue = stockValue

	var sales []models.Sale
	err = r.Apply(db.Model(&models.Sale{}), "sale_date").
		Select("total_amount", "total_cost", "total_profit").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to total sales: %w", err)
	}
	summary.SalesCount = int64(len(sales))
	summary.SalesRevenue, summary.CostOfGoodsSold, summary.GrossProfit = decimal.Zero, decimal.Zero, decimal.Zero
	for i := range sales {
		summary.SalesRevenue = summary.SalesRevenue.Add(sales[i].TotalAmount)
		summary.CostOfGoodsSold = summary.CostOfGoodsSold.Add(sales[i].TotalCost)
		summary.GrossProfit = summary.GrossProfit.Add(sales[i].TotalProfit)
	}

	if summary.Expenses, err = sumColumn(r.Apply(db.Model(&models.Expense{}), "expense_date"), "amount"); err != nil {
		return nil, fmt.Errorf("failed to total expenses: %w", err)
	}
	summary.NetProfit = summary.GrossProfit.Sub(summary.Expenses)

	if summary.PaymentsReceived, err = sumColumn(r.Apply(db.Model(&models.Payment{}), "payment_date"), "amount"); err != nil {
		return nil, fmt.Errorf("failed to total payments: %w", err)
	}
	if summary.PurchasesTotal, err = sumColumn(r.Apply(db.Model(&models.Purchase{}), "purchase_date"), "total_amount"); err != nil {
		return nil, fmt.Errorf("failed to total purchases: %w", err)
	}
	if summary.Receivables, err = sumColumn(db.Model(&models.Trader{}).Where("balance > 0"), "balance"); err != nil {
		return nil, fmt.Errorf("failed to total receivables: %w", err)
	}

	if summary.LowStock, err = lowStockProducts(db); err != nil {
		return nil, err
	}
	return summary, nil
}

// TraderBalances lists traders with a non-zero balance, largest debt first.
func (s *DashboardService) TraderBalances(ctx context.Context) ([]models.Trader, error) {
	var traders []models.Trader
	if err := s.db.WithContext(ctx).Where("balance <> 0").Order("balance desc, name asc").Find(&traders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch trader balances: %w", err)
	}
	return traders, nil
}

// ExpensesByCategory totals expenses per category over the range.
func (s *DashboardService) ExpensesByCategory(ctx context.Context, r utils.DateRange) ([]CategoryTotal, error) {
	return expenseCategories(s.db.WithContext(ctx), r)
}

// stockValue is computed row by row so the products' decimal costs are multiplied exactly.
func stockValue(db *gorm.DB) (decimal.Decimal, error) {
	var rows []models.Product
	if err := db.Select("id", "stock_quantity", "unit_cost").Where("stock_quantity > 0").Find(&rows).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to value stock: %w", err)
	}

	total := decimal.Zero
	for i := range rows {
		total = total.Add(rows[i].StockValue())
	}
	return total, nil
}

// sumColumn reads the column row by row and adds it up in decimal, since sqlite returns SUM over
// decimal columns as a float.
func sumColumn(query *gorm.DB, column string) (decimal.Decimal, error) {
	var rows []struct{ Value decimal.Decimal }
	if err := query.Select(column + " AS value").Scan(&rows).Error; err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Value)
	}
	return total, nil
}

func rangeToken(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("20060102")
}
