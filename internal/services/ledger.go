// internal/services/ledger.go
package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/valuation"
)

// LedgerTotals are the trader-wide sums over the ledger.
type LedgerTotals struct {
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalPayments decimal.Decimal `json:"total_payments"`
	Balance       decimal.Decimal `json:"balance"`
}

// ledgerEntry describes one balance-affecting event before it is written.
type ledgerEntry struct {
	Type          models.LedgerEntryType
	SaleID        *uint
	PaymentID     *uint
	SaleAmount    decimal.Decimal
	PaymentAmount decimal.Decimal
	Description   string
}

// appendLedger is the only writer of trader totals. It locks the trader, sums the
// existing ledger, appends the entry with its running totals and overwrites the
// trader's cached columns with the same numbers.
func appendLedger(tx *gorm.DB, traderID uint, entry ledgerEntry) (*models.TraderFinancial, error) {
	var trader models.Trader
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trader, traderID).Error; err != nil {
		return nil, fmt.Errorf("trader %d: %w", traderID, translate(err))
	}

	totals, err := ledgerTotals(tx, traderID)
	if err != nil {
		return nil, err
	}
	totals.TotalSales = totals.TotalSales.Add(entry.SaleAmount)
	totals.TotalPayments = totals.TotalPayments.Add(entry.PaymentAmount)
	totals.Balance = valuation.Balance(totals.TotalSales, totals.TotalPayments)

	row := &models.TraderFinancial{
		TraderID:           traderID,
		EntryType:          entry.Type,
		SaleID:             entry.SaleID,
		PaymentID:          entry.PaymentID,
		SaleAmount:         entry.SaleAmount,
		PaymentAmount:      entry.PaymentAmount,
		TotalSalesAfter:    totals.TotalSales,
		TotalPaymentsAfter: totals.TotalPayments,
		BalanceAfter:       totals.Balance,
		Description:        entry.Description,
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := storeTotals(tx, traderID, totals); err != nil {
		return nil, err
	}
	return row, nil
}

// ledgerTotals adds the entries up in decimal. SQL SUM over the decimal columns comes back
// as a float on sqlite.
func ledgerTotals(tx *gorm.DB, traderID uint) (LedgerTotals, error) {
	var entries []models.TraderFinancial
	err := tx.Model(&models.TraderFinancial{}).
		Select("sale_amount", "payment_amount").
		Where("trader_id = ?", traderID).
		Find(&entries).Error
	if err != nil {
		return LedgerTotals{}, fmt.Errorf("failed to sum ledger for trader %d: %w", traderID, err)
	}

	sales, payments := decimal.Zero, decimal.Zero
	for i := range entries {
		sales = sales.Add(entries[i].SaleAmount)
		payments = payments.Add(entries[i].PaymentAmount)
	}

	return LedgerTotals{
		TotalSales:    sales,
		TotalPayments: payments,
		Balance:       valuation.Balance(sales, payments),
	}, nil
}

func storeTotals(tx *gorm.DB, traderID uint, totals LedgerTotals) error {
	err := tx.Model(&models.Trader{}).Where("id = ?", traderID).Updates(map[string]interface{}{
		"total_sales":    totals.TotalSales,
		"total_payments": totals.TotalPayments,
		"balance":        totals.Balance,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update trader %d totals: %w", traderID, err)
	}
	return nil
}
