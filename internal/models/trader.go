// internal/models/trader.go
package models

import (
	"github.com/shopspring/decimal"
)

// Trader is a counterparty. TotalSales, TotalPayments and Balance are a cache of the
// TraderFinancial ledger sums and are only ever overwritten from them.
type Trader struct {
	BaseModel
	Name          string          `json:"name" gorm:"size:255;not null;index"`
	Phone         string          `json:"phone" gorm:"size:40"`
	Email         string          `json:"email" gorm:"size:255"`
	Address       string          `json:"address" gorm:"type:text"`
	Type          TraderType      `json:"type" gorm:"type:varchar(20);not null;default:'customer';index"`
	IsActive      bool            `json:"is_active" gorm:"not null;default:true;index"`
	TotalSales    decimal.Decimal `json:"total_sales" gorm:"type:decimal(15,4);not null;default:0"`
	TotalPayments decimal.Decimal `json:"total_payments" gorm:"type:decimal(15,4);not null;default:0"`
	Balance       decimal.Decimal `json:"balance" gorm:"type:decimal(15,4);not null;default:0"`
}

// TraderFinancial is one append-only ledger row.
type TraderFinancial struct {
	BaseModel
	TraderID           uint            `json:"trader_id" gorm:"not null;index"`
	EntryType          LedgerEntryType `json:"entry_type" gorm:"type:varchar(20);not null;index"`
	SaleID             *uint           `json:"sale_id" gorm:"index"`
	PaymentID          *uint           `json:"payment_id" gorm:"index"`
	SaleAmount         decimal.Decimal `json:"sale_amount" gorm:"type:decimal(15,4);not null;default:0"`
	PaymentAmount      decimal.Decimal `json:"payment_amount" gorm:"type:decimal(15,4);not null;default:0"`
	TotalSalesAfter    decimal.Decimal `json:"total_sales_after" gorm:"type:decimal(15,4);not null;default:0"`
	TotalPaymentsAfter decimal.Decimal `json:"total_payments_after" gorm:"type:decimal(15,4);not null;default:0"`
	BalanceAfter       decimal.Decimal `json:"balance_after" gorm:"type:decimal(15,4);not null;default:0"`
	Description        string          `json:"description" gorm:"size:500"`
}
