// internal/models/transaction.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Purchase struct {
	BaseModel
	ReferenceNo  string          `json:"reference_no" gorm:"size:40;uniqueIndex;not null"`
	TraderID     *uint           `json:"trader_id" gorm:"index"`
	PurchaseDate time.Time       `json:"purchase_date" gorm:"not null;index"`
	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:decimal(15,4);not null;default:0"`
	Notes        string          `json:"notes" gorm:"type:text"`

	// Relationships
	Trader  *Trader          `json:"trader,omitempty" gorm:"foreignKey:TraderID"`
	Details []PurchaseDetail `json:"details,omitempty" gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
}

type PurchaseDetail struct {
	BaseModel
	PurchaseID uint            `json:"purchase_id" gorm:"not null;index"`
	ProductID  uint            `json:"product_id" gorm:"not null;index"`
	Quantity   int64           `json:"quantity" gorm:"not null"`
	UnitCost   decimal.Decimal `json:"unit_cost" gorm:"type:decimal(15,4);not null"`
	Subtotal   decimal.Decimal `json:"subtotal" gorm:"type:decimal(15,4);not null"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

type Sale struct {
	BaseModel
	InvoiceNo       string          `json:"invoice_no" gorm:"size:40;uniqueIndex;not null"`
	TraderID        *uint           `json:"trader_id" gorm:"index"`
	SaleDate        time.Time       `json:"sale_date" gorm:"not null;index"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(15,4);not null;default:0"`
	TotalCost       decimal.Decimal `json:"total_cost" gorm:"type:decimal(15,4);not null;default:0"`
	TotalProfit     decimal.Decimal `json:"total_profit" gorm:"type:decimal(15,4);not null;default:0"`
	PaidAmount      decimal.Decimal `json:"paid_amount" gorm:"type:decimal(15,4);not null;default:0"`
	RemainingAmount decimal.Decimal `json:"remaining_amount" gorm:"type:decimal(15,4);not null;default:0"`
	Status          SaleStatus      `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Notes           string          `json:"notes" gorm:"type:text"`

	// Relationships
	Trader   *Trader      `json:"trader,omitempty" gorm:"foreignKey:TraderID"`
	Details  []SaleDetail `json:"details,omitempty" gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Payments []Payment    `json:"payments,omitempty" gorm:"foreignKey:SaleID"`
}

// ApplySettlement sets paid/remaining amounts and derives the status flag.
func (s *Sale) ApplySettlement(paid decimal.Decimal) {
	s.PaidAmount = paid
	s.RemainingAmount = s.TotalAmount.Sub(paid)
	if s.RemainingAmount.Sign() <= 0 {
		s.RemainingAmount = decimal.Zero
		s.Status = SaleStatusPaid
	} else {
		s.Status = SaleStatusPending
	}
}

type SaleDetail struct {
	BaseModel
	SaleID    uint            `json:"sale_id" gorm:"not null;index"`
	ProductID uint            `json:"product_id" gorm:"not null;index"`
	Quantity  int64           `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,4);not null"`
	UnitCost  decimal.Decimal `json:"unit_cost" gorm:"type:decimal(15,4);not null"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:decimal(15,4);not null"`
	Cost      decimal.Decimal `json:"cost" gorm:"type:decimal(15,4);not null"`
	Profit    decimal.Decimal `json:"profit" gorm:"type:decimal(15,4);not null"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

type Payment struct {
	BaseModel
	TraderID    uint            `json:"trader_id" gorm:"not null;index"`
	SaleID      *uint           `json:"sale_id" gorm:"index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(15,4);not null"`
	PaymentDate time.Time       `json:"payment_date" gorm:"not null;index"`
	Method      PaymentMethod   `json:"method" gorm:"type:varchar(20);not null;default:'cash'"`
	Notes       string          `json:"notes" gorm:"type:text"`

	// Relationships
	Trader *Trader `json:"trader,omitempty" gorm:"foreignKey:TraderID"`
	Sale   *Sale   `json:"sale,omitempty" gorm:"foreignKey:SaleID"`
}
