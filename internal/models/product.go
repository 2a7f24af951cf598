// internal/models/product.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Code              string          `json:"code" gorm:"size:64;uniqueIndex;not null"`
	Name              string          `json:"name" gorm:"size:255;not null"`
	Category          string          `json:"category" gorm:"size:100;index"`
	Description       string          `json:"description" gorm:"type:text"`
	StockQuantity     int64           `json:"stock_quantity" gorm:"not null;default:0"`
	UnitCost          decimal.Decimal `json:"unit_cost" gorm:"type:decimal(15,4);not null;default:0"`
	UnitPrice         decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,4);not null;default:0"`
	LowStockThreshold int64           `json:"low_stock_threshold" gorm:"not null;default:0"`
	IsActive          bool            `json:"is_active" gorm:"not null;default:true;index"`
}

// StockValue is the inventory valuation of the product at its current average cost.
func (p *Product) StockValue() decimal.Decimal {
	return p.UnitCost.Mul(decimal.NewFromInt(p.StockQuantity))
}

// InventoryBatch records one stock-in event. Average cost recomputation after a purchase is
// removed sums over the batches that remain.
type InventoryBatch struct {
	BaseModel
	ProductID        uint            `json:"product_id" gorm:"not null;index"`
	PurchaseID       *uint           `json:"purchase_id" gorm:"index"`
	PurchaseDetailID *uint           `json:"purchase_detail_id" gorm:"index"`
	Quantity         int64           `json:"quantity" gorm:"not null"`
	UnitCost         decimal.Decimal `json:"unit_cost" gorm:"type:decimal(15,4);not null"`
	ReceivedAt       time.Time       `json:"received_at" gorm:"not null"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
