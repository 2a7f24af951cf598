// internal/models/expense.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Expense struct {
	BaseModel
	ExpenseDate time.Time       `json:"expense_date" gorm:"not null;index"`
	Category    string          `json:"category" gorm:"size:100;index"`
	Description string          `json:"description" gorm:"size:500;not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(15,4);not null"`
	DeletedAt   gorm.DeletedAt  `json:"deleted_at,omitempty" gorm:"index"`
}
