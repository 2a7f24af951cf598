// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONB stores free-form payloads; jsonb on postgres, text on sqlite.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"
)

type TraderType string

const (
	TraderTypeCustomer TraderType = "customer"
	TraderTypeSupplier TraderType = "supplier"
	TraderTypeBoth     TraderType = "both"
)

type SaleStatus string

const (
	SaleStatusPaid    SaleStatus = "paid"
	SaleStatusPending SaleStatus = "pending"
)

type LedgerEntryType string

const (
	LedgerEntrySale            LedgerEntryType = "sale"
	LedgerEntrySaleReversal    LedgerEntryType = "sale_reversal"
	LedgerEntryPayment         LedgerEntryType = "payment"
	LedgerEntryPaymentReversal LedgerEntryType = "payment_reversal"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodBank   PaymentMethod = "bank_transfer"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodCheque PaymentMethod = "cheque"
	PaymentMethodOther  PaymentMethod = "other"
)
