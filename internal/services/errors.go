// internal/services/errors.go
package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tradebook/tradebook-backend/internal/valuation"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicate          = errors.New("record already exists")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInactiveProduct    = errors.New("product is inactive")
	ErrInactiveTrader     = errors.New("trader is inactive")
	ErrInvalidQuantity    = valuation.ErrInvalidQuantity
	ErrInvalidUnitCost    = valuation.ErrInvalidUnitCost
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrOverpayment        = errors.New("payment exceeds remaining amount")
	ErrSaleMismatch       = errors.New("sale does not belong to trader")
	ErrTraderRequired     = errors.New("trader is required for unpaid sales")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrForbidden          = errors.New("operation not permitted")
	ErrChecksumMismatch   = errors.New("stored file does not match its checksum")
)

// translate maps gorm's lookup and constraint errors onto the service sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
