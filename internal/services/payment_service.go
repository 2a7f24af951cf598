// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradebook/tradebook-backend/internal/cache"
	"github.com/tradebook/tradebook-backend/internal/database"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type PaymentService struct {
	db    *gorm.DB
	cache *cache.Cache
}

type CreatePaymentRequest struct {
	TraderID    uint                 `json:"trader_id" validate:"required"`
	SaleID      *uint                `json:"sale_id,omitempty"`
	Amount      decimal.Decimal      `json:"amount" validate:"gt=0"`
	PaymentDate *time.Time           `json:"payment_date,omitempty"`
	Method      models.PaymentMethod `json:"method,omitempty" validate:"omitempty,oneof=cash bank_transfer card cheque other"`
	Notes       string               `json:"notes"`
}

type PaymentSearchParams struct {
	utils.PaginationParams
	utils.DateRange
	TraderID *uint                `json:"trader_id,omitempty"`
	SaleID   *uint                `json:"sale_id,omitempty"`
	Method   models.PaymentMethod `json:"method,omitempty"`
}

func NewPaymentService(db *gorm.DB, c *cache.Cache) *PaymentService {
	return &PaymentService{db: db, cache: c}
}

// CreatePayment records money received from a trader. When the payment settles a sale it
// may not exceed what is still owed on that sale.
func (s *PaymentService) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*models.Payment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	method := req.Method
	if method == "" {
		method = models.PaymentMethodCash
	}
	payment := &models.Payment{
		TraderID:    req.TraderID,
		SaleID:      req.SaleID,
		Amount:      req.Amount,
		PaymentDate: dateOrNow(req.PaymentDate),
		Method:      method,
		Notes:       req.Notes,
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := checkActiveTrader(tx, req.TraderID); err != nil {
			return err
		}

		description := "Payment received"
		if req.SaleID != nil {
			sale, err := lockSale(tx, *req.SaleID)
			if err != nil {
				return err
			}
			if sale.TraderID == nil || *sale.TraderID != req.TraderID {
				return fmt.Errorf("sale %d: %w", sale.ID, ErrSaleMismatch)
			}
			if req.Amount.GreaterThan(sale.RemainingAmount) {
				return fmt.Errorf("sale %s has %s remaining: %w", sale.InvoiceNo, sale.RemainingAmount, ErrOverpayment)
			}
			if err := settleSale(tx, sale, sale.PaidAmount.Add(req.Amount)); err != nil {
				return err
			}
			description = fmt.Sprintf("Payment for sale %s", sale.InvoiceNo)
		}

		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		_, err := appendLedger(tx, req.TraderID, ledgerEntry{
			Type:          models.LedgerEntryPayment,
			SaleID:        req.SaleID,
			PaymentID:     &payment.ID,
			PaymentAmount: payment.Amount,
			Description:   description,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"trader_id":  payment.TraderID,
		"amount":     payment.Amount.String(),
	}).Info("Payment recorded")

	s.cache.Invalidate(ctx)
	return s.GetPayment(ctx, payment.ID)
}

// DeletePayment removes a payment, reopens the amount on its sale and reverses it in the ledger.
func (s *PaymentService) DeletePayment(ctx context.Context, id uint) error {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, id).Error; err != nil {
			return translate(err)
		}

		if payment.SaleID != nil {
			sale, err := lockSale(tx, *payment.SaleID)
			if err != nil {
				return err
			}
			paid := sale.PaidAmount.Sub(payment.Amount)
			if paid.IsNegative() {
				paid = decimal.Zero
			}
			if err := settleSale(tx, sale, paid); err != nil {
				return err
			}
		}

		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}

		_, err := appendLedger(tx, payment.TraderID, ledgerEntry{
			Type:          models.LedgerEntryPaymentReversal,
			SaleID:        payment.SaleID,
			PaymentID:     &payment.ID,
			PaymentAmount: payment.Amount.Neg(),
			Description:   fmt.Sprintf("Payment #%d deleted", payment.ID),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete payment %d: %w", id, err)
	}

	s.cache.Invalidate(ctx)
	return nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Preload("Trader").Preload("Sale").First(&payment, id).Error; err != nil {
		return nil, fmt.Errorf("payment %d: %w", id, translate(err))
	}
	return &payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, params PaymentSearchParams) ([]models.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Payment{})
	query = params.DateRange.Apply(query, "payment_date")

	if params.TraderID != nil {
		query = query.Where("trader_id = ?", *params.TraderID)
	}
	if params.SaleID != nil {
		query = query.Where("sale_id = ?", *params.SaleID)
	}
	if params.Method != "" {
		query = query.Where("method = ?", params.Method)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "payment_date", "amount"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var payments []models.Payment
	if err := query.Preload("Trader").Find(&payments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payments: %w", err)
	}
	return payments, total, nil
}

func lockSale(tx *gorm.DB, id uint) (*models.Sale, error) {
	var sale models.Sale
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, id).Error; err != nil {
		return nil, fmt.Errorf("sale %d: %w", id, translate(err))
	}
	return &sale, nil
}

func settleSale(tx *gorm.DB, sale *models.Sale, paid decimal.Decimal) error {
	sale.ApplySettlement(paid)
	return tx.Model(sale).Select("paid_amount", "remaining_amount", "status").Updates(sale).Error
}
