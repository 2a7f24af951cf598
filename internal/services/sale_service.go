// internal/services/sale_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tradebook/tradebook-backend/internal/cache"
	"github.com/tradebook/tradebook-backend/internal/database"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
	"github.com/tradebook/tradebook-backend/internal/valuation"
)

type SaleService struct {
	db    *gorm.DB
	cache *cache.Cache
}

type SaleLineRequest struct {
	ProductID uint             `json:"product_id" validate:"required"`
	Quantity  int64            `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
}

type CreateSaleRequest struct {
	TraderID   *uint                `json:"trader_id,omitempty"`
	SaleDate   *time.Time           `json:"sale_date,omitempty"`
	PaidAmount decimal.Decimal      `json:"paid_amount" validate:"gte=0"`
	Method     models.PaymentMethod `json:"payment_method,omitempty" validate:"omitempty,oneof=cash bank_transfer card cheque other"`
	Notes      string               `json:"notes"`
	Items      []SaleLineRequest    `json:"items" validate:"required,min=1,dive"`
}

type SaleSearchParams struct {
	utils.PaginationParams
	utils.DateRange
	TraderID *uint              `json:"trader_id,omitempty"`
	Status   *models.SaleStatus `json:"status,omitempty"`
}

func NewSaleService(db *gorm.DB, c *cache.Cache) *SaleService {
	return &SaleService{db: db, cache: c}
}

// CreateSale snapshots each product's average cost onto its line, takes the quantity out of
// stock and posts the sale (and any amount paid up front) to the trader's ledger. If any
// product is short the whole sale is rejected.
func (s *SaleService) CreateSale(ctx context.Context, req *CreateSaleRequest) (*models.Sale, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.PaidAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	sale := &models.Sale{
		InvoiceNo: newReference("INV"),
		TraderID:  req.TraderID,
		SaleDate:  dateOrNow(req.SaleDate),
		Notes:     req.Notes,
		Status:    models.SaleStatusPending,
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if req.TraderID != nil {
			if err := checkActiveTrader(tx, *req.TraderID); err != nil {
				return err
			}
		}

		products, err := reserveStock(tx, req.Items)
		if err != nil {
			return err
		}

		if err := tx.Create(sale).Error; err != nil {
			return translate(err)
		}

		total, cost, profit := decimal.Zero, decimal.Zero, decimal.Zero
		for _, item := range req.Items {
			product := products[item.ProductID]
			price := product.UnitPrice
			if item.UnitPrice != nil {
				price = *item.UnitPrice
			}

			line := valuation.PriceLine(item.Quantity, price, product.UnitCost)
			detail := &models.SaleDetail{
				SaleID:    sale.ID,
				ProductID: product.ID,
				Quantity:  item.Quantity,
				UnitPrice: price,
				UnitCost:  product.UnitCost,
				Subtotal:  line.Subtotal,
				Cost:      line.Cost,
				Profit:    line.Profit,
			}
			if err := tx.Create(detail).Error; err != nil {
				return err
			}

			total = total.Add(line.Subtotal)
			cost = cost.Add(line.Cost)
			profit = profit.Add(line.Profit)
		}

		for _, product := range products {
			if err := tx.Model(product).Update("stock_quantity", product.StockQuantity).Error; err != nil {
				return err
			}
		}

		if req.PaidAmount.GreaterThan(total) {
			return fmt.Errorf("paid %s of %s: %w", req.PaidAmount, total, ErrOverpayment)
		}
		if req.TraderID == nil && req.PaidAmount.LessThan(total) {
			return ErrTraderRequired
		}

		sale.TotalAmount = total
		sale.TotalCost = cost
		sale.TotalProfit = profit
		sale.ApplySettlement(req.PaidAmount)
		if err := tx.Model(sale).Select("total_amount", "total_cost", "total_profit", "paid_amount", "remaining_amount", "status").Updates(sale).Error; err != nil {
			return err
		}

		if sale.TraderID == nil {
			return nil
		}
		return postSale(tx, sale, req.Method)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"sale_id":    sale.ID,
		"invoice_no": sale.InvoiceNo,
		"total":      sale.TotalAmount.String(),
		"status":     sale.Status,
	}).Info("Sale recorded")

	s.cache.Invalidate(ctx)
	return s.GetSale(ctx, sale.ID)
}

// DeleteSale puts the sold quantities back in stock at the current average cost, removes
// the payments taken against the sale and reverses both in the trader's ledger.
func (s *SaleService) DeleteSale(ctx context.Context, id uint) error {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var sale models.Sale
		if err := tx.Preload("Details").Preload("Payments").First(&sale, id).Error; err != nil {
			return translate(err)
		}

		for _, d := range sale.Details {
			product, err := lockProduct(tx, d.ProductID)
			if err != nil {
				return err
			}
			if err := tx.Model(product).Update("stock_quantity", product.StockQuantity+d.Quantity).Error; err != nil {
				return err
			}
		}

		for i := range sale.Payments {
			payment := sale.Payments[i]
			if err := tx.Delete(&payment).Error; err != nil {
				return err
			}
			_, err := appendLedger(tx, payment.TraderID, ledgerEntry{
				Type:          models.LedgerEntryPaymentReversal,
				SaleID:        &sale.ID,
				PaymentID:     &payment.ID,
				PaymentAmount: payment.Amount.Neg(),
				Description:   fmt.Sprintf("Payment reversed with sale %s", sale.InvoiceNo),
			})
			if err != nil {
				return err
			}
		}

		if sale.TraderID != nil {
			_, err := appendLedger(tx, *sale.TraderID, ledgerEntry{
				Type:        models.LedgerEntrySaleReversal,
				SaleID:      &sale.ID,
				SaleAmount:  sale.TotalAmount.Neg(),
				Description: fmt.Sprintf("Sale %s deleted", sale.InvoiceNo),
			})
			if err != nil {
				return err
			}
		}

		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Sale{}, sale.ID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete sale %d: %w", id, err)
	}

	s.cache.Invalidate(ctx)
	return nil
}

func (s *SaleService) GetSale(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.WithContext(ctx).
		Preload("Trader").
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Details.Product").
		Preload("Payments").
		First(&sale, id).Error
	if err != nil {
		return nil, fmt.Errorf("sale %d: %w", id, translate(err))
	}
	return &sale, nil
}

func (s *SaleService) ListSales(ctx context.Context, params SaleSearchParams) ([]models.Sale, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Sale{})
	query = params.DateRange.Apply(query, "sale_date")

	if params.TraderID != nil {
		query = query.Where("trader_id = ?", *params.TraderID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(invoice_no) LIKE ? OR LOWER(notes) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "sale_date", "total_amount", "remaining_amount", "invoice_no"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var sales []models.Sale
	if err := query.Preload("Trader").Find(&sales).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch sales: %w", err)
	}
	return sales, total, nil
}

// reserveStock locks every product on the sale and takes the aggregated quantity out of the
// in-memory stock. Nothing is written; the caller persists the returned products.
func reserveStock(tx *gorm.DB, items []SaleLineRequest) (map[uint]*models.Product, error) {
	products := make(map[uint]*models.Product)
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		product, ok := products[item.ProductID]
		if !ok {
			var err error
			if product, err = lockProduct(tx, item.ProductID); err != nil {
				return nil, err
			}
			if !product.IsActive {
				return nil, fmt.Errorf("product %d: %w", product.ID, ErrInactiveProduct)
			}
			products[item.ProductID] = product
		}
		if item.Quantity > product.StockQuantity {
			return nil, fmt.Errorf("product %s has %d left: %w", product.Code, product.StockQuantity, ErrInsufficientStock)
		}
		product.StockQuantity -= item.Quantity
	}
	return products, nil
}

// postSale writes the sale and its up-front payment to the trader's ledger.
func postSale(tx *gorm.DB, sale *models.Sale, method models.PaymentMethod) error {
	traderID := *sale.TraderID
	_, err := appendLedger(tx, traderID, ledgerEntry{
		Type:        models.LedgerEntrySale,
		SaleID:      &sale.ID,
		SaleAmount:  sale.TotalAmount,
		Description: fmt.Sprintf("Sale %s", sale.InvoiceNo),
	})
	if err != nil {
		return err
	}

	if !sale.PaidAmount.IsPositive() {
		return nil
	}

	if method == "" {
		method = models.PaymentMethodCash
	}
	payment := &models.Payment{
		TraderID:    traderID,
		SaleID:      &sale.ID,
		Amount:      sale.PaidAmount,
		PaymentDate: sale.SaleDate,
		Method:      method,
		Notes:       "Paid at sale " + sale.InvoiceNo,
	}
	if err := tx.Create(payment).Error; err != nil {
		return err
	}

	_, err = appendLedger(tx, traderID, ledgerEntry{
		Type:          models.LedgerEntryPayment,
		SaleID:        &sale.ID,
		PaymentID:     &payment.ID,
		PaymentAmount: payment.Amount,
		Description:   fmt.Sprintf("Payment for sale %s", sale.InvoiceNo),
	})
	return err
}

func checkActiveTrader(tx *gorm.DB, traderID uint) error {
	var trader models.Trader
	if err := tx.First(&trader, traderID).Error; err != nil {
		return fmt.Errorf("trader %d: %w", traderID, translate(err))
	}
	if !trader.IsActive {
		return fmt.Errorf("trader %d: %w", traderID, ErrInactiveTrader)
	}
	return nil
}
