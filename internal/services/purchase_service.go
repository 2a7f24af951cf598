// internal/services/purchase_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tradebook/tradebook-backend/internal/cache"
	"github.com/tradebook/tradebook-backend/internal/database"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
	"github.com/tradebook/tradebook-backend/internal/valuation"
)

type PurchaseService struct {
	db    *gorm.DB
	cache *cache.Cache
}

type PurchaseLineRequest struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Quantity  int64           `json:"quantity" validate:"gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

type PurchaseRequest struct {
	TraderID     *uint                 `json:"trader_id,omitempty"`
	PurchaseDate *time.Time            `json:"purchase_date,omitempty"`
	Notes        string                `json:"notes"`
	Items        []PurchaseLineRequest `json:"items" validate:"required,min=1,dive"`
}

type PurchaseSearchParams struct {
	utils.PaginationParams
	utils.DateRange
	TraderID *uint `json:"trader_id,omitempty"`
}

func NewPurchaseService(db *gorm.DB, c *cache.Cache) *PurchaseService {
	return &PurchaseService{db: db, cache: c}
}

// CreatePurchase records a stock-in and folds every line into its product's average cost.
func (s *PurchaseService) CreatePurchase(ctx context.Context, req *PurchaseRequest) (*models.Purchase, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	purchase := &models.Purchase{
		ReferenceNo:  newReference("PO"),
		TraderID:     req.TraderID,
		PurchaseDate: dateOrNow(req.PurchaseDate),
		Notes:        req.Notes,
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if req.TraderID != nil {
			if err := checkActiveTrader(tx, *req.TraderID); err != nil {
				return err
			}
		}
		if err := tx.Create(purchase).Error; err != nil {
			return translate(err)
		}
		return addPurchaseLines(tx, purchase, req.Items)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"purchase_id":  purchase.ID,
		"reference_no": purchase.ReferenceNo,
		"total":        purchase.TotalAmount.String(),
	}).Info("Purchase recorded")

	s.cache.Invalidate(ctx)
	return s.GetPurchase(ctx, purchase.ID)
}

// UpdatePurchase replaces the header and every line of a purchase. Old lines are backed out
// of stock and average cost first, then the new lines are applied.
func (s *PurchaseService) UpdatePurchase(ctx context.Context, id uint, req *PurchaseRequest) (*models.Purchase, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var purchase models.Purchase
		if err := tx.Preload("Details").First(&purchase, id).Error; err != nil {
			return translate(err)
		}
		if req.TraderID != nil {
			if err := checkActiveTrader(tx, *req.TraderID); err != nil {
				return err
			}
		}

		if err := removePurchaseLines(tx, &purchase); err != nil {
			return err
		}

		purchase.TraderID = req.TraderID
		purchase.Notes = req.Notes
		if req.PurchaseDate != nil {
			purchase.PurchaseDate = *req.PurchaseDate
		}
		if err := tx.Model(&purchase).Select("trader_id", "notes", "purchase_date").Updates(&purchase).Error; err != nil {
			return err
		}

		return addPurchaseLines(tx, &purchase, req.Items)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update purchase %d: %w", id, err)
	}

	s.cache.Invalidate(ctx)
	return s.GetPurchase(ctx, id)
}

// DeletePurchase backs the purchase out of stock and re-derives each affected average cost
// from the batches that remain.
func (s *PurchaseService) DeletePurchase(ctx context.Context, id uint) error {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var purchase models.Purchase
		if err := tx.Preload("Details").First(&purchase, id).Error; err != nil {
			return translate(err)
		}
		if err := removePurchaseLines(tx, &purchase); err != nil {
			return err
		}
		return tx.Delete(&purchase).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete purchase %d: %w", id, err)
	}

	s.cache.Invalidate(ctx)
	return nil
}

func (s *PurchaseService) GetPurchase(ctx context.Context, id uint) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.db.WithContext(ctx).
		Preload("Trader").
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Details.Product").
		First(&purchase, id).Error
	if err != nil {
		return nil, fmt.Errorf("purchase %d: %w", id, translate(err))
	}
	return &purchase, nil
}

func (s *PurchaseService) ListPurchases(ctx context.Context, params PurchaseSearchParams) ([]models.Purchase, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Purchase{})
	query = params.DateRange.Apply(query, "purchase_date")

	if params.TraderID != nil {
		query = query.Where("trader_id = ?", *params.TraderID)
	}
	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(reference_no) LIKE ? OR LOWER(notes) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "purchase_date", "total_amount", "reference_no"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var purchases []models.Purchase
	if err := query.Preload("Trader").Find(&purchases).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchases: %w", err)
	}
	return purchases, total, nil
}

func addPurchaseLines(tx *gorm.DB, purchase *models.Purchase, items []PurchaseLineRequest) error {
	total := decimal.Zero

	for _, item := range items {
		lot := valuation.Lot{Quantity: item.Quantity, UnitCost: item.UnitCost}
		if lot.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if lot.UnitCost.IsNegative() {
			return ErrInvalidUnitCost
		}

		product, err := lockProduct(tx, item.ProductID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return fmt.Errorf("product %d: %w", product.ID, ErrInactiveProduct)
		}

		subtotal := decimal.NewFromInt(lot.Quantity).Mul(lot.UnitCost)
		detail := &models.PurchaseDetail{
			PurchaseID: purchase.ID,
			ProductID:  product.ID,
			Quantity:   lot.Quantity,
			UnitCost:   lot.UnitCost,
			Subtotal:   subtotal,
		}
		if err := tx.Create(detail).Error; err != nil {
			return err
		}

		if err := receiveStock(tx, product, lot, &purchase.ID, &detail.ID, purchase.PurchaseDate); err != nil {
			return err
		}
		total = total.Add(subtotal)
	}

	purchase.TotalAmount = total
	return tx.Model(purchase).Update("total_amount", total).Error
}

// removePurchaseLines drops the purchase's batches and details, floors each product's stock
// at zero and recomputes its average over the batches left.
func removePurchaseLines(tx *gorm.DB, purchase *models.Purchase) error {
	removed := make(map[uint]int64)
	var order []uint
	for _, d := range purchase.Details {
		if _, seen := removed[d.ProductID]; !seen {
			order = append(order, d.ProductID)
		}
		removed[d.ProductID] += d.Quantity
	}

	if err := tx.Where("purchase_id = ?", purchase.ID).Delete(&models.InventoryBatch{}).Error; err != nil {
		return fmt.Errorf("failed to remove inventory batches: %w", err)
	}
	if err := tx.Where("purchase_id = ?", purchase.ID).Delete(&models.PurchaseDetail{}).Error; err != nil {
		return fmt.Errorf("failed to remove purchase details: %w", err)
	}

	for _, productID := range order {
		product, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}

		var batches []models.InventoryBatch
		if err := tx.Where("product_id = ?", productID).Find(&batches).Error; err != nil {
			return err
		}
		lots := make([]valuation.Lot, len(batches))
		for i, b := range batches {
			lots[i] = valuation.Lot{Quantity: b.Quantity, UnitCost: b.UnitCost}
		}

		stock := valuation.RemoveStock(product.StockQuantity, removed[productID])
		cost := valuation.AverageCost(lots)
		if err := tx.Model(product).Updates(map[string]interface{}{
			"stock_quantity": stock,
			"unit_cost":      cost,
		}).Error; err != nil {
			return err
		}
	}

	purchase.Details = nil
	return nil
}

// newReference returns a document number such as PO-20260115-3F2A9C1B.
func newReference(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("20060102"), id)
}

func dateOrNow(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return time.Now()
	}
	return *t
}
