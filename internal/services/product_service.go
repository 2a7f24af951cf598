// internal/services/product_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradebook/tradebook-backend/internal/cache"
	"github.com/tradebook/tradebook-backend/internal/database"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
	"github.com/tradebook/tradebook-backend/internal/valuation"
)

type ProductService struct {
	db                *gorm.DB
	cache             *cache.Cache
	lowStockThreshold int64
}

type CreateProductRequest struct {
	Code              string          `json:"code" validate:"required,product_code"`
	Name              string          `json:"name" validate:"required,min=1,max=255"`
	Category          string          `json:"category" validate:"max=100"`
	Description       string          `json:"description"`
	UnitPrice         decimal.Decimal `json:"unit_price" validate:"gte=0"`
	UnitCost          decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	InitialStock      int64           `json:"initial_stock" validate:"gte=0"`
	LowStockThreshold *int64          `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
}

// UpdateProductRequest deliberately has no stock or cost fields; both only move through
// purchases and sales.
type UpdateProductRequest struct {
	Code              *string          `json:"code,omitempty" validate:"omitempty,product_code"`
	Name              *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Category          *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Description       *string          `json:"description,omitempty"`
	UnitPrice         *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	LowStockThreshold *int64           `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	IsActive          *bool            `json:"is_active,omitempty"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	Active   *bool `json:"active,omitempty"`
	LowStock bool  `json:"low_stock,omitempty"`
}

func NewProductService(db *gorm.DB, c *cache.Cache, lowStockThreshold int64) *ProductService {
	return &ProductService{
		db:                db,
		cache:             c,
		lowStockThreshold: lowStockThreshold,
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	threshold := s.lowStockThreshold
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}

	product := &models.Product{
		Code:              strings.TrimSpace(req.Code),
		Name:              strings.TrimSpace(req.Name),
		Category:          strings.TrimSpace(req.Category),
		Description:       req.Description,
		UnitPrice:         req.UnitPrice,
		LowStockThreshold: threshold,
		IsActive:          true,
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return translate(err)
		}
		if req.InitialStock == 0 {
			return nil
		}
		return receiveStock(tx, product, valuation.Lot{Quantity: req.InitialStock, UnitCost: req.UnitCost}, nil, nil, time.Now())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.cache.Invalidate(ctx)
	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, fmt.Errorf("product %d: %w", id, translate(err))
	}
	return &product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uint, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var product models.Product
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.First(&product, id).Error; err != nil {
			return translate(err)
		}

		updates := map[string]interface{}{}
		if req.Code != nil {
			updates["code"] = strings.TrimSpace(*req.Code)
		}
		if req.Name != nil {
			updates["name"] = strings.TrimSpace(*req.Name)
		}
		if req.Category != nil {
			updates["category"] = strings.TrimSpace(*req.Category)
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.UnitPrice != nil {
			updates["unit_price"] = *req.UnitPrice
		}
		if req.LowStockThreshold != nil {
			updates["low_stock_threshold"] = *req.LowStockThreshold
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&product).Updates(updates).Error; err != nil {
			return translate(err)
		}
		return tx.First(&product, id).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}

	s.cache.Invalidate(ctx)
	return &product, nil
}

// DeactivateProduct hides the product from new purchases and sales. History is kept.
func (s *ProductService) DeactivateProduct(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate product %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}

	s.cache.Invalidate(ctx)
	return nil
}

func (s *ProductService) SearchProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Active != nil {
		query = query.Where("is_active = ?", *params.Active)
	}
	if params.LowStock {
		query = query.Where("stock_quantity <= low_stock_threshold")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	allowedSortFields := []string{"created_at", "name", "code", "category", "stock_quantity", "unit_cost", "unit_price"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return products, total, nil
}

// LowStockProducts lists active products at or below their threshold, emptiest first.
func (s *ProductService) LowStockProducts(ctx context.Context) ([]models.Product, error) {
	return lowStockProducts(s.db.WithContext(ctx))
}

func lowStockProducts(db *gorm.DB) ([]models.Product, error) {
	var products []models.Product
	err := db.Where("is_active = ? AND stock_quantity <= low_stock_threshold", true).
		Order("stock_quantity asc, name asc").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch low stock products: %w", err)
	}
	return products, nil
}

// lockProduct loads a product for update inside tx.
func lockProduct(tx *gorm.DB, id uint) (*models.Product, error) {
	var product models.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
		return nil, fmt.Errorf("product %d: %w", id, translate(err))
	}
	return &product, nil
}

// receiveStock folds a lot into the product's running average, records the batch and
// persists the new stock and cost.
func receiveStock(tx *gorm.DB, product *models.Product, lot valuation.Lot, purchaseID, detailID *uint, receivedAt time.Time) error {
	stock, cost, err := valuation.AddStock(product.StockQuantity, product.UnitCost, lot)
	if err != nil {
		return err
	}

	batch := &models.InventoryBatch{
		ProductID:        product.ID,
		PurchaseID:       purchaseID,
		PurchaseDetailID: detailID,
		Quantity:         lot.Quantity,
		UnitCost:         lot.UnitCost,
		ReceivedAt:       receivedAt,
	}
	if err := tx.Create(batch).Error; err != nil {
		return fmt.Errorf("failed to record inventory batch: %w", err)
	}

	product.StockQuantity = stock
	product.UnitCost = cost
	return tx.Model(product).Updates(map[string]interface{}{
		"stock_quantity": stock,
		"unit_cost":      cost,
	}).Error
}
