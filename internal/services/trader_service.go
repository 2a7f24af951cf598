// internal/services/trader_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tradebook/tradebook-backend/internal/cache"
	"github.com/tradebook/tradebook-backend/internal/database"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type TraderService struct {
	db    *gorm.DB
	cache *cache.Cache
}

type CreateTraderRequest struct {
	Name    string            `json:"name" validate:"required,min=1,max=255"`
	Phone   string            `json:"phone" validate:"max=40"`
	Email   string            `json:"email" validate:"omitempty,email"`
	Address string            `json:"address"`
	Type    models.TraderType `json:"type" validate:"omitempty,oneof=customer supplier both"`
}

type UpdateTraderRequest struct {
	Name     *string            `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Phone    *string            `json:"phone,omitempty" validate:"omitempty,max=40"`
	Email    *string            `json:"email,omitempty" validate:"omitempty,email"`
	Address  *string            `json:"address,omitempty"`
	Type     *models.TraderType `json:"type,omitempty" validate:"omitempty,oneof=customer supplier both"`
	IsActive *bool              `json:"is_active,omitempty"`
}

type TraderSearchParams struct {
	utils.PaginationParams
	Type       models.TraderType `json:"type,omitempty"`
	Active     *bool             `json:"active,omitempty"`
	HasBalance bool              `json:"has_balance,omitempty"`
}

// TraderStatement is what a trader owes and the sales still open against them.
type TraderStatement struct {
	Trader *models.Trader `json:"trader"`
	LedgerTotals
	OpenSales     []models.Sale   `json:"open_sales"`
	OpenAmount    decimal.Decimal `json:"open_amount"`
	LedgerEntries int64           `json:"ledger_entries"`
}

func NewTraderService(db *gorm.DB, c *cache.Cache) *TraderService {
	return &TraderService{db: db, cache: c}
}

func (s *TraderService) CreateTrader(ctx context.Context, req *CreateTraderRequest) (*models.Trader, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	traderType := req.Type
	if traderType == "" {
		traderType = models.TraderTypeCustomer
	}
	trader := &models.Trader{
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Address:  req.Address,
		Type:     traderType,
		IsActive: true,
	}

	if err := s.db.WithContext(ctx).Create(trader).Error; err != nil {
		return nil, fmt.Errorf("failed to create trader: %w", translate(err))
	}

	s.cache.Invalidate(ctx)
	return trader, nil
}

func (s *TraderService) GetTrader(ctx context.Context, id uint) (*models.Trader, error) {
	var trader models.Trader
	if err := s.db.WithContext(ctx).First(&trader, id).Error; err != nil {
		return nil, fmt.Errorf("trader %d: %w", id, translate(err))
	}
	return &trader, nil
}

// UpdateTrader edits contact details only. Totals are owned by the ledger.
func (s *TraderService) UpdateTrader(ctx context.Context, id uint, req *UpdateTraderRequest) (*models.Trader, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updates["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	trader, err := s.GetTrader(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return trader, nil
	}

	if err := s.db.WithContext(ctx).Model(trader).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update trader %d: %w", id, translate(err))
	}

	s.cache.Invalidate(ctx)
	return s.GetTrader(ctx, id)
}

// DeactivateTrader stops new sales and payments for the trader. The ledger is untouched.
func (s *TraderService) DeactivateTrader(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.Trader{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate trader %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("trader %d: %w", id, ErrNotFound)
	}

	s.cache.Invalidate(ctx)
	return nil
}

func (s *TraderService) ListTraders(ctx context.Context, params TraderSearchParams) ([]models.Trader, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Trader{})

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern, pattern)
	}
	if params.Type != "" {
		query = query.Where("type = ? OR type = ?", params.Type, models.TraderTypeBoth)
	}
	if params.Active != nil {
		query = query.Where("is_active = ?", *params.Active)
	}
	if params.HasBalance {
		query = query.Where("balance <> 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count traders: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "name", "balance", "total_sales", "total_payments"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var traders []models.Trader
	if err := query.Find(&traders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch traders: %w", err)
	}
	return traders, total, nil
}

// Ledger pages through a trader's ledger, oldest entry first.
func (s *TraderService) Ledger(ctx context.Context, traderID uint, params utils.PaginationParams) ([]models.TraderFinancial, int64, error) {
	if _, err := s.GetTrader(ctx, traderID); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.TraderFinancial{}).Where("trader_id = ?", traderID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	var entries []models.TraderFinancial
	if err := utils.ApplyPagination(query.Order("id asc"), params).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ledger entries: %w", err)
	}
	return entries, total, nil
}

func (s *TraderService) Statement(ctx context.Context, traderID uint) (*TraderStatement, error) {
	trader, err := s.GetTrader(ctx, traderID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	totals, err := ledgerTotals(db, traderID)
	if err != nil {
		return nil, err
	}

	statement := &TraderStatement{
		Trader:       trader,
		LedgerTotals: totals,
		OpenAmount:   decimal.Zero,
	}

	if err := db.Where("trader_id = ? AND status = ?", traderID, models.SaleStatusPending).
		Order("sale_date asc, id asc").
		Find(&statement.OpenSales).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch open sales: %w", err)
	}
	for _, sale := range statement.OpenSales {
		statement.OpenAmount = statement.OpenAmount.Add(sale.RemainingAmount)
	}

	if err := db.Model(&models.TraderFinancial{}).Where("trader_id = ?", traderID).Count(&statement.LedgerEntries).Error; err != nil {
		return nil, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return statement, nil
}

// RebuildTotals re-derives the cached totals on the trader row from the ledger.
func (s *TraderService) RebuildTotals(ctx context.Context, traderID uint) (*models.Trader, error) {
	var before models.Trader
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.First(&before, traderID).Error; err != nil {
			return translate(err)
		}
		totals, err := ledgerTotals(tx, traderID)
		if err != nil {
			return err
		}
		return storeTotals(tx, traderID, totals)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild trader %d: %w", traderID, err)
	}

	trader, err := s.GetTrader(ctx, traderID)
	if err != nil {
		return nil, err
	}
	if !trader.Balance.Equal(before.Balance) {
		logrus.WithFields(logrus.Fields{
			"trader_id": traderID,
			"cached":    before.Balance.String(),
			"ledger":    trader.Balance.String(),
		}).Warn("Trader balance drifted from ledger, cache rebuilt")
	}

	s.cache.Invalidate(ctx)
	return trader, nil
}
