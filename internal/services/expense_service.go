// internal/services/expense_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradebook/tradebook-backend/internal/cache"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type ExpenseService struct {
	db    *gorm.DB
	cache *cache.Cache
}

type ExpenseRequest struct {
	ExpenseDate *time.Time      `json:"expense_date,omitempty"`
	Category    string          `json:"category" validate:"max=100"`
	Description string          `json:"description" validate:"required,min=1,max=500"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
}

type ExpenseSearchParams struct {
	utils.PaginationParams
	utils.DateRange
}

func NewExpenseService(db *gorm.DB, c *cache.Cache) *ExpenseService {
	return &ExpenseService{db: db, cache: c}
}

func (s *ExpenseService) CreateExpense(ctx context.Context, req *ExpenseRequest) (*models.Expense, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	expense := &models.Expense{
		ExpenseDate: dateOrNow(req.ExpenseDate),
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
	}
	if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	s.cache.Invalidate(ctx)
	return expense, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id uint) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.WithContext(ctx).First(&expense, id).Error; err != nil {
		return nil, fmt.Errorf("expense %d: %w", id, translate(err))
	}
	return &expense, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, id uint, req *ExpenseRequest) (*models.Expense, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	expense, err := s.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	expense.Category = strings.TrimSpace(req.Category)
	expense.Description = strings.TrimSpace(req.Description)
	expense.Amount = req.Amount
	if req.ExpenseDate != nil {
		expense.ExpenseDate = *req.ExpenseDate
	}

	if err := s.db.WithContext(ctx).Model(expense).
		Select("category", "description", "amount", "expense_date").
		Updates(expense).Error; err != nil {
		return nil, fmt.Errorf("failed to update expense %d: %w", id, err)
	}

	s.cache.Invalidate(ctx)
	return expense, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Expense{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete expense %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}

	s.cache.Invalidate(ctx)
	return nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, params ExpenseSearchParams) ([]models.Expense, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Expense{})
	query = params.DateRange.Apply(query, "expense_date")

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Search != "" {
		query = query.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(params.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "expense_date", "amount", "category"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var expenses []models.Expense
	if err := query.Find(&expenses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch expenses: %w", err)
	}
	return expenses, total, nil
}

// expenseCategories is used by the report workbook.
func expenseCategories(db *gorm.DB, r utils.DateRange) ([]CategoryTotal, error) {
	var expenses []models.Expense
	err := r.Apply(db.Model(&models.Expense{}), "expense_date").
		Select("category", "amount").
		Order("category asc").
		Find(&expenses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to total expenses by category: %w", err)
	}

	// rows arrive sorted by category, so each group is contiguous
	var rows []CategoryTotal
	for i := range expenses {
		if n := len(rows); n > 0 && rows[n-1].Category == expenses[i].Category {
			rows[n-1].Total = rows[n-1].Total.Add(expenses[i].Amount)
			continue
		}
		rows = append(rows, CategoryTotal{Category: expenses[i].Category, Total: expenses[i].Amount})
	}
	return rows, nil
}
