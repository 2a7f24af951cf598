// internal/handlers/expense.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tradebook/tradebook-backend/internal/i18n"
	"github.com/tradebook/tradebook-backend/internal/services"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type ExpenseHandler struct {
	expenseService *services.ExpenseService
}

func NewExpenseHandler(expenseService *services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
	}
}

// GET /expenses
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	r, ok := dateRange(c)
	if !ok {
		return
	}

	expenses, total, err := h.expenseService.ListExpenses(c.Request.Context(), services.ExpenseSearchParams{
		PaginationParams: params,
		DateRange:        r,
	})
	if err != nil {
		respondError(c, err, expenseSubject)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(expenses, total, params))
}

// POST /expenses
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ExpenseRequest
	if !bindJSON(c, &req) {
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, expenseSubject)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyExpenseCreated),
		"expense": expense,
	})
}

// GET /expenses/:id
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	expense, err := h.expenseService.GetExpense(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, expenseSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"expense": expense,
	})
}

// PUT /expenses/:id
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.ExpenseRequest
	if !bindJSON(c, &req) {
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, expenseSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyExpenseUpdated),
		"expense": expense,
	})
}

// DELETE /expenses/:id
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.expenseService.DeleteExpense(c.Request.Context(), id); err != nil {
		respondError(c, err, expenseSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyExpenseDeleted),
	})
}
