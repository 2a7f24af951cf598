// internal/handlers/trader.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tradebook/tradebook-backend/internal/i18n"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/services"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type TraderHandler struct {
	traderService  *services.TraderService
	paymentService *services.PaymentService
}

func NewTraderHandler(traderService *services.TraderService, paymentService *services.PaymentService) *TraderHandler {
	return &TraderHandler{
		traderService:  traderService,
		paymentService: paymentService,
	}
}

// GET /traders
func (h *TraderHandler) GetTraders(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.TraderSearchParams{
		PaginationParams: params,
		Type:             models.TraderType(c.Query("type")),
		Active:           queryBool(c, "active"),
	}
	if hasBalance := queryBool(c, "has_balance"); hasBalance != nil {
		searchParams.HasBalance = *hasBalance
	}

	traders, total, err := h.traderService.ListTraders(c.Request.Context(), searchParams)
	if err != nil {
		respondError(c, err, traderSubject)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(traders, total, params))
}

// POST /traders
func (h *TraderHandler) CreateTrader(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateTraderRequest
	if !bindJSON(c, &req) {
		return
	}

	trader, err := h.traderService.CreateTrader(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, traderSubject)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTraderCreated),
		"trader":  trader,
	})
}

// GET /traders/:id
func (h *TraderHandler) GetTrader(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	trader, err := h.traderService.GetTrader(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, traderSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"trader": trader,
	})
}

// PUT /traders/:id
func (h *TraderHandler) UpdateTrader(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateTraderRequest
	if !bindJSON(c, &req) {
		return
	}

	trader, err := h.traderService.UpdateTrader(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, traderSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTraderUpdated),
		"trader":  trader,
	})
}

// DELETE /traders/:id
func (h *TraderHandler) DeactivateTrader(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.traderService.DeactivateTrader(c.Request.Context(), id); err != nil {
		respondError(c, err, traderSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTraderDeactivated),
	})
}

// POST /traders/:id/payments
func (h *TraderHandler) RecordPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	req.TraderID = id

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, traderSubject)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentRecorded),
		"payment": payment,
	})
}

// GET /traders/:id/ledger
func (h *TraderHandler) GetLedger(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	entries, total, err := h.traderService.Ledger(c.Request.Context(), id, params)
	if err != nil {
		respondError(c, err, traderSubject)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(entries, total, params))
}

// GET /traders/:id/statement
func (h *TraderHandler) GetStatement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	statement, err := h.traderService.Statement(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, traderSubject)
		return
	}

	utils.SuccessResponse(c, statement)
}

// POST /traders/:id/rebuild
func (h *TraderHandler) RebuildTotals(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	trader, err := h.traderService.RebuildTotals(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, traderSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTraderRebuilt),
		"trader":  trader,
	})
}
