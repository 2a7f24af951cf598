// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tradebook/tradebook-backend/internal/i18n"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/services"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// GET /payments
func (h *PaymentHandler) GetPayments(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	r, ok := dateRange(c)
	if !ok {
		return
	}

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), services.PaymentSearchParams{
		PaginationParams: params,
		DateRange:        r,
		TraderID:         queryUint(c, "trader_id"),
		SaleID:           queryUint(c, "sale_id"),
		Method:           models.PaymentMethod(c.Query("method")),
	})
	if err != nil {
		respondError(c, err, paymentSubject)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(payments, total, params))
}

// POST /payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

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

// GET /payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, paymentSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"payment": payment,
	})
}

// DELETE /payments/:id
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.paymentService.DeletePayment(c.Request.Context(), id); err != nil {
		respondError(c, err, paymentSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentDeleted),
	})
}
