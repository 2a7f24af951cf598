// internal/handlers/purchase.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tradebook/tradebook-backend/internal/i18n"
	"github.com/tradebook/tradebook-backend/internal/services"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type PurchaseHandler struct {
	purchaseService *services.PurchaseService
}

func NewPurchaseHandler(purchaseService *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
	}
}

// GET /purchases
func (h *PurchaseHandler) GetPurchases(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	r, ok := dateRange(c)
	if !ok {
		return
	}

	purchases, total, err := h.purchaseService.ListPurchases(c.Request.Context(), services.PurchaseSearchParams{
		PaginationParams: params,
		DateRange:        r,
		TraderID:         queryUint(c, "trader_id"),
	})
	if err != nil {
		respondError(c, err, purchaseSubject)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(purchases, total, params))
}

// POST /purchases
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.PurchaseRequest
	if !bindJSON(c, &req) {
		return
	}

	purchase, err := h.purchaseService.CreatePurchase(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, productSubject)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyPurchaseCreated),
		"purchase": purchase,
	})
}

// GET /purchases/:id
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	purchase, err := h.purchaseService.GetPurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, purchaseSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"purchase": purchase,
	})
}

// PUT /purchases/:id
func (h *PurchaseHandler) UpdatePurchase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.PurchaseRequest
	if !bindJSON(c, &req) {
		return
	}

	purchase, err := h.purchaseService.UpdatePurchase(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, purchaseSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyPurchaseUpdated),
		"purchase": purchase,
	})
}

// DELETE /purchases/:id
func (h *PurchaseHandler) DeletePurchase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.purchaseService.DeletePurchase(c.Request.Context(), id); err != nil {
		respondError(c, err, purchaseSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPurchaseDeleted),
	})
}
