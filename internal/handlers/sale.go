// internal/handlers/sale.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tradebook/tradebook-backend/internal/i18n"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/services"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type SaleHandler struct {
	saleService *services.SaleService
}

func NewSaleHandler(saleService *services.SaleService) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
	}
}

// GET /sales
func (h *SaleHandler) GetSales(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	r, ok := dateRange(c)
	if !ok {
		return
	}

	searchParams := services.SaleSearchParams{
		PaginationParams: params,
		DateRange:        r,
		TraderID:         queryUint(c, "trader_id"),
	}
	if status := c.Query("status"); status != "" {
		saleStatus := models.SaleStatus(status)
		searchParams.Status = &saleStatus
	}

	sales, total, err := h.saleService.ListSales(c.Request.Context(), searchParams)
	if err != nil {
		respondError(c, err, saleSubject)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(sales, total, params))
}

// POST /sales
func (h *SaleHandler) CreateSale(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateSaleRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, err := h.saleService.CreateSale(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, saleSubject)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySaleCreated),
		"sale":    sale,
	})
}

// GET /sales/:id
func (h *SaleHandler) GetSale(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, saleSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"sale": sale,
	})
}

// DELETE /sales/:id
func (h *SaleHandler) DeleteSale(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.saleService.DeleteSale(c.Request.Context(), id); err != nil {
		respondError(c, err, saleSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySaleDeleted),
	})
}
