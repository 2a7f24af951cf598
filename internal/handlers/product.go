// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tradebook/tradebook-backend/internal/i18n"
	"github.com/tradebook/tradebook-backend/internal/services"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	// Build search parameters
	searchParams := services.ProductSearchParams{
		PaginationParams: params,
		Active:           queryBool(c, "active"),
	}
	if lowStock := queryBool(c, "low_stock"); lowStock != nil {
		searchParams.LowStock = *lowStock
	}

	products, total, err := h.productService.SearchProducts(c.Request.Context(), searchParams)
	if err != nil {
		respondError(c, err, productSubject)
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /products/low-stock
func (h *ProductHandler) GetLowStock(c *gin.Context) {
	products, err := h.productService.LowStockProducts(c.Request.Context())
	if err != nil {
		respondError(c, err, productSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"products": products,
	})
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, productSubject)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": product,
	})
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, productSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product":     product,
		"stock_value": product.StockValue(),
	})
}

// PUT /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, productSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": product,
	})
}

// DELETE /products/:id
func (h *ProductHandler) DeactivateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeactivateProduct(c.Request.Context(), id); err != nil {
		respondError(c, err, productSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductDeactivated),
	})
}
