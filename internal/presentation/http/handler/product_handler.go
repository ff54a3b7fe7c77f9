package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/application/service"
	"github.com/spidlabs/spidpos/internal/domain/repository"
	"github.com/spidlabs/spidpos/internal/presentation/http/dto/request"
	"github.com/spidlabs/spidpos/internal/presentation/http/dto/response"
)

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	productService *service.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// List handles GET /api/products
func (h *ProductHandler) List(c *gin.Context) {
	var filter request.ProductFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	params := &repository.ProductFilterParams{ActiveOnly: filter.ActiveOnly}

	if filter.UpdatedSince != "" {
		since, err := time.Parse(time.RFC3339, filter.UpdatedSince)
		if err != nil {
			response.BadRequest(c, "updatedSince must be an RFC 3339 timestamp")
			return
		}
		params.UpdatedSince = &since
	}

	products, err := h.productService.ListProducts(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Items(c, products)
}

// Get handles GET /api/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid product ID")
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Item(c, 200, product)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req request.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &service.CreateProductInput{
		Name:       req.Name,
		PriceCents: req.PriceCents,
		VATRate:    req.VATRate,
		Category:   req.Category,
		SKU:        req.SKU,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Item(c, 201, product)
}

// Update handles PUT /api/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid product ID")
		return
	}

	var req request.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, &service.UpdateProductInput{
		Name:       req.Name,
		PriceCents: req.PriceCents,
		VATRate:    req.VATRate,
		Category:   req.Category,
		SKU:        req.SKU,
		IsActive:   req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Item(c, 200, product)
}
