package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/altmarkt/altmarkt-backend/internal/services"
)

type ProductHandler struct {
	productService services.ProductService
}

func NewProductHandler(productService services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (ph *ProductHandler) Get(c *gin.Context) {
	productID, ok := parseUintParam(c, "productId")
	if !ok {
		return
	}
	product, err := ph.productService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "product_not_found", err)
		return
	}
	RespondOK(c, product)
}

func (ph *ProductHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	var companyID uint
	if raw := c.Query("company_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_param", err)
			return
		}
		companyID = uint(v)
	}
	products, total, err := ph.productService.ListProducts(c.Request.Context(), companyID, offset, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, PagedResponse{Items: products, Total: total})
}
