package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/altmarkt/altmarkt-backend/internal/data/repos"
	"github.com/altmarkt/altmarkt-backend/internal/services"
)

// SeoHandler serves the id+timestamp listings the sitemap generator polls.
type SeoHandler struct {
	productService services.ProductService
	companyRepo    repos.CompanyRepo
}

func NewSeoHandler(productService services.ProductService, companyRepo repos.CompanyRepo) *SeoHandler {
	return &SeoHandler{productService: productService, companyRepo: companyRepo}
}

type seoEntry struct {
	ID        uint      `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (sh *SeoHandler) ProductIDs(c *gin.Context) {
	products, err := sh.productService.ListProductIDs(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	entries := make([]seoEntry, 0, len(products))
	for _, p := range products {
		entries = append(entries, seoEntry{ID: p.ID, UpdatedAt: p.UpdatedAt})
	}
	RespondOK(c, entries)
}

func (sh *SeoHandler) CompanyIDs(c *gin.Context) {
	companies, err := sh.companyRepo.ListIDs(c.Request.Context(), nil)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	entries := make([]seoEntry, 0, len(companies))
	for _, company := range companies {
		entries = append(entries, seoEntry{ID: company.ID, UpdatedAt: company.UpdatedAt})
	}
	RespondOK(c, entries)
}
