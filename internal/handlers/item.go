package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/altmarkt/altmarkt-backend/internal/services"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

type ItemHandler struct {
	itemService services.ItemService
}

func NewItemHandler(itemService services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

func (ih *ItemHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing identity"))
		return
	}
	companyID, ok := parseUintParam(c, "companyId")
	if !ok {
		return
	}
	var req struct {
		Items []struct {
			ExternalID    string `json:"external_id"`
			Name          string `json:"name"`
			Number        string `json:"number"`
			IsService     bool   `json:"is_service"`
			SalePrice     int    `json:"sale_price"`
			PurchasePrice int    `json:"purchase_price"`
		} `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("invalid request body"))
		return
	}

	items := make([]*types.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, &types.Item{
			ExternalID:    it.ExternalID,
			Name:          it.Name,
			Number:        it.Number,
			IsService:     it.IsService,
			SalePrice:     it.SalePrice,
			PurchasePrice: it.PurchasePrice,
		})
	}

	created, err := ih.itemService.CreateItems(c.Request.Context(), userID, companyID, items)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, services.ErrNotMember):
			status = http.StatusForbidden
		case errors.Is(err, services.ErrDuplicateItems):
			status = http.StatusConflict
		}
		RespondError(c, status, "create_failed", err)
		return
	}
	RespondOK(c, created)
}

func (ih *ItemHandler) List(c *gin.Context) {
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
	items, total, err := ih.itemService.ListItems(c.Request.Context(), companyID, offset, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, PagedResponse{Items: items, Total: total})
}
