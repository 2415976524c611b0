package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/altmarkt/altmarkt-backend/internal/services"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

type CompanyHandler struct {
	companyService services.CompanyService
}

func NewCompanyHandler(companyService services.CompanyService) *CompanyHandler {
	return &CompanyHandler{companyService: companyService}
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_param", errors.New("invalid "+name))
		return 0, false
	}
	return uint(v), true
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}

type companyRequest struct {
	Name             string         `json:"name"`
	Tin              string         `json:"tin"`
	EntityType       string         `json:"entity_type"`
	Description      string         `json:"description"`
	ShortDescription string         `json:"short_description"`
	Contacts         datatypes.JSON `json:"contacts"`
	Socials          datatypes.JSON `json:"socials"`
}

func (ch *CompanyHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing identity"))
		return
	}
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("invalid request body"))
		return
	}
	company := &types.Company{
		Name:             req.Name,
		Tin:              req.Tin,
		EntityType:       types.EntityType(req.EntityType),
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Contacts:         req.Contacts,
		Socials:          req.Socials,
	}
	created, err := ch.companyService.CreateCompany(c.Request.Context(), userID, company)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrTinTaken) {
			status = http.StatusConflict
		}
		RespondError(c, status, "create_failed", err)
		return
	}
	RespondOK(c, created)
}

func (ch *CompanyHandler) Get(c *gin.Context) {
	companyID, ok := parseUintParam(c, "companyId")
	if !ok {
		return
	}
	company, err := ch.companyService.GetCompany(c.Request.Context(), companyID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "company_not_found", err)
		return
	}
	RespondOK(c, company)
}

func (ch *CompanyHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	companies, total, err := ch.companyService.ListCompanies(c.Request.Context(), offset, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, PagedResponse{Items: companies, Total: total})
}

func (ch *CompanyHandler) Update(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing identity"))
		return
	}
	companyID, ok := parseUintParam(c, "companyId")
	if !ok {
		return
	}
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("invalid request body"))
		return
	}
	company := &types.Company{
		Name:             req.Name,
		Tin:              req.Tin,
		EntityType:       types.EntityType(req.EntityType),
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Contacts:         req.Contacts,
		Socials:          req.Socials,
	}
	company.ID = companyID
	updated, err := ch.companyService.UpdateCompany(c.Request.Context(), userID, company)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, services.ErrNotMember):
			status = http.StatusForbidden
		case errors.Is(err, services.ErrCompanyNotFound):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrTinTaken):
			status = http.StatusConflict
		}
		RespondError(c, status, "update_failed", err)
		return
	}
	RespondOK(c, updated)
}

func (ch *CompanyHandler) UploadLogo(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing identity"))
		return
	}
	companyID, ok := parseUintParam(c, "companyId")
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("image file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	defer file.Close()

	updated, err := ch.companyService.UploadLogo(c.Request.Context(), userID, companyID, fileHeader.Filename, file)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrNotMember) {
			status = http.StatusForbidden
		}
		RespondError(c, status, "upload_failed", err)
		return
	}
	RespondOK(c, updated)
}
