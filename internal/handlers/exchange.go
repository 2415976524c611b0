package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/altmarkt/altmarkt-backend/internal/modules/exchange"
	"github.com/altmarkt/altmarkt-backend/internal/requestdata"
	"github.com/altmarkt/altmarkt-backend/internal/services"
)

// ExchangeHandler implements the CommerceML client contract plus the
// JSON-facing run/status endpoints. The protocol endpoints answer in plain
// text; that is what the uploading client parses.
type ExchangeHandler struct {
	authService     services.AuthService
	companyService  services.CompanyService
	exchangeService services.ExchangeService
}

func NewExchangeHandler(
	authService services.AuthService,
	companyService services.CompanyService,
	exchangeService services.ExchangeService,
) *ExchangeHandler {
	return &ExchangeHandler{
		authService:     authService,
		companyService:  companyService,
		exchangeService: exchangeService,
	}
}

// Protocol handles GET ?mode=init|checkauth. checkauth authenticates with
// HTTP basic credentials and hands back a bearer token; init reports the
// transfer parameters.
func (eh *ExchangeHandler) Protocol(c *gin.Context) {
	companyID, ok := parseUintParam(c, "companyId")
	if !ok {
		return
	}

	switch c.Query("mode") {
	case "checkauth":
		eh.checkauth(c, companyID)
	case "init":
		// init only reports transfer parameters and carries no tenant
		// data, so it answers without credentials like checkauth-first
		// clients expect.
		c.String(http.StatusOK, "zip=no\nfile_limit=%d\n", eh.exchangeService.FileLimit())
	default:
		c.String(http.StatusBadRequest, "failure\nunknown mode\n")
	}
}

func (eh *ExchangeHandler) checkauth(c *gin.Context, companyID uint) {
	email, password, ok := c.Request.BasicAuth()
	if !ok {
		c.Header("WWW-Authenticate", `Basic realm="exchange"`)
		c.String(http.StatusUnauthorized, "failure\nbasic auth required\n")
		return
	}

	access, _, err := eh.authService.LoginUser(c.Request.Context(), email, password)
	if err != nil {
		c.String(http.StatusUnauthorized, "failure\n%s\n", err.Error())
		return
	}

	ctx, err := eh.authService.SetContextFromToken(c.Request.Context(), access)
	if err != nil {
		c.String(http.StatusUnauthorized, "failure\n%s\n", err.Error())
		return
	}
	rd := requestdata.GetRequestData(ctx)
	if err := eh.companyService.RequireMember(ctx, companyID, rd.UserID); err != nil {
		c.String(http.StatusForbidden, "failure\n%s\n", err.Error())
		return
	}

	c.String(http.StatusOK, "success\nJWT\n%s\n", access)
}

// ReceiveFile handles POST ?mode=file&filename=x, streaming the request body
// into the tenant's exchange folder.
func (eh *ExchangeHandler) ReceiveFile(c *gin.Context) {
	companyID, ok := parseUintParam(c, "companyId")
	if !ok {
		return
	}
	if !eh.authorize(c, companyID) {
		return
	}
	if c.Query("mode") != "file" {
		c.String(http.StatusBadRequest, "failure\nunknown mode\n")
		return
	}

	filename := c.Query("filename")
	n, err := eh.exchangeService.ReceiveFile(c.Request.Context(), companyID, filename, c.Request.Body)
	if err != nil {
		c.String(http.StatusInternalServerError, "failure\n%s\n", err.Error())
		return
	}
	c.String(http.StatusOK, "success\nreceived %d bytes\n", n)
}

// Run triggers ingestion for one tenant. JWT-protected JSON endpoint.
func (eh *ExchangeHandler) Run(c *gin.Context) {
	companyID, ok := parseUintParam(c, "companyId")
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing identity"))
		return
	}
	if err := eh.companyService.RequireMember(c.Request.Context(), companyID, userID); err != nil {
		RespondError(c, http.StatusForbidden, "forbidden", err)
		return
	}

	res := eh.exchangeService.RunTenant(c.Request.Context(), companyID)
	switch res.Status {
	case exchange.StatusSuccess:
		RespondOK(c, gin.H{"status": res.Status, "products": res.Products})
	case exchange.StatusProgress:
		c.JSON(http.StatusConflict, gin.H{"status": res.Status})
	case exchange.StatusSkipped:
		RespondError(c, http.StatusNotFound, "company_not_found", fmt.Errorf("no exchange data for company %d", companyID))
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": res.Status,
			"code":   res.Code,
			"error":  res.Err.Error(),
		})
	}
}

// Status reports whether a run currently holds the tenant's folder lock.
func (eh *ExchangeHandler) Status(c *gin.Context) {
	companyID, ok := parseUintParam(c, "companyId")
	if !ok {
		return
	}
	inProgress, err := eh.exchangeService.InProgress(companyID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "status_failed", err)
		return
	}
	status := exchange.StatusSuccess
	if inProgress {
		status = exchange.StatusProgress
	}
	RespondOK(c, gin.H{"status": status, "in_progress": inProgress})
}

// authorize validates the bearer token carried by a protocol request and
// checks tenant membership, answering in protocol plain text on failure.
func (eh *ExchangeHandler) authorize(c *gin.Context, companyID uint) bool {
	token := bearerToken(c)
	if token == "" {
		c.String(http.StatusUnauthorized, "failure\nmissing token\n")
		return false
	}
	ctx, err := eh.authService.SetContextFromToken(c.Request.Context(), token)
	if err != nil {
		c.String(http.StatusUnauthorized, "failure\n%s\n", err.Error())
		return false
	}
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		c.String(http.StatusUnauthorized, "failure\nmissing identity\n")
		return false
	}
	if err := eh.companyService.RequireMember(ctx, companyID, rd.UserID); err != nil {
		c.String(http.StatusForbidden, "failure\n%s\n", err.Error())
		return false
	}
	c.Request = c.Request.WithContext(ctx)
	return true
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && (h[:7] == "Bearer " || h[:7] == "bearer ") {
		return h[7:]
	}
	return c.Query("token")
}
