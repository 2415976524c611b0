package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/altmarkt/altmarkt-backend/internal/modules/exchange"
	"github.com/altmarkt/altmarkt-backend/internal/requestdata"
	"github.com/altmarkt/altmarkt-backend/internal/services"
)

type fakeAuthService struct {
	services.AuthService
	userID uuid.UUID
}

func (f *fakeAuthService) LoginUser(_ context.Context, email, password string) (string, string, error) {
	if email == "seller@example.com" && password == "secret" {
		return "test-access-token", "test-refresh-token", nil
	}
	return "", "", services.ErrInvalidCredentials
}

func (f *fakeAuthService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString != "test-access-token" {
		return ctx, services.ErrInvalidToken
	}
	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      f.userID,
	}), nil
}

type fakeCompanyService struct {
	services.CompanyService
	memberOf uint
}

func (f *fakeCompanyService) RequireMember(_ context.Context, companyID uint, _ uuid.UUID) error {
	if companyID != f.memberOf {
		return services.ErrNotMember
	}
	return nil
}

type fakeExchangeService struct {
	received map[string]string
	result   exchange.RunResult
}

func (f *fakeExchangeService) ReceiveFile(_ context.Context, companyID uint, filename string, body io.Reader) (int64, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return 0, err
	}
	f.received[fmt.Sprintf("%d/%s", companyID, filename)] = string(data)
	return int64(len(data)), nil
}

func (f *fakeExchangeService) RunTenant(_ context.Context, _ uint) exchange.RunResult {
	return f.result
}

func (f *fakeExchangeService) RunAll(_ context.Context) ([]exchange.RunResult, error) {
	return nil, nil
}

func (f *fakeExchangeService) InProgress(_ uint) (bool, error) {
	return f.result.Status == exchange.StatusProgress, nil
}

func (f *fakeExchangeService) FileLimit() int64 {
	return 1 << 20
}

func newExchangeTestRouter(result exchange.RunResult) (*gin.Engine, *fakeExchangeService) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()
	svc := &fakeExchangeService{received: make(map[string]string), result: result}
	eh := NewExchangeHandler(
		&fakeAuthService{userID: userID},
		&fakeCompanyService{memberOf: 7},
		svc,
	)

	router := gin.New()
	router.GET("/api/exchange/:companyId", eh.Protocol)
	router.POST("/api/exchange/:companyId", eh.ReceiveFile)
	router.POST("/api/exchange/:companyId/run", func(c *gin.Context) {
		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		eh.Run(c)
	})
	router.GET("/api/exchange/:companyId/status", eh.Status)
	return router, svc
}

func TestExchangeCheckauth(t *testing.T) {
	router, _ := newExchangeTestRouter(exchange.RunResult{})

	req := httptest.NewRequest(http.MethodGet, "/api/exchange/7?mode=checkauth", nil)
	req.SetBasicAuth("seller@example.com", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", w.Code, w.Body.String())
	}
	lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	if len(lines) != 3 || lines[0] != "success" || lines[1] != "JWT" || lines[2] != "test-access-token" {
		t.Errorf("body lines = %q, want success/JWT/token", lines)
	}
}

func TestExchangeCheckauthRejectsBadCredentials(t *testing.T) {
	router, _ := newExchangeTestRouter(exchange.RunResult{})

	req := httptest.NewRequest(http.MethodGet, "/api/exchange/7?mode=checkauth", nil)
	req.SetBasicAuth("seller@example.com", "wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "failure") {
		t.Errorf("body = %q, want failure prefix", w.Body.String())
	}
}

func TestExchangeCheckauthRejectsNonMember(t *testing.T) {
	router, _ := newExchangeTestRouter(exchange.RunResult{})

	req := httptest.NewRequest(http.MethodGet, "/api/exchange/8?mode=checkauth", nil)
	req.SetBasicAuth("seller@example.com", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestExchangeInit(t *testing.T) {
	router, _ := newExchangeTestRouter(exchange.RunResult{})

	// init needs no credentials; the client may call it before checkauth.
	req := httptest.NewRequest(http.MethodGet, "/api/exchange/7?mode=init", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", w.Code, w.Body.String())
	}
	if got, want := w.Body.String(), "zip=no\nfile_limit=1048576\n"; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestExchangeReceiveFile(t *testing.T) {
	router, svc := newExchangeTestRouter(exchange.RunResult{})

	req := httptest.NewRequest(http.MethodPost, "/api/exchange/7?mode=file&filename=import0_1.xml", strings.NewReader("<x/>"))
	req.Header.Set("Authorization", "Bearer test-access-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", w.Code, w.Body.String())
	}
	if got := svc.received["7/import0_1.xml"]; got != "<x/>" {
		t.Errorf("stored content = %q", got)
	}
}

func TestExchangeReceiveFileRequiresToken(t *testing.T) {
	router, svc := newExchangeTestRouter(exchange.RunResult{})

	req := httptest.NewRequest(http.MethodPost, "/api/exchange/7?mode=file&filename=import0_1.xml", strings.NewReader("<x/>"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if len(svc.received) != 0 {
		t.Errorf("unauthenticated upload stored %v", svc.received)
	}
}

func TestExchangeRunStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		result     exchange.RunResult
		wantStatus int
	}{
		{name: "success", result: exchange.RunResult{Status: exchange.StatusSuccess, Products: 3}, wantStatus: http.StatusOK},
		{name: "progress", result: exchange.RunResult{Status: exchange.StatusProgress}, wantStatus: http.StatusConflict},
		{name: "skipped", result: exchange.RunResult{Status: exchange.StatusSkipped}, wantStatus: http.StatusNotFound},
		{
			name:       "error",
			result:     exchange.RunResult{Status: exchange.StatusError, Code: exchange.KindParse, Err: fmt.Errorf("bad xml")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := newExchangeTestRouter(tc.result)
			req := httptest.NewRequest(http.MethodPost, "/api/exchange/7/run", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d (body %q)", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}
