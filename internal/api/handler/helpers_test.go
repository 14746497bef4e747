package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/config"
	"github.com/qs3c/laundry_go_server/internal/api/middleware"
	"github.com/qs3c/laundry_go_server/internal/loyalty"
	"github.com/qs3c/laundry_go_server/internal/pkg/jwt"
	"github.com/qs3c/laundry_go_server/internal/pkg/response"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/repository"
	"github.com/qs3c/laundry_go_server/internal/service"
	"github.com/qs3c/laundry_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testContext struct {
	DB      *gorm.DB
	Tariff  *TariffHandler
	Pricing *PricingHandler
	Clients *ClientHandler
	Orders  *OrderHandler
}

func setupHandlers(t *testing.T) (*testContext, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{Retry: config.RetryConfig{MaxAttempts: 3}}

	calc, err := pricing.NewCalculator(pricing.DefaultTariff())
	require.NoError(t, err)

	clientRepo := repository.NewClientRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	subs := service.NewSubscriptionService(clientRepo, subRepo, calc.Tariff(), nil)
	loyaltyService := service.NewLoyaltyService(db, ledgerRepo, repository.NewAccrualRepository(db), loyalty.DefaultRules(), cfg, nil)
	pricingService := service.NewPricingService(calc, clientRepo, subs)
	orderService := service.NewOrderService(db, calc, clientRepo, repository.NewOrderRepository(db),
		subRepo, subs, loyaltyService, nil, cfg, nil)
	clientService := service.NewClientService(db, clientRepo, ledgerRepo, nil)

	ctx := &testContext{
		DB:      db,
		Tariff:  NewTariffHandler(pricingService, loyaltyService),
		Pricing: NewPricingHandler(pricingService),
		Clients: NewClientHandler(clientService, loyaltyService, subs, orderService),
		Orders:  NewOrderHandler(orderService),
	}

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return ctx, cleanup
}

func mockAuth(userID int64, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.RoleKey, role)
		c.Next()
	}
}

func staffAuth() gin.HandlerFunc {
	return mockAuth(1, jwt.RoleStaff)
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "unexpected data %#v", resp.Data)
	return data
}
