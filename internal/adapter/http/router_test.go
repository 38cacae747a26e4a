package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aq2208/gorder-oms/internal/adapter/cache"
	"github.com/aq2208/gorder-oms/internal/adapter/http/middleware"
	"github.com/aq2208/gorder-oms/internal/adapter/queue"
	"github.com/aq2208/gorder-oms/internal/adapter/repo"
	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/security"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	store  *repo.MemoryStore
	tokens *security.TokenIssuer
	relay  *usecase.OutboxRelay
	token  string
}

type apiResp struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := repo.NewMemoryStore()
	tokens := security.NewTokenIssuer("test-secret", "order-api", "order-api-clients", time.Hour)
	auth := usecase.NewAuth(store, tokens, cache.NewRedisSessionStore(rdb))
	feed := usecase.NewNotifications(store)

	h := Handlers{
		Orders: NewOrderHandler(
			usecase.NewPlaceOrder(store, cache.NewRedisIdempotencyStore(rdb, time.Hour), nil, 5),
			usecase.NewUpdateOrderStatus(store),
			usecase.NewDeleteOrder(store),
			usecase.NewOrderQuery(store),
		),
		Products:  NewProductHandler(usecase.NewCatalog(store)),
		Customers: NewCustomerHandler(usecase.NewDirectory(store)),
		Stats:     NewStatsHandler(usecase.NewStats(store), feed),
		Auth:      NewAuthHandler(auth),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	api := &testAPI{
		t:      t,
		router: NewRouter(h, middleware.NewAuthz(auth), log),
		store:  store,
		tokens: tokens,
		relay:  usecase.NewOutboxRelay(store, queue.NewLocalDispatcher(queue.NewEventHandler(feed)), usecase.RelayConfig{}, log),
	}

	var sess struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	res := api.do(http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Admin", "email": "admin@example.com", "password": "admin123",
	}, "")
	require.Equal(t, http.StatusCreated, res.code, res.body.Error)
	require.NoError(t, json.Unmarshal(res.body.Data, &sess))
	require.Equal(t, "Bearer", sess.TokenType)
	api.token = sess.Token
	return api
}

type result struct {
	code   int
	header http.Header
	body   apiResp
}

func (a *testAPI) do(method, path string, body any, token string) result {
	a.t.Helper()
	return a.doWith(method, path, body, token, nil)
}

func (a *testAPI) doWith(method, path string, body any, token string, header map[string]string) result {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var out apiResp
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return result{code: w.Code, header: w.Header(), body: out}
}

func (a *testAPI) admin(method, path string, body any) result {
	a.t.Helper()
	return a.do(method, path, body, a.token)
}

func (a *testAPI) createProduct(name string, price float64, stock int) productResp {
	a.t.Helper()
	res := a.admin(http.MethodPost, "/api/products", map[string]any{"name": name, "price": price, "stock": stock})
	require.Equal(a.t, http.StatusCreated, res.code, res.body.Error)
	var p productResp
	require.NoError(a.t, json.Unmarshal(res.body.Data, &p))
	return p
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestPlaceOrderFlow(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct("Laptop", 100, 5)

	res := api.admin(http.MethodPost, "/api/orders", map[string]any{
		"customerName": "Ann",
		"items":        []map[string]any{{"productId": p.ID, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, res.code, res.body.Error)
	assert.True(t, res.body.Success)
	assert.Equal(t, "Order created successfully", res.body.Message)

	o := decode[orderResp](t, res.body.Data)
	assert.Equal(t, int64(1001), o.OrderNumber)
	assert.Equal(t, 300.0, o.Total)
	assert.Equal(t, "pending", o.Status)
	assert.NotEmpty(t, o.CreatedBy)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Laptop", o.Items[0].ProductName)

	res = api.admin(http.MethodGet, "/api/products/"+p.ID, nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, 2, decode[productResp](t, res.body.Data).Stock)

	res = api.admin(http.MethodGet, "/api/orders/"+o.ID, nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, o.ID, decode[orderResp](t, res.body.Data).ID)
}

func TestOrderKeepsPriceAfterCatalogChange(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct("Laptop", 100, 5)

	res := api.admin(http.MethodPost, "/api/orders", map[string]any{
		"customerName": "Ann",
		"items":        []map[string]any{{"productId": p.ID, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, res.code, res.body.Error)
	o := decode[orderResp](t, res.body.Data)

	res = api.admin(http.MethodPatch, "/api/products/"+p.ID, map[string]any{"price": 250})
	require.Equal(t, http.StatusOK, res.code, res.body.Error)
	assert.Equal(t, 250.0, decode[productResp](t, res.body.Data).Price)

	res = api.admin(http.MethodGet, "/api/orders/"+o.ID, nil)
	require.Equal(t, http.StatusOK, res.code)
	got := decode[orderResp](t, res.body.Data)
	assert.Equal(t, 300.0, got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 100.0, got.Items[0].Price)

	res = api.admin(http.MethodPatch, "/api/products/"+p.ID, map[string]any{"price": 1.005})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "ValidationError", res.body.Code)
}

func TestPlaceOrderRejections(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct("Mouse", 20, 5)

	tests := []struct {
		name     string
		body     map[string]any
		wantCode string
		wantErr  string
	}{
		{
			name:     "insufficient stock",
			body:     map[string]any{"customerName": "Ann", "items": []map[string]any{{"productId": p.ID, "quantity": 6}}},
			wantCode: "InsufficientStock",
			wantErr:  "Insufficient stock for Mouse. Available: 5",
		},
		{
			name:     "unknown product",
			body:     map[string]any{"customerName": "Ann", "items": []map[string]any{{"productId": "ghost", "quantity": 1}}},
			wantCode: "ProductNotFound",
			wantErr:  "Product not found: ghost",
		},
		{
			name:     "unknown customer",
			body:     map[string]any{"customerId": "nobody", "items": []map[string]any{{"productId": p.ID, "quantity": 1}}},
			wantCode: "CustomerNotFound",
		},
		{
			name:     "no items",
			body:     map[string]any{"customerName": "Ann", "items": []map[string]any{}},
			wantCode: "ValidationError",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := api.admin(http.MethodPost, "/api/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, res.code)
			assert.False(t, res.body.Success)
			assert.Equal(t, tt.wantCode, res.body.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, res.body.Error)
			}
		})
	}

	res := api.admin(http.MethodGet, "/api/products/"+p.ID, nil)
	assert.Equal(t, 5, decode[productResp](t, res.body.Data).Stock, "rejected orders must not touch stock")

	res = api.admin(http.MethodGet, "/api/orders", nil)
	assert.Empty(t, decode[[]orderResp](t, res.body.Data))
}

func TestPlaceOrderIdempotencyKey(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct("Keyboard", 40, 10)
	body := map[string]any{
		"customerName": "Ann",
		"items":        []map[string]any{{"productId": p.ID, "quantity": 1}},
	}
	key := map[string]string{"X-Idempotency-Key": "order-abc"}

	first := api.doWith(http.MethodPost, "/api/orders", body, api.token, key)
	require.Equal(t, http.StatusCreated, first.code, first.body.Error)
	replay := api.doWith(http.MethodPost, "/api/orders", body, api.token, key)
	require.Equal(t, http.StatusCreated, replay.code, replay.body.Error)

	assert.Equal(t, decode[orderResp](t, first.body.Data).ID, decode[orderResp](t, replay.body.Data).ID)

	res := api.admin(http.MethodGet, "/api/products/"+p.ID, nil)
	assert.Equal(t, 9, decode[productResp](t, res.body.Data).Stock, "a replayed key must not take stock twice")
}

func TestMalformedBody(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+api.token)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"ValidationError"`)
}

func TestOrderStatusSearchAndDelete(t *testing.T) {
	api := newTestAPI(t)
	laptop := api.createProduct("Laptop", 100.10, 10)
	mouse := api.createProduct("Mouse", 20, 10)

	place := func(customer string, id string, qty int) orderResp {
		res := api.admin(http.MethodPost, "/api/orders", map[string]any{
			"customerName": customer,
			"items":        []map[string]any{{"productId": id, "quantity": qty}},
		})
		require.Equal(t, http.StatusCreated, res.code, res.body.Error)
		return decode[orderResp](t, res.body.Data)
	}
	first := place("Ann Smith", laptop.ID, 3)
	second := place("Bob", mouse.ID, 2)

	res := api.admin(http.MethodGet, "/api/orders", nil)
	list := decode[[]orderResp](t, res.body.Data)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	for q, want := range map[string]string{"ann": first.ID, "MOUSE": second.ID, "1001": first.ID} {
		res = api.admin(http.MethodGet, "/api/orders/search?q="+q, nil)
		require.Equal(t, http.StatusOK, res.code)
		got := decode[[]orderResp](t, res.body.Data)
		require.Len(t, got, 1, q)
		assert.Equal(t, want, got[0].ID, q)
	}

	res = api.admin(http.MethodPut, "/api/orders/"+first.ID+"/status", map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, res.code, res.body.Error)
	assert.Equal(t, "completed", decode[orderResp](t, res.body.Data).Status)

	res = api.admin(http.MethodPatch, "/api/orders/"+first.ID+"/status", map[string]any{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "ValidationError", res.body.Code)

	res = api.admin(http.MethodPut, "/api/orders/missing/status", map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusNotFound, res.code)

	res = api.admin(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, res.code)
	stats := decode[statsResp](t, res.body.Data)
	assert.Equal(t, statsResp{TotalOrders: 2, TotalProducts: 2, TotalCustomers: 0, TotalRevenue: 300.3}, stats)

	res = api.admin(http.MethodDelete, "/api/orders/"+second.ID, nil)
	require.Equal(t, http.StatusOK, res.code)
	res = api.admin(http.MethodGet, "/api/products/"+mouse.ID, nil)
	assert.Equal(t, 10, decode[productResp](t, res.body.Data).Stock)

	res = api.admin(http.MethodGet, "/api/orders/"+second.ID, nil)
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, "Order not found", res.body.Error)
}

func TestProductAndCustomerCRUD(t *testing.T) {
	api := newTestAPI(t)

	res := api.admin(http.MethodPost, "/api/products", map[string]any{"name": "Desk"})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Name and price are required", res.body.Error)

	res = api.admin(http.MethodPost, "/api/products", map[string]any{"name": "Desk", "price": -1})
	assert.Equal(t, http.StatusBadRequest, res.code)

	p := api.createProduct("Desk", 250, 4)
	res = api.admin(http.MethodPatch, "/api/products/"+p.ID, map[string]any{"stock": 9})
	require.Equal(t, http.StatusOK, res.code, res.body.Error)
	updated := decode[productResp](t, res.body.Data)
	assert.Equal(t, 9, updated.Stock)
	assert.Equal(t, "Desk", updated.Name)

	res = api.admin(http.MethodDelete, "/api/products/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, res.code)
	res = api.admin(http.MethodDelete, "/api/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, "Product not found", res.body.Error)

	res = api.admin(http.MethodPost, "/api/customers", map[string]any{"name": "Ann", "email": "ann@example.com"})
	require.Equal(t, http.StatusCreated, res.code, res.body.Error)
	ann := decode[customerResp](t, res.body.Data)

	res = api.admin(http.MethodPost, "/api/customers", map[string]any{"name": "ANN"})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "DuplicateCustomer", res.body.Code)

	res = api.admin(http.MethodPost, "/api/customers", map[string]any{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "ValidationError", res.body.Code)

	res = api.admin(http.MethodPut, "/api/customers/"+ann.ID, map[string]any{"phone": "555-0100"})
	require.Equal(t, http.StatusOK, res.code, res.body.Error)
	assert.Equal(t, "555-0100", decode[customerResp](t, res.body.Data).Phone)

	res = api.admin(http.MethodGet, "/api/customers", nil)
	assert.Len(t, decode[[]customerResp](t, res.body.Data), 1)

	res = api.admin(http.MethodDelete, "/api/customers/"+ann.ID, nil)
	assert.Equal(t, http.StatusOK, res.code)
	res = api.admin(http.MethodGet, "/api/customers/"+ann.ID, nil)
	assert.Equal(t, http.StatusNotFound, res.code)
}

func TestAuthGuards(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(http.MethodGet, "/api/orders", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "No token, authorization denied", res.body.Error)
	assert.Contains(t, res.header.Get("WWW-Authenticate"), "invalid_token")

	res = api.do(http.MethodGet, "/api/orders", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "Token is not valid", res.body.Error)

	viewer := &domain.User{ID: "viewer-1", Name: "Vic", Email: "vic@example.com", Role: domain.RoleViewer, CreatedAt: time.Now()}
	require.NoError(t, api.store.Repos().Users.Create(context.Background(), viewer))
	token, _, err := api.tokens.Issue(viewer)
	require.NoError(t, err)

	res = api.do(http.MethodGet, "/api/products", nil, token)
	assert.Equal(t, http.StatusOK, res.code)

	res = api.do(http.MethodPost, "/api/products", map[string]any{"name": "X", "price": 1}, token)
	assert.Equal(t, http.StatusForbidden, res.code)
	assert.Equal(t, "Forbidden", res.body.Code)
}

func TestLoginProfileLogout(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "admin@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "InvalidCredentials", res.body.Code)

	res = api.do(http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Admin", "email": "admin@example.com", "password": "x",
	}, "")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "UserExists", res.body.Code)

	res = api.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "Admin@Example.com", "password": "admin123"}, "")
	require.Equal(t, http.StatusOK, res.code, res.body.Error)
	token := decode[sessionResp](t, res.body.Data).Token

	res = api.do(http.MethodGet, "/api/auth/profile", nil, token)
	require.Equal(t, http.StatusOK, res.code)
	u := decode[userResp](t, res.body.Data)
	assert.Equal(t, "admin@example.com", u.Email)
	assert.Equal(t, "admin", u.Role)

	res = api.do(http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, res.code, res.body.Error)

	res = api.do(http.MethodGet, "/api/auth/profile", nil, token)
	assert.Equal(t, http.StatusUnauthorized, res.code)
}

func TestNotificationsFeed(t *testing.T) {
	api := newTestAPI(t)
	p := api.createProduct("Monitor", 150, 6)
	res := api.admin(http.MethodPost, "/api/orders", map[string]any{
		"customerName": "Ann",
		"items":        []map[string]any{{"productId": p.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, res.code, res.body.Error)

	n, err := api.relay.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res = api.admin(http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, res.code)
	feed := decode[[]notificationResp](t, res.body.Data)
	require.Len(t, feed, 3)
	types := []string{feed[0].Type, feed[1].Type, feed[2].Type}
	assert.ElementsMatch(t, []string{"info", "success", "warning"}, types)

	res = api.admin(http.MethodGet, "/api/notifications?limit=1", nil)
	assert.Len(t, decode[[]notificationResp](t, res.body.Data), 1)

	res = api.admin(http.MethodGet, "/api/notifications?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, res.code)
}

func TestHealthAndNoRoute(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, res.code)

	res = api.do(http.MethodGet, "/api/nothing-here", nil, "")
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, "Endpoint not found", res.body.Error)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "oms_http_requests_total")
}
