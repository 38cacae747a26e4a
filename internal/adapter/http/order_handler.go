package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aq2208/gorder-oms/internal/security"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/gin-gonic/gin"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 2 * time.Second
)

type OrderHandler struct {
	place  *usecase.PlaceOrder
	status *usecase.UpdateOrderStatus
	del    *usecase.DeleteOrder
	query  *usecase.OrderQuery
}

func NewOrderHandler(place *usecase.PlaceOrder, status *usecase.UpdateOrderStatus, del *usecase.DeleteOrder, query *usecase.OrderQuery) *OrderHandler {
	return &OrderHandler{place: place, status: status, del: del, query: query}
}

type orderItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createOrderReq struct {
	CustomerID    string         `json:"customerId"`
	CustomerName  string         `json:"customerName"`
	CustomerEmail string         `json:"customerEmail"`
	CustomerPhone string         `json:"customerPhone"`
	Items         []orderItemReq `json:"items"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

// CreateOrder handler: translate to use case input
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	items := make([]usecase.OrderItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = usecase.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	p, _ := security.PrincipalFrom(c.Request.Context())

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	order, err := h.place.Execute(ctx, usecase.PlaceOrderInput{
		CustomerID:     req.CustomerID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		Items:          items,
		CreatedBy:      p.UserID,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"), // prevent duplicated requests
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, toOrderResp(order), "Order created successfully")
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	orders, err := h.query.List(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toOrderResps(orders), "")
}

func (h *OrderHandler) SearchOrders(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	orders, err := h.query.Search(ctx, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toOrderResps(orders), "")
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	order, err := h.query.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toOrderResp(order), "")
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	order, err := h.status.Execute(ctx, c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toOrderResp(order), "Order status updated")
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	if err := h.del.Execute(ctx, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, nil, "Order deleted successfully")
}
