package http

import (
	"context"
	"net/http"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	catalog *usecase.Catalog
}

func NewProductHandler(catalog *usecase.Catalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// productReq serves both create and partial update; absent fields stay nil.
type productReq struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Category *string          `json:"category"`
	Stock    *int             `json:"stock"`
}

func (r productReq) patch() domain.ProductPatch {
	return domain.ProductPatch{Name: r.Name, Price: r.Price, Category: r.Category, Stock: r.Stock}
}

func (h *ProductHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	products, err := h.catalog.List(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]productResp, len(products))
	for i := range products {
		out[i] = toProductResp(&products[i])
	}
	ok(c, http.StatusOK, out, "")
}

func (h *ProductHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	p, err := h.catalog.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toProductResp(p), "")
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Name == nil || req.Price == nil {
		writeError(c, &domain.ValidationError{Field: "product", Msg: "Name and price are required"})
		return
	}

	var p domain.Product
	req.patch().Apply(&p)

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	created, err := h.catalog.Create(ctx, p)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, toProductResp(created), "Product created successfully")
}

func (h *ProductHandler) Update(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	p, err := h.catalog.Update(ctx, c.Param("id"), req.patch())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toProductResp(p), "Product updated successfully")
}

func (h *ProductHandler) Delete(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	if err := h.catalog.Delete(ctx, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, nil, "Product deleted successfully")
}
