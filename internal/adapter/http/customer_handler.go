package http

import (
	"context"
	"net/http"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	dir *usecase.Directory
}

func NewCustomerHandler(dir *usecase.Directory) *CustomerHandler {
	return &CustomerHandler{dir: dir}
}

type customerReq struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func (r customerReq) patch() domain.CustomerPatch {
	return domain.CustomerPatch{Name: r.Name, Email: r.Email, Phone: r.Phone}
}

func (h *CustomerHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	customers, err := h.dir.List(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]customerResp, len(customers))
	for i := range customers {
		out[i] = toCustomerResp(&customers[i])
	}
	ok(c, http.StatusOK, out, "")
}

func (h *CustomerHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	cust, err := h.dir.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toCustomerResp(cust), "")
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var req customerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var cust domain.Customer
	req.patch().Apply(&cust)

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	created, err := h.dir.Create(ctx, cust)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, toCustomerResp(created), "Customer created successfully")
}

func (h *CustomerHandler) Update(c *gin.Context) {
	var req customerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	cust, err := h.dir.Update(ctx, c.Param("id"), req.patch())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toCustomerResp(cust), "Customer updated successfully")
}

func (h *CustomerHandler) Delete(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	if err := h.dir.Delete(ctx, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, nil, "Customer deleted successfully")
}
