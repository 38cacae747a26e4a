package http

import (
	"context"
	"net/http"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/security"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth *usecase.Auth
}

func NewAuthHandler(auth *usecase.Auth) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResp struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userResp  `json:"user"`
}

func toSessionResp(s *usecase.Session) sessionResp {
	return sessionResp{Token: s.Token, TokenType: "Bearer", ExpiresAt: s.ExpiresAt, User: toUserResp(s.User)}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	s, err := h.auth.Register(ctx, usecase.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, toSessionResp(s), "User registered successfully")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	s, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toSessionResp(s), "Login successful")
}

func (h *AuthHandler) Profile(c *gin.Context) {
	p, found := security.PrincipalFrom(c.Request.Context())
	if !found {
		writeError(c, domain.ErrUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	u, err := h.auth.Profile(ctx, p.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toUserResp(u), "")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	p, found := security.PrincipalFrom(c.Request.Context())
	if !found {
		writeError(c, domain.ErrUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	if err := h.auth.Logout(ctx, p); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, nil, "Logged out")
}
