package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"GreenNest/internal/model/dto"
	"GreenNest/internal/service"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/response"
	"GreenNest/utils"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login 邮箱密码登录
// POST /v1/auth/login
func (h *AuthHandler) Login(ctx context.Context, c *app.RequestContext) {
	var req dto.LoginRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}
	if fields := utils.ValidateStruct(req); fields != nil {
		response.ValidationError(ctx, c, errors.InvalidRequest, fields)
		return
	}

	tokens, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, tokens)
}

// RefreshToken 刷新访问令牌，旧 refresh token 随即失效
// POST /v1/auth/token/refresh
func (h *AuthHandler) RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}
	if fields := utils.ValidateStruct(req); fields != nil {
		response.ValidationError(ctx, c, errors.InvalidRequest, fields)
		return
	}

	tokens, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, tokens)
}
