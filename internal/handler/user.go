package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"GreenNest/internal/middleware"
	"GreenNest/internal/service"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/response"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GetUserProfile 获取用户资料
// GET /v1/users/me
func (h *UserHandler) GetUserProfile(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	profile, err := h.users.GetUserProfile(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, profile)
}
