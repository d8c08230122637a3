package dto

// ========== Auth 相关 DTO ==========

// LoginRequest 邮箱密码登录
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse 登录与刷新共用
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         UserSnapshot `json:"user"`
}

// UserSnapshot 登录时的用户快照
type UserSnapshot struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Status   string `json:"status"`
}

// RefreshTokenRequest 刷新 token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
