package dto

// ========== 账户 REST DTO ==========

// AvailabilityResponse 邮箱/昵称可用性
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// CreateAccountRequest 创建账户请求，字段与向导提交的载荷一致
type CreateAccountRequest struct {
	Name         string       `json:"name" validate:"required,min=2,max=50"`
	Email        string       `json:"email" validate:"required,email"`
	Password     string       `json:"password" validate:"required,min=8"`
	Phone        string       `json:"phone" validate:"required"`
	PostalCode   string       `json:"postalCode" validate:"required"`
	Address      string       `json:"address" validate:"required"`
	Type         string       `json:"type" validate:"omitempty,oneof=user"`
	Image        string       `json:"image"`
	AgreeTerms   bool         `json:"agreeTerms" validate:"required"`
	AgreePrivacy bool         `json:"agreePrivacy" validate:"required"`
	Extra        AccountExtra `json:"extra"`
}

type AccountExtra struct {
	Gender    string `json:"gender" validate:"omitempty,oneof=male female other"`
	BirthDate string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
}

// AccountItem 创建成功后返回的账户摘要
type AccountItem struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// CreateAccountResponse 与账户服务的约定：ok=false 时 message 给出原因
type CreateAccountResponse struct {
	OK      bool         `json:"ok"`
	Item    *AccountItem `json:"item,omitempty"`
	Message string       `json:"message,omitempty"`
}

// UploadedFile 上传接口的返回项
type UploadedFile struct {
	Path string `json:"path"`
}

type UploadResponse struct {
	OK   bool           `json:"ok"`
	Item []UploadedFile `json:"item"`
}
