package dto

// ========== User 相关 DTO ==========

// UserProfileData 用户资料数据
type UserProfileData struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
	PhoneMasked string `json:"phone_masked"`
	PostalCode  string `json:"postal_code"`
	Address     string `json:"address"`
	Image       string `json:"image,omitempty"`
	Gender      string `json:"gender,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}
