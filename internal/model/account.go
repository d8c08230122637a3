package model

import "time"

// AccountType 账户类型
type AccountType string

const (
	AccountTypeUser  AccountType = "user"
	AccountTypeAdmin AccountType = "admin"
)

// AccountStatus 账户状态
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusDisabled AccountStatus = "disabled"
)

// Account 注册向导创建的账户
type Account struct {
	BaseModel
	PublicID     int64         `gorm:"uniqueIndex;not null" json:"public_id"`
	Email        string        `gorm:"uniqueIndex;type:varchar(255);not null" json:"email"` // 小写存储
	Nickname     string        `gorm:"uniqueIndex;type:varchar(64);not null" json:"nickname"`
	PasswordHash string        `gorm:"type:varchar(72);not null" json:"-"`
	Phone        string        `gorm:"type:varchar(16);not null" json:"-"`
	PostalCode   string        `gorm:"type:varchar(16);not null" json:"postal_code"`
	Address      string        `gorm:"type:varchar(255);not null" json:"address"`
	Type         AccountType   `gorm:"type:varchar(16);not null;default:'user'" json:"type"`
	Status       AccountStatus `gorm:"type:varchar(16);not null;default:'active';index:idx_accounts_status" json:"status"`
	ImagePath    string        `gorm:"type:varchar(512);not null;default:''" json:"image_path"`

	// 第三步可选资料
	Gender    string `gorm:"type:varchar(16);not null;default:''" json:"gender"`
	BirthDate string `gorm:"type:varchar(10);not null;default:''" json:"birth_date"`

	TermsAgreedAt   time.Time `gorm:"not null" json:"terms_agreed_at"`
	PrivacyAgreedAt time.Time `gorm:"not null" json:"privacy_agreed_at"`
}

func (Account) TableName() string {
	return "accounts"
}
