package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 时间戳由 gorm 维护，postgres 与 sqlite 通用
type BaseModel struct {
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
}
