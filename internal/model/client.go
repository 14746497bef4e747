package model

import (
	"time"
)

type Client struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Phone     string    `gorm:"size:30;uniqueIndex" json:"phone"`
	Email     *string   `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	Tier      string    `gorm:"size:20;not null;default:standard;index" json:"tier"` // standard, premium
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}
