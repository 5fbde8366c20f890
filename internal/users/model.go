package users

import (
	"strings"
	"time"
)

// User is a registered account that can connect YouTube and own boards.
type User struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email          string    `gorm:"column:email;size:320;not null;uniqueIndex"`
	HashedPassword string    `gorm:"column:hashed_password;size:128;not null"`
	UserName       string    `gorm:"column:user_name;size:190;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
