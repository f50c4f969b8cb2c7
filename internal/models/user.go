package models

import (
	"time"
)

// User represents an account together with its public profile fields.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	FullName     string    `json:"full_name"`
	AvatarURL    string    `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}

// DisplayName is the name shown on leaderboards.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return "Unknown User"
}
