package models

import "time"

// Account is a registered user of the database credential backend.
type Account struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"name"`
	Email     string    `json:"email" gorm:"uniqueIndex"`
	Password  string    `json:"-"` // hashed, never serialize
	AvatarURL string    `json:"avatar_url"`
	Role      string    `json:"role" gorm:"default:user"`
}
