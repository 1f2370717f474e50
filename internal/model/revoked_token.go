package model

import "time"

// RevokedToken marks a token id as logged out until it would have expired anyway.
type RevokedToken struct {
	JTI       string    `json:"jti" gorm:"primaryKey;size:64"`
	UserID    uint      `json:"user_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}
