package model

import "time"

const (
	LoginSuccess = "success"
	LoginFailed  = "failed"
)

type LoginLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index"`
	IP        string    `json:"ip" gorm:"size:64"`
	UserAgent string    `json:"user_agent" gorm:"size:255"`
	Status    string    `json:"status" gorm:"size:10"` // success, failed
	CreatedAt time.Time `json:"created_at"`
}
