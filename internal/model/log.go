package model

import "time"

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	TargetUser   = "user"
	TargetLetter = "letter"
)

type OperationLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index"`
	Action    string    `json:"action" gorm:"size:20"`
	Target    string    `json:"target" gorm:"size:20"`
	TargetID  string    `json:"target_id" gorm:"size:32"`
	Details   string    `json:"details" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}
