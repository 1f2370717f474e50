package model

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	StatusActive   = "active"
	StatusInactive = "inactive"
)

type User struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Username  string     `json:"username" gorm:"size:100;uniqueIndex;not null"`
	Password  string     `json:"-" gorm:"size:255;not null"`
	Role      string     `json:"role" gorm:"size:20;not null;default:'user'"`
	Status    string     `json:"status" gorm:"size:20;not null;default:'active'"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin }
func (u *User) IsActive() bool { return u.Status == StatusActive }

func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleUser
}

func ValidUserStatus(s string) bool {
	return s == StatusActive || s == StatusInactive
}
