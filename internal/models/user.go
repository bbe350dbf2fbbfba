package models

import "time"

// User roles recognised by the platform.
const (
	RoleStudent   = "student"
	RoleTeacher   = "teacher"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User is an authenticated account: a student, teacher, moderator or admin.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:255;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:32;not null" json:"role"`
	ClassID      *uint     `json:"class_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Class is a cohort students belong to, offered at registration time.
type Class struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
